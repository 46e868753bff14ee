package meta

import (
	"strings"

	"github.com/ozanturksever/agentfs/pkg/metrics"
	"github.com/ozanturksever/agentfs/pkg/store"
)

// isDescendantPath reports whether child is newPath/oldPath-relative
// descendant of parent (same path or nested under it), used for rename's
// cycle check: rename(/a, /a/b) must fail.
func isDescendantPath(parent, child string) bool {
	parent = normalizePath(parent)
	child = normalizePath(child)
	if parent == child {
		return true
	}
	if parent == "/" {
		return true
	}
	return strings.HasPrefix(child, parent+"/")
}

// Rename is transactional: destination removal, dentry move and timestamp
// updates all happen under one BEGIN/COMMIT, rolling back on any error.
func (fs *InodeFS) Rename(oldPath, newPath string) (err error) {
	defer metrics.ObserveOp("rename")()
	defer func() { err = normalizeStoreErr(err, "rename", oldPath) }()
	oldPath = normalizePath(oldPath)
	newPath = normalizePath(newPath)
	if oldPath == newPath {
		return nil
	}
	if oldPath == "/" || newPath == "/" {
		return errPerm("rename", newPath)
	}

	tx, err := fs.db.Begin()
	if err != nil {
		return err
	}
	if err := fs.renameTx(tx, oldPath, newPath); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (fs *InodeFS) renameTx(tx *store.Tx, oldPath, newPath string) error {
	srcParentIno, srcBase, err := fs.resolveParent(tx, oldPath)
	if err != nil {
		return asErr(err, "rename", oldPath)
	}
	srcIno, ok, err := fs.lookupChild(tx, srcParentIno, srcBase)
	if err != nil {
		return err
	}
	if !ok {
		return errNoEnt("rename", oldPath)
	}
	if err := guardNotRoot("rename", oldPath, srcIno); err != nil {
		return err
	}

	srcRow, err := fs.getInodeRow(tx, srcIno)
	if err != nil {
		return err
	}
	srcSt := statFromRow(srcRow, 0)
	if err := guardSymlinkUnsupported("rename", oldPath, srcSt); err != nil {
		return err
	}

	if srcSt.IsDir() && isDescendantPath(oldPath, newPath) {
		return errInval("rename", newPath, "destination is inside source directory")
	}

	dstParentIno, dstBase, err := fs.resolveParent(tx, newPath)
	if err != nil {
		return asErr(err, "rename", newPath)
	}
	dstParentRow, err := fs.getInodeRow(tx, dstParentIno)
	if err != nil {
		return err
	}
	if err := guardIsDir("rename", newPath, statFromRow(dstParentRow, 0)); err != nil {
		return err
	}

	dstIno, dstExists, err := fs.lookupChild(tx, dstParentIno, dstBase)
	if err != nil {
		return err
	}
	if dstExists {
		if err := guardNotRoot("rename", newPath, dstIno); err != nil {
			return err
		}
		dstRow, err := fs.getInodeRow(tx, dstIno)
		if err != nil {
			return err
		}
		dstSt := statFromRow(dstRow, 0)
		if err := guardSymlinkUnsupported("rename", newPath, dstSt); err != nil {
			return err
		}
		switch {
		case srcSt.IsDir() && !dstSt.IsDir():
			return errNotDir("rename", newPath)
		case !srcSt.IsDir() && dstSt.IsDir():
			return errIsDir("rename", newPath)
		case dstSt.IsDir():
			var n struct {
				N int64 `xorm:"'n'"`
			}
			if _, err := tx.Get(&n, `SELECT COUNT(*) AS n FROM fs_dentry WHERE parent_ino = ?`, dstIno); err != nil {
				return err
			}
			if n.N > 0 {
				return errNotEmpty("rename", newPath)
			}
		}
		dstDentryID, err := fs.findDentryID(tx, dstParentIno, dstBase)
		if err != nil {
			return err
		}
		if err := fs.deleteDentry(tx, dstDentryID); err != nil {
			return err
		}
		if err := fs.purgeInodeIfOrphan(tx, dstIno); err != nil {
			return err
		}
	}

	now := store.NowUnix()
	srcDentryID, err := fs.findDentryID(tx, srcParentIno, srcBase)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE fs_dentry SET parent_ino = ?, name = ? WHERE id = ?`, dstParentIno, dstBase, srcDentryID); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE fs_inode SET ctime = ? WHERE ino = ?`, now, srcIno); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE fs_inode SET mtime = ?, ctime = ? WHERE ino = ?`, now, now, srcParentIno); err != nil {
		return err
	}
	if dstParentIno != srcParentIno {
		if _, err := tx.Exec(`UPDATE fs_inode SET mtime = ?, ctime = ? WHERE ino = ?`, now, now, dstParentIno); err != nil {
			return err
		}
	}
	return nil
}

// CopyFile is transactional: src must be a readable regular file; dest's
// parent must already exist (no auto-create, unlike WriteFile).
func (fs *InodeFS) CopyFile(src, dest string) (err error) {
	defer metrics.ObserveOp("copyFile")()
	defer func() { err = normalizeStoreErr(err, "copyFile", src) }()
	src = normalizePath(src)
	dest = normalizePath(dest)
	if src == dest {
		return errInval("copyFile", dest, "source and destination are identical")
	}

	tx, err := fs.db.Begin()
	if err != nil {
		return err
	}
	if err := fs.copyFileTx(tx, src, dest); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (fs *InodeFS) copyFileTx(tx *store.Tx, src, dest string) error {
	srcIno, err := fs.resolve(tx, src)
	if err != nil {
		return asErr(err, "copyFile", src)
	}
	srcRow, err := fs.getInodeRow(tx, srcIno)
	if err != nil {
		return err
	}
	srcSt := statFromRow(srcRow, 0)
	if err := guardIsRegular("copyFile", src, srcSt); err != nil {
		return err
	}

	dstParentIno, dstBase, err := fs.resolveParent(tx, dest)
	if err != nil {
		return asErr(err, "copyFile", dest)
	}
	dstParentRow, err := fs.getInodeRow(tx, dstParentIno)
	if err != nil {
		return err
	}
	if err := guardIsDir("copyFile", dest, statFromRow(dstParentRow, 0)); err != nil {
		return err
	}

	now := store.NowUnix()
	dstIno, exists, err := fs.lookupChild(tx, dstParentIno, dstBase)
	if err != nil {
		return err
	}

	var chunks []chunkRow
	if err := tx.Find(&chunks, `SELECT ino, chunk_index, data FROM fs_data WHERE ino = ? ORDER BY chunk_index ASC`, srcIno); err != nil {
		return err
	}

	if exists {
		dstRow, err := fs.getInodeRow(tx, dstIno)
		if err != nil {
			return err
		}
		dstSt := statFromRow(dstRow, 0)
		if dstSt.IsDir() {
			return errIsDir("copyFile", dest)
		}
		if err := guardSymlinkUnsupported("copyFile", dest, dstSt); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM fs_data WHERE ino = ?`, dstIno); err != nil {
			return err
		}
		for _, c := range chunks {
			if _, err := tx.Exec(`INSERT INTO fs_data(ino, chunk_index, data) VALUES(?,?,?)`, dstIno, c.ChunkIndex, c.Data); err != nil {
				return err
			}
		}
		_, err = tx.Exec(`UPDATE fs_inode SET mode = ?, uid = ?, gid = ?, size = ?, mtime = ?, ctime = ? WHERE ino = ?`,
			srcRow.Mode, srcRow.Uid, srcRow.Gid, srcRow.Size, now, now, dstIno)
		return err
	}

	newIno, err := fs.insertInode(tx, srcRow.Mode, srcRow.Uid, srcRow.Gid, srcRow.Size, now)
	if err != nil {
		return err
	}
	if err := fs.insertDentry(tx, dstParentIno, dstBase, newIno); err != nil {
		return err
	}
	for _, c := range chunks {
		if _, err := tx.Exec(`INSERT INTO fs_data(ino, chunk_index, data) VALUES(?,?,?)`, newIno, c.ChunkIndex, c.Data); err != nil {
			return err
		}
	}
	return nil
}
