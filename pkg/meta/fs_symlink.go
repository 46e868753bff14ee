package meta

import (
	"github.com/ozanturksever/agentfs/pkg/metrics"
	"github.com/ozanturksever/agentfs/pkg/store"
)

// Symlink creates a symlink inode pointing at target, with no normalization
// of the target string (spec.md §4.2).
func (fs *InodeFS) Symlink(target, linkpath string) (err error) {
	defer metrics.ObserveOp("symlink")()
	defer func() { err = normalizeStoreErr(err, "symlink", linkpath) }()
	parentIno, base, err := fs.resolveParent(fs.db, linkpath)
	if err != nil {
		return err
	}
	parentRow, err := fs.getInodeRow(fs.db, parentIno)
	if err != nil {
		return err
	}
	if err := guardIsDir("symlink", linkpath, statFromRow(parentRow, 0)); err != nil {
		return err
	}
	if _, ok, err := fs.lookupChild(fs.db, parentIno, base); err != nil {
		return err
	} else if ok {
		return errExist("symlink", linkpath)
	}

	now := store.NowUnix()
	ino, err := fs.insertInode(fs.db, ModeSymlink|0o777, 0, 0, int64(len(target)), now)
	if err != nil {
		return err
	}
	if err := fs.insertDentry(fs.db, parentIno, base, ino); err != nil {
		return err
	}
	_, err = fs.db.Exec(`INSERT INTO fs_symlink(ino, target) VALUES(?,?)`, ino, target)
	return err
}

// Readlink returns the raw target string stored for a symlink inode.
func (fs *InodeFS) Readlink(path string) (target string, err error) {
	defer metrics.ObserveOp("readlink")()
	defer func() { err = normalizeStoreErr(err, "readlink", path) }()
	ino, err := fs.resolve(fs.db, path)
	if err != nil {
		return "", err
	}
	row, err := fs.getInodeRow(fs.db, ino)
	if err != nil {
		return "", err
	}
	st := statFromRow(row, 0)
	if !st.IsSymlink() {
		return "", errInval("readlink", path, "not a symlink")
	}
	var sym symlinkRow
	found, err := fs.db.Get(&sym, `SELECT ino, target FROM fs_symlink WHERE ino = ?`, ino)
	if err != nil {
		return "", err
	}
	if !found {
		return "", errNoEnt("readlink", path)
	}
	return sym.Target, nil
}

// StatFS returns bulk counters derived from the database, used by the FUSE
// bridge (out of scope here).
func (fs *InodeFS) StatFS() (st StatFS, err error) {
	defer metrics.ObserveOp("statfs")()
	defer func() { err = normalizeStoreErr(err, "statfs", "/") }()
	var inodes struct {
		N int64 `xorm:"'n'"`
	}
	if _, err := fs.db.Get(&inodes, `SELECT COUNT(*) AS n FROM fs_inode`); err != nil {
		return StatFS{}, err
	}
	var bytes struct {
		N int64 `xorm:"'n'"`
	}
	if _, err := fs.db.Get(&bytes, `SELECT COALESCE(SUM(size), 0) AS n FROM fs_inode`); err != nil {
		return StatFS{}, err
	}
	return StatFS{
		TotalBytes:  bytes.N,
		FreeBytes:   0,
		TotalInodes: inodes.N,
		FreeInodes:  0,
	}, nil
}
