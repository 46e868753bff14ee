// Package meta implements the inode filesystem: a POSIX-like filesystem
// whose entire state lives in relational tables, per spec.md §4.2.
package meta

import (
	"database/sql"
	"sort"

	"github.com/ozanturksever/agentfs/pkg/metrics"
	"github.com/ozanturksever/agentfs/pkg/store"
	"github.com/ozanturksever/agentfs/pkg/utils"
)

var logger = utils.GetLogger("meta")

// txer is the subset of store.Store / store.Tx every resolver/fs method
// needs; it lets read-only lookups run directly against the Store while
// multi-step mutations run inside a store.Tx, without two copies of the
// lookup code.
type txer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Get(dest interface{}, query string, args ...interface{}) (bool, error)
	Find(dest interface{}, query string, args ...interface{}) error
}

// InodeFS is the POSIX surface over the embedded store.
type InodeFS struct {
	db        *store.Store
	chunkSize int64
}

func New(db *store.Store) *InodeFS {
	return &InodeFS{db: db, chunkSize: db.ChunkSize()}
}

func (fs *InodeFS) getInodeRow(tx txer, ino Ino) (inodeRow, error) {
	var row inodeRow
	found, err := tx.Get(&row, `SELECT ino, mode, uid, gid, size, atime, mtime, ctime FROM fs_inode WHERE ino = ?`, ino)
	if err != nil {
		return inodeRow{}, err
	}
	if !found {
		return inodeRow{}, errNoEnt("getattr", "")
	}
	return row, nil
}

func (fs *InodeFS) nlinkOf(tx txer, ino Ino) (int64, error) {
	var row struct {
		N int64 `xorm:"'n'"`
	}
	_, err := tx.Get(&row, `SELECT COUNT(*) AS n FROM fs_dentry WHERE ino = ?`, ino)
	if err != nil {
		return 0, err
	}
	return row.N, nil
}

func (fs *InodeFS) statOf(tx txer, path string, ino Ino) (Stat, error) {
	row, err := fs.getInodeRow(tx, ino)
	if err != nil {
		if fe, ok := err.(*Error); ok {
			fe.Path = path
			fe.Syscall = "stat"
		}
		return Stat{}, err
	}
	nlink, err := fs.nlinkOf(tx, ino)
	if err != nil {
		return Stat{}, err
	}
	if ino == RootIno {
		nlink = 1
	}
	return statFromRow(row, nlink), nil
}

// Stat resolves path and returns its attributes. lstat currently behaves
// identically: symlink dereferencing is not implemented yet, per spec.md §4.2.
func (fs *InodeFS) Stat(path string) (Stat, error) {
	return fs.stat("stat", path)
}

func (fs *InodeFS) Lstat(path string) (Stat, error) {
	return fs.stat("lstat", path)
}

func (fs *InodeFS) stat(syscall, path string) (st Stat, err error) {
	defer func() { err = normalizeStoreErr(err, syscall, path) }()
	ino, err := fs.resolve(fs.db, path)
	if err != nil {
		return Stat{}, err
	}
	return fs.statOf(fs.db, path, ino)
}

// Access is an existence-only (F_OK) check.
func (fs *InodeFS) Access(path string) (err error) {
	defer func() { err = normalizeStoreErr(err, "access", path) }()
	_, err = fs.resolve(fs.db, path)
	return err
}

func (fs *InodeFS) readChunks(tx txer, ino Ino) ([]byte, error) {
	var chunks []chunkRow
	if err := tx.Find(&chunks, `SELECT ino, chunk_index, data FROM fs_data WHERE ino = ? ORDER BY chunk_index ASC`, ino); err != nil {
		return nil, err
	}
	var out []byte
	for _, c := range chunks {
		out = append(out, c.Data...)
	}
	return out, nil
}

// ReadFile rejects a directory with EISDIR; it reads all chunks in
// ascending order, updates atime, and returns the concatenated bytes.
// Symlink inodes are not rejected: they have no chunk rows, so reading one
// returns empty content.
func (fs *InodeFS) ReadFile(path string) (data []byte, err error) {
	defer metrics.ObserveOp("readFile")()
	defer func() { err = normalizeStoreErr(err, "read", path) }()
	ino, err := fs.resolve(fs.db, path)
	if err != nil {
		return nil, err
	}
	row, err := fs.getInodeRow(fs.db, ino)
	if err != nil {
		return nil, err
	}
	st := statFromRow(row, 0)
	if st.IsDir() {
		return nil, errIsDir("read", path)
	}
	data, err = fs.readChunks(fs.db, ino)
	if err != nil {
		return nil, err
	}
	now := store.NowUnix()
	if _, err := fs.db.Exec(`UPDATE fs_inode SET atime = ? WHERE ino = ?`, now, ino); err != nil {
		return nil, err
	}
	return data, nil
}

// mkdirAllParents recursively creates missing intermediate directories on
// the way to dir, mirroring writeFile's "creates missing parent
// directories" behavior.
func (fs *InodeFS) mkdirAllParents(tx txer, dir string) (Ino, error) {
	segs := splitPath(dir)
	cur := RootIno
	path := ""
	for _, name := range segs {
		path += "/" + name
		child, ok, err := fs.lookupChild(tx, cur, name)
		if err != nil {
			return 0, err
		}
		if ok {
			cur = child
			continue
		}
		now := store.NowUnix()
		ino, err := fs.insertInode(tx, DefaultDirMode, 0, 0, 0, now)
		if err != nil {
			return 0, err
		}
		if err := fs.insertDentry(tx, cur, name, ino); err != nil {
			return 0, err
		}
		cur = ino
	}
	return cur, nil
}

func (fs *InodeFS) insertInode(tx txer, mode, uid, gid, size, now int64) (Ino, error) {
	res, err := tx.Exec(`INSERT INTO fs_inode(mode, uid, gid, size, atime, mtime, ctime) VALUES(?,?,?,?,?,?,?)`,
		mode, uid, gid, size, now, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return Ino(id), nil
}

func (fs *InodeFS) insertDentry(tx txer, parent Ino, name string, ino Ino) error {
	_, err := tx.Exec(`INSERT INTO fs_dentry(name, parent_ino, ino) VALUES(?,?,?)`, name, parent, ino)
	return err
}

func (fs *InodeFS) deleteDentry(tx txer, id int64) error {
	_, err := tx.Exec(`DELETE FROM fs_dentry WHERE id = ?`, id)
	return err
}

// purgeInodeIfOrphan deletes the inode row, its chunks and its symlink row
// once its last dentry is gone, per spec.md §3 invariant 5.
func (fs *InodeFS) purgeInodeIfOrphan(tx txer, ino Ino) error {
	nlink, err := fs.nlinkOf(tx, ino)
	if err != nil {
		return err
	}
	if nlink > 0 {
		return nil
	}
	if _, err := tx.Exec(`DELETE FROM fs_data WHERE ino = ?`, ino); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM fs_symlink WHERE ino = ?`, ino); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM fs_inode WHERE ino = ?`, ino); err != nil {
		return err
	}
	return nil
}

func (fs *InodeFS) writeChunks(tx txer, ino Ino, data []byte) error {
	if _, err := tx.Exec(`DELETE FROM fs_data WHERE ino = ?`, ino); err != nil {
		return err
	}
	size := fs.chunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	for idx := int64(0); idx*size < int64(len(data)) || (len(data) == 0 && idx == 0); idx++ {
		start := idx * size
		if start >= int64(len(data)) {
			break
		}
		end := start + size
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		if _, err := tx.Exec(`INSERT INTO fs_data(ino, chunk_index, data) VALUES(?,?,?)`, ino, idx, data[start:end]); err != nil {
			return err
		}
		if len(data) == 0 {
			break
		}
	}
	return nil
}

// WriteFile creates missing parent directories, then replaces the target's
// content. The target must not already exist as a directory.
func (fs *InodeFS) WriteFile(path string, content []byte) (err error) {
	defer metrics.ObserveOp("writeFile")()
	defer func() { err = normalizeStoreErr(err, "write", path) }()
	dir, base := parentPath(path)
	if base == "" {
		return errIsDir("write", path)
	}
	now := store.NowUnix()
	parentIno, err := fs.mkdirAllParents(fs.db, dir)
	if err != nil {
		return err
	}
	child, ok, err := fs.lookupChild(fs.db, parentIno, base)
	if err != nil {
		return err
	}
	var ino Ino
	if ok {
		row, err := fs.getInodeRow(fs.db, child)
		if err != nil {
			return err
		}
		st := statFromRow(row, 0)
		if st.IsDir() {
			return errIsDir("write", path)
		}
		ino = child
	} else {
		ino, err = fs.insertInode(fs.db, DefaultFileMode, 0, 0, 0, now)
		if err != nil {
			return err
		}
		if err := fs.insertDentry(fs.db, parentIno, base, ino); err != nil {
			return err
		}
	}
	if err := fs.writeChunks(fs.db, ino, content); err != nil {
		return err
	}
	_, err = fs.db.Exec(`UPDATE fs_inode SET size = ?, mtime = ? WHERE ino = ?`, len(content), now, ino)
	return err
}

// Readdir requires a directory and returns its children's names, ascending.
func (fs *InodeFS) Readdir(path string) ([]string, error) {
	entries, err := fs.readdir(path, false)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}

// ReaddirPlus is Readdir plus each child's attributes.
func (fs *InodeFS) ReaddirPlus(path string) ([]DirEntry, error) {
	return fs.readdir(path, true)
}

func (fs *InodeFS) readdir(path string, plus bool) (out []DirEntry, err error) {
	defer metrics.ObserveOp("readdir")()
	defer func() { err = normalizeStoreErr(err, "readdir", path) }()
	ino, err := fs.resolve(fs.db, path)
	if err != nil {
		return nil, err
	}
	row, err := fs.getInodeRow(fs.db, ino)
	if err != nil {
		return nil, err
	}
	st := statFromRow(row, 0)
	if err := guardIsDir("readdir", path, st); err != nil {
		return nil, err
	}
	var dentries []dentryRow
	if err := fs.db.Find(&dentries, `SELECT id, name, parent_ino, ino FROM fs_dentry WHERE parent_ino = ? ORDER BY name ASC`, ino); err != nil {
		return nil, err
	}
	out = make([]DirEntry, 0, len(dentries))
	for _, d := range dentries {
		e := DirEntry{Name: d.Name}
		if plus {
			cst, err := fs.statOf(fs.db, path+"/"+d.Name, d.Ino)
			if err != nil {
				continue
			}
			e.Stat = &cst
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Mkdir is non-recursive: the parent must already exist and be a directory.
func (fs *InodeFS) Mkdir(path string) (err error) {
	defer metrics.ObserveOp("mkdir")()
	defer func() { err = normalizeStoreErr(err, "mkdir", path) }()
	parentIno, base, err := fs.resolveParent(fs.db, path)
	if err != nil {
		return err
	}
	parentRow, err := fs.getInodeRow(fs.db, parentIno)
	if err != nil {
		return err
	}
	if err := guardIsDir("mkdir", path, statFromRow(parentRow, 0)); err != nil {
		return err
	}
	if _, ok, err := fs.lookupChild(fs.db, parentIno, base); err != nil {
		return err
	} else if ok {
		return errExist("mkdir", path)
	}
	now := store.NowUnix()
	ino, err := fs.insertInode(fs.db, DefaultDirMode, 0, 0, 0, now)
	if err != nil {
		return err
	}
	return fs.insertDentry(fs.db, parentIno, base, ino)
}

// Rmdir removes an empty, non-root directory.
func (fs *InodeFS) Rmdir(path string) (err error) {
	defer metrics.ObserveOp("rmdir")()
	defer func() { err = normalizeStoreErr(err, "rmdir", path) }()
	parentIno, base, err := fs.resolveParent(fs.db, path)
	if err != nil {
		return err
	}
	ino, ok, err := fs.lookupChild(fs.db, parentIno, base)
	if err != nil {
		return err
	}
	if !ok {
		return errNoEnt("rmdir", path)
	}
	if err := guardNotRoot("rmdir", path, ino); err != nil {
		return err
	}
	row, err := fs.getInodeRow(fs.db, ino)
	if err != nil {
		return err
	}
	st := statFromRow(row, 0)
	if err := guardIsDir("rmdir", path, st); err != nil {
		return err
	}
	var child struct {
		N int64 `xorm:"'n'"`
	}
	if _, err := fs.db.Get(&child, `SELECT COUNT(*) AS n FROM fs_dentry WHERE parent_ino = ?`, ino); err != nil {
		return err
	}
	if child.N > 0 {
		return errNotEmpty("rmdir", path)
	}
	d, err := fs.findDentryID(fs.db, parentIno, base)
	if err != nil {
		return err
	}
	if err := fs.deleteDentry(fs.db, d); err != nil {
		return err
	}
	return fs.purgeInodeIfOrphan(fs.db, ino)
}

func (fs *InodeFS) findDentryID(tx txer, parentIno Ino, name string) (int64, error) {
	var row dentryRow
	found, err := tx.Get(&row, `SELECT id, name, parent_ino, ino FROM fs_dentry WHERE parent_ino = ? AND name = ?`, parentIno, name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, errNoEnt("lookup", name)
	}
	return row.ID, nil
}

// Unlink removes a non-directory entry.
func (fs *InodeFS) Unlink(path string) (err error) {
	defer metrics.ObserveOp("unlink")()
	defer func() { err = normalizeStoreErr(err, "unlink", path) }()
	parentIno, base, err := fs.resolveParent(fs.db, path)
	if err != nil {
		return err
	}
	ino, ok, err := fs.lookupChild(fs.db, parentIno, base)
	if err != nil {
		return err
	}
	if !ok {
		return errNoEnt("unlink", path)
	}
	if err := guardNotRoot("unlink", path, ino); err != nil {
		return err
	}
	row, err := fs.getInodeRow(fs.db, ino)
	if err != nil {
		return err
	}
	st := statFromRow(row, 0)
	if st.IsDir() {
		return errIsDir("unlink", path)
	}
	d, err := fs.findDentryID(fs.db, parentIno, base)
	if err != nil {
		return err
	}
	if err := fs.deleteDentry(fs.db, d); err != nil {
		return err
	}
	return fs.purgeInodeIfOrphan(fs.db, ino)
}

// Rm is the unified removal op: rm(path, {force, recursive}).
func (fs *InodeFS) Rm(path string, opts RmOptions) (err error) {
	defer metrics.ObserveOp("rm")()
	defer func() { err = normalizeStoreErr(err, "rm", path) }()
	opts = normalizeRmOptions(opts)
	ino, err := fs.resolve(fs.db, path)
	if err != nil {
		if opts.Force {
			if fe, ok := err.(*Error); ok && fe.Code == ENOENT {
				return nil
			}
		}
		return err
	}
	if err := guardNotRoot("rm", path, ino); err != nil {
		return err
	}
	row, err := fs.getInodeRow(fs.db, ino)
	if err != nil {
		return err
	}
	st := statFromRow(row, 0)
	if err := guardSymlinkUnsupported("rm", path, st); err != nil {
		return err
	}
	if st.IsDir() {
		if !opts.Recursive {
			return errIsDir("rm", path)
		}
		if err := fs.rmRecursive(path, ino); err != nil {
			return err
		}
	}
	parentIno, base, err := fs.resolveParent(fs.db, path)
	if err != nil {
		return err
	}
	d, err := fs.findDentryID(fs.db, parentIno, base)
	if err != nil {
		return err
	}
	if err := fs.deleteDentry(fs.db, d); err != nil {
		return err
	}
	return fs.purgeInodeIfOrphan(fs.db, ino)
}

// rmRecursive removes everything under dirIno (but not dirIno's own
// dentry, which the caller removes) using an explicit stack so arbitrarily
// deep trees never recurse through the Go call stack, per spec.md §9. File
// children are deleted as soon as they're discovered; directories are
// recorded in discovery order and then deleted in reverse, which always
// removes a directory's children (discovered while processing it) before
// the directory itself.
func (fs *InodeFS) rmRecursive(path string, dirIno Ino) error {
	type dirFrame struct {
		ino       Ino
		path      string
		parentIno Ino
		name      string
	}
	stack := []dirFrame{{ino: dirIno, path: path}}
	var dirsDiscovered []dirFrame
	for len(stack) > 0 {
		n := len(stack) - 1
		top := stack[n]
		stack = stack[:n]

		var children []dentryRow
		if err := fs.db.Find(&children, `SELECT id, name, parent_ino, ino FROM fs_dentry WHERE parent_ino = ?`, top.ino); err != nil {
			return err
		}
		for _, c := range children {
			row, err := fs.getInodeRow(fs.db, c.Ino)
			if err != nil {
				return err
			}
			cst := statFromRow(row, 0)
			childPath := top.path + "/" + c.Name
			if err := guardSymlinkUnsupported("rm", childPath, cst); err != nil {
				return err
			}
			if cst.IsDir() {
				frame := dirFrame{ino: c.Ino, path: childPath, parentIno: top.ino, name: c.Name}
				stack = append(stack, frame)
				dirsDiscovered = append(dirsDiscovered, frame)
				continue
			}
			if err := fs.deleteDentry(fs.db, c.ID); err != nil {
				return err
			}
			if err := fs.purgeInodeIfOrphan(fs.db, c.Ino); err != nil {
				return err
			}
		}
	}

	for i := len(dirsDiscovered) - 1; i >= 0; i-- {
		d := dirsDiscovered[i]
		id, err := fs.findDentryID(fs.db, d.parentIno, d.name)
		if err != nil {
			return err
		}
		if err := fs.deleteDentry(fs.db, id); err != nil {
			return err
		}
		if err := fs.purgeInodeIfOrphan(fs.db, d.ino); err != nil {
			return err
		}
	}
	return nil
}
