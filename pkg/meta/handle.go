package meta

import (
	"github.com/ozanturksever/agentfs/pkg/metrics"
	"github.com/ozanturksever/agentfs/pkg/store"
)

// Handle is bound to a path, not an inode number: per spec.md §9, every
// write-path operation re-resolves the path so a policy change made after
// Open takes effect on the next Pwrite/Truncate.
type Handle struct {
	fs   *InodeFS
	path string
	ino  Ino
}

// Open verifies path resolves to a regular file and returns a handle over
// it. Read permission is the caller's (Protected FS's) concern at open
// time; write permission is re-checked by the caller on every Pwrite/Truncate.
func (fs *InodeFS) Open(path string) (h *Handle, err error) {
	defer metrics.ObserveOp("open")()
	defer func() { err = normalizeStoreErr(err, "open", path) }()
	path = normalizePath(path)
	ino, err := fs.resolve(fs.db, path)
	if err != nil {
		return nil, err
	}
	row, err := fs.getInodeRow(fs.db, ino)
	if err != nil {
		return nil, err
	}
	st := statFromRow(row, 0)
	if err := guardIsRegular("open", path, st); err != nil {
		return nil, err
	}
	return &Handle{fs: fs, path: path, ino: ino}, nil
}

// Path is the handle's bound path, exposed so Protected FS can re-run its
// write check against the right path on every call.
func (h *Handle) Path() string { return h.path }

func (h *Handle) resolveIno(syscall string) (Ino, error) {
	ino, err := h.fs.resolve(h.fs.db, h.path)
	if err != nil {
		return 0, asErr(err, syscall, h.path)
	}
	return ino, nil
}

// Pread may span multiple chunks; it slices the concatenated chunk bytes
// to [offset, offset+size).
func (h *Handle) Pread(offset, size int64) (out []byte, err error) {
	defer metrics.ObserveOp("pread")()
	defer func() { err = normalizeStoreErr(err, "pread", h.path) }()
	ino, err := h.resolveIno("pread")
	if err != nil {
		return nil, err
	}
	data, err := h.fs.readChunks(h.fs.db, ino)
	if err != nil {
		return nil, err
	}
	if offset >= int64(len(data)) {
		return nil, nil
	}
	end := offset + size
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	out = make([]byte, end-offset)
	copy(out, data[offset:end])
	return out, nil
}

// Pwrite is a sparse/partial write: it read-modify-writes the
// partially-touched boundary chunks and leaves untouched chunks alone.
func (h *Handle) Pwrite(offset int64, data []byte) (n int, err error) {
	defer metrics.ObserveOp("pwrite")()
	defer func() { err = normalizeStoreErr(err, "pwrite", h.path) }()
	ino, err := h.resolveIno("pwrite")
	if err != nil {
		return 0, err
	}
	current, err := h.fs.readChunks(h.fs.db, ino)
	if err != nil {
		return 0, err
	}
	end := offset + int64(len(data))
	if end > int64(len(current)) {
		grown := make([]byte, end)
		copy(grown, current)
		current = grown
	}
	copy(current[offset:end], data)

	if err := h.fs.writeChunks(h.fs.db, ino, current); err != nil {
		return 0, err
	}
	now := store.NowUnix()
	if _, err := h.fs.db.Exec(`UPDATE fs_inode SET size = ?, mtime = ? WHERE ino = ?`, len(current), now, ino); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Truncate drops chunks beyond the new end and trims the final chunk.
func (h *Handle) Truncate(size int64) (err error) {
	defer metrics.ObserveOp("truncate")()
	defer func() { err = normalizeStoreErr(err, "truncate", h.path) }()
	ino, err := h.resolveIno("truncate")
	if err != nil {
		return err
	}
	current, err := h.fs.readChunks(h.fs.db, ino)
	if err != nil {
		return err
	}
	var next []byte
	if size <= int64(len(current)) {
		next = current[:size]
	} else {
		next = make([]byte, size)
		copy(next, current)
	}
	if err := h.fs.writeChunks(h.fs.db, ino, next); err != nil {
		return err
	}
	now := store.NowUnix()
	_, err = h.fs.db.Exec(`UPDATE fs_inode SET size = ?, mtime = ? WHERE ino = ?`, len(next), now, ino)
	return err
}

// Fsync is a no-op beyond committing any open transaction: every store
// call here already auto-commits, so there is nothing further to flush.
func (h *Handle) Fsync() error { return nil }

// Fstat re-resolves the handle's path and returns its current attributes.
func (h *Handle) Fstat() (st Stat, err error) {
	defer func() { err = normalizeStoreErr(err, "fstat", h.path) }()
	ino, err := h.resolveIno("fstat")
	if err != nil {
		return Stat{}, err
	}
	return h.fs.statOf(h.fs.db, h.path, ino)
}
