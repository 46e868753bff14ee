package access

import (
	"github.com/ozanturksever/agentfs/pkg/meta"
)

// ProtectedFS interposes Access Policy checks on every Inode FS entry
// point, per spec.md §4.4's operation-to-check mapping.
type ProtectedFS struct {
	fs     *meta.InodeFS
	policy *Policy
}

func NewProtectedFS(fs *meta.InodeFS, policy *Policy) *ProtectedFS {
	return &ProtectedFS{fs: fs, policy: policy}
}

func (p *ProtectedFS) check(op Operation, path string, data map[string]interface{}) error {
	return p.policy.CheckAccessOrThrow(op, path, data)
}

func (p *ProtectedFS) Stat(path string) (meta.Stat, error) {
	if err := p.check(OpStat, path, nil); err != nil {
		return meta.Stat{}, err
	}
	return p.fs.Stat(path)
}

func (p *ProtectedFS) Lstat(path string) (meta.Stat, error) {
	if err := p.check(OpStat, path, nil); err != nil {
		return meta.Stat{}, err
	}
	return p.fs.Lstat(path)
}

func (p *ProtectedFS) Access(path string) error {
	if err := p.check(OpStat, path, nil); err != nil {
		return err
	}
	return p.fs.Access(path)
}

func (p *ProtectedFS) ReadFile(path string) ([]byte, error) {
	if err := p.check(OpRead, path, nil); err != nil {
		return nil, err
	}
	return p.fs.ReadFile(path)
}

func (p *ProtectedFS) WriteFile(path string, content []byte) error {
	if err := p.check(OpWrite, path, nil); err != nil {
		return err
	}
	return p.fs.WriteFile(path, content)
}

func (p *ProtectedFS) Readdir(path string) ([]string, error) {
	if err := p.check(OpReaddir, path, nil); err != nil {
		return nil, err
	}
	return p.fs.Readdir(path)
}

func (p *ProtectedFS) ReaddirPlus(path string) ([]meta.DirEntry, error) {
	if err := p.check(OpReaddir, path, nil); err != nil {
		return nil, err
	}
	return p.fs.ReaddirPlus(path)
}

func (p *ProtectedFS) Mkdir(path string) error {
	if err := p.check(OpMkdir, path, nil); err != nil {
		return err
	}
	return p.fs.Mkdir(path)
}

func (p *ProtectedFS) Rmdir(path string) error {
	if err := p.check(OpDelete, path, nil); err != nil {
		return err
	}
	return p.fs.Rmdir(path)
}

func (p *ProtectedFS) Unlink(path string) error {
	if err := p.check(OpDelete, path, nil); err != nil {
		return err
	}
	return p.fs.Unlink(path)
}

func (p *ProtectedFS) Rm(path string, opts meta.RmOptions) error {
	if err := p.check(OpDelete, path, nil); err != nil {
		return err
	}
	return p.fs.Rm(path, opts)
}

// Rename checks OpRename on the source and OpWrite on the destination,
// since a rename both removes the source name and (potentially)
// overwrites the destination's content.
func (p *ProtectedFS) Rename(oldPath, newPath string) error {
	if err := p.check(OpRename, oldPath, nil); err != nil {
		return err
	}
	if err := p.check(OpWrite, newPath, nil); err != nil {
		return err
	}
	return p.fs.Rename(oldPath, newPath)
}

// CopyFile checks OpRead on the source and OpWrite on the destination.
func (p *ProtectedFS) CopyFile(src, dest string) error {
	if err := p.check(OpRead, src, nil); err != nil {
		return err
	}
	if err := p.check(OpWrite, dest, nil); err != nil {
		return err
	}
	return p.fs.CopyFile(src, dest)
}

func (p *ProtectedFS) Symlink(target, linkpath string) error {
	if err := p.check(OpSymlink, linkpath, map[string]interface{}{"linkpath": linkpath}); err != nil {
		return err
	}
	return p.fs.Symlink(target, linkpath)
}

func (p *ProtectedFS) Readlink(path string) (string, error) {
	if err := p.check(OpRead, path, nil); err != nil {
		return "", err
	}
	return p.fs.Readlink(path)
}

// StatFS is globally allowed: there is no per-path concept for it.
func (p *ProtectedFS) StatFS() (meta.StatFS, error) {
	return p.fs.StatFS()
}

// Handle wraps a meta.Handle: Pread inherits the open-time read check,
// while Pwrite and Truncate each re-check write on the handle's bound path
// at call time, so a policy change made while the handle is held still
// takes effect (spec.md §4.4).
type Handle struct {
	h      *meta.Handle
	policy *Policy
}

// Open checks OpRead on path, then returns a handle that re-checks OpWrite
// on every Pwrite/Truncate.
func (p *ProtectedFS) Open(path string) (*Handle, error) {
	if err := p.check(OpRead, path, nil); err != nil {
		return nil, err
	}
	h, err := p.fs.Open(path)
	if err != nil {
		return nil, err
	}
	return &Handle{h: h, policy: p.policy}, nil
}

func (h *Handle) Pread(offset, size int64) ([]byte, error) {
	return h.h.Pread(offset, size)
}

func (h *Handle) Pwrite(offset int64, data []byte) (int, error) {
	if err := h.policy.CheckAccessOrThrow(OpWrite, h.h.Path(), nil); err != nil {
		return 0, err
	}
	return h.h.Pwrite(offset, data)
}

func (h *Handle) Truncate(size int64) error {
	if err := h.policy.CheckAccessOrThrow(OpWrite, h.h.Path(), nil); err != nil {
		return err
	}
	return h.h.Truncate(size)
}

func (h *Handle) Fsync() error { return h.h.Fsync() }

func (h *Handle) Fstat() (meta.Stat, error) { return h.h.Fstat() }
