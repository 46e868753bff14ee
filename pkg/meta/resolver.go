package meta

import "strings"

// normalizePath strips trailing slashes (except the root itself) and
// ensures a single leading slash. It never interprets "." or "..": callers
// are expected to pass already-lexical paths, matching spec.md §4.1.
func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

// splitPath normalizes and splits a path into its non-empty segments.
func splitPath(p string) []string {
	p = normalizePath(p)
	if p == "/" {
		return nil
	}
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, seg := range parts {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func parentPath(p string) (string, string) {
	segs := splitPath(p)
	if len(segs) == 0 {
		return "/", ""
	}
	base := segs[len(segs)-1]
	if len(segs) == 1 {
		return "/", base
	}
	return "/" + strings.Join(segs[:len(segs)-1], "/"), base
}

// resolve walks dentries from root to the named path, returning the final
// inode. It is the only place ENOENT for an intermediate component is
// produced; no symlink dereferencing happens here (lexical resolution only).
func (fs *InodeFS) resolve(tx txer, path string) (Ino, error) {
	segs := splitPath(path)
	cur := RootIno
	for _, name := range segs {
		var d dentryRow
		found, err := tx.Get(&d, `SELECT id, name, parent_ino, ino FROM fs_dentry WHERE parent_ino = ? AND name = ?`, cur, name)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, errNoEnt("lookup", path)
		}
		cur = d.Ino
	}
	return cur, nil
}

// resolveParent resolves the path down to (parent_ino, basename) without
// requiring the final component to exist; it still requires every
// intermediate component to exist.
func (fs *InodeFS) resolveParent(tx txer, path string) (Ino, string, error) {
	dir, base := parentPath(path)
	parentIno, err := fs.resolve(tx, dir)
	if err != nil {
		return 0, "", err
	}
	return parentIno, base, nil
}

// lookupChild returns the inode for name under parentIno, or ok=false.
func (fs *InodeFS) lookupChild(tx txer, parentIno Ino, name string) (Ino, bool, error) {
	var d dentryRow
	found, err := tx.Get(&d, `SELECT id, name, parent_ino, ino FROM fs_dentry WHERE parent_ino = ? AND name = ?`, parentIno, name)
	if err != nil {
		return 0, false, err
	}
	return d.Ino, found, nil
}
