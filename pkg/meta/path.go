package meta

// GetPath reconstructs the full path of an inode by walking dentry rows up
// toward the root, picking an arbitrary parent when (hypothetically) more
// than one dentry names the same inode. Since this filesystem never exposes
// hard links, that arbitrary choice never actually arises in practice.
func (fs *InodeFS) GetPath(ino Ino) (out string, err error) {
	defer func() { err = normalizeStoreErr(err, "getpath", "") }()
	if ino == RootIno {
		return "/", nil
	}
	var names []string
	cur := ino
	for cur != RootIno {
		var d dentryRow
		found, err := fs.db.Get(&d, `SELECT id, name, parent_ino, ino FROM fs_dentry WHERE ino = ? LIMIT 1`, cur)
		if err != nil {
			return "", err
		}
		if !found {
			return "", errNoEnt("getpath", "")
		}
		names = append(names, d.Name)
		cur = d.ParentIno
	}
	for i := len(names) - 1; i >= 0; i-- {
		out += "/" + names[i]
	}
	return out, nil
}
