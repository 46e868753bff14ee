package meta

// Guards centralizes the small invariant checks the Inode FS operations
// share, so each operation reads as "resolve, guard, mutate" rather than
// repeating the same error-shaping logic.

func guardNotRoot(syscall, path string, ino Ino) error {
	if ino == RootIno {
		return errPerm(syscall, path)
	}
	return nil
}

func guardIsDir(syscall, path string, st Stat) error {
	if !st.IsDir() {
		return errNotDir(syscall, path)
	}
	return nil
}

func guardIsRegular(syscall, path string, st Stat) error {
	if st.IsDir() {
		return errIsDir(syscall, path)
	}
	if st.IsSymlink() {
		return errNoSys(syscall, path, "symlink not supported")
	}
	return nil
}

// guardSymlinkUnsupported rejects a symlink wherever the operation (rm,
// rename) has not grown symlink handling yet, per spec.md §9's documented
// open question.
func guardSymlinkUnsupported(syscall, path string, st Stat) error {
	if st.IsSymlink() {
		return errNoSys(syscall, path, "symlink not supported")
	}
	return nil
}

// RmOptions normalizes the (force, recursive) pair rm() accepts.
type RmOptions struct {
	Force     bool
	Recursive bool
}

func normalizeRmOptions(opts RmOptions) RmOptions {
	return opts
}
