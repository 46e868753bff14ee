// Package overlay implements the copy-on-write base-layer importer and the
// change-detection / patch-export mechanism of spec.md §4.5.
package overlay

import (
	"github.com/ozanturksever/agentfs/pkg/meta"
)

// TargetFS is the subset of Inode FS / Protected FS the overlay needs.
// Both *meta.InodeFS and *access.ProtectedFS satisfy it, so the importer
// and diff engine can run either directly against the store or through
// the access-control interposer.
type TargetFS interface {
	Stat(path string) (meta.Stat, error)
	Mkdir(path string) error
	WriteFile(path string, content []byte) error
	ReadFile(path string) ([]byte, error)
	Symlink(target, linkpath string) error
	Readdir(path string) ([]string, error)
	ReaddirPlus(path string) ([]meta.DirEntry, error)
	Rm(path string, opts meta.RmOptions) error
}

// Config configures Initialize/Reset.
type Config struct {
	BasePath        string
	ExcludePatterns []string
	MountPath       string
}

// ImportResult summarizes one Initialize call.
type ImportResult struct {
	FilesImported      int
	DirectoriesCreated int
	BytesImported      int64
	ExcludedPaths      []string
}
