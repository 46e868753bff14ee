package overlay

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/ozanturksever/agentfs/pkg/metrics"
)

// ChangeKind is one of the three kinds ChangeSet reports.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// Change is one detected difference between the current FS state (under
// mountPath) and the host base tree.
type Change struct {
	Path       string
	Kind       ChangeKind
	OldContent []byte // set for modified/deleted
	NewContent []byte // set for added/modified
}

type baseEntry struct {
	size  int64
	isDir bool
}

func walkBase(basePath string) (map[string]baseEntry, error) {
	out := make(map[string]baseEntry)
	stack := []walkFrame{{hostPath: basePath, mountPath: ""}}
	for len(stack) > 0 {
		n := len(stack) - 1
		top := stack[n]
		stack = stack[:n]

		entries, err := os.ReadDir(top.hostPath)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.Name() == ".git" {
				continue
			}
			hostChild := filepath.Join(top.hostPath, entry.Name())
			relChild := joinPosix(top.mountPath, entry.Name())
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if entry.IsDir() {
				out[relChild] = baseEntry{isDir: true}
				stack = append(stack, walkFrame{hostPath: hostChild, mountPath: relChild})
				continue
			}
			out[relChild] = baseEntry{size: info.Size()}
		}
	}
	return out, nil
}

// ChangeSet builds a map of base entries by walking the host tree, then
// walks the FS under mountPath classifying each entry as added or
// modified relative to that map, and finally reports base entries with no
// FS counterpart as deleted, per spec.md §4.5.
func ChangeSet(fs TargetFS, basePath, mountPath string) ([]Change, error) {
	base, err := walkBase(basePath)
	if err != nil {
		return nil, err
	}

	var changes []Change
	seen := make(map[string]bool)

	stack := []walkFrame{{hostPath: "", mountPath: mountPath}}
	for len(stack) > 0 {
		n := len(stack) - 1
		top := stack[n]
		stack = stack[:n]

		entries, err := fs.ReaddirPlus(top.mountPath)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			relChild := joinPosix(top.mountPath, e.Name)
			rel := stripMount(relChild, mountPath)
			if e.Stat == nil {
				continue
			}
			if e.Stat.IsDir() {
				seen[rel] = true
				stack = append(stack, walkFrame{mountPath: relChild})
				continue
			}

			seen[rel] = true
			b, inBase := base[rel]
			if !inBase {
				content, err := fs.ReadFile(relChild)
				if err != nil {
					return nil, err
				}
				changes = append(changes, Change{Path: rel, Kind: ChangeAdded, NewContent: content})
				continue
			}
			if b.isDir {
				// base has a directory where the FS now has a file: treat
				// as a content modification of that path.
				content, err := fs.ReadFile(relChild)
				if err != nil {
					return nil, err
				}
				changes = append(changes, Change{Path: rel, Kind: ChangeModified, NewContent: content})
				continue
			}
			newContent, err := fs.ReadFile(relChild)
			if err != nil {
				return nil, err
			}
			if b.size != int64(len(newContent)) {
				oldContent, _ := os.ReadFile(filepath.Join(basePath, rel))
				changes = append(changes, Change{Path: rel, Kind: ChangeModified, OldContent: oldContent, NewContent: newContent})
				continue
			}
			oldContent, err := os.ReadFile(filepath.Join(basePath, rel))
			if err != nil {
				changes = append(changes, Change{Path: rel, Kind: ChangeModified, NewContent: newContent})
				continue
			}
			if !bytes.Equal(oldContent, newContent) {
				changes = append(changes, Change{Path: rel, Kind: ChangeModified, OldContent: oldContent, NewContent: newContent})
			}
		}
	}

	for rel, b := range base {
		if b.isDir {
			continue
		}
		if !seen[rel] {
			oldContent, _ := os.ReadFile(filepath.Join(basePath, rel))
			changes = append(changes, Change{Path: rel, Kind: ChangeDeleted, OldContent: oldContent})
		}
	}

	for _, c := range changes {
		metrics.OverlayDiffChanges.WithLabelValues(string(c.Kind)).Inc()
	}
	return changes, nil
}

func stripMount(path, mountPath string) string {
	if mountPath == "/" || mountPath == "" {
		return path
	}
	if len(path) > len(mountPath) && path[:len(mountPath)] == mountPath {
		return path[len(mountPath):]
	}
	return path
}
