package overlay

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ozanturksever/agentfs/pkg/access"
	"github.com/ozanturksever/agentfs/pkg/meta"
	"github.com/ozanturksever/agentfs/pkg/metrics"
	"github.com/ozanturksever/agentfs/pkg/utils"
)

var logger = utils.GetLogger("overlay")

func splitPosix(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func joinPosix(parent, name string) string {
	if parent == "/" || parent == "" {
		return "/" + name
	}
	return parent + "/" + name
}

func isNotExist(err error) bool {
	fe, ok := err.(*meta.Error)
	return ok && fe.Code == meta.ENOENT
}

// ensureDir creates every missing directory from root down to path,
// reporting how many it actually created.
func ensureDir(fs TargetFS, path string) (created int, err error) {
	cur := ""
	for _, seg := range splitPosix(path) {
		cur = joinPosix(cur, seg)
		if cur == "" {
			cur = "/"
		}
		if _, statErr := fs.Stat(cur); statErr != nil {
			if !isNotExist(statErr) {
				return created, statErr
			}
			if err := fs.Mkdir(cur); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

type walkFrame struct {
	hostPath  string
	mountPath string
}

// Initialize walks basePath iteratively (depth-first via an explicit
// stack), skipping ".git", and imports files/directories/symlinks into fs
// under mountPath. Per-entry host-side errors (a file vanishing mid-walk,
// an unreadable symlink) are tolerated by skipping the entry, not recorded
// as failures — this is resilience for importing live working trees, per
// spec.md §7.
func Initialize(fs TargetFS, cfg Config) (ImportResult, error) {
	result := ImportResult{}

	if _, err := ensureDir(fs, cfg.MountPath); err != nil {
		return result, err
	}

	stack := []walkFrame{{hostPath: cfg.BasePath, mountPath: cfg.MountPath}}
	for len(stack) > 0 {
		n := len(stack) - 1
		top := stack[n]
		stack = stack[:n]

		entries, err := os.ReadDir(top.hostPath)
		if err != nil {
			logger.Warnf("overlay import: skip unreadable dir %s: %s", top.hostPath, err)
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			if name == ".git" {
				continue
			}
			hostChild := filepath.Join(top.hostPath, name)
			mountChild := joinPosix(top.mountPath, name)

			excluded := false
			for _, pat := range cfg.ExcludePatterns {
				if access.MatchGlob(pat, mountChild) {
					excluded = true
					break
				}
			}
			if excluded {
				result.ExcludedPaths = append(result.ExcludedPaths, mountChild)
				continue
			}

			info, err := entry.Info()
			if err != nil {
				logger.Warnf("overlay import: skip unreadable entry %s: %s", hostChild, err)
				continue
			}

			switch {
			case info.Mode()&os.ModeSymlink != 0:
				target, err := os.Readlink(hostChild)
				if err != nil {
					logger.Warnf("overlay import: skip unreadable symlink %s: %s", hostChild, err)
					continue
				}
				if err := fs.Symlink(target, mountChild); err != nil {
					return result, err
				}
			case entry.IsDir():
				if _, err := fs.Stat(mountChild); err != nil {
					if !isNotExist(err) {
						return result, err
					}
					if err := fs.Mkdir(mountChild); err != nil {
						return result, err
					}
					result.DirectoriesCreated++
				}
				stack = append(stack, walkFrame{hostPath: hostChild, mountPath: mountChild})
			default:
				data, err := os.ReadFile(hostChild)
				if err != nil {
					logger.Warnf("overlay import: skip unreadable file %s: %s", hostChild, err)
					continue
				}
				if err := fs.WriteFile(mountChild, data); err != nil {
					return result, err
				}
				result.FilesImported++
				result.BytesImported += int64(len(data))
				metrics.OverlayImportFiles.Inc()
				metrics.OverlayImportBytes.Add(float64(len(data)))
			}
		}
	}
	return result, nil
}

// Reset clears the mount (recursively, or by iterating root's children
// when mountPath is "/", since rm() refuses to remove the root itself)
// and re-runs Initialize.
func Reset(fs TargetFS, cfg Config) (ImportResult, error) {
	if cfg.MountPath == "/" {
		names, err := fs.Readdir("/")
		if err != nil {
			return ImportResult{}, err
		}
		for _, name := range names {
			if err := fs.Rm(joinPosix("/", name), meta.RmOptions{Force: true, Recursive: true}); err != nil {
				return ImportResult{}, err
			}
		}
	} else {
		if err := fs.Rm(cfg.MountPath, meta.RmOptions{Force: true, Recursive: true}); err != nil {
			return ImportResult{}, err
		}
	}
	return Initialize(fs, cfg)
}
