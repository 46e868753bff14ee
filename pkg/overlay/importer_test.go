package overlay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ozanturksever/agentfs/pkg/meta"
	"github.com/ozanturksever/agentfs/pkg/store"
)

func newTestFS(t *testing.T) *meta.InodeFS {
	t.Helper()
	db, err := store.Open("sqlite://file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return meta.New(db)
}

func writeHostFile(t *testing.T, base, rel, content string) {
	t.Helper()
	full := filepath.Join(base, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestInitializeImportsTree(t *testing.T) {
	base := t.TempDir()
	writeHostFile(t, base, "a.txt", "hello")
	writeHostFile(t, base, "sub/b.txt", "world")
	require.NoError(t, os.MkdirAll(filepath.Join(base, ".git"), 0o755))
	writeHostFile(t, base, ".git/HEAD", "ref: refs/heads/main")

	fs := newTestFS(t)
	result, err := Initialize(fs, Config{BasePath: base, MountPath: "/"})
	require.NoError(t, err)
	require.Equal(t, 2, result.FilesImported)
	require.Equal(t, int64(10), result.BytesImported)

	data, err := fs.ReadFile("/a.txt")
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	data, err = fs.ReadFile("/sub/b.txt")
	require.NoError(t, err)
	require.Equal(t, "world", string(data))

	_, err = fs.Stat("/.git")
	require.Error(t, err)
}

func TestInitializeRespectsExcludePatterns(t *testing.T) {
	base := t.TempDir()
	writeHostFile(t, base, "keep.txt", "k")
	writeHostFile(t, base, "node_modules/dep.js", "d")

	fs := newTestFS(t)
	result, err := Initialize(fs, Config{
		BasePath:        base,
		MountPath:       "/",
		ExcludePatterns: []string{"/node_modules/**"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesImported)
	require.Contains(t, result.ExcludedPaths, "/node_modules/dep.js")

	_, err = fs.Stat("/keep.txt")
	require.NoError(t, err)
}

func TestResetClearsBeforeReimport(t *testing.T) {
	base := t.TempDir()
	writeHostFile(t, base, "a.txt", "v1")

	fs := newTestFS(t)
	_, err := Initialize(fs, Config{BasePath: base, MountPath: "/"})
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile("/stray.txt", []byte("leftover")))

	require.NoError(t, os.WriteFile(filepath.Join(base, "a.txt"), []byte("v2"), 0o644))
	_, err = Reset(fs, Config{BasePath: base, MountPath: "/"})
	require.NoError(t, err)

	data, err := fs.ReadFile("/a.txt")
	require.NoError(t, err)
	require.Equal(t, "v2", string(data))

	_, err = fs.Stat("/stray.txt")
	require.Error(t, err)
}

func TestInitializeImportsSymlinks(t *testing.T) {
	base := t.TempDir()
	writeHostFile(t, base, "real.txt", "content")
	require.NoError(t, os.Symlink("real.txt", filepath.Join(base, "link.txt")))

	fs := newTestFS(t)
	_, err := Initialize(fs, Config{BasePath: base, MountPath: "/"})
	require.NoError(t, err)

	target, err := fs.Readlink("/link.txt")
	require.NoError(t, err)
	require.Equal(t, "real.txt", target)
}
