package meta

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSymlinkAndReadlink(t *testing.T) {
	fs := newTestFS(t)
	require.NoError(t, fs.WriteFile("/target", []byte("x")))
	require.NoError(t, fs.Symlink("/target", "/link"))

	st, err := fs.Lstat("/link")
	require.NoError(t, err)
	require.True(t, st.IsSymlink())

	target, err := fs.Readlink("/link")
	require.NoError(t, err)
	require.Equal(t, "/target", target)
}

func TestReadlinkOnNonSymlink(t *testing.T) {
	fs := newTestFS(t)
	require.NoError(t, fs.WriteFile("/f", []byte("x")))
	_, err := fs.Readlink("/f")
	requireErrno(t, err, EINVAL)
}

func TestStatFS(t *testing.T) {
	fs := newTestFS(t)
	require.NoError(t, fs.WriteFile("/a", []byte("12345")))
	require.NoError(t, fs.WriteFile("/b", []byte("67")))

	stats, err := fs.StatFS()
	require.NoError(t, err)
	require.GreaterOrEqual(t, stats.TotalInodes, int64(3))
	require.Equal(t, int64(7), stats.TotalBytes)
}

func TestGetPath(t *testing.T) {
	fs := newTestFS(t)
	require.NoError(t, fs.Mkdir("/a"))
	require.NoError(t, fs.Mkdir("/a/b"))
	require.NoError(t, fs.WriteFile("/a/b/c.txt", []byte("x")))

	st, err := fs.Stat("/a/b/c.txt")
	require.NoError(t, err)

	p, err := fs.GetPath(st.Ino)
	require.NoError(t, err)
	require.Equal(t, "/a/b/c.txt", p)

	root, err := fs.GetPath(RootIno)
	require.NoError(t, err)
	require.Equal(t, "/", root)
}
