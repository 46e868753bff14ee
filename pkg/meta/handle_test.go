package meta

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlePreadPwrite(t *testing.T) {
	fs := newTestFS(t)
	require.NoError(t, fs.WriteFile("/f", []byte("0123456789")))

	h, err := fs.Open("/f")
	require.NoError(t, err)

	chunk, err := h.Pread(2, 4)
	require.NoError(t, err)
	require.Equal(t, "2345", string(chunk))

	n, err := h.Pwrite(2, []byte("XY"))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	data, err := fs.ReadFile("/f")
	require.NoError(t, err)
	require.Equal(t, "01XY456789", string(data))
}

func TestHandlePwriteGrowsFile(t *testing.T) {
	fs := newTestFS(t)
	require.NoError(t, fs.WriteFile("/f", []byte("abc")))

	h, err := fs.Open("/f")
	require.NoError(t, err)
	_, err = h.Pwrite(10, []byte("Z"))
	require.NoError(t, err)

	data, err := fs.ReadFile("/f")
	require.NoError(t, err)
	require.Len(t, data, 11)
	require.Equal(t, byte('Z'), data[10])
}

func TestHandleTruncate(t *testing.T) {
	fs := newTestFS(t)
	require.NoError(t, fs.WriteFile("/f", []byte("0123456789")))
	h, err := fs.Open("/f")
	require.NoError(t, err)

	require.NoError(t, h.Truncate(4))
	data, err := fs.ReadFile("/f")
	require.NoError(t, err)
	require.Equal(t, "0123", string(data))

	require.NoError(t, h.Truncate(6))
	data, err = fs.ReadFile("/f")
	require.NoError(t, err)
	require.Len(t, data, 6)
	require.Equal(t, "0123", string(data[:4]))
}

func TestOpenRejectsDirectory(t *testing.T) {
	fs := newTestFS(t)
	require.NoError(t, fs.Mkdir("/d"))
	_, err := fs.Open("/d")
	require.Error(t, err)
	requireErrno(t, err, EISDIR)
}

func TestHandleRereadsPathOnEveryCall(t *testing.T) {
	fs := newTestFS(t)
	require.NoError(t, fs.WriteFile("/a", []byte("one")))
	h, err := fs.Open("/a")
	require.NoError(t, err)

	require.NoError(t, fs.Rename("/a", "/b"))

	// the handle is bound to the path "/a", which no longer resolves.
	_, err = h.Pread(0, 3)
	require.Error(t, err)
	requireErrno(t, err, ENOENT)
}
