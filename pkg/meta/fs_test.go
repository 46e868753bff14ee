package meta

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ozanturksever/agentfs/pkg/store"
)

func newTestFS(t *testing.T) *InodeFS {
	t.Helper()
	db, err := store.Open("sqlite://file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func TestMkdirAndStat(t *testing.T) {
	fs := newTestFS(t)

	require.NoError(t, fs.Mkdir("/a"))
	st, err := fs.Stat("/a")
	require.NoError(t, err)
	require.True(t, st.IsDir())

	err = fs.Mkdir("/a")
	require.Error(t, err)
	requireErrno(t, err, EEXIST)

	err = fs.Mkdir("/missing-parent/child")
	require.Error(t, err)
	requireErrno(t, err, ENOENT)
}

func TestWriteReadFile(t *testing.T) {
	fs := newTestFS(t)

	require.NoError(t, fs.WriteFile("/dir/file.txt", []byte("hello world")))
	data, err := fs.ReadFile("/dir/file.txt")
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))

	st, err := fs.Stat("/dir")
	require.NoError(t, err)
	require.True(t, st.IsDir())

	_, err = fs.ReadFile("/dir")
	require.Error(t, err)
	requireErrno(t, err, EISDIR)
}

func TestWriteFileChunking(t *testing.T) {
	fs := newTestFS(t)
	big := make([]byte, fs.chunkSize*3+17)
	for i := range big {
		big[i] = byte(i % 251)
	}
	require.NoError(t, fs.WriteFile("/big.bin", big))
	data, err := fs.ReadFile("/big.bin")
	require.NoError(t, err)
	require.Equal(t, big, data)
}

func TestRmdirRequiresEmpty(t *testing.T) {
	fs := newTestFS(t)
	require.NoError(t, fs.Mkdir("/a"))
	require.NoError(t, fs.WriteFile("/a/f", []byte("x")))

	err := fs.Rmdir("/a")
	require.Error(t, err)
	requireErrno(t, err, ENOTEMPTY)

	require.NoError(t, fs.Unlink("/a/f"))
	require.NoError(t, fs.Rmdir("/a"))

	_, err = fs.Stat("/a")
	requireErrno(t, err, ENOENT)
}

func TestRmRecursive(t *testing.T) {
	fs := newTestFS(t)
	require.NoError(t, fs.Mkdir("/a"))
	require.NoError(t, fs.Mkdir("/a/b"))
	require.NoError(t, fs.WriteFile("/a/b/f1", []byte("1")))
	require.NoError(t, fs.WriteFile("/a/f2", []byte("2")))
	require.NoError(t, fs.Mkdir("/a/c"))

	err := fs.Rm("/a", RmOptions{})
	require.Error(t, err)
	requireErrno(t, err, EISDIR)

	require.NoError(t, fs.Rm("/a", RmOptions{Recursive: true}))

	_, err = fs.Stat("/a")
	requireErrno(t, err, ENOENT)
	_, err = fs.Stat("/a/b/f1")
	requireErrno(t, err, ENOENT)
}

func TestRmForceOnMissing(t *testing.T) {
	fs := newTestFS(t)
	err := fs.Rm("/nope", RmOptions{})
	requireErrno(t, err, ENOENT)

	require.NoError(t, fs.Rm("/nope", RmOptions{Force: true}))
}

func TestRootCannotBeRemoved(t *testing.T) {
	fs := newTestFS(t)
	err := fs.Rm("/", RmOptions{Recursive: true, Force: true})
	require.Error(t, err)
	requireErrno(t, err, EPERM)
}

func TestReaddir(t *testing.T) {
	fs := newTestFS(t)
	require.NoError(t, fs.Mkdir("/dir"))
	require.NoError(t, fs.WriteFile("/dir/b", []byte("")))
	require.NoError(t, fs.WriteFile("/dir/a", []byte("")))

	names, err := fs.Readdir("/dir")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names)
}

func TestOrphanInodePurgedOnUnlink(t *testing.T) {
	fs := newTestFS(t)
	require.NoError(t, fs.WriteFile("/f", []byte("data")))
	st, err := fs.Stat("/f")
	require.NoError(t, err)
	ino := st.Ino

	require.NoError(t, fs.Unlink("/f"))

	var row inodeRow
	found, err := fs.db.Get(&row, `SELECT ino, mode, uid, gid, size, atime, mtime, ctime FROM fs_inode WHERE ino = ?`, ino)
	require.NoError(t, err)
	require.False(t, found, "inode row should be purged once its last dentry is gone")
}

func requireErrno(t *testing.T, err error, code Errno) {
	t.Helper()
	fe, ok := err.(*Error)
	require.True(t, ok, "expected *meta.Error, got %T (%v)", err, err)
	require.Equal(t, code, fe.Code)
}
