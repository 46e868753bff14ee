package access

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ozanturksever/agentfs/pkg/meta"
	"github.com/ozanturksever/agentfs/pkg/store"
)

func newTestProtectedFS(t *testing.T) (*ProtectedFS, *Policy, *MetadataStore) {
	t.Helper()
	db, err := store.Open("sqlite://file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ms := NewMetadataStore(db)
	policy := NewPolicy(ms, nil)
	fs := NewProtectedFS(meta.New(db), policy)
	return fs, policy, ms
}

func TestProtectedFSAllowsWhenNoHook(t *testing.T) {
	fs, _, _ := newTestProtectedFS(t)
	require.NoError(t, fs.WriteFile("/a.txt", []byte("hi")))
	data, err := fs.ReadFile("/a.txt")
	require.NoError(t, err)
	require.Equal(t, "hi", string(data))
}

func TestProtectedFSDeniesWrite(t *testing.T) {
	fs, policy, ms := newTestProtectedFS(t)
	policy.SetHook(func(HookContext) bool { return false })
	require.NoError(t, ms.Set(Metadata{}))

	err := fs.WriteFile("/a.txt", []byte("hi"))
	require.Error(t, err)
	var pd *PermissionDenied
	require.ErrorAs(t, err, &pd)
}

func TestProtectedHandleRechecksWriteOnEveryCall(t *testing.T) {
	fs, policy, ms := newTestProtectedFS(t)
	require.NoError(t, fs.WriteFile("/a.txt", []byte("0123456789")))

	allow := true
	policy.SetHook(func(ctx HookContext) bool { return allow })
	require.NoError(t, ms.Set(Metadata{}))

	h, err := fs.Open("/a.txt")
	require.NoError(t, err)

	_, err = h.Pwrite(0, []byte("X"))
	require.NoError(t, err)

	allow = false
	_, err = h.Pwrite(1, []byte("Y"))
	require.Error(t, err)
}

func TestProtectedFSRenameChecksBothPaths(t *testing.T) {
	fs, policy, ms := newTestProtectedFS(t)
	require.NoError(t, fs.WriteFile("/src", []byte("x")))

	var checked []Operation
	policy.SetHook(func(ctx HookContext) bool {
		checked = append(checked, ctx.Operation)
		return true
	})
	require.NoError(t, ms.Set(Metadata{}))

	require.NoError(t, fs.Rename("/src", "/dst"))
	require.Contains(t, checked, OpRename)
	require.Contains(t, checked, OpWrite)
}

func TestProtectedFSStatFSNeverChecksPolicy(t *testing.T) {
	fs, policy, ms := newTestProtectedFS(t)
	policy.SetHook(func(HookContext) bool { return false })
	require.NoError(t, ms.Set(Metadata{}))

	_, err := fs.StatFS()
	require.NoError(t, err)
}
