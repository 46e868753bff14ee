package access

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ozanturksever/agentfs/pkg/store"
)

func TestMetadataSetGetRoundTrip(t *testing.T) {
	db, err := store.Open("sqlite://file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ms := NewMetadataStore(db)

	m := Metadata{
		WorkspaceID:  "ws-1",
		WorkloadID:   "wl-1",
		SandboxID:    NewSandboxID(),
		TrustClass:   "trusted",
		AllowedPaths: []string{"/workspace/**"},
	}
	require.NoError(t, ms.Set(m))

	got, found, err := ms.Get()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, m.WorkspaceID, got.WorkspaceID)
	require.Equal(t, m.AllowedPaths, got.AllowedPaths)
	require.NotZero(t, got.CreatedAt)
	require.NotZero(t, got.UpdatedAt)

	ws, found, err := ms.WorkspaceID()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "ws-1", ws)
}

func TestMetadataDeleteRemovesAllShadowFields(t *testing.T) {
	db, err := store.Open("sqlite://file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ms := NewMetadataStore(db)

	require.NoError(t, ms.Set(Metadata{WorkspaceID: "ws-1"}))
	require.NoError(t, ms.Delete())

	_, found, err := ms.Get()
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = ms.WorkspaceID()
	require.NoError(t, err)
	require.False(t, found)
}

func TestMetadataGetMissingIsNotError(t *testing.T) {
	db, err := store.Open("sqlite://file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ms := NewMetadataStore(db)

	_, found, err := ms.Get()
	require.NoError(t, err)
	require.False(t, found)
}
