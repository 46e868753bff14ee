package kv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ozanturksever/agentfs/pkg/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.Open("sqlite://file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Store{db: db}
}

func TestSetGetString(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Set(s, "greeting", "hello"))

	got, found, err := Get[string](s, "greeting")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "hello", got)
}

func TestGetMissingKey(t *testing.T) {
	s := newTestStore(t)
	_, found, err := Get[string](s, "nope")
	require.NoError(t, err)
	require.False(t, found)
}

func TestSetOverwrites(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Set(s, "k", 1))
	require.NoError(t, Set(s, "k", 2))

	v, found, err := Get[int](s, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 2, v)
}

type record struct {
	Workspace string   `json:"workspace"`
	Tags      []string `json:"tags"`
}

func TestSetGetStruct(t *testing.T) {
	s := newTestStore(t)
	r := record{Workspace: "ws-1", Tags: []string{"a", "b"}}
	require.NoError(t, Set(s, "rec", r))

	got, found, err := Get[record](s, "rec")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, r, got)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Set(s, "k", "v"))
	require.NoError(t, s.Delete("k"))

	_, found, err := Get[string](s, "k")
	require.NoError(t, err)
	require.False(t, found)
}

func TestListPrefix(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Set(s, "ooss:workspaceId", "ws-1"))
	require.NoError(t, Set(s, "ooss:workloadId", "wl-1"))
	require.NoError(t, Set(s, "other:key", "x"))

	keys, err := s.ListPrefix("ooss:")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"ooss:workspaceId", "ooss:workloadId"}, keys)
}
