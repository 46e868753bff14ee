package toolcalls

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ozanturksever/agentfs/pkg/store"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	db, err := store.Open("sqlite://file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func TestStartAndRecordSuccess(t *testing.T) {
	log := newTestLog(t)
	id, err := log.Start("read_file", map[string]string{"path": "/a"})
	require.NoError(t, err)
	require.NotZero(t, id)

	call, found, err := log.Get(id)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, StatusPending, call.Status)
	require.Nil(t, call.CompletedAt)

	require.NoError(t, log.RecordSuccess(id, map[string]int{"bytes": 5}))

	call, found, err = log.Get(id)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, StatusSuccess, call.Status)
	require.NotNil(t, call.CompletedAt)
	require.NotNil(t, call.DurationMs)
	require.Contains(t, call.Result, "bytes")
}

func TestRecordError(t *testing.T) {
	log := newTestLog(t)
	id, err := log.Start("write_file", nil)
	require.NoError(t, err)

	require.NoError(t, log.RecordError(id, errors.New("disk full")))

	call, found, err := log.Get(id)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, StatusError, call.Status)
	require.Equal(t, "disk full", call.Error)
}

func TestGetRecentOrdering(t *testing.T) {
	log := newTestLog(t)
	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := log.Start("op", nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	recent, err := log.GetRecent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, ids[2], recent[0].ID)
	require.Equal(t, ids[1], recent[1].ID)
}

func TestGetMissing(t *testing.T) {
	log := newTestLog(t)
	_, found, err := log.Get(9999)
	require.NoError(t, err)
	require.False(t, found)
}
