package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendLogAndSessionLog(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	ctx := context.Background()

	require.NoError(t, store.AppendLog(ctx, "s1", []byte("hello ")))
	require.NoError(t, store.AppendLog(ctx, "s2", []byte("other")))
	require.NoError(t, store.AppendLog(ctx, "s1", []byte("world")))

	log, err := store.SessionLog(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "hello world", log)

	empty, err := store.SessionLog(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAppendLogReplacesInvalidUTF8(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	ctx := context.Background()

	require.NoError(t, store.AppendLog(ctx, "s1", []byte{'o', 'k', 0xff}))

	log, err := store.SessionLog(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ok�", log)
}

func TestAppendLogRequiresSession(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	assert.ErrorIs(t, store.AppendLog(context.Background(), "", []byte("x")), ErrInvalid)
}

func TestSearchLogs(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendLog(ctx, "s1", []byte(fmt.Sprintf("build step %d", i))))
	}
	require.NoError(t, store.AppendLog(ctx, "s2", []byte("BUILD failed: 100% of 3_files")))
	require.NoError(t, store.AppendLog(ctx, "s2", []byte("unrelated")))

	tests := []struct {
		name      string
		query     SearchQuery
		total     int64
		firstBody string
		count     int
	}{
		{name: "empty query lists newest first", query: SearchQuery{}, total: 7, firstBody: "unrelated", count: 7},
		{name: "session filter", query: SearchQuery{SessionID: "s2"}, total: 2, firstBody: "unrelated", count: 2},
		{name: "case-insensitive match", query: SearchQuery{Query: "build"}, total: 6, firstBody: "BUILD failed: 100% of 3_files", count: 6},
		{name: "match within session", query: SearchQuery{Query: "build", SessionID: "s1"}, total: 5, firstBody: "build step 4", count: 5},
		{name: "percent is literal", query: SearchQuery{Query: "100%"}, total: 1, firstBody: "BUILD failed: 100% of 3_files", count: 1},
		{name: "underscore is literal", query: SearchQuery{Query: "step_"}, total: 0, count: 0},
		{name: "limit and offset", query: SearchQuery{Query: "step", Limit: 2, Offset: 1}, total: 5, firstBody: "build step 3", count: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := store.SearchLogs(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.total, res.Total)
			require.Len(t, res.Entries, tt.count)
			if tt.count > 0 {
				assert.Equal(t, tt.firstBody, res.Entries[0].Content)
				assert.False(t, res.Entries[0].CreatedAt.IsZero())
			}
		})
	}
}

func TestSearchLogsEmptyResultIsNotNil(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	res, err := store.SearchLogs(context.Background(), SearchQuery{Query: "nothing"})
	require.NoError(t, err)
	assert.NotNil(t, res.Entries)
	assert.Zero(t, res.Total)
}

func TestDeleteSessionLogs(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	ctx := context.Background()

	require.NoError(t, store.AppendLog(ctx, "s1", []byte("a")))
	require.NoError(t, store.AppendLog(ctx, "s1", []byte("b")))

	n, err := store.DeleteSessionLogs(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	log, err := store.SessionLog(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestNormalizePage(t *testing.T) {
	limit, offset := normalizePage(0, -3)
	assert.Equal(t, defaultSearchLimit, limit)
	assert.Equal(t, 0, offset)

	limit, _ = normalizePage(10_000, 0)
	assert.Equal(t, maxSearchLimit, limit)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% \_x\\`, escapeLike(`50% _x\`))
}
