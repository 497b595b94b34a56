package redisledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pinagent/pkg/types"
)

func setupBackend(t *testing.T) (*Backend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	b := NewBackend()
	require.NoError(t, b.Use(client))
	t.Cleanup(func() { b.Detach() })
	return b, mr
}

func TestAttachFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{
		Backend:  types.BackendRedis,
		RedisURL: "redis://" + mr.Addr(),
	}))
	assert.ErrorIs(t, b.Use(redis.NewClient(&redis.Options{Addr: mr.Addr()})), types.ErrAlreadyAttached)
	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach())

	_, err := b.Exists(context.Background(), types.KindPin, "p1")
	assert.ErrorIs(t, err, types.ErrLedgerClosed)

	err = NewBackend().Attach(types.Config{Backend: types.BackendRedis})
	assert.ErrorIs(t, err, types.ErrRedisURLEmpty)
}

func TestRecordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b, mr := setupBackend(t)

	rec := types.BlogPinRecord{PostURL: "http://x/a", PinID: "p1"}
	inserted, err := b.Record(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = b.Record(ctx, types.BlogPinRecord{PostURL: "http://x/a", PinID: "other"})
	require.NoError(t, err)
	assert.False(t, inserted)

	exists, err := b.Exists(ctx, types.KindBlogPin, "http://x/a")
	require.NoError(t, err)
	assert.True(t, exists)

	stored, err := mr.Get("pinagent:blog_pins:http://x/a")
	require.NoError(t, err)
	assert.Contains(t, stored, `"pin_id":"p1"`, "first write wins")
}

func TestRecordValidation(t *testing.T) {
	ctx := context.Background()
	b, _ := setupBackend(t)

	_, err := b.Record(ctx, nil)
	assert.ErrorIs(t, err, types.ErrInvalidRecord)
	_, err = b.Record(ctx, types.SearchedBoardRecord{})
	assert.ErrorIs(t, err, types.ErrInvalidKey)
	_, err = b.Record(ctx, (*types.BlogPinRecord)(nil))
	assert.ErrorIs(t, err, types.ErrInvalidRecord)
	stored, err := b.Record(ctx, &types.SearchedBoardRecord{SourceBoardID: "ptr"})
	require.NoError(t, err)
	assert.True(t, stored)
	_, err = b.Exists(ctx, types.Kind("nope"), "x")
	assert.ErrorIs(t, err, types.ErrUnknownKind)
}

func TestClearAndCounts(t *testing.T) {
	ctx := context.Background()
	b, mr := setupBackend(t)

	for i := 0; i < 3; i++ {
		_, err := b.Record(ctx, types.PinRecord{PinID: fmt.Sprintf("p%d", i)})
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := b.Record(ctx, types.BlogPinRecord{PostURL: fmt.Sprintf("http://x/%d", i)})
		require.NoError(t, err)
	}
	_, err := b.Record(ctx, types.SearchedBoardRecord{SourceBoardID: "b1"})
	require.NoError(t, err)
	require.NoError(t, mr.Set("unrelated", "keep"))

	counts, err := b.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Counts{Pins: 3, BlogPins: 2, SearchedBoards: 1}, counts)

	removed, err := b.Clear(ctx, types.ScopeSearchedBoards)
	require.NoError(t, err)
	assert.Equal(t, types.Counts{SearchedBoards: 1}, removed)

	removed, err = b.Clear(ctx, types.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, types.Counts{Pins: 3, BlogPins: 2}, removed)

	counts, err = b.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Total())
	assert.True(t, mr.Exists("unrelated"), "keys outside the namespace are untouched")
}

func TestList(t *testing.T) {
	ctx := context.Background()
	b, _ := setupBackend(t)

	for _, id := range []string{"p1", "p2"} {
		_, err := b.Record(ctx, types.PinRecord{PinID: id, BoardKey: "travel"})
		require.NoError(t, err)
	}
	recs, err := b.List(ctx, types.KindPin, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, "travel", r.(types.PinRecord).BoardKey)
		assert.False(t, r.(types.PinRecord).CreatedAt.IsZero())
	}
}
