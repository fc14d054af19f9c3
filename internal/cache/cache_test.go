package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, ok, err := s.Get(ctx, "sol")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "sol", Entry{Data: []byte("150"), UpdatedAt: at}))
	require.NoError(t, s.Set(ctx, "sol", Entry{Data: []byte("151.5"), UpdatedAt: at.Add(time.Minute)}))

	e, ok, err := s.Get(ctx, "sol")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "151.5", string(e.Data))
	assert.True(t, e.UpdatedAt.Equal(at.Add(time.Minute)))
	assert.Equal(t, 9*time.Minute, e.Age(at.Add(10*time.Minute)))
}

func TestMemoryStore(t *testing.T) {
	s, err := NewMemoryStore(2)
	require.NoError(t, err)
	testStore(t, s)

	ctx := context.Background()
	buf := []byte("x")
	require.NoError(t, s.Set(ctx, "a", Entry{Data: buf}))
	buf[0] = 'y'
	e, _, _ := s.Get(ctx, "a")
	assert.Equal(t, "x", string(e.Data))

	require.NoError(t, s.Set(ctx, "b", Entry{}))
	assert.Equal(t, 2, s.Len())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := NewRedisClient(context.Background(), Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	testStore(t, NewRedisStore(rdb, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+"sol"))
}

func TestRedisStore_ZeroRetentionKeepsEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := NewRedisClient(context.Background(), Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisStore(rdb, 0)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Set(context.Background(), "sol", Entry{Data: []byte("173"), UpdatedAt: at}))
	assert.Zero(t, mr.TTL(keyPrefix+"sol"))

	mr.FastForward(48 * time.Hour)
	e, ok, err := s.Get(context.Background(), "sol")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "173", string(e.Data))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), Config{URL: "redis://127.0.0.1:1"})
	assert.Error(t, err)

	_, err = NewRedisClient(context.Background(), Config{URL: "::not a url"})
	assert.Error(t, err)
}
