package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/swrcache/provider/providertest"
)

func newTestProvider(t *testing.T, now func() time.Time) *Provider {
	t.Helper()
	p, err := New(context.Background(), Config{
		DSN: "file:" + filepath.Join(t.TempDir(), "cache.db"),
		Now: now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, nil)

	_, ok, err := p.Get(ctx, "swr:r1:orders")
	require.NoError(t, err)
	assert.False(t, ok)

	raw := []byte(`{"data":{"total":5},"timestamp":1,"version":"1"}`)
	ok, err = p.Set(ctx, "swr:r1:orders", raw, 1, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	got, ok, err := p.Get(ctx, "swr:r1:orders")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, raw, got)

	// overwrite: last writer wins
	_, err = p.Set(ctx, "swr:r1:orders", []byte("v2"), 1, 0)
	require.NoError(t, err)
	got, _, _ = p.Get(ctx, "swr:r1:orders")
	assert.Equal(t, []byte("v2"), got)

	n, err := p.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteDelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, nil)

	require.NoError(t, p.Del(ctx, "missing"))

	_, err := p.Set(ctx, "a", []byte("1"), 1, 0)
	require.NoError(t, err)
	_, err = p.Set(ctx, "b", []byte("2"), 1, 0)
	require.NoError(t, err)

	require.NoError(t, p.Del(ctx, "a"))
	_, ok, _ := p.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = p.Get(ctx, "b")
	assert.True(t, ok, "deleting one key must leave others alone")
}

func TestSQLiteRetention(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	p := newTestProvider(t, func() time.Time { return now })

	_, err := p.Set(ctx, "k", []byte("x"), 1, time.Minute)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, ok, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Millisecond)
	_, ok, err = p.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := p.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "expired row is removed on read")
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "persist.db")

	p1, err := New(ctx, Config{DSN: dsn})
	require.NoError(t, err)
	_, err = p1.Set(ctx, "swr:global:settings", []byte("s"), 1, 0)
	require.NoError(t, err)
	require.NoError(t, p1.Close(ctx))

	p2, err := New(ctx, Config{DSN: dsn})
	require.NoError(t, err)
	defer p2.Close(ctx)
	got, ok, err := p2.Get(ctx, "swr:global:settings")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("s"), got)
}

func TestSQLiteRejectsBadTableName(t *testing.T) {
	_, err := New(context.Background(), Config{DSN: ":memory:", Table: `x"; DROP TABLE y; --`})
	assert.Error(t, err)
}

func TestSQLiteConformance(t *testing.T) {
	providertest.TestProvider(t, newTestProvider(t, nil))
}
