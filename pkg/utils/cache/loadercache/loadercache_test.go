//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package loadercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1-race-engineer/pkg/utils/cache"
)

func TestLoaderCache(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	loads := 0
	loader := func(_ context.Context, key string) (*int, error) {
		loads++
		if key == "bad" {
			return nil, errors.New("boom")
		}
		v := len(key) * 10
		return &v, nil
	}
	c := New(
		WithLoader[string, int](loader),
		WithExpiration[string, int](time.Minute),
		WithClock[string, int](func() time.Time { return now }))
	ctx := context.Background()

	v, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 30, *v)
	_, _ = c.Get(ctx, "abc")
	assert.Equal(t, 1, loads, "second get served from cache")

	now = now.Add(time.Minute)
	_, _ = c.Get(ctx, "abc")
	assert.Equal(t, 2, loads, "expired entry is reloaded")

	c.Invalidate(ctx, "abc")
	_, _ = c.Get(ctx, "abc")
	assert.Equal(t, 3, loads)

	c.InvalidateAll(ctx)
	_, _ = c.Get(ctx, "abc")
	assert.Equal(t, 4, loads)

	_, err = c.Get(ctx, "bad")
	assert.Error(t, err)
	_, err = c.Get(ctx, "bad")
	assert.Error(t, err)
	assert.Equal(t, 6, loads, "errors are not cached")
}

func TestLoaderCache_NoLoader(t *testing.T) {
	c := New[string, int]()
	_, err := c.Get(context.Background(), "x")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
