package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexCacheBuildsOnce(t *testing.T) {
	c := NewIndexCache()
	var builds atomic.Int32
	build := func(context.Context) (*Index, error) {
		builds.Add(1)
		return NewIndex([]Entry{{Path: "a.go"}}), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ix, err := c.Get(context.Background(), "/repo", build)
			assert.NoError(t, err)
			assert.Equal(t, 1, ix.Len())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load(), "concurrent gets collapse into one build")
}

func TestIndexCacheFailedBuildRetries(t *testing.T) {
	c := NewIndexCache()
	calls := 0
	failing := func(context.Context) (*Index, error) {
		calls++
		return nil, errors.New("boom")
	}

	_, err := c.Get(context.Background(), "/repo", failing)
	require.Error(t, err)

	ok := func(context.Context) (*Index, error) {
		calls++
		return NewIndex(nil), nil
	}
	_, err = c.Get(context.Background(), "/repo", ok)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "a failed build is not cached")
}

func TestIndexCacheInvalidate(t *testing.T) {
	c := NewIndexCache()
	calls := 0
	build := func(context.Context) (*Index, error) {
		calls++
		return NewIndex(nil), nil
	}

	_, err := c.Get(context.Background(), "/repo", build)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "/repo", build)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	c.Invalidate("/repo")
	_, err = c.Get(context.Background(), "/repo", build)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestIndexCachePerRoot(t *testing.T) {
	c := NewIndexCache()
	calls := 0
	build := func(context.Context) (*Index, error) {
		calls++
		return NewIndex(nil), nil
	}

	_, _ = c.Get(context.Background(), "/a", build)
	_, _ = c.Get(context.Background(), "/b", build)
	assert.Equal(t, 2, calls)
}
