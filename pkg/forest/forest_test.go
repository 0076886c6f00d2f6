package forest_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbcore/pkg/forest"
	"github.com/Sumatoshi-tech/rbcore/pkg/ordmap"
)

func TestNew(t *testing.T) {
	t.Parallel()

	f := forest.New[string, int](4, 1000)
	assert.Equal(t, 4, f.ShardCount())
	assert.Equal(t, 250, f.Allocators()[0].HibernationThreshold)

	assert.Equal(t, 1, forest.New[string, int](0, 0).ShardCount())
	assert.Equal(t, 1000, forest.New[string, int](8, 4).Allocators()[0].HibernationThreshold)
}

func TestShardIndex(t *testing.T) {
	t.Parallel()

	f := forest.New[string, int](4, 0)
	assert.Equal(t, f.ShardIndex("file1"), f.ShardIndex("file1"))

	counts := make(map[int]int)
	for idx := range 100 {
		counts[f.ShardIndex(fmt.Sprintf("file%d", idx))]++
	}

	assert.Len(t, counts, 4) // Likely to hit all 4 with 100 files.
}

func TestConcurrentMutation(t *testing.T) {
	t.Parallel()

	f := forest.New[int, int](8, 0)

	var wg sync.WaitGroup

	for worker := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for key := worker * 1000; key < worker*1000+500; key++ {
				inserted, err := f.Insert(key, key)
				assert.NoError(t, err)
				assert.True(t, inserted)
			}

			for key := worker * 1000; key < worker*1000+500; key += 2 {
				deleted, err := f.Delete(key)
				assert.NoError(t, err)
				assert.True(t, deleted)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 8*250, f.Len())
	require.NoError(t, f.Verify(context.Background()))

	value, ok, err := f.Get(1001)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1001, value)

	_, ok, err = f.Get(1000)
	require.NoError(t, err)
	assert.False(t, ok)

	stats := f.Stats()
	assert.Equal(t, uint64(8*500), stats.Links)
	assert.Equal(t, uint64(8*250), stats.Deletes)
}

func TestEachStopsOnError(t *testing.T) {
	t.Parallel()

	f := forest.New[string, int](4, 0)
	errBoom := errors.New("boom")

	err := f.Each(context.Background(), func(_ context.Context, idx int, _ *ordmap.Map[string, int]) error {
		if idx == 2 {
			return errBoom
		}

		return nil
	})
	require.ErrorIs(t, err, errBoom)
}

func TestEachCanceled(t *testing.T) {
	t.Parallel()

	f := forest.New[string, int](4, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := f.Each(ctx, func(context.Context, int, *ordmap.Map[string, int]) error {
		calls++

		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestHibernateBoot(t *testing.T) {
	t.Parallel()

	f := forest.New[string, string](2, 0)
	for idx := range 200 {
		_, err := f.Insert(fmt.Sprintf("key%03d", idx), "v")
		require.NoError(t, err)
	}

	f.Hibernate()
	f.Hibernate()

	for _, alloc := range f.Allocators() {
		assert.True(t, alloc.Hibernated())
	}

	assert.Equal(t, 2, f.Hibernated())

	_, err := f.Insert("late", "v")
	require.ErrorIs(t, err, forest.ErrHibernated)
	_, _, err = f.Get("key001")
	require.ErrorIs(t, err, forest.ErrHibernated)
	_, err = f.Delete("key001")
	require.ErrorIs(t, err, forest.ErrHibernated)
	require.ErrorIs(t, f.Verify(context.Background()), forest.ErrHibernated)

	f.Boot()

	require.NoError(t, f.Verify(context.Background()))
	assert.Equal(t, 200, f.Len())

	deleted, err := f.Delete("key001")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestHibernateHonorsThreshold(t *testing.T) {
	t.Parallel()

	f := forest.New[int, int](2, 1_000_000)
	for idx := range 10 {
		_, err := f.Insert(idx, idx)
		require.NoError(t, err)
	}

	f.Hibernate()

	for _, alloc := range f.Allocators() {
		assert.Equal(t, 500_000, alloc.HibernationThreshold)
		assert.False(t, alloc.Hibernated())
		assert.Zero(t, alloc.HibernatedBytes())
	}

	assert.Zero(t, f.Hibernated())

	inserted, err := f.Insert(42, 42)
	require.NoError(t, err)
	assert.True(t, inserted)

	value, found, err := f.Get(3)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, value)
	require.NoError(t, f.Verify(context.Background()))
}

func TestHibernateMixedShards(t *testing.T) {
	t.Parallel()

	// 2000 split over two shards gives each a 1000-slot threshold.
	f := forest.New[int, int](2, 2000)

	for key := 0; f.Allocators()[0].Size() < 1100; key++ {
		if f.ShardIndex(key) == 0 {
			_, err := f.Insert(key, key)
			require.NoError(t, err)
		}
	}

	_, err := f.Insert(1, 1)
	require.NoError(t, err)

	f.Hibernate()

	allocators := f.Allocators()
	require.Len(t, allocators, 2)
	assert.Equal(t, 1, f.Hibernated())
	assert.True(t, allocators[0].Hibernated())
	assert.False(t, allocators[1].Hibernated())

	f.Boot()
	assert.Zero(t, f.Hibernated())
	require.NoError(t, f.Verify(context.Background()))
}

func TestVerifyEmpty(t *testing.T) {
	t.Parallel()

	f := forest.New[string, int](3, 0)
	require.NoError(t, f.Verify(context.Background()))

	f.Hibernate()
	f.Boot()
	require.NoError(t, f.Verify(context.Background()))
}
