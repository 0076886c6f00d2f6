// Package forest spreads an ordered key space over independent red-black
// trees, each on its own arena, so that shards can be mutated, verified and
// hibernated in parallel.
package forest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/rbcore/pkg/ordmap"
	"github.com/Sumatoshi-tech/rbcore/pkg/rbtree"
)

// ErrShardInvalid wraps the verification failure of one shard.
var ErrShardInvalid = errors.New("shard failed verification")

// ErrHibernated is returned when a hibernated forest is mutated or inspected.
var ErrHibernated = errors.New("forest is hibernated")

// minHibernationThreshold is the minimal reasonable default if division results in 0.
const minHibernationThreshold = 1000

type shard[K cmp.Ordered, V any] struct {
	mu        sync.Mutex
	allocator *rbtree.Allocator
	entries   *ordmap.Map[K, V]
}

// Forest is a sharded ordered map. It is safe for concurrent use; operations
// on different shards proceed in parallel.
type Forest[K cmp.Ordered, V any] struct {
	shards []*shard[K, V]
}

// New creates a forest with shardCount shards. A positive hibernationThreshold
// is split evenly across the shard allocators.
func New[K cmp.Ordered, V any](shardCount, hibernationThreshold int) *Forest[K, V] {
	if shardCount <= 0 {
		shardCount = 1
	}

	shards := make([]*shard[K, V], shardCount)

	for idx := range shardCount {
		allocator := rbtree.NewAllocator()

		if hibernationThreshold > 0 {
			allocator.HibernationThreshold = hibernationThreshold / shardCount
			if allocator.HibernationThreshold == 0 {
				allocator.HibernationThreshold = minHibernationThreshold
			}
		}

		shards[idx] = &shard[K, V]{
			allocator: allocator,
			entries:   ordmap.New[K, V](allocator),
		}
	}

	return &Forest[K, V]{shards: shards}
}

// ShardCount returns the number of shards.
func (forest *Forest[K, V]) ShardCount() int {
	return len(forest.shards)
}

// ShardIndex returns the shard that owns key.
func (forest *Forest[K, V]) ShardIndex(key K) int {
	hasher := fnv.New32a()
	fmt.Fprint(hasher, key)

	return int(hasher.Sum32() % uint32(len(forest.shards)))
}

func (forest *Forest[K, V]) shardFor(key K) *shard[K, V] {
	return forest.shards[forest.ShardIndex(key)]
}

// Insert adds key with value. It returns false when the key exists.
func (forest *Forest[K, V]) Insert(key K, value V) (bool, error) {
	sh := forest.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.allocator.Hibernated() {
		return false, ErrHibernated
	}

	return sh.entries.Insert(key, value), nil
}

// Get returns the value stored under key.
func (forest *Forest[K, V]) Get(key K) (V, bool, error) {
	sh := forest.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.allocator.Hibernated() {
		var zero V

		return zero, false, ErrHibernated
	}

	value, ok := sh.entries.Get(key)

	return value, ok, nil
}

// Delete removes key. It returns false when the key is absent.
func (forest *Forest[K, V]) Delete(key K) (bool, error) {
	sh := forest.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.allocator.Hibernated() {
		return false, ErrHibernated
	}

	return sh.entries.Delete(key), nil
}

// Len returns the total number of keys.
func (forest *Forest[K, V]) Len() int {
	total := 0

	for _, sh := range forest.shards {
		sh.mu.Lock()
		total += sh.entries.Len()
		sh.mu.Unlock()
	}

	return total
}

// Stats sums the structural counters of all shards.
func (forest *Forest[K, V]) Stats() rbtree.Stats {
	var total rbtree.Stats

	for _, sh := range forest.shards {
		sh.mu.Lock()
		stats := sh.entries.Stats()
		sh.mu.Unlock()

		total.Links += stats.Links
		total.InsertFixups += stats.InsertFixups
		total.Deletes += stats.Deletes
		total.Rotations += stats.Rotations
		total.Swaps += stats.Swaps
		total.RedSibling += stats.RedSibling
		total.BlackNephews += stats.BlackNephews
		total.NearRedNephew += stats.NearRedNephew
		total.FarRedNephew += stats.FarRedNephew
	}

	return total
}

// Each runs fn once per shard with the shard locked, at most GOMAXPROCS at a time.
// The first error cancels the context passed to the remaining calls.
func (forest *Forest[K, V]) Each(ctx context.Context, fn func(ctx context.Context, idx int, entries *ordmap.Map[K, V]) error) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))

	for idx, sh := range forest.shards {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			sh.mu.Lock()
			defer sh.mu.Unlock()

			if sh.allocator.Hibernated() {
				return fmt.Errorf("shard %d: %w", idx, ErrHibernated)
			}

			return fn(groupCtx, idx, sh.entries)
		})
	}

	return group.Wait()
}

// Verify checks every shard and reports all failures together.
func (forest *Forest[K, V]) Verify(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs []error
	)

	err := forest.Each(ctx, func(_ context.Context, idx int, entries *ordmap.Map[K, V]) error {
		if verifyErr := entries.Tree().Verify(); verifyErr != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shard %d: %w: %w", idx, ErrShardInvalid, verifyErr))
			mu.Unlock()
		}

		return nil
	})
	if err != nil {
		return err
	}

	return errors.Join(errs...)
}

// Allocators returns the shard arenas.
func (forest *Forest[K, V]) Allocators() []*rbtree.Allocator {
	result := make([]*rbtree.Allocator, len(forest.shards))
	for idx, sh := range forest.shards {
		result[idx] = sh.allocator
	}

	return result
}

// Hibernate compresses, in parallel, every shard whose arena has reached its
// HibernationThreshold. Smaller shards stay resident and usable.
func (forest *Forest[K, V]) Hibernate() {
	wg := sync.WaitGroup{}
	wg.Add(len(forest.shards))

	for _, sh := range forest.shards {
		go func(sh *shard[K, V]) {
			defer wg.Done()

			sh.mu.Lock()
			defer sh.mu.Unlock()

			if sh.allocator.Hibernated() {
				return
			}

			sh.allocator.Hibernate()
		}(sh)
	}

	wg.Wait()
}

// Hibernated returns the number of shards currently compressed.
func (forest *Forest[K, V]) Hibernated() int {
	count := 0

	for _, sh := range forest.shards {
		sh.mu.Lock()

		if sh.allocator.Hibernated() {
			count++
		}

		sh.mu.Unlock()
	}

	return count
}

// Boot restores every shard in parallel.
func (forest *Forest[K, V]) Boot() {
	wg := sync.WaitGroup{}
	wg.Add(len(forest.shards))

	for _, sh := range forest.shards {
		go func(sh *shard[K, V]) {
			defer wg.Done()

			sh.mu.Lock()
			defer sh.mu.Unlock()

			sh.allocator.Boot()
		}(sh)
	}

	wg.Wait()
}
