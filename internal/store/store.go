// Package store implements a sharded, weight- and time-bounded in-memory map
// from directory paths to complete listings.
//
// Each shard owns a map, a write-order queue used for expiry and an
// eviction.Manager that tracks recency and weight. The global weight budget is
// split across shards, so the sum of all shard weights never exceeds it.
// Expiry and eviction happen on access; nothing runs in the background.
package store

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/lucasew/dircache/internal/eviction"
	"github.com/lucasew/dircache/internal/eviction/lru"
	"github.com/lucasew/dircache/internal/eviction/policy"
	"github.com/lucasew/dircache/internal/eviction/policy/maxweight"
)

const (
	// DefaultShards is used when Options.Shards is not set.
	DefaultShards = 4

	// minShardWeight is the smallest budget a shard may get. Budgets below
	// 2*minShardWeight use a single shard, so a listing only has to fit in
	// the whole budget to be retained.
	minShardWeight = 4096
)

// Options configures a Store.
type Options struct {
	// MaxWeight bounds the summed weight of all entries.
	MaxWeight int64
	// ExpireAfterWrite is how long an entry stays valid after it was written.
	ExpireAfterWrite time.Duration
	// Shards is the requested shard count, rounded down to a power of two.
	Shards int
	// Strategy builds the per-shard recency strategy. Defaults to LRU.
	Strategy func() eviction.Strategy
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// Store is a concurrent map from keys to slices whose weight is their length.
//
// Slices handed to Put and returned by Get are shared, not copied; callers
// must treat them as read-only.
type Store[T any] struct {
	shards []*shard[T]
	mask   uint64
	ttl    time.Duration
	now    func() time.Time

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type item[T any] struct {
	values    []T
	writtenAt time.Time
	queued    *list.Element
}

type shard[T any] struct {
	mu     sync.RWMutex
	items  map[string]*item[T]
	writes *list.List // keys, oldest write first
	evict  *eviction.Manager
}

// New creates a Store.
func New[T any](opts Options) (*Store[T], error) {
	if opts.MaxWeight < 0 {
		return nil, fmt.Errorf("max weight must not be negative: %d", opts.MaxWeight)
	}
	if opts.ExpireAfterWrite < 0 {
		return nil, fmt.Errorf("expire after write must not be negative: %s", opts.ExpireAfterWrite)
	}
	if opts.Strategy == nil {
		opts.Strategy = func() eviction.Strategy { return lru.New() }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	n := shardCount(opts.Shards, opts.MaxWeight)
	base := opts.MaxWeight / int64(n)
	remainder := opts.MaxWeight % int64(n)

	s := &Store[T]{
		shards: make([]*shard[T], n),
		mask:   uint64(n - 1),
		ttl:    opts.ExpireAfterWrite,
		now:    opts.Now,
	}
	for i := range s.shards {
		budget := base
		if int64(i) < remainder {
			budget++
		}
		strategy := opts.Strategy()
		if strategy == nil {
			return nil, fmt.Errorf("eviction strategy factory returned nil")
		}
		s.shards[i] = &shard[T]{
			items:  make(map[string]*item[T]),
			writes: list.New(),
			evict:  eviction.NewManager([]policy.Policy{&maxweight.Policy{MaxWeight: budget}}, strategy),
		}
	}
	return s, nil
}

// shardCount picks the largest power of two not above requested that still
// gives every shard at least minShardWeight of budget.
func shardCount(requested int, maxWeight int64) int {
	if requested <= 0 {
		requested = DefaultShards
	}
	n := 1
	for n*2 <= requested && int64(n*2)*minShardWeight <= maxWeight {
		n *= 2
	}
	return n
}

func (s *Store[T]) shardFor(key string) *shard[T] {
	return s.shards[xxhash.Sum64String(key)&s.mask]
}

func (s *Store[T]) expired(it *item[T], now time.Time) bool {
	return now.Sub(it.writtenAt) >= s.ttl
}

// Get returns the values stored under key. Expired entries are removed and
// reported as absent.
func (s *Store[T]) Get(key string) ([]T, bool) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	it, ok := sh.items[key]
	if ok && !s.expired(it, s.now()) {
		sh.evict.Touch(key)
		values := it.values
		sh.mu.RUnlock()
		s.hits.Add(1)
		return values, true
	}
	sh.mu.RUnlock()

	if ok {
		sh.mu.Lock()
		// Only drop the entry we saw; a concurrent Put may have replaced it.
		if current, found := sh.items[key]; found && current == it {
			sh.remove(key, it)
			s.evictions.Add(1)
		}
		sh.mu.Unlock()
	}
	s.misses.Add(1)
	return nil, false
}

// Put stores values under key, replacing any previous entry, and then
// enforces expiry and the shard's weight budget.
func (s *Store[T]) Put(key string, values []T) {
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := s.now()
	if old, ok := sh.items[key]; ok {
		sh.writes.Remove(old.queued)
	}
	it := &item[T]{values: values, writtenAt: now}
	it.queued = sh.writes.PushBack(key)
	sh.items[key] = it
	sh.evict.Add(key, int64(len(values)))

	evicted := s.expireLocked(sh, now)
	for _, victim := range sh.evict.Victims() {
		if v, ok := sh.items[victim.Key]; ok {
			sh.writes.Remove(v.queued)
			delete(sh.items, victim.Key)
			evicted++
		}
	}
	if evicted > 0 {
		s.evictions.Add(evicted)
	}
}

// expireLocked drops entries from the head of the write queue while they are
// expired. The shard lock must be held.
func (s *Store[T]) expireLocked(sh *shard[T], now time.Time) uint64 {
	var n uint64
	for e := sh.writes.Front(); e != nil; {
		key := e.Value.(string)
		it := sh.items[key]
		if !s.expired(it, now) {
			break
		}
		next := e.Next()
		sh.remove(key, it)
		n++
		e = next
	}
	return n
}

func (sh *shard[T]) remove(key string, it *item[T]) {
	sh.writes.Remove(it.queued)
	delete(sh.items, key)
	sh.evict.Remove(key)
}

// Invalidate removes the entry for key and reports whether a live entry was
// present. An expired entry is removed but reported as absent.
func (s *Store[T]) Invalidate(key string) bool {
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	it, ok := sh.items[key]
	if !ok {
		return false
	}
	sh.remove(key, it)
	if s.expired(it, s.now()) {
		s.evictions.Add(1)
		return false
	}
	return true
}

// InvalidateAll removes every entry.
func (s *Store[T]) InvalidateAll() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.items = make(map[string]*item[T])
		sh.writes.Init()
		sh.evict.Reset()
		sh.mu.Unlock()
	}
}

// Len returns the number of entries currently held, including expired
// entries that have not been cleaned up yet.
func (s *Store[T]) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.items)
		sh.mu.RUnlock()
	}
	return n
}

// Weight returns the summed weight of all entries.
func (s *Store[T]) Weight() int64 {
	var w int64
	for _, sh := range s.shards {
		sh.mu.RLock()
		w += sh.evict.Weight()
		sh.mu.RUnlock()
	}
	return w
}

// ShardCount returns the number of shards in use.
func (s *Store[T]) ShardCount() int {
	return len(s.shards)
}

// Stats returns the lifetime counters and the current size.
func (s *Store[T]) Stats() Stats {
	return Stats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
		Size:      s.Len(),
	}
}
