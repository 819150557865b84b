package dircache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lucasew/dircache/internal/eviction"
	_ "github.com/lucasew/dircache/internal/eviction/lru"
	"github.com/lucasew/dircache/internal/store"
	"github.com/spf13/afero"
)

// DefaultEvictionStrategy is used when Config.EvictionStrategy is empty.
const DefaultEvictionStrategy = "lru"

// Config configures a CachingLister.
type Config struct {
	// ExpireAfterWrite is how long a cached listing stays valid.
	ExpireAfterWrite time.Duration
	// MaxWeight bounds the total number of FileInfo records cached.
	MaxWeight int64
	// CachedTables lists the "schema.table" names whose listings may be
	// cached, or holds the single entry "*".
	CachedTables []string
	// Shards is the number of cache partitions. Zero picks a default.
	Shards int
	// EvictionStrategy names a registered eviction strategy.
	EvictionStrategy string
}

// CachingLister is a Lister that serves repeated listings of the same
// directory from memory.
type CachingLister struct {
	delegate Lister
	cache    *store.Store[FileInfo]
	tables   *TableFilter
}

// NewCachingLister wraps delegate.
func NewCachingLister(delegate Lister, cfg Config) (*CachingLister, error) {
	return newCachingLister(delegate, cfg, time.Now)
}

func newCachingLister(delegate Lister, cfg Config, now func() time.Time) (*CachingLister, error) {
	if delegate == nil {
		return nil, fmt.Errorf("%w: delegate is nil", ErrInvalidArgument)
	}

	tables, err := NewTableFilter(cfg.CachedTables)
	if err != nil {
		return nil, err
	}

	strategyName := cfg.EvictionStrategy
	if strategyName == "" {
		strategyName = DefaultEvictionStrategy
	}
	strategy, err := eviction.Factory(strategyName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	cache, err := store.New[FileInfo](store.Options{
		MaxWeight:        cfg.MaxWeight,
		ExpireAfterWrite: cfg.ExpireAfterWrite,
		Shards:           cfg.Shards,
		Strategy:         strategy,
		Now:              now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return &CachingLister{
		delegate: delegate,
		cache:    cache,
		tables:   tables,
	}, nil
}

// List returns the entries of dir.
//
// Flow:
// 1. Cacheable requests are answered from the cache when an entry exists (HIT).
// 2. Otherwise the delegate lists the directory (MISS). Delegate errors are returned as is.
// 3. If the request is cacheable and the table is eligible, draining the
// returned iterator to the end stores the listing for later requests.
func (c *CachingLister) List(ctx context.Context, fs afero.Fs, table Table, dir string, partition *Partition, namenodeStats *NamenodeStats, dctx DirectoryContext) (FileIterator, error) {
	key := NormalizePath(dir)
	stats := dctx.RuntimeStats

	// A non-cacheable request bypasses the cache completely. Useful when
	// debugging listings.
	if dctx.Cacheable {
		if files, ok := c.cache.Get(key); ok {
			stats.AddMetricValue(MetricDirectoryListingCacheHit, 1)
			stats.AddMetricValue(MetricFilesReadCount, int64(len(files)))
			return NewSliceIterator(files), nil
		}
	}

	stats.AddMetricValue(MetricDirectoryListingCacheMiss, 1)
	upstream, err := c.delegate.List(ctx, fs, table, dir, partition, namenodeStats, dctx)
	if err != nil {
		return nil, err
	}

	it := &populatingIterator{
		upstream: upstream,
		path:     key,
		stats:    stats,
	}
	if dctx.Cacheable && c.tables.IsCachedTable(table.SchemaTableName()) {
		it.cache = c.cache
	}
	return it, nil
}

// InvalidateDirectoryListCache drops the cached listing of directoryPath, or
// every listing when directoryPath is nil. Invalidating an empty or uncached
// path fails with ErrInvalidArgument.
func (c *CachingLister) InvalidateDirectoryListCache(directoryPath *string) error {
	if directoryPath == nil {
		c.FlushCache()
		return nil
	}
	if *directoryPath == "" {
		return fmt.Errorf("%w: directory path can not be an empty string", ErrInvalidArgument)
	}
	if !c.cache.Invalidate(NormalizePath(*directoryPath)) {
		return fmt.Errorf("%w: given directory path is not cached: %s", ErrInvalidArgument, *directoryPath)
	}
	slog.Info("Invalidated directory listing", "path", *directoryPath)
	return nil
}

// FlushCache drops every cached listing.
func (c *CachingLister) FlushCache() {
	c.cache.InvalidateAll()
	slog.Info("Flushed directory listing cache")
}

// Stats is a snapshot of the cache counters.
type Stats struct {
	HitRate       float64 `json:"hitRate"`
	MissRate      float64 `json:"missRate"`
	HitCount      uint64  `json:"hitCount"`
	MissCount     uint64  `json:"missCount"`
	RequestCount  uint64  `json:"requestCount"`
	EvictionCount uint64  `json:"evictionCount"`
	Size          int     `json:"size"`
}

func (c *CachingLister) Stats() Stats {
	s := c.cache.Stats()
	return Stats{
		HitRate:       s.HitRate(),
		MissRate:      s.MissRate(),
		HitCount:      s.Hits,
		MissCount:     s.Misses,
		RequestCount:  s.Requests(),
		EvictionCount: s.Evictions,
		Size:          s.Size,
	}
}

func (c *CachingLister) HitRate() float64 {
	return c.cache.Stats().HitRate()
}

func (c *CachingLister) MissRate() float64 {
	return c.cache.Stats().MissRate()
}

func (c *CachingLister) HitCount() uint64 {
	return c.cache.Stats().Hits
}

func (c *CachingLister) MissCount() uint64 {
	return c.cache.Stats().Misses
}

func (c *CachingLister) RequestCount() uint64 {
	return c.cache.Stats().Requests()
}

func (c *CachingLister) EvictionCount() uint64 {
	return c.cache.Stats().Evictions
}

func (c *CachingLister) Size() int {
	return c.cache.Len()
}

// Weight returns the number of FileInfo records currently cached.
func (c *CachingLister) Weight() int64 {
	return c.cache.Weight()
}
