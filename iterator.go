package dircache

import (
	"log/slog"
	"slices"

	"github.com/lucasew/dircache/internal/store"
)

// NewSliceIterator returns an iterator over files.
func NewSliceIterator(files []FileInfo) FileIterator {
	return &sliceIterator{files: files}
}

type sliceIterator struct {
	files []FileInfo
	pos   int
}

func (it *sliceIterator) Next() bool {
	if it.pos >= len(it.files) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) File() FileInfo {
	return it.files[it.pos-1]
}

func (it *sliceIterator) Err() error   { return nil }
func (it *sliceIterator) Close() error { return nil }

// populatingIterator forwards an upstream listing and, once the upstream is
// exhausted without error, records the files read and stores the complete
// listing in cache. A nil cache disables the store write only.
type populatingIterator struct {
	upstream FileIterator
	path     string
	cache    *store.Store[FileInfo]
	stats    *RuntimeStats

	files   []FileInfo
	current FileInfo
	done    bool
}

func (it *populatingIterator) Next() bool {
	if it.done {
		return false
	}
	if it.upstream.Next() {
		it.current = it.upstream.File()
		it.files = append(it.files, it.current)
		return true
	}

	it.done = true
	if it.upstream.Err() != nil {
		it.files = nil
		return false
	}

	it.stats.AddMetricValue(MetricFilesReadCount, int64(len(it.files)))
	if it.cache != nil {
		if it.files == nil {
			it.files = []FileInfo{}
		}
		it.cache.Put(it.path, slices.Clip(it.files))
		slog.Debug("Cached directory listing", "path", it.path, "files", len(it.files))
	}
	it.files = nil
	return false
}

func (it *populatingIterator) File() FileInfo {
	return it.current
}

func (it *populatingIterator) Err() error {
	return it.upstream.Err()
}

// Close abandons the listing. Nothing is cached unless the upstream had
// already been drained.
func (it *populatingIterator) Close() error {
	it.done = true
	it.files = nil
	return it.upstream.Close()
}

// Collect drains it and closes it.
func Collect(it FileIterator) (files []FileInfo, err error) {
	defer func() {
		if cerr := it.Close(); err == nil {
			err = cerr
		}
	}()

	for it.Next() {
		files = append(files, it.File())
	}
	return files, it.Err()
}
