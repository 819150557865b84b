// Package fslister lists directories on an afero.Fs.
package fslister

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lucasew/dircache"
	"github.com/spf13/afero"
)

// DefaultBatchSize is the number of entries read from the file system per call.
const DefaultBatchSize = 1000

// Lister reads directories lazily, BatchSize entries at a time.
type Lister struct {
	BatchSize int
}

// New returns a Lister with the default batch size.
func New() *Lister {
	return &Lister{BatchSize: DefaultBatchSize}
}

var _ dircache.Lister = (*Lister)(nil)

func (l *Lister) List(ctx context.Context, fs afero.Fs, table dircache.Table, dir string, partition *dircache.Partition, namenodeStats *dircache.NamenodeStats, dctx dircache.DirectoryContext) (dircache.FileIterator, error) {
	if fs == nil {
		return nil, fmt.Errorf("%w: file system is nil", dircache.ErrInvalidArgument)
	}

	start := time.Now()
	f, err := fs.Open(dir)
	if err == nil {
		var info os.FileInfo
		info, err = f.Stat()
		if err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory: %s", dir)
		}
		if err != nil {
			f.Close()
		}
	}
	namenodeStats.RecordListCall(time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}

	batch := l.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	slog.Debug("Listing directory", "table", table.SchemaTableName(), "dir", dir)
	return &iterator{
		ctx:   ctx,
		dir:   dir,
		file:  f,
		batch: batch,
		stats: namenodeStats,
	}, nil
}

type iterator struct {
	ctx   context.Context
	dir   string
	file  afero.File
	batch int
	stats *dircache.NamenodeStats

	pending []dircache.FileInfo
	current dircache.FileInfo
	eof     bool
	closed  bool
	err     error
}

func (it *iterator) Next() bool {
	for len(it.pending) == 0 {
		if it.eof || it.closed || it.err != nil {
			return false
		}
		it.fill()
	}
	it.current = it.pending[0]
	it.pending = it.pending[1:]
	return true
}

func (it *iterator) fill() {
	if err := it.ctx.Err(); err != nil {
		it.err = err
		return
	}

	start := time.Now()
	infos, err := it.file.Readdir(it.batch)
	if errors.Is(err, io.EOF) {
		err = nil
		it.eof = true
	}
	it.stats.RecordListCall(time.Since(start), err)
	if err != nil {
		it.err = fmt.Errorf("failed to read %s: %w", it.dir, err)
		return
	}
	if len(infos) == 0 {
		it.eof = true
		return
	}

	for _, info := range infos {
		it.pending = append(it.pending, dircache.FileInfo{
			Path:    joinPath(it.dir, info.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
		})
	}
}

func (it *iterator) File() dircache.FileInfo {
	return it.current
}

func (it *iterator) Err() error {
	return it.err
}

func (it *iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.pending = nil
	return it.file.Close()
}

// joinPath appends name to dir without cleaning, so URI schemes survive.
func joinPath(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}
