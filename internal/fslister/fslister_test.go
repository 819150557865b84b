package fslister

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lucasew/dircache"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var table = dircache.Table{SchemaName: "sales", TableName: "orders", Location: "/warehouse/orders"}

func newFs(t *testing.T, n int) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/warehouse/orders/ds=1", 0o755))
	for i := 0; i < n; i++ {
		require.NoError(t, afero.WriteFile(fs, fmt.Sprintf("/warehouse/orders/part-%03d", i), []byte("abc"), 0o644))
	}
	return fs
}

func TestLister_ListsInBatches(t *testing.T) {
	fs := newFs(t, 25)
	var stats dircache.NamenodeStats

	l := &Lister{BatchSize: 10}
	it, err := l.List(context.Background(), fs, table, "/warehouse/orders", nil, &stats, dircache.DirectoryContext{})
	require.NoError(t, err)

	files, err := dircache.Collect(it)
	require.NoError(t, err)
	require.Len(t, files, 26)

	var dirs int
	for _, f := range files {
		assert.Contains(t, f.Path, "/warehouse/orders/")
		if f.IsDir {
			dirs++
			continue
		}
		assert.Equal(t, int64(3), f.Size)
	}
	assert.Equal(t, 1, dirs)

	// One open plus at least three batch reads.
	assert.GreaterOrEqual(t, stats.ListCalls(), int64(4))
	assert.Equal(t, int64(0), stats.ListFailures())
}

func TestLister_EmptyDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/empty", 0o755))

	it, err := New().List(context.Background(), fs, table, "/empty/", nil, nil, dircache.DirectoryContext{})
	require.NoError(t, err)
	files, err := dircache.Collect(it)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLister_MissingDirectory(t *testing.T) {
	var stats dircache.NamenodeStats
	_, err := New().List(context.Background(), afero.NewMemMapFs(), table, "/nope", nil, &stats, dircache.DirectoryContext{})
	assert.Error(t, err)
	assert.Equal(t, int64(1), stats.ListFailures())
}

func TestLister_NotADirectory(t *testing.T) {
	fs := newFs(t, 1)
	_, err := New().List(context.Background(), fs, table, "/warehouse/orders/part-000", nil, nil, dircache.DirectoryContext{})
	assert.ErrorContains(t, err, "not a directory")
}

func TestLister_NilFs(t *testing.T) {
	_, err := New().List(context.Background(), nil, table, "/", nil, nil, dircache.DirectoryContext{})
	assert.ErrorIs(t, err, dircache.ErrInvalidArgument)
}

func TestLister_CanceledContext(t *testing.T) {
	fs := newFs(t, 5)
	ctx, cancel := context.WithCancel(context.Background())

	it, err := New().List(ctx, fs, table, "/warehouse/orders", nil, nil, dircache.DirectoryContext{})
	require.NoError(t, err)
	cancel()

	_, err = dircache.Collect(it)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLister_CloseStopsIteration(t *testing.T) {
	fs := newFs(t, 5)
	it, err := (&Lister{BatchSize: 2}).List(context.Background(), fs, table, "/warehouse/orders", nil, nil, dircache.DirectoryContext{})
	require.NoError(t, err)

	require.True(t, it.Next())
	require.NoError(t, it.Close())
	assert.False(t, it.Next())
	require.NoError(t, it.Close())
}

func TestLister_BehindCachingLister(t *testing.T) {
	fs := newFs(t, 3)
	var stats dircache.NamenodeStats

	c, err := dircache.NewCachingLister(New(), dircache.Config{
		ExpireAfterWrite: time.Minute,
		MaxWeight:        100,
		CachedTables:     []string{"sales.orders"},
	})
	require.NoError(t, err)

	list := func() []dircache.FileInfo {
		it, err := c.List(context.Background(), fs, table, "/warehouse/orders", nil, &stats, dircache.DirectoryContext{Cacheable: true})
		require.NoError(t, err)
		files, err := dircache.Collect(it)
		require.NoError(t, err)
		return files
	}

	first := list()
	calls := stats.ListCalls()
	second := list()

	assert.Equal(t, first, second)
	assert.Equal(t, calls, stats.ListCalls(), "a cache hit must not touch the file system")
	assert.Equal(t, uint64(1), c.HitCount())
}
