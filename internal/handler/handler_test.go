package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lucasew/dircache"
	"github.com/lucasew/dircache/internal/db"
	"github.com/lucasew/dircache/internal/fslister"
	"github.com/spf13/afero"
)

type fakeCatalog struct {
	tables     map[string]dircache.Table
	partitions map[string]dircache.Partition
}

func (c *fakeCatalog) GetTable(ctx context.Context, schema, table string) (dircache.Table, error) {
	t, ok := c.tables[schema+"."+table]
	if !ok {
		return dircache.Table{}, fmt.Errorf("table %s.%s: %w", schema, table, db.ErrNotFound)
	}
	return t, nil
}

func (c *fakeCatalog) GetPartition(ctx context.Context, schema, table, partition string) (dircache.Partition, error) {
	p, ok := c.partitions[schema+"."+table+"/"+partition]
	if !ok {
		return dircache.Partition{}, fmt.Errorf("partition %s: %w", partition, db.ErrNotFound)
	}
	return p, nil
}

// brokenLister yields good entries and then fails.
type brokenLister struct {
	good int
}

func (l *brokenLister) List(ctx context.Context, fs afero.Fs, table dircache.Table, dir string, partition *dircache.Partition, namenodeStats *dircache.NamenodeStats, dctx dircache.DirectoryContext) (dircache.FileIterator, error) {
	return &brokenIterator{left: l.good}, nil
}

type brokenIterator struct {
	left int
	err  error
}

func (it *brokenIterator) Next() bool {
	if it.left == 0 {
		it.err = errors.New("datanode lost")
		return false
	}
	it.left--
	return true
}

func (it *brokenIterator) File() dircache.FileInfo { return dircache.FileInfo{Path: "/x"} }
func (it *brokenIterator) Err() error              { return it.err }
func (it *brokenIterator) Close() error            { return nil }

type testServer struct {
	mux    *http.ServeMux
	lister *dircache.CachingLister
	fs     afero.Fs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	fs := afero.NewMemMapFs()
	for i := 0; i < 3; i++ {
		if err := afero.WriteFile(fs, fmt.Sprintf("/w/orders/part-%d", i), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := afero.WriteFile(fs, "/w/orders/ds=1/part-0", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	catalog := &fakeCatalog{
		tables: map[string]dircache.Table{
			"sales.orders": {SchemaName: "sales", TableName: "orders", Location: "/w/orders"},
			"sales.gone":   {SchemaName: "sales", TableName: "gone", Location: "/w/gone"},
		},
		partitions: map[string]dircache.Partition{
			"sales.orders/ds=1": {Name: "ds=1", Location: "/w/orders/ds=1"},
		},
	}

	lister, err := dircache.NewCachingLister(fslister.New(), dircache.Config{
		ExpireAfterWrite: time.Minute,
		MaxWeight:        1000,
		CachedTables:     []string{dircache.AllTables},
	})
	if err != nil {
		t.Fatal(err)
	}

	mux := NewMux(
		NewListHandler(catalog, lister, fs, &dircache.NamenodeStats{}),
		NewAdminHandler(lister),
	)
	return &testServer{mux: mux, lister: lister, fs: fs}
}

func (s *testServer) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	return w
}

func decodeLines(t *testing.T, body string) []dircache.FileInfo {
	t.Helper()
	var files []dircache.FileInfo
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		var f dircache.FileInfo
		if err := json.Unmarshal(sc.Bytes(), &f); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		files = append(files, f)
	}
	return files
}

func TestListHandler(t *testing.T) {
	s := newTestServer(t)

	t.Run("Miss then Hit", func(t *testing.T) {
		w := s.do("GET", "/list/sales/orders")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d. Body: %s", w.Code, w.Body.String())
		}
		if got := w.Header().Get(HeaderCacheStatus); got != "MISS" {
			t.Errorf("expected MISS, got %s", got)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
			t.Errorf("unexpected content type %s", ct)
		}
		first := decodeLines(t, w.Body.String())
		// Three files plus the partition directory.
		if len(first) != 4 {
			t.Fatalf("expected 4 entries, got %d", len(first))
		}

		w = s.do("GET", "/list/sales/orders")
		if got := w.Header().Get(HeaderCacheStatus); got != "HIT" {
			t.Errorf("expected HIT, got %s", got)
		}
		if second := decodeLines(t, w.Body.String()); len(second) != len(first) {
			t.Errorf("expected %d entries from cache, got %d", len(first), len(second))
		}
	})

	t.Run("Not Cacheable", func(t *testing.T) {
		w := s.do("GET", "/list/sales/orders?cacheable=false")
		if got := w.Header().Get(HeaderCacheStatus); got != "MISS" {
			t.Errorf("expected MISS for a non-cacheable request, got %s", got)
		}
	})

	t.Run("Partition", func(t *testing.T) {
		w := s.do("GET", "/list/sales/orders?partition=ds=1")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		files := decodeLines(t, w.Body.String())
		if len(files) != 1 || files[0].Path != "/w/orders/ds=1/part-0" {
			t.Errorf("unexpected partition listing %+v", files)
		}
	})

	t.Run("Unknown Table", func(t *testing.T) {
		if w := s.do("GET", "/list/sales/nope"); w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("Unknown Partition", func(t *testing.T) {
		if w := s.do("GET", "/list/sales/orders?partition=ds=9"); w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("Missing Directory", func(t *testing.T) {
		if w := s.do("GET", "/list/sales/gone"); w.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", w.Code)
		}
	})

	t.Run("Bad Cacheable", func(t *testing.T) {
		if w := s.do("GET", "/list/sales/orders?cacheable=maybe"); w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}

func TestListHandler_Failures(t *testing.T) {
	catalog := &fakeCatalog{tables: map[string]dircache.Table{
		"sales.orders": {SchemaName: "sales", TableName: "orders", Location: "/w/orders"},
	}}

	t.Run("Before First Entry", func(t *testing.T) {
		h := NewListHandler(catalog, &brokenLister{good: 0}, afero.NewMemMapFs(), nil)
		mux := NewMux(h, NewAdminHandler(nil))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/list/sales/orders", nil))
		if w.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", w.Code)
		}
	})

	t.Run("Mid Stream", func(t *testing.T) {
		h := NewListHandler(catalog, &brokenLister{good: 2}, afero.NewMemMapFs(), nil)
		mux := NewMux(h, NewAdminHandler(nil))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/list/sales/orders", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if n := len(decodeLines(t, w.Body.String())); n != 2 {
			t.Errorf("expected 2 entries, got %d", n)
		}
		if got := w.Result().Trailer.Get(TrailerListingError); got != "datanode lost" {
			t.Errorf("expected listing error trailer, got %q", got)
		}
	})
}

func TestAdminHandler(t *testing.T) {
	s := newTestServer(t)
	s.do("GET", "/list/sales/orders")
	s.do("GET", "/list/sales/orders")

	t.Run("Stats", func(t *testing.T) {
		w := s.do("GET", "/admin/stats")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var stats dircache.Stats
		if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
			t.Fatal(err)
		}
		if stats.HitCount != 1 || stats.MissCount != 1 || stats.Size != 1 {
			t.Errorf("unexpected stats %+v", stats)
		}
	})

	t.Run("Invalidate Empty Path", func(t *testing.T) {
		if w := s.do("POST", "/admin/invalidate?path="); w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("Invalidate Uncached Path", func(t *testing.T) {
		w := s.do("POST", "/admin/invalidate?path=/w/other")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "not cached") {
			t.Errorf("unexpected body %s", w.Body.String())
		}
	})

	t.Run("Invalidate Path", func(t *testing.T) {
		if w := s.do("POST", "/admin/invalidate?path=/w/orders/"); w.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d: %s", w.Code, w.Body.String())
		}
		if s.lister.Size() != 0 {
			t.Errorf("expected empty cache, got %d entries", s.lister.Size())
		}
	})

	t.Run("Invalidate All", func(t *testing.T) {
		s.do("GET", "/list/sales/orders")
		if w := s.do("POST", "/admin/invalidate"); w.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", w.Code)
		}
		if s.lister.Size() != 0 {
			t.Errorf("expected empty cache, got %d entries", s.lister.Size())
		}
	})

	t.Run("Flush", func(t *testing.T) {
		s.do("GET", "/list/sales/orders")
		if w := s.do("POST", "/admin/flush"); w.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", w.Code)
		}
		if w := s.do("GET", "/list/sales/orders"); w.Header().Get(HeaderCacheStatus) != "MISS" {
			t.Errorf("expected MISS after flush")
		}
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		if w := s.do("GET", "/admin/flush"); w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", w.Code)
		}
	})
}
