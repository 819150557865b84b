package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lucasew/dircache"
	"github.com/lucasew/dircache/internal/db"
	"github.com/lucasew/dircache/internal/errutil"
	"github.com/spf13/afero"
)

const (
	// HeaderCacheStatus reports HIT or MISS for a listing.
	HeaderCacheStatus = "X-Directory-Cache"
	// TrailerListingError carries the error of a listing that failed after
	// entries were already sent.
	TrailerListingError = "X-Listing-Error"

	flushEvery = 1000
)

// Catalog resolves tables and partitions to locations.
type Catalog interface {
	GetTable(ctx context.Context, schema, table string) (dircache.Table, error)
	GetPartition(ctx context.Context, schema, table, partition string) (dircache.Partition, error)
}

// ListHandler streams directory listings of catalogued tables as NDJSON.
type ListHandler struct {
	Catalog       Catalog
	Lister        dircache.Lister
	Fs            afero.Fs
	NamenodeStats *dircache.NamenodeStats
}

func NewListHandler(catalog Catalog, lister dircache.Lister, fs afero.Fs, namenodeStats *dircache.NamenodeStats) *ListHandler {
	return &ListHandler{
		Catalog:       catalog,
		Lister:        lister,
		Fs:            fs,
		NamenodeStats: namenodeStats,
	}
}

// ServeHTTP handles GET /list/{schema}/{table}?partition=&cacheable=.
//
// Flow:
// 1. Resolves the table (and partition) location from the catalog.
// 2. Lists it through the lister. Failures before the first entry are a 502.
// 3. Streams one JSON FileInfo per line; a later failure is reported in the
// X-Listing-Error trailer.
func (h *ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema, tableName := r.PathValue("schema"), r.PathValue("table")

	cacheable := true
	if v := r.URL.Query().Get("cacheable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid cacheable value: %s", v), http.StatusBadRequest)
			return
		}
		cacheable = b
	}

	table, err := h.Catalog.GetTable(ctx, schema, tableName)
	if err != nil {
		h.resolveError(w, err)
		return
	}
	dir := table.Location

	var partition *dircache.Partition
	if name := r.URL.Query().Get("partition"); name != "" {
		p, err := h.Catalog.GetPartition(ctx, schema, tableName, name)
		if err != nil {
			h.resolveError(w, err)
			return
		}
		partition = &p
		dir = p.Location
	}

	stats := dircache.NewRuntimeStats()
	it, err := h.Lister.List(ctx, h.Fs, table, dir, partition, h.NamenodeStats, dircache.DirectoryContext{
		Cacheable:    cacheable,
		RuntimeStats: stats,
	})
	if err != nil {
		errutil.ReportError(err, "Listing failed", "dir", dir)
		http.Error(w, fmt.Sprintf("Failed to list %s: %v", dir, err), http.StatusBadGateway)
		return
	}
	defer func() {
		errutil.LogMsg(it.Close(), "Failed to close listing", "dir", dir)
	}()

	status := "MISS"
	if stats.Sum(dircache.MetricDirectoryListingCacheHit) > 0 {
		status = "HIT"
	}
	slog.Info("Listing", "table", table.SchemaTableName(), "dir", dir, "cache", status)

	more := it.Next()
	if !more && it.Err() != nil {
		errutil.ReportError(it.Err(), "Listing failed", "dir", dir)
		http.Error(w, fmt.Sprintf("Failed to list %s: %v", dir, it.Err()), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set(HeaderCacheStatus, status)
	w.Header().Set("Trailer", TrailerListingError)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	for n := 1; more; n++ {
		if err := enc.Encode(it.File()); err != nil {
			errutil.LogMsg(err, "Client went away", "dir", dir)
			return
		}
		if n%flushEvery == 0 {
			_ = rc.Flush()
		}
		more = it.Next()
	}

	if err := it.Err(); err != nil {
		errutil.ReportError(err, "Listing failed mid-stream", "dir", dir)
		w.Header().Set(TrailerListingError, err.Error())
	}
}

func (h *ListHandler) resolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, dircache.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		errutil.ReportError(err, "Catalog lookup failed")
		http.Error(w, "Catalog lookup failed", http.StatusInternalServerError)
	}
}
