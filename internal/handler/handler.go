// Package handler exposes directory listings and cache administration over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lucasew/dircache"
	"github.com/lucasew/dircache/internal/errutil"
)

// Admin is the administrative surface of a caching lister.
type Admin interface {
	InvalidateDirectoryListCache(directoryPath *string) error
	FlushCache()
	Stats() dircache.Stats
}

var _ Admin = (*dircache.CachingLister)(nil)

// NewMux routes the listing and admin endpoints.
func NewMux(list *ListHandler, admin *AdminHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /list/{schema}/{table}", list)
	mux.HandleFunc("POST /admin/invalidate", admin.Invalidate)
	mux.HandleFunc("POST /admin/flush", admin.Flush)
	mux.HandleFunc("GET /admin/stats", admin.Stats)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	errutil.LogMsg(json.NewEncoder(w).Encode(v), "Failed to write response")
}

func logRequest(r *http.Request, msg string, args ...any) {
	slog.Debug(msg, append([]any{"method", r.Method, "path", r.URL.Path}, args...)...)
}
