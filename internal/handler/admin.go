package handler

import (
	"errors"
	"net/http"

	"github.com/lucasew/dircache"
)

// AdminHandler serves cache invalidation and statistics.
type AdminHandler struct {
	Lister Admin
}

func NewAdminHandler(lister Admin) *AdminHandler {
	return &AdminHandler{Lister: lister}
}

// Invalidate drops the listing of ?path=, or every listing when path is
// absent. An empty or uncached path is a 400.
func (h *AdminHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	var target *string
	if q := r.URL.Query(); q.Has("path") {
		p := q.Get("path")
		target = &p
	}

	if err := h.Lister.InvalidateDirectoryListCache(target); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dircache.ErrInvalidArgument) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	if target == nil {
		logRequest(r, "Flushed cache")
	} else {
		logRequest(r, "Invalidated cache", "dir", *target)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) Flush(w http.ResponseWriter, r *http.Request) {
	h.Lister.FlushCache()
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Lister.Stats())
}
