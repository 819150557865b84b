// Package app wires the catalog, file system, lister and HTTP handlers into a server.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lucasew/dircache"
	"github.com/lucasew/dircache/internal/db"
	"github.com/lucasew/dircache/internal/errutil"
	"github.com/lucasew/dircache/internal/fslister"
	"github.com/lucasew/dircache/internal/handler"
	"github.com/spf13/afero"
)

type Config struct {
	Port        int
	CatalogPath string
	// Root confines listings to a directory of the local file system.
	Root      string
	BatchSize int
	Cache     dircache.Config
}

// NewFs returns a read-only view of the local file system, rooted at root
// when it is set.
func NewFs(root string) afero.Fs {
	fs := afero.NewReadOnlyFs(afero.NewOsFs())
	if root == "" {
		return fs
	}
	return afero.NewBasePathFs(fs, root)
}

// NewLister builds the caching lister over the local file system lister.
func NewLister(cfg Config) (*dircache.CachingLister, error) {
	fsl := fslister.New()
	if cfg.BatchSize > 0 {
		fsl.BatchSize = cfg.BatchSize
	}
	lister, err := dircache.NewCachingLister(fsl, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize directory cache: %w", err)
	}
	return lister, nil
}

// NewServer returns the configured server and a cleanup function that
// releases the catalog.
func NewServer(cfg Config) (*http.Server, func(), error) {
	lister, err := NewLister(cfg)
	if err != nil {
		return nil, nil, err
	}

	catalog, err := db.Open(cfg.CatalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog at %s: %w", cfg.CatalogPath, err)
	}

	namenodeStats := &dircache.NamenodeStats{}
	mux := handler.NewMux(
		handler.NewListHandler(catalog, lister, NewFs(cfg.Root), namenodeStats),
		handler.NewAdminHandler(lister),
	)

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("Starting server",
		"addr", addr,
		"catalog", cfg.CatalogPath,
		"root", cfg.Root,
		"expire_after_write", cfg.Cache.ExpireAfterWrite,
		"max_weight", cfg.Cache.MaxWeight,
		"cached_tables", cfg.Cache.CachedTables,
	)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cleanup := func() {
		errutil.LogMsg(catalog.Close(), "Failed to close catalog")
		slog.Info("Namenode stats",
			"list_calls", namenodeStats.ListCalls(),
			"list_failures", namenodeStats.ListFailures(),
			"list_time", namenodeStats.ListTime(),
		)
	}

	return server, cleanup, nil
}
