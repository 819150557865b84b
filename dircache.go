// Package dircache caches directory listings in front of an expensive lister.
//
// A CachingLister wraps another Lister. Cacheable requests for eligible
// tables are served from memory once a listing of the same directory has
// been fully drained; partial or failed listings are never stored.
package dircache

import (
	"context"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// FileInfo describes one listed file or directory.
type FileInfo struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
	IsDir   bool      `json:"isDir"`
}

// Name returns the last element of the path.
func (f FileInfo) Name() string {
	return path.Base(f.Path)
}

// SchemaTableName is a fully qualified, lowercase table name.
type SchemaTableName struct {
	Schema string
	Table  string
}

// NewSchemaTableName lowercases both parts.
func NewSchemaTableName(schema, table string) SchemaTableName {
	return SchemaTableName{
		Schema: strings.ToLower(schema),
		Table:  strings.ToLower(table),
	}
}

func (n SchemaTableName) String() string {
	return n.Schema + "." + n.Table
}

// Table is the metadata a lister needs about the table being scanned.
type Table struct {
	SchemaName string `json:"schema"`
	TableName  string `json:"table"`
	Location   string `json:"location"`
}

// SchemaTableName returns the qualified name of the table.
func (t Table) SchemaTableName() SchemaTableName {
	return NewSchemaTableName(t.SchemaName, t.TableName)
}

// Partition identifies one partition of a table.
type Partition struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// DirectoryContext carries per-request listing options.
type DirectoryContext struct {
	// Cacheable is false when the caller wants to bypass the cache entirely.
	Cacheable bool
	// RuntimeStats receives per-request metrics. May be nil.
	RuntimeStats *RuntimeStats
}

// FileIterator yields the entries of one directory listing.
//
// Next advances to the next entry and reports whether there is one. When it
// returns false, Err distinguishes normal exhaustion (nil) from failure.
// Close releases resources; it may be called at any time.
type FileIterator interface {
	Next() bool
	File() FileInfo
	Err() error
	Close() error
}

// Lister lists the entries of a directory.
type Lister interface {
	List(ctx context.Context, fs afero.Fs, table Table, dir string, partition *Partition, namenodeStats *NamenodeStats, dctx DirectoryContext) (FileIterator, error)
}

// NormalizePath turns a directory path or URI into the form used as a cache
// key. The scheme and authority are kept; the path is cleaned, so duplicate
// and trailing slashes and dot segments do not produce distinct keys.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	u, err := url.Parse(p)
	if err != nil || u.Scheme == "" || u.Opaque != "" {
		return path.Clean(p)
	}
	if u.Path != "" {
		u.Path = path.Clean(u.Path)
		u.RawPath = ""
	}
	return u.String()
}
