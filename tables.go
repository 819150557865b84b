package dircache

import (
	"fmt"
	"strings"
)

// AllTables is the table list entry that makes every table cacheable.
const AllTables = "*"

// TableFilter decides which tables may have their listings cached.
// It either accepts every table or exactly the tables it was built with.
type TableFilter struct {
	all   bool
	names map[SchemaTableName]struct{}
}

// NewTableFilter builds a filter from a list of "schema.table" names or the
// single entry "*". Entries are trimmed and empty entries are ignored.
func NewTableFilter(tables []string) (*TableFilter, error) {
	var entries []string
	for _, t := range tables {
		if t = strings.TrimSpace(t); t != "" {
			entries = append(entries, t)
		}
	}

	for _, t := range entries {
		if t == AllTables {
			if len(entries) != 1 {
				return nil, fmt.Errorf("%w: only '%s' is expected when caching all tables", ErrInvalidArgument, AllTables)
			}
			return &TableFilter{all: true}, nil
		}
	}

	names := make(map[SchemaTableName]struct{}, len(entries))
	for _, t := range entries {
		name, err := ParseSchemaTableName(t)
		if err != nil {
			return nil, err
		}
		names[name] = struct{}{}
	}
	return &TableFilter{names: names}, nil
}

// ParseSchemaTableName parses "schema.table".
func ParseSchemaTableName(s string) (SchemaTableName, error) {
	schema, table, ok := strings.Cut(s, ".")
	if !ok || schema == "" || table == "" || strings.Contains(table, ".") {
		return SchemaTableName{}, fmt.Errorf("%w: invalid schema table name: %q", ErrInvalidArgument, s)
	}
	return NewSchemaTableName(schema, table), nil
}

// CachesAllTables reports whether every table is cacheable.
func (f *TableFilter) CachesAllTables() bool {
	return f.all
}

// IsCachedTable reports whether listings of name may be cached.
func (f *TableFilter) IsCachedTable(name SchemaTableName) bool {
	if f.all {
		return true
	}
	_, ok := f.names[name]
	return ok
}
