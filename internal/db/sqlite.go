// Package db stores the table and partition catalog that maps qualified
// table names to directory locations.
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lucasew/dircache"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when a table or partition is not in the catalog.
var ErrNotFound = errors.New("not found")

// DB represents the database connection.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog at path and migrates it to the
// latest schema.
func Open(path string) (*DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	// m.Close would close db too.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// PutTable inserts or replaces a table.
func (d *DB) PutTable(ctx context.Context, t dircache.Table) error {
	name := t.SchemaTableName()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO tables (schema_name, table_name, location) VALUES (?, ?, ?)
		ON CONFLICT (schema_name, table_name) DO UPDATE SET location = excluded.location`,
		name.Schema, name.Table, t.Location)
	if err != nil {
		return fmt.Errorf("failed to put table %s: %w", name, err)
	}
	return nil
}

// GetTable returns the table registered under schema.table.
func (d *DB) GetTable(ctx context.Context, schema, table string) (dircache.Table, error) {
	name := dircache.NewSchemaTableName(schema, table)
	t := dircache.Table{SchemaName: name.Schema, TableName: name.Table}
	err := d.db.QueryRowContext(ctx,
		"SELECT location FROM tables WHERE schema_name = ? AND table_name = ?",
		name.Schema, name.Table).Scan(&t.Location)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dircache.Table{}, fmt.Errorf("table %s: %w", name, ErrNotFound)
		}
		return dircache.Table{}, fmt.Errorf("failed to get table %s: %w", name, err)
	}
	return t, nil
}

// ListTables returns every table, ordered by name.
func (d *DB) ListTables(ctx context.Context) ([]dircache.Table, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT schema_name, table_name, location FROM tables ORDER BY schema_name, table_name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []dircache.Table
	for rows.Next() {
		var t dircache.Table
		if err := rows.Scan(&t.SchemaName, &t.TableName, &t.Location); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// DeleteTable removes a table and its partitions.
func (d *DB) DeleteTable(ctx context.Context, schema, table string) error {
	name := dircache.NewSchemaTableName(schema, table)
	res, err := d.db.ExecContext(ctx,
		"DELETE FROM tables WHERE schema_name = ? AND table_name = ?", name.Schema, name.Table)
	if err != nil {
		return fmt.Errorf("failed to delete table %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("table %s: %w", name, ErrNotFound)
	}
	return nil
}

// PutPartition inserts or replaces a partition of an existing table.
func (d *DB) PutPartition(ctx context.Context, schema, table string, p dircache.Partition) error {
	name := dircache.NewSchemaTableName(schema, table)
	if _, err := d.GetTable(ctx, name.Schema, name.Table); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO partitions (schema_name, table_name, name, location) VALUES (?, ?, ?, ?)
		ON CONFLICT (schema_name, table_name, name) DO UPDATE SET location = excluded.location`,
		name.Schema, name.Table, p.Name, p.Location)
	if err != nil {
		return fmt.Errorf("failed to put partition %s/%s: %w", name, p.Name, err)
	}
	return nil
}

// GetPartition returns one partition of schema.table.
func (d *DB) GetPartition(ctx context.Context, schema, table, partition string) (dircache.Partition, error) {
	name := dircache.NewSchemaTableName(schema, table)
	p := dircache.Partition{Name: partition}
	err := d.db.QueryRowContext(ctx,
		"SELECT location FROM partitions WHERE schema_name = ? AND table_name = ? AND name = ?",
		name.Schema, name.Table, partition).Scan(&p.Location)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dircache.Partition{}, fmt.Errorf("partition %s/%s: %w", name, partition, ErrNotFound)
		}
		return dircache.Partition{}, fmt.Errorf("failed to get partition %s/%s: %w", name, partition, err)
	}
	return p, nil
}

// ListPartitions returns the partitions of schema.table, ordered by name.
func (d *DB) ListPartitions(ctx context.Context, schema, table string) ([]dircache.Partition, error) {
	name := dircache.NewSchemaTableName(schema, table)
	rows, err := d.db.QueryContext(ctx,
		"SELECT name, location FROM partitions WHERE schema_name = ? AND table_name = ? ORDER BY name",
		name.Schema, name.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions of %s: %w", name, err)
	}
	defer rows.Close()

	var partitions []dircache.Partition
	for rows.Next() {
		var p dircache.Partition
		if err := rows.Scan(&p.Name, &p.Location); err != nil {
			return nil, fmt.Errorf("failed to scan partition: %w", err)
		}
		partitions = append(partitions, p)
	}
	return partitions, rows.Err()
}

// Resolve parses "schema.table[/partition]" and returns the table and, when
// named, the partition.
func (d *DB) Resolve(ctx context.Context, ref string) (dircache.Table, *dircache.Partition, error) {
	tableRef, partitionName, hasPartition := strings.Cut(ref, "/")
	name, err := dircache.ParseSchemaTableName(tableRef)
	if err != nil {
		return dircache.Table{}, nil, err
	}
	t, err := d.GetTable(ctx, name.Schema, name.Table)
	if err != nil {
		return dircache.Table{}, nil, err
	}
	if !hasPartition {
		return t, nil, nil
	}
	p, err := d.GetPartition(ctx, name.Schema, name.Table, partitionName)
	if err != nil {
		return dircache.Table{}, nil, err
	}
	return t, &p, nil
}
