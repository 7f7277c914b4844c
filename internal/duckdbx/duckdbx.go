// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package duckdbx opens an in-process DuckDB database and hands out
// connections that are already configured.
package duckdbx

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
)

type Option func(*Config)

type Config struct {
	MemoryLimitMB int64
	Threads       int
	TempDirectory string
	Extensions    []string
	// ExtensionsPath, when set, is the only place extensions are loaded from.
	ExtensionsPath string
}

// WithMemoryLimitMB sets a memory limit for DuckDB in megabytes.
func WithMemoryLimitMB(limit int64) Option {
	return func(c *Config) {
		c.MemoryLimitMB = limit
	}
}

// WithThreads caps the number of DuckDB worker threads.
func WithThreads(n int) Option {
	return func(c *Config) {
		c.Threads = n
	}
}

// WithTempDirectory sets where DuckDB spills when a sort exceeds memory.
func WithTempDirectory(dir string) Option {
	return func(c *Config) {
		c.TempDirectory = dir
	}
}

// WithExtension loads an extension, such as httpfs, on every connection.
func WithExtension(ext string) Option {
	return func(c *Config) {
		c.Extensions = append(c.Extensions, ext)
	}
}

type DB struct {
	db     *sql.DB
	config Config
}

// Open opens a DuckDB database. An empty dataSourceName is an in-memory database.
func Open(dataSourceName string, opts ...Option) (*DB, error) {
	db, err := sql.Open("duckdb", dataSourceName)
	if err != nil {
		return nil, err
	}

	config := Config{
		ExtensionsPath: os.Getenv("PARTSEQ_EXTENSIONS_PATH"),
	}
	for _, opt := range opts {
		opt(&config)
	}

	return &DB{db: db, config: config}, nil
}

// Conn returns a new connection with settings and extensions applied.
func (d *DB) Conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	if err := d.setupConn(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

func (d *DB) setupConn(ctx context.Context, conn *sql.Conn) error {
	if d.config.MemoryLimitMB > 0 {
		stmt := fmt.Sprintf("SET memory_limit='%dMB';", d.config.MemoryLimitMB)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set memory limit: %w", err)
		}
	}
	if d.config.Threads > 0 {
		stmt := fmt.Sprintf("SET threads=%d;", d.config.Threads)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set threads: %w", err)
		}
	}
	if d.config.TempDirectory != "" {
		stmt := fmt.Sprintf("SET temp_directory='%s';", strings.ReplaceAll(d.config.TempDirectory, "'", "''"))
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set temp directory: %w", err)
		}
	}
	for _, ext := range d.config.Extensions {
		if err := d.loadExtension(ctx, conn, ext); err != nil {
			return fmt.Errorf("failed to load extension '%s': %w", ext, err)
		}
	}
	return nil
}

func (d *DB) loadExtension(ctx context.Context, conn *sql.Conn, name string) error {
	if d.config.ExtensionsPath != "" {
		path := filepath.Join(d.config.ExtensionsPath, name+".duckdb_extension")
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("extension '%s' not found at %s: %w", name, path, err)
		}
		_, err := conn.ExecContext(ctx, fmt.Sprintf("LOAD '%s';", path))
		return err
	}

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("LOAD %s;", name)); err == nil {
		return nil
	}
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("INSTALL %s;", name)); err != nil {
		return fmt.Errorf("failed to install extension: %w", err)
	}
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("LOAD %s;", name)); err != nil {
		return fmt.Errorf("failed to load extension after install: %w", err)
	}
	return nil
}

// QueryContext runs query on a fresh connection. The caller closes both
// the rows and the connection.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, *sql.Conn, error) {
	conn, err := d.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get duckdb connection: %w", err)
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		closeErr := conn.Close()
		if closeErr != nil {
			return nil, nil, fmt.Errorf("query failed, and closing connection also failed: %v; %v", err, closeErr)
		}
		return nil, nil, fmt.Errorf("query execution failed: %w", err)
	}

	return rows, conn, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
