// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

// Package store exposes the relational backends the crawler writes into
// behind a single query/execute interface.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Dialect is the SQL flavour spoken by a Conn.
type Dialect int

const (
	// SQLite covers both local SQLite files and Cloudflare D1.
	SQLite Dialect = iota
	// DuckDB is an embedded DuckDB database.
	DuckDB
	// Postgres is a PostgreSQL server.
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case DuckDB:
		return "duckdb"
	case Postgres:
		return "postgres"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// Row is one result row keyed by column name.
type Row map[string]any

// Int64 returns column col as an integer, zero when NULL or missing.
func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case *big.Int:
		return v.Int64()
	case json.Number:
		n, _ := v.Int64()

		return n
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)

		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)

		return n
	default:
		return 0
	}
}

// String returns column col as text, empty when NULL or missing.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Conn runs parameterized statements with `?` placeholders.
type Conn interface {
	// Dialect is the SQL flavour statements must be written in.
	Dialect() Dialect
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	// Query runs a statement and returns every row it produced.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	// Close releases the connection.
	Close() error
}

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
	DriverD1       = "d1"
)

// D1Config holds the Cloudflare D1 credentials.
type D1Config struct {
	AccountID  string
	DatabaseID string
	APIToken   string

	// BaseURL overrides the Cloudflare API endpoint
	BaseURL string

	// RetryDelay overrides the pause between attempts
	RetryDelay time.Duration
}

// Config selects and configures a backend.
type Config struct {
	Driver string
	DSN    string
	D1     D1Config

	// Logger receives retry warnings from remote backends
	Logger logrus.FieldLogger
}

// Open connects to the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Conn, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverSQLite:
		return OpenSQLite(ctx, cfg.DSN)
	case DriverDuckDB:
		return OpenDuckDB(ctx, cfg.DSN)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case DriverD1:
		return NewD1(cfg.D1, cfg.Logger)
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}
