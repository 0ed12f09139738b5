// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	_ "github.com/lib/pq"              // register postgres driver
	_ "modernc.org/sqlite"             // register sqlite driver
)

const memoryDSN = ":memory:"

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
	sqlx.BindDriver("duckdb", sqlx.QUESTION)
}

// sqlConn is a Conn over sqlx. Statements are written with `?` and rebound
// to the placeholder style of the driver.
type sqlConn struct {
	db      *sqlx.DB
	dialect Dialect
}

// NewSQL wraps an already opened database.
func NewSQL(db *sqlx.DB, dialect Dialect) Conn {
	return &sqlConn{db: db, dialect: dialect}
}

// OpenSQLite opens (or creates) a SQLite database file. An empty dsn opens
// a private in-memory database.
func OpenSQLite(ctx context.Context, dsn string) (Conn, error) {
	if dsn == "" {
		dsn = memoryDSN
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", dsn, err)
	}

	// every statement must see the same connection: PRAGMAs are
	// per-connection and in-memory databases are per-connection too
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA foreign_keys = ON"}
	if !strings.Contains(dsn, memoryDSN) {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000")
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return nil, errors.Join(fmt.Errorf("%s: %w", p, err), db.Close())
		}
	}

	return NewSQL(db, SQLite), nil
}

// OpenDuckDB opens a DuckDB database file. An empty dsn opens an in-memory
// database.
func OpenDuckDB(ctx context.Context, dsn string) (Conn, error) {
	db, err := sqlx.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb %s: %w", dsn, err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("connecting to duckdb: %w", err), db.Close())
	}

	return NewSQL(db, DuckDB), nil
}

// OpenPostgres connects to PostgreSQL with a lib/pq connection string.
func OpenPostgres(ctx context.Context, dsn string) (Conn, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("connecting to postgres: %w", err), db.Close())
	}

	return NewSQL(db, Postgres), nil
}

func (c *sqlConn) Dialect() Dialect {
	return c.dialect
}

func (c *sqlConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, c.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		// not every driver reports it
		return 0, nil
	}

	return n, nil
}

func (c *sqlConn) Query(ctx context.Context, query string, args ...any) (_ []Row, err error) {
	rows, err := c.db.QueryxContext(ctx, c.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	defer func() {
		err = errors.Join(err, rows.Close())
	}()

	var result []Row

	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		for col, v := range row {
			if b, ok := v.([]byte); ok {
				row[col] = string(b)
			}
		}

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return result, nil
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}
