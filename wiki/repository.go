// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package wiki

import (
	"context"
	"fmt"
	"strings"

	"github.com/nulfrost/hotwheels-api/store"
)

// Repository defines the interface for database operations.
type Repository interface {
	//////// Schema
	// CreateSchema creates the tables when missing.
	CreateSchema(ctx context.Context) error

	//////// Scraping
	// ClearDesigners deletes every designer and link and resets designer ids.
	ClearDesigners(ctx context.Context) error
	// ClearHotwheels deletes every hotwheel and link and resets hotwheel ids.
	ClearHotwheels(ctx context.Context) error
	// SaveDesigner inserts a designer and returns its id.
	SaveDesigner(ctx context.Context, d *Designer) (int64, error)
	// SaveHotwheel inserts a hotwheel (without its designers) and returns its id.
	SaveHotwheel(ctx context.Context, h *Hotwheel) (int64, error)
	// FindDesignerID looks a designer up by exact name. It returns
	// ErrDesignerNotFound when there is none.
	FindDesignerID(ctx context.Context, name string) (int64, error)
	// LinkDesigner links a hotwheel to a designer. It reports false when the
	// link already existed.
	LinkDesigner(ctx context.Context, hotwheelID, designerID int64) (bool, error)
	// DesignerNames returns every stored designer name.
	DesignerNames(ctx context.Context) ([]string, error)

	//////// Querying
	// ListHotwheels returns a page of hotwheels with their designer names.
	ListHotwheels(ctx context.Context, opts ListOptions) ([]*Hotwheel, error)
	// GetHotwheel returns one hotwheel or ErrNotFound.
	GetHotwheel(ctx context.Context, id int64) (*Hotwheel, error)
	// ListDesigners returns a page of designers.
	ListDesigners(ctx context.Context, opts ListOptions) ([]*Designer, error)
	// GetDesigner returns one designer with its hotwheel names or ErrNotFound.
	GetDesigner(ctx context.Context, id int64) (*Designer, error)
}

// ListOptions selects a page of results. Filters only apply to hotwheels.
type ListOptions struct {
	Limit    int
	Offset   int
	Desc     bool
	Year     string
	Series   string
	Designer string
}

type sqlRepository struct {
	conn store.Conn
}

// NewRepository returns a Repository writing through conn.
func NewRepository(conn store.Conn) Repository {
	return &sqlRepository{conn: conn}
}

// nve converts an empty string into a NULL.
func nve(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func (r *sqlRepository) schema() []string {
	switch r.conn.Dialect() {
	case store.Postgres:
		return []string{
			`CREATE TABLE IF NOT EXISTS designers (
				id BIGSERIAL PRIMARY KEY,
				name TEXT UNIQUE NOT NULL,
				title TEXT,
				description TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS hotwheels (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				image_url TEXT,
				year TEXT,
				series TEXT,
				model_number TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS hotwheel_designers (
				hotwheel_id BIGINT NOT NULL REFERENCES hotwheels (id) ON DELETE CASCADE,
				designer_id BIGINT NOT NULL REFERENCES designers (id) ON DELETE CASCADE,
				PRIMARY KEY (hotwheel_id, designer_id)
			)`,
		}
	case store.DuckDB:
		// DuckDB neither cascades deletes nor restarts sequences, ids are
		// assigned by SaveDesigner/SaveHotwheel and links deleted explicitly
		return []string{
			`CREATE TABLE IF NOT EXISTS designers (
				id BIGINT PRIMARY KEY,
				name VARCHAR UNIQUE NOT NULL,
				title VARCHAR,
				description VARCHAR
			)`,
			`CREATE TABLE IF NOT EXISTS hotwheels (
				id BIGINT PRIMARY KEY,
				name VARCHAR NOT NULL,
				image_url VARCHAR,
				year VARCHAR,
				series VARCHAR,
				model_number VARCHAR
			)`,
			`CREATE TABLE IF NOT EXISTS hotwheel_designers (
				hotwheel_id BIGINT NOT NULL,
				designer_id BIGINT NOT NULL,
				PRIMARY KEY (hotwheel_id, designer_id)
			)`,
		}
	default:
		return []string{
			`CREATE TABLE IF NOT EXISTS designers (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT UNIQUE NOT NULL,
				title TEXT,
				description TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS hotwheels (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				image_url TEXT,
				year TEXT,
				series TEXT,
				model_number TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS hotwheel_designers (
				hotwheel_id INTEGER NOT NULL,
				designer_id INTEGER NOT NULL,
				PRIMARY KEY (hotwheel_id, designer_id),
				FOREIGN KEY (hotwheel_id) REFERENCES hotwheels (id) ON DELETE CASCADE,
				FOREIGN KEY (designer_id) REFERENCES designers (id) ON DELETE CASCADE
			)`,
		}
	}
}

func (r *sqlRepository) CreateSchema(ctx context.Context) error {
	for _, stmt := range r.schema() {
		if _, err := r.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	return nil
}

// clears table together with every link and restarts its ids.
func (r *sqlRepository) clear(ctx context.Context, table string) error {
	var stmts []string

	switch r.conn.Dialect() {
	case store.Postgres:
		stmts = []string{
			"DELETE FROM hotwheel_designers",
			fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table),
		}
	case store.DuckDB:
		stmts = []string{
			"DELETE FROM hotwheel_designers",
			"DELETE FROM " + table,
		}
	default:
		stmts = []string{
			"DELETE FROM hotwheel_designers",
			"DELETE FROM " + table,
			fmt.Sprintf("DELETE FROM sqlite_sequence WHERE name = '%s'", table),
		}
	}

	for _, stmt := range stmts {
		if _, err := r.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	return nil
}

func (r *sqlRepository) ClearDesigners(ctx context.Context) error {
	return r.clear(ctx, "designers")
}

func (r *sqlRepository) ClearHotwheels(ctx context.Context) error {
	return r.clear(ctx, "hotwheels")
}

// insert adds one row and returns its id. DuckDB ids are the next one after
// the current maximum since writes are sequential.
func (r *sqlRepository) insert(ctx context.Context, table string, cols []string, args ...any) (int64, error) {
	if r.conn.Dialect() == store.DuckDB {
		rows, err := r.conn.Query(ctx, fmt.Sprintf("SELECT COALESCE(MAX(id), 0) + 1 AS id FROM %s", table))
		if err != nil {
			return 0, err
		}

		id := rows[0].Int64("id")
		cols = append([]string{"id"}, cols...)
		args = append([]any{id}, args...)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
	)

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	if len(rows) == 0 {
		return 0, fmt.Errorf("inserting into %s: no id returned", table)
	}

	return rows[0].Int64("id"), nil
}

func (r *sqlRepository) SaveDesigner(ctx context.Context, d *Designer) (int64, error) {
	id, err := r.insert(ctx, "designers",
		[]string{"name", "title", "description"},
		d.Name, nve(d.Title), nve(d.Description),
	)
	if err != nil {
		return 0, fmt.Errorf("saving designer %q: %w", d.Name, err)
	}

	d.ID = id

	return id, nil
}

func (r *sqlRepository) SaveHotwheel(ctx context.Context, h *Hotwheel) (int64, error) {
	id, err := r.insert(ctx, "hotwheels",
		[]string{"name", "image_url", "year", "series", "model_number"},
		h.Name, nve(h.ImageURL), nve(h.Year), nve(h.Series), nve(h.ModelNumber),
	)
	if err != nil {
		return 0, fmt.Errorf("saving hotwheel %q: %w", h.Name, err)
	}

	h.ID = id

	return id, nil
}

func (r *sqlRepository) FindDesignerID(ctx context.Context, name string) (int64, error) {
	rows, err := r.conn.Query(ctx, "SELECT id FROM designers WHERE name = ?", strings.TrimSpace(name))
	if err != nil {
		return 0, fmt.Errorf("looking up designer %q: %w", name, err)
	}

	if len(rows) == 0 {
		return 0, ErrDesignerNotFound
	}

	return rows[0].Int64("id"), nil
}

func (r *sqlRepository) LinkDesigner(ctx context.Context, hotwheelID, designerID int64) (bool, error) {
	n, err := r.conn.Exec(ctx,
		"INSERT INTO hotwheel_designers (hotwheel_id, designer_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		hotwheelID, designerID,
	)
	if err != nil {
		return false, fmt.Errorf("linking hotwheel %d to designer %d: %w", hotwheelID, designerID, err)
	}

	return n > 0, nil
}

func (r *sqlRepository) names(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.String("name"))
	}

	return out, nil
}

func (r *sqlRepository) DesignerNames(ctx context.Context) ([]string, error) {
	names, err := r.names(ctx, "SELECT name FROM designers ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing designer names: %w", err)
	}

	return names, nil
}

const (
	hotwheelColumns = "id, name, image_url, year, series, model_number"
	designerColumns = "id, name, title, description"
)

func hotwheelFromRow(row store.Row) *Hotwheel {
	return &Hotwheel{
		ID:          row.Int64("id"),
		Name:        row.String("name"),
		ImageURL:    row.String("image_url"),
		Year:        row.String("year"),
		Series:      row.String("series"),
		ModelNumber: row.String("model_number"),
		Designers:   []string{},
	}
}

func designerFromRow(row store.Row) *Designer {
	return &Designer{
		ID:          row.Int64("id"),
		Name:        row.String("name"),
		Title:       row.String("title"),
		Description: row.String("description"),
	}
}

func (o ListOptions) page() string {
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}

	limit := o.Limit
	if limit <= 0 {
		limit = 25
	}

	return fmt.Sprintf(" ORDER BY id %s LIMIT %d OFFSET %d", dir, limit, max(o.Offset, 0))
}

func (r *sqlRepository) hotwheelDesigners(ctx context.Context, h *Hotwheel) error {
	names, err := r.names(ctx, `
		SELECT d.name AS name FROM designers d
		JOIN hotwheel_designers hd ON hd.designer_id = d.id
		WHERE hd.hotwheel_id = ?
		ORDER BY d.name`, h.ID)
	if err != nil {
		return fmt.Errorf("loading designers of hotwheel %d: %w", h.ID, err)
	}

	h.Designers = names

	return nil
}

func (r *sqlRepository) ListHotwheels(ctx context.Context, opts ListOptions) ([]*Hotwheel, error) {
	var (
		where []string
		args  []any
	)

	if opts.Year != "" {
		where = append(where, "year = ?")
		args = append(args, opts.Year)
	}

	if opts.Series != "" {
		where = append(where, "series = ?")
		args = append(args, opts.Series)
	}

	if opts.Designer != "" {
		where = append(where, `id IN (
			SELECT hd.hotwheel_id FROM hotwheel_designers hd
			JOIN designers d ON d.id = hd.designer_id
			WHERE d.name = ?)`)
		args = append(args, opts.Designer)
	}

	query := "SELECT " + hotwheelColumns + " FROM hotwheels"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := r.conn.Query(ctx, query+opts.page(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing hotwheels: %w", err)
	}

	out := make([]*Hotwheel, 0, len(rows))

	for _, row := range rows {
		h := hotwheelFromRow(row)
		if err := r.hotwheelDesigners(ctx, h); err != nil {
			return nil, err
		}

		out = append(out, h)
	}

	return out, nil
}

func (r *sqlRepository) GetHotwheel(ctx context.Context, id int64) (*Hotwheel, error) {
	rows, err := r.conn.Query(ctx, "SELECT "+hotwheelColumns+" FROM hotwheels WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("getting hotwheel %d: %w", id, err)
	}

	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	h := hotwheelFromRow(rows[0])
	if err := r.hotwheelDesigners(ctx, h); err != nil {
		return nil, err
	}

	return h, nil
}

func (r *sqlRepository) ListDesigners(ctx context.Context, opts ListOptions) ([]*Designer, error) {
	rows, err := r.conn.Query(ctx, "SELECT "+designerColumns+" FROM designers"+opts.page())
	if err != nil {
		return nil, fmt.Errorf("listing designers: %w", err)
	}

	out := make([]*Designer, 0, len(rows))
	for _, row := range rows {
		out = append(out, designerFromRow(row))
	}

	return out, nil
}

func (r *sqlRepository) GetDesigner(ctx context.Context, id int64) (*Designer, error) {
	rows, err := r.conn.Query(ctx, "SELECT "+designerColumns+" FROM designers WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("getting designer %d: %w", id, err)
	}

	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	d := designerFromRow(rows[0])

	d.Hotwheels, err = r.names(ctx, `
		SELECT h.name AS name FROM hotwheels h
		JOIN hotwheel_designers hd ON hd.hotwheel_id = h.id
		WHERE hd.designer_id = ?
		ORDER BY h.id`, id)
	if err != nil {
		return nil, fmt.Errorf("loading hotwheels of designer %d: %w", id, err)
	}

	return d, nil
}
