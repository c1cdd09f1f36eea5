package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/catalog"
)

// CarRecord is a stored catalog entry with bookkeeping columns.
type CarRecord struct {
	catalog.Entry
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CarQuery filters a catalog listing. Empty fields match everything.
type CarQuery struct {
	Body   string
	Fuel   string
	Limit  int
	Offset int
}

// CarRepository handles catalog CRUD operations.
type CarRepository struct {
	db     DB
	driver string
}

// NewCarRepository creates a new car repository for the given driver.
func NewCarRepository(db DB, driver string) *CarRepository {
	return &CarRepository{db: db, driver: driver}
}

const carColumns = `id, sort_order, brand, model, trim_level, year, body, fuel, price_try, tags, specs, created_at, updated_at`

// Upsert inserts an entry or updates the one with the same ID. New entries are
// appended to the end of the catalog order; updates keep their position.
func (r *CarRepository) Upsert(ctx context.Context, entry *catalog.Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	tagsJSON, specsJSON, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	ts := now()
	query := `
		INSERT INTO cars (id, sort_order, brand, model, trim_level, year, body, fuel, price_try, tags, specs, created_at, updated_at)
		VALUES (?, (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM cars), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			brand = excluded.brand,
			model = excluded.model,
			trim_level = excluded.trim_level,
			year = excluded.year,
			body = excluded.body,
			fuel = excluded.fuel,
			price_try = excluded.price_try,
			tags = excluded.tags,
			specs = excluded.specs,
			updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, rebind(r.driver, query),
		entry.ID, entry.Brand, entry.Model, entry.Trim, entry.Year, entry.Body, entry.Fuel,
		entry.PriceTRY, tagsJSON, specsJSON, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("upsert car %s: %w", entry.ID, err)
	}
	return nil
}

// GetByID retrieves an entry by ID.
func (r *CarRepository) GetByID(ctx context.Context, id string) (*CarRecord, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE id = ?`
	rec, err := scanCar(r.db.QueryRowContext(ctx, rebind(r.driver, query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get car %s: %w", id, err)
	}
	return rec, nil
}

// List returns entries in catalog order.
func (r *CarRepository) List(ctx context.Context, q CarQuery) ([]*CarRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.Body != "" {
		where = append(where, "LOWER(body) = LOWER(?)")
		args = append(args, q.Body)
	}
	if q.Fuel != "" {
		where = append(where, "LOWER(fuel) = LOWER(?)")
		args = append(args, q.Fuel)
	}

	query := `SELECT ` + carColumns + ` FROM cars`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY sort_order, id"
	switch {
	case q.Limit > 0:
		query += " LIMIT ?"
		args = append(args, q.Limit)
	case q.Offset > 0 && r.driver == DriverSQLite:
		// SQLite only accepts OFFSET after a LIMIT clause.
		query += " LIMIT -1"
	}
	if q.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, q.Offset)
	}

	rows, err := r.db.QueryContext(ctx, rebind(r.driver, query), args...)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	defer rows.Close()

	var out []*CarRecord
	for rows.Next() {
		rec, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cars: %w", err)
	}
	return out, nil
}

// ListEntries returns the whole catalog as plain entries in catalog order.
func (r *CarRepository) ListEntries(ctx context.Context) ([]catalog.Entry, error) {
	records, err := r.List(ctx, CarQuery{})
	if err != nil {
		return nil, err
	}
	entries := make([]catalog.Entry, len(records))
	for i, rec := range records {
		entries[i] = rec.Entry
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (r *CarRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cars: %w", err)
	}
	return n, nil
}

// Delete removes an entry by ID.
func (r *CarRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, rebind(r.driver, `DELETE FROM cars WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete car %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete car %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCar(row rowScanner) (*CarRecord, error) {
	rec := &CarRecord{}
	var (
		tagsJSON  string
		specsJSON sql.NullString
	)
	err := row.Scan(
		&rec.ID, &rec.Position, &rec.Brand, &rec.Model, &rec.Trim, &rec.Year,
		&rec.Body, &rec.Fuel, &rec.PriceTRY, &tagsJSON, &specsJSON,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Tags = []string{}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", rec.ID, err)
		}
	}
	if specsJSON.Valid && specsJSON.String != "" {
		rec.Specs = &catalog.Specs{}
		if err := json.Unmarshal([]byte(specsJSON.String), rec.Specs); err != nil {
			return nil, fmt.Errorf("decode specs for %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

func encodeEntry(entry *catalog.Entry) (string, sql.NullString, error) {
	tags := entry.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("encode tags: %w", err)
	}

	var specs sql.NullString
	if entry.Specs != nil {
		b, err := json.Marshal(entry.Specs)
		if err != nil {
			return "", sql.NullString{}, fmt.Errorf("encode specs: %w", err)
		}
		specs = sql.NullString{String: string(b), Valid: true}
	}
	return string(tagsJSON), specs, nil
}
