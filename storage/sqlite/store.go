// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package sqlite implements storage.Repository on a SQLite database.
//
// The schema is managed with embedded golang-migrate migrations. source_url
// carries a UNIQUE constraint, so a batch insert that would violate it rolls
// back as a whole and reports storage.ErrDuplicateKey.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
)

// timeLayout is fixed width so text comparison in SQL orders chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const recordColumns = `id, source_type, source_name, source_url, title, description, address,
	location, rating, price_range, categories, language, processed_text, embedding,
	raw_json, created_at, updated_at`

// Store is a SQLite-backed record repository.
type Store struct {
	db     *sql.DB
	path   string
	closed atomic.Bool
	logger *slog.Logger
	now    func() time.Time
}

var (
	_ storage.Repository = (*Store)(nil)
	_ storage.Compactor  = (*Store)(nil)
)

// Open opens or creates a SQLite database file and applies pending migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	logger := slog.Default().With("component", "sqlite")
	version, dirty, err := RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if dirty {
		db.Close()
		return nil, fmt.Errorf("database schema version %d is dirty", version)
	}
	logger.Debug("schema ready", "path", path, "version", version)

	return &Store{
		db:     db,
		path:   path,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the database connection. Closing twice is a no-op.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// Compact runs VACUUM to return freed pages to the filesystem.
func (s *Store) Compact(ctx context.Context) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `VACUUM`)
	return err
}

func (s *Store) checkOpen(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}

// InsertMany adds records inside one transaction.
func (s *Store) InsertMany(ctx context.Context, records ...*core.StoredRecord) ([]*core.StoredRecord, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO travel_records (
		source_type, source_name, source_url, title, description, address,
		location, rating, price_range, categories, language, processed_text, embedding,
		raw_json, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	ids := make([]int64, len(records))
	for i, record := range records {
		if err := core.ValidateStored(record); err != nil {
			return nil, err
		}

		createdAt := record.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		updatedAt := record.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}

		args, err := insertArgs(record, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("%w: source_url %s", storage.ErrDuplicateKey, record.SourceURL)
			}
			return nil, fmt.Errorf("inserting record: %w", err)
		}
		ids[i], err = res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading insert id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	// Assign generated values only once the whole batch is durable.
	for i, record := range records {
		record.ID = core.ID(ids[i])
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		if record.UpdatedAt.IsZero() {
			record.UpdatedAt = record.CreatedAt
		}
	}
	return records, nil
}

// InsertOne adds a single record.
func (s *Store) InsertOne(ctx context.Context, record *core.StoredRecord) (*core.StoredRecord, error) {
	inserted, err := s.InsertMany(ctx, record)
	if err != nil {
		return nil, err
	}
	return inserted[0], nil
}

// Exists reports whether a record matching m is stored.
func (s *Store) Exists(ctx context.Context, m core.Match) (bool, error) {
	if err := s.checkOpen(ctx); err != nil {
		return false, err
	}

	var row *sql.Row
	if m.ByURL() {
		row = s.db.QueryRowContext(ctx, `SELECT 1 FROM travel_records WHERE source_url = ? LIMIT 1`, m.SourceURL)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT 1 FROM travel_records WHERE title = ? AND source_type = ? LIMIT 1`,
			m.Title, string(m.SourceType))
	}

	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking existence: %w", err)
	}
	return true, nil
}

// Update applies patch to a stored record.
func (s *Store) Update(ctx context.Context, id core.ID, patch core.RecordPatch) (bool, error) {
	if err := s.checkOpen(ctx); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	record, err := scanRecord(tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM travel_records WHERE id = ?`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	patch.Apply(record, s.now())
	if err := core.ValidateStored(record); err != nil {
		return false, err
	}

	categories, err := encodeJSON(record.Categories)
	if err != nil {
		return false, err
	}
	embedding, err := encodeJSON(record.Embedding)
	if err != nil {
		return false, err
	}

	_, err = tx.ExecContext(ctx, `UPDATE travel_records SET
		title = ?, description = ?, address = ?, rating = ?, price_range = ?,
		categories = ?, language = ?, processed_text = ?, embedding = ?, updated_at = ?
		WHERE id = ?`,
		record.Title, nullString(record.Description), nullString(record.Address), nullRating(record.Rating),
		nullString(string(record.PriceRange)), categories, nullString(record.Language),
		nullString(record.ProcessedText), embedding, formatTime(record.UpdatedAt), int64(id))
	if err != nil {
		return false, fmt.Errorf("updating record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return true, nil
}

// DeleteBefore removes records created strictly before cutoff.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if err := s.checkOpen(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM travel_records WHERE created_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("deleting old records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return int(n), nil
}

// Delete removes records by ID. Missing IDs are ignored.
func (s *Store) Delete(ctx context.Context, ids ...core.ID) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = int64(id)
	}

	query := `DELETE FROM travel_records WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	return nil
}

// Count returns the number of records matching f.
func (s *Store) Count(ctx context.Context, f storage.Filter) (int, error) {
	if err := s.checkOpen(ctx); err != nil {
		return 0, err
	}

	query := `SELECT COUNT(*) FROM travel_records WHERE 1 = 1`
	var args []any
	if f.SourceType != "" {
		query += ` AND source_type = ?`
		args = append(args, string(f.SourceType))
	}
	if !f.CreatedSince.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, formatTime(f.CreatedSince))
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}

// Get retrieves a single record.
func (s *Store) Get(ctx context.Context, id core.ID) (*core.StoredRecord, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	record, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM travel_records WHERE id = ?`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return record, err
}

// ForEach visits every record ordered by creation time.
// Rows are read fully before fn runs so fn may write to the store.
func (s *Store) ForEach(ctx context.Context, fn func(*core.StoredRecord) error) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM travel_records ORDER BY created_at, id`)
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}

	var records []*core.StoredRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("listing records: %w", err)
	}
	rows.Close()

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}

// LastUpdated returns the newest updated_at value.
func (s *Store) LastUpdated(ctx context.Context) (time.Time, error) {
	if err := s.checkOpen(ctx); err != nil {
		return time.Time{}, err
	}

	var latest sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM travel_records`).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("reading last update: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return parseTime(latest.String)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*core.StoredRecord, error) {
	var (
		id                                                         int64
		sourceType, title, createdAt, updatedAt                    string
		sourceName, sourceURL, description, address, location     sql.NullString
		priceRange, categories, language, processedText, embedding sql.NullString
		rawJSON                                                    sql.NullString
		rating                                                     sql.NullFloat64
	)
	err := row.Scan(&id, &sourceType, &sourceName, &sourceURL, &title, &description, &address,
		&location, &rating, &priceRange, &categories, &language, &processedText, &embedding,
		&rawJSON, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	record := &core.StoredRecord{
		ID:            core.ID(id),
		SourceType:    core.SourceType(sourceType),
		SourceName:    sourceName.String,
		SourceURL:     sourceURL.String,
		Title:         title,
		Description:   description.String,
		Address:       address.String,
		PriceRange:    core.PriceRange(priceRange.String),
		Language:      language.String,
		ProcessedText: processedText.String,
	}
	if location.Valid && location.String != "" {
		if record.Location, err = core.ParseWKT(location.String); err != nil {
			return nil, err
		}
	}
	if rating.Valid {
		v := rating.Float64
		record.Rating = &v
	}
	if err := decodeJSON(categories, &record.Categories); err != nil {
		return nil, err
	}
	if err := decodeJSON(embedding, &record.Embedding); err != nil {
		return nil, err
	}
	if err := decodeJSON(rawJSON, &record.RawJSON); err != nil {
		return nil, err
	}
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if record.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return record, nil
}

func insertArgs(r *core.StoredRecord, createdAt, updatedAt time.Time) ([]any, error) {
	categories, err := encodeJSON(r.Categories)
	if err != nil {
		return nil, err
	}
	embedding, err := encodeJSON(r.Embedding)
	if err != nil {
		return nil, err
	}
	var rawJSON any
	if len(r.RawJSON) > 0 {
		data, err := storage.MarshalJSON(r.RawJSON)
		if err != nil {
			return nil, err
		}
		rawJSON = string(data)
	}
	var location any
	if r.Location != nil {
		location = r.Location.WKT()
	}

	return []any{
		string(r.SourceType), nullString(r.SourceName), nullString(r.SourceURL), r.Title,
		nullString(r.Description), nullString(r.Address), location, nullRating(r.Rating),
		nullString(string(r.PriceRange)), categories, nullString(r.Language),
		nullString(r.ProcessedText), embedding, rawJSON,
		formatTime(createdAt), formatTime(updatedAt),
	}, nil
}

// encodeJSON returns nil for empty slices so the column stays NULL.
func encodeJSON[T any](v []T) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	data, err := storage.MarshalJSON(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeJSON(col sql.NullString, v any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return storage.UnmarshalJSON([]byte(col.String), v)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullRating(r *float64) any {
	if r == nil {
		return nil
	}
	return *r
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", storage.ErrSerializationFailed, s)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlitedriver.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
