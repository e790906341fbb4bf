// Copyright 2026 The LUCI Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package filestore keeps imported WITSML files in SQLite.
//
// Every file is a Record describing it plus its payload, which is stored
// zstd-compressed.
package filestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// ErrNotFound is returned when a file does not exist.
var ErrNotFound = errors.New("file not found")

// slowQuery is the duration above which queries are logged.
const slowQuery = time.Second

// Record describes a stored file.
type Record struct {
	ID        string            `json:"file_id"`
	WellName  string            `json:"well_name"`
	FileType  string            `json:"file_type"`
	Size      int64             `json:"file_size"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Metadata  map[string]string `json:"metadata"`
}

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	if encoder, err = zstd.NewWriter(nil); err != nil {
		panic(err)
	}
	if decoder, err = zstd.NewReader(nil); err != nil {
		panic(err)
	}
}

// Store is a SQLite backed file store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the store at path and migrates its
// schema. ":memory:" gives a private in-memory store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Fmt("opening %q: %w", path, err)
	}
	// SQLite has a single writer, and every connection to ":memory:" would
	// see a separate database.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, errors.Fmt("enabling foreign keys: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores a file, replacing an existing one with the same ID.
//
// A missing ID is generated. Size and timestamps are filled in; a replaced
// file keeps its creation time.
func (s *Store) Put(ctx context.Context, rec *Record, content []byte) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := clock.Now(ctx).UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Size = int64(len(content))

	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return errors.Fmt("encoding metadata: %w", err)
	}
	if rec.Metadata == nil {
		meta = []byte("{}")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Fmt("put %s: begin: %w", rec.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	var created string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO files (id, well_name, file_type, size, created_at, updated_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			well_name = excluded.well_name,
			file_type = excluded.file_type,
			size = excluded.size,
			updated_at = excluded.updated_at,
			metadata = excluded.metadata
		RETURNING created_at`,
		rec.ID, rec.WellName, rec.FileType, rec.Size,
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt), string(meta),
	).Scan(&created)
	if err != nil {
		return errors.Fmt("put %s: %w", rec.ID, err)
	}
	if rec.CreatedAt, err = parseTime(created); err != nil {
		return errors.Fmt("put %s: %w", rec.ID, err)
	}

	payload := encoder.EncodeAll(content, nil)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO file_contents (file_id, payload) VALUES (?, ?)
		ON CONFLICT(file_id) DO UPDATE SET payload = excluded.payload`,
		rec.ID, payload)
	if err != nil {
		return errors.Fmt("put %s: content: %w", rec.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.Fmt("put %s: commit: %w", rec.ID, err)
	}
	return nil
}

const selectRecord = `SELECT id, well_name, file_type, size, created_at, updated_at, metadata FROM files`

// Get returns the record of a file.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, errors.Fmt("get %s: %w", id, err)
	}
	return rec, nil
}

// Content returns the payload of a file.
func (s *Store) Content(ctx context.Context, id string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM file_contents WHERE file_id = ?`, id).Scan(&payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, errors.Fmt("content %s: %w", id, err)
	}
	out, err := decoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, errors.Fmt("content %s: decompressing: %w", id, err)
	}
	return out, nil
}

// Query returns the records matching all conditions, oldest first.
func (s *Store) Query(ctx context.Context, conds ...Cond) ([]*Record, error) {
	q := selectRecord
	var args []any
	if len(conds) > 0 {
		clauses := make([]string, len(conds))
		for i, c := range conds {
			clause, a, err := c.where()
			if err != nil {
				return nil, errors.Fmt("query: %w", err)
			}
			clauses[i] = clause
			args = append(args, a...)
		}
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY created_at, id"

	start := clock.Now(ctx)
	defer func() {
		if d := clock.Since(ctx, start); d > slowQuery {
			logging.Warningf(ctx, "Slow query (took %s): %v", d, conds)
		}
	}()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Fmt("query: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Fmt("query: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Fmt("query: %w", err)
	}
	return out, nil
}

// Delete removes a file and its payload.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return errors.Fmt("delete %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var rec Record
	var created, updated, meta string
	if err := row.Scan(&rec.ID, &rec.WellName, &rec.FileType, &rec.Size, &created, &updated, &meta); err != nil {
		return nil, err
	}
	var err error
	if rec.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
		return nil, errors.Fmt("decoding metadata of %s: %w", rec.ID, err)
	}
	return &rec, nil
}
