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

package filestore

import (
	"context"
	"database/sql"

	"go.chromium.org/luci/common/errors"
)

// SchemaVersion is the latest schema version known to Migrate.
const SchemaVersion = 1

// Migrate creates or upgrades the schema to SchemaVersion.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return errors.Fmt("migrate: create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return errors.Fmt("migrate: read current version: %w", err)
	}
	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Fmt("migrate: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []struct{ name, sql string }{
		{"files table", `
			CREATE TABLE IF NOT EXISTS files (
				id TEXT PRIMARY KEY,
				well_name TEXT NOT NULL,
				file_type TEXT NOT NULL,
				size INTEGER NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				metadata TEXT NOT NULL DEFAULT '{}'
			)`},
		{"file_contents table", `
			CREATE TABLE IF NOT EXISTS file_contents (
				file_id TEXT PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
				payload BLOB NOT NULL
			)`},
		{"idx_files_well_name", `CREATE INDEX IF NOT EXISTS idx_files_well_name ON files(well_name)`},
		{"idx_files_file_type", `CREATE INDEX IF NOT EXISTS idx_files_file_type ON files(file_type)`},
		{"idx_files_created_at", `CREATE INDEX IF NOT EXISTS idx_files_created_at ON files(created_at)`},
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.sql); err != nil {
			return errors.Fmt("migrate: create %s: %w", s.name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES (?)`, SchemaVersion); err != nil {
		return errors.Fmt("migrate: record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return errors.Fmt("migrate: commit: %w", err)
	}
	return nil
}
