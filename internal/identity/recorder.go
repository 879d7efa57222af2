// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SIGN-IN RECORDER
// =============================================================================

// Recorder mirrors sign-ins into a local store. Recording is best-effort
// and non-blocking: callers log failures at warn level and continue the
// sign-in regardless. Nothing in the session depends on a record
// existing.
type Recorder interface {
	RecordSignIn(ctx context.Context, acct Account) error
	Close() error
}

// SQLiteRecorder keeps a users table in a local SQLite database,
// upserting the profile on every sign-in so repeated sign-ins refresh
// name and image instead of failing on a duplicate identity.
type SQLiteRecorder struct {
	db  *sql.DB
	log zerolog.Logger
}

const recorderSchema = `
CREATE TABLE IF NOT EXISTS users (
    identity      TEXT PRIMARY KEY,
    name          TEXT NOT NULL DEFAULT '',
    image         TEXT NOT NULL DEFAULT '',
    first_seen_at TIMESTAMP NOT NULL,
    last_seen_at  TIMESTAMP NOT NULL
);
`

// NewSQLiteRecorder opens (creating if needed) the recorder database at
// the given path.
func NewSQLiteRecorder(path string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recorder database: %w", err)
	}

	if _, err := db.Exec(recorderSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize recorder schema: %w", err)
	}

	return &SQLiteRecorder{
		db:  db,
		log: log.With().Str("component", "identity-recorder").Logger(),
	}, nil
}

// RecordSignIn upserts the account row. Errors are returned for the
// caller to log; they must not abort the sign-in.
func (r *SQLiteRecorder) RecordSignIn(ctx context.Context, acct Account) error {
	if acct.Identity == "" {
		return fmt.Errorf("cannot record sign-in without an identity")
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (identity, name, image, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			name         = CASE WHEN excluded.name  != '' THEN excluded.name  ELSE users.name  END,
			image        = CASE WHEN excluded.image != '' THEN excluded.image ELSE users.image END,
			last_seen_at = excluded.last_seen_at`,
		acct.Identity, acct.Name, acct.Image, now, now)
	if err != nil {
		return fmt.Errorf("failed to record sign-in: %w", err)
	}

	r.log.Debug().Str("identity", acct.Identity).Msg("sign-in recorded")
	return nil
}

// Close releases the database handle.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
