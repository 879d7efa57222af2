// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/JoaoDevFullStack/genio-text/internal/conversation"
)

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore keeps one row per partition key in a local database. The
// payload column holds the JSON-encoded index; semantics are identical
// to FileStore (whole-index overwrite, last write wins, degrade to
// empty on corrupt payload).
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

const historySchema = `
CREATE TABLE IF NOT EXISTS chat_history (
    partition_key TEXT PRIMARY KEY,
    payload       BLOB NOT NULL,
    updated_at    TIMESTAMP NOT NULL
);
`

// NewSQLiteStore opens (creating if needed) the history database at the
// given path.
func NewSQLiteStore(path string, log zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StoreError{Op: "init", Message: "failed to open history database", Cause: err}
	}

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, &StoreError{Op: "init", Message: "failed to initialize history schema", Cause: err}
	}

	return &SQLiteStore{
		db:  db,
		log: log.With().Str("component", "sqlitestore").Logger(),
	}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, key string) (conversation.Index, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM chat_history WHERE partition_key = ?`, key).Scan(&payload)
	switch {
	case err == sql.ErrNoRows:
		return conversation.Index{}, nil
	case err != nil:
		s.log.Error().Err(err).Str("key", key).Msg("history read failed")
		return conversation.Index{}, &StoreError{Op: "load", Key: key, Message: "failed to read history", Cause: err}
	}

	var idx conversation.Index
	if err := json.Unmarshal(payload, &idx); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("discarding unparseable history payload")
		return conversation.Index{}, nil
	}

	return idx, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, key string, idx conversation.Index) error {
	if idx == nil {
		idx = conversation.Index{}
	}
	payload, err := json.Marshal(idx)
	if err != nil {
		return &StoreError{Op: "save", Key: key, Message: "failed to encode history", Cause: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_history (partition_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(partition_key) DO UPDATE SET
			payload    = excluded.payload,
			updated_at = excluded.updated_at`,
		key, payload, time.Now().UTC())
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("history write failed")
		return &StoreError{Op: "save", Key: key, Message: "failed to write history", Cause: err}
	}

	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
