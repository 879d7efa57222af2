// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/JoaoDevFullStack/genio-text/internal/conversation"
	"github.com/JoaoDevFullStack/genio-text/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore persists each partition's index as one JSON file under a
// base directory. Writes are atomic (temp file + fsync + rename) so a
// crash never leaves a half-written index.
type FileStore struct {
	// BaseDir is the directory holding one <key>.json per partition.
	// Default: ~/.geniotext/history/
	BaseDir string

	log zerolog.Logger
}

// NewFileStore creates a file store rooted at the user's home directory.
func NewFileStore(log zerolog.Logger) (*FileStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, &StoreError{Op: "init", Message: "failed to resolve home directory", Cause: err}
	}
	return NewFileStoreWithDir(filepath.Join(homeDir, ".geniotext", "history"), log)
}

// NewFileStoreWithDir creates a file store with a custom base directory.
func NewFileStoreWithDir(baseDir string, log zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, &StoreError{Op: "init", Message: "failed to create storage directory", Cause: err}
	}
	return &FileStore{
		BaseDir: baseDir,
		log:     log.With().Str("component", "filestore").Logger(),
	}, nil
}

// Load implements Store. A missing file and an unparseable payload both
// yield an empty index; only an unreadable medium surfaces as an error.
func (s *FileStore) Load(ctx context.Context, key string) (conversation.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return conversation.Index{}, nil
		}
		s.log.Error().Err(err).Str("key", key).Msg("history read failed")
		return conversation.Index{}, &StoreError{Op: "load", Key: key, Message: "failed to read history", Cause: err}
	}

	var idx conversation.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		// Corrupt payload degrades to an empty history rather than
		// failing the session.
		s.log.Warn().Err(err).Str("key", key).Msg("discarding unparseable history payload")
		return conversation.Index{}, nil
	}

	return idx, nil
}

// Save implements Store. The whole index for the key is overwritten.
func (s *FileStore) Save(ctx context.Context, key string, idx conversation.Index) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if idx == nil {
		idx = conversation.Index{}
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return &StoreError{Op: "save", Key: key, Message: "failed to encode history", Cause: err}
	}

	if err := util.AtomicWriteFile(s.filePath(key), data, 0644); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("history write failed")
		return &StoreError{Op: "save", Key: key, Message: "failed to write history", Cause: err}
	}

	return nil
}

// FilePath returns the on-disk path backing a partition key. Exposed for
// the watcher, which maps fsnotify events back to keys.
func (s *FileStore) FilePath(key string) string {
	return s.filePath(key)
}

func (s *FileStore) filePath(key string) string {
	return filepath.Join(s.BaseDir, SanitizeKey(key)+".json")
}

// SanitizeKey makes a partition key safe to use as a file name.
// Deterministic so the same key always maps to the same file.
func SanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}

// KeyForFile maps a file name inside BaseDir back to the sanitized
// partition key, or "" if the file is not a history payload.
func KeyForFile(name string) string {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ".json") || strings.HasPrefix(base, ".tmp-") {
		return ""
	}
	return strings.TrimSuffix(base, ".json")
}
