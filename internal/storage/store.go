// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"

	"github.com/JoaoDevFullStack/genio-text/internal/conversation"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store reads and writes the full conversation index for one partition
// key.
//
// Load never fails on missing or malformed data: both degrade to an
// empty index (malformed payloads are logged by the implementation).
// The returned error covers only infrastructure faults (unreadable
// medium), and even then callers treat the session as usable in-memory.
//
// Save replaces the entire stored index for the key. Last write wins;
// concurrent writers from other processes can lose updates, which is an
// accepted property of the medium.
type Store interface {
	Load(ctx context.Context, key string) (conversation.Index, error)
	Save(ctx context.Context, key string, idx conversation.Index) error
}

// =============================================================================
// ERRORS
// =============================================================================

// StoreError represents a storage-medium failure.
type StoreError struct {
	Op      string // "load" or "save"
	Key     string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Cause
}
