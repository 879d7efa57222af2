// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the per-partition conversation index.
//
// Each partition key (one per identity, see internal/identity) maps to
// one serialized conversation index. Writes overwrite the whole index
// for that key: the medium is last-write-wins, performs no merging, and
// is shared with other processes without locking. Merging is the
// persistence synchronizer's job, not the store's.
//
// # Backends
//
//   - FileStore: one JSON file per partition key (default)
//   - SQLiteStore: one row per partition key in a local database
//
// Both degrade a missing or unparseable payload to an empty index on
// read (logged, never surfaced), and report write failures without
// crashing the caller.
//
// # Watching
//
// Watcher observes the file store's directory via fsnotify and reports
// when another process rewrote a partition, so a running session can
// refresh its view of history written by a concurrent instance.
package storage
