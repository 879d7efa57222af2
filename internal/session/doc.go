// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the conversation session manager: the
// component that creates, loads, mutates, and durably persists a
// conversation's message log.
//
// One Session coordinates four concerns:
//
//   - Loading: resolving which conversation to display on entry (resume
//     by id, start from a prompt, or neither), with a bounded retry
//     window that absorbs the race between identity resolution, store
//     availability, and entry-parameter arrival. Initialization is
//     idempotent: exactly one conversation per prompt entry, exactly one
//     resume per id entry, regardless of input arrival order.
//   - Sending: appending the user message and a pending assistant
//     placeholder, running the generation round-trip, and updating the
//     placeholder in place by id with the result or error.
//   - Revealing: the cosmetic, time-paced disclosure of a completed
//     reply. At most one reveal runs at a time; a newer reply cancels an
//     older reveal. The reveal never mutates message content.
//   - Persisting: a debounced write-back that folds the in-memory log
//     into the partition's conversation index and saves the whole index
//     through the store adapter. Skipped while unauthenticated or
//     uninitialized.
//
// All mutation happens under one mutex; timers and round-trips complete
// on their own goroutines and are guarded by an epoch counter so that
// anything outliving a teardown or identity switch becomes a no-op.
// Front ends consume a snapshot-carrying event channel rather than
// reaching into session state.
package session
