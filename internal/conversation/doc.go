// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation defines the conversation data model: messages,
// conversations, and the per-partition conversation index.
//
// The types here are the serialization schema for the durable store as
// well as the in-memory working set of the session manager. Invariants:
//
//   - Message ids are unique within a conversation.
//   - At most one message is pending at any time, and it is always the
//     most recently appended assistant message.
//   - A conversation id is assigned once at creation and never changes.
//   - Title and DisplayDate are derived at creation time only; later
//     mutations never re-derive them.
//   - An index holds at most one conversation per id, newest first.
package conversation
