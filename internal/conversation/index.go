// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

// =============================================================================
// CONVERSATION INDEX
// =============================================================================

// Index is the ordered set of conversations for one partition key,
// newest first. It holds at most one conversation per id.
type Index []Conversation

// Find returns a pointer to the conversation with the given id, or nil.
// The pointer references the index's own storage.
func (idx Index) Find(id string) *Conversation {
	for i := range idx {
		if idx[i].ID == id {
			return &idx[i]
		}
	}
	return nil
}

// Contains reports whether a conversation with the given id exists.
func (idx Index) Contains(id string) bool {
	return idx.Find(id) != nil
}

// Upsert folds a conversation into the index: an existing entry with the
// same id is replaced in place, preserving its position; otherwise the
// conversation is inserted at the front. Returns the updated index.
func (idx Index) Upsert(conv Conversation) Index {
	for i := range idx {
		if idx[i].ID == conv.ID {
			idx[i] = conv
			return idx
		}
	}
	out := make(Index, 0, len(idx)+1)
	out = append(out, conv)
	out = append(out, idx...)
	return out
}

// Clone returns a deep copy of the index.
func (idx Index) Clone() Index {
	if idx == nil {
		return nil
	}
	out := make(Index, len(idx))
	for i := range idx {
		out[i] = idx[i].Clone()
	}
	return out
}
