// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/JoaoDevFullStack/genio-text/internal/conversation"
)

// =============================================================================
// PERSISTENCE SYNCHRONIZER
// =============================================================================

// scheduleFlushLocked (re)arms the debounced write-back. Rapid
// successive mutations collapse into a single write once the log has
// been quiet for the debounce duration. Caller holds the mutex.
func (s *Session) scheduleFlushLocked() {
	if s.closed {
		return
	}
	if s.flushTimer != nil {
		s.flushTimer.Stop()
	}
	epoch := s.epoch
	s.flushTimer = time.AfterFunc(s.durations.Debounce, func() {
		s.flush(epoch)
	})
}

// flush folds the live log into the index and writes the partition
// back. Skipped entirely while unauthenticated, before initialization,
// or when there is nothing to write; a failed write leaves in-memory
// state authoritative until the next successful one.
func (s *Session) flush(epoch int) {
	s.mu.Lock()
	if s.closed || epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.flushTimer = nil
	if !s.initialized || s.currentID == "" || len(s.messages) == 0 ||
		s.partition == "" || !s.signedInLocked() {
		s.mu.Unlock()
		return
	}
	s.foldLocked()
	key := s.partition
	idx := s.index.Clone()
	ctx := s.ctx
	s.mu.Unlock()

	if err := s.store.Save(ctx, key, idx); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("history write-back failed")
		return
	}

	s.mu.Lock()
	if !s.closed && epoch == s.epoch {
		s.emitLocked(Event{Type: EventSaved})
		s.emitHistoryLocked()
	}
	s.mu.Unlock()
}

// foldLocked merges the live message log into the cached index: the
// current conversation's entry gets the log verbatim, keeping its
// position, title, and display date; if no entry exists yet one is
// synthesized at the front. Caller holds the mutex.
func (s *Session) foldLocked() {
	if existing := s.index.Find(s.currentID); existing != nil {
		existing.Messages = append([]conversation.Message(nil), s.messages...)
		return
	}

	first := ""
	for _, m := range s.messages {
		if m.Role == conversation.RoleUser && m.Content != "" {
			first = m.Content
			break
		}
	}
	conv := conversation.Conversation{
		ID:           s.currentID,
		Title:        conversation.DeriveTitle(first),
		DisplayDate:  conversation.FormatDisplayDate(time.Now()),
		OriginPrompt: first,
		Messages:     append([]conversation.Message(nil), s.messages...),
	}
	s.index = s.index.Upsert(conv)
}
