// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/JoaoDevFullStack/genio-text/internal/conversation"
	"github.com/JoaoDevFullStack/genio-text/internal/generate"
	"github.com/JoaoDevFullStack/genio-text/internal/identity"
)

// =============================================================================
// SEND ERRORS
// =============================================================================

var (
	// ErrBlankMessage rejects input that is empty after trimming.
	ErrBlankMessage = errors.New("message is blank")

	// ErrSendInFlight rejects a send while a reply is still pending.
	ErrSendInFlight = errors.New("a send is already in flight")

	// ErrSessionClosed rejects operations on a closed or redirecting
	// session.
	ErrSessionClosed = errors.New("session is closed")
)

// =============================================================================
// MESSAGE PIPELINE
// =============================================================================

// Send submits user input: it appends the user message and a pending
// assistant placeholder atomically, then resolves the placeholder in
// the background. At most one send can be in flight at a time.
//
// If no conversation is active yet, one is created lazily from the
// first message, so a strict user/assistant alternation always holds.
func (s *Session) Send(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrBlankMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state == StateRedirecting {
		return ErrSessionClosed
	}
	if s.sending {
		return ErrSendInFlight
	}

	if s.currentID == "" {
		conv := conversation.NewFromPrompt(trimmed, time.Now())
		s.index = s.index.Upsert(conv)
		s.currentID = conv.ID
		s.initialized = true
		s.log.Info().Str("conversation_id", conv.ID).Msg("created conversation from first message")
		s.emitHistoryLocked()
	}
	if s.partition == "" && s.provider.Status() == identity.StatusSignedIn {
		s.partition = identity.PartitionKey(s.provider.Identity())
	}

	user, placeholder := conversation.NewMessagePair(trimmed)
	s.messages = append(s.messages, user, placeholder)
	s.sending = true
	s.state = StateReady

	s.emitMessagesLocked()
	s.scheduleFlushLocked()

	go s.roundTrip(s.epoch, s.ctx, placeholder.ID, trimmed)
	return nil
}

// roundTrip performs the generation round-trip for one placeholder. It
// runs outside the mutex; every mutation it applies re-validates the
// epoch so that completions from a torn-down session land nowhere.
func (s *Session) roundTrip(epoch int, ctx context.Context, placeholderID, prompt string) {
	text, err := s.generator.Generate(ctx, prompt)
	if ctx.Err() != nil {
		// Torn down while in flight; the reply belongs to no one.
		return
	}
	if err != nil {
		s.applyFailure(epoch, placeholderID, err)
		return
	}

	// Hold the reply briefly so it does not appear implausibly instant.
	select {
	case <-time.After(s.durations.CosmeticDelay):
	case <-ctx.Done():
		return
	}
	s.applyResult(epoch, placeholderID, text)
}

// applyResult fills a still-pending placeholder with the generated
// reply and starts its reveal. Matched strictly by message id: a
// completion whose placeholder is gone, or already resolved, is
// discarded.
func (s *Session) applyResult(epoch int, messageID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || epoch != s.epoch {
		return
	}
	msg := s.findPendingLocked(messageID)
	if msg == nil {
		s.log.Debug().Str("message_id", messageID).Msg("dropped stale completion")
		return
	}
	msg.Content = text
	msg.Pending = false
	s.sending = false

	s.emitMessagesLocked()
	s.scheduleFlushLocked()
	s.startRevealLocked(messageID, text)
}

// applyFailure resolves a placeholder with a user-facing error, or —
// for an authentication failure — leaves it untouched and redirects,
// since the surface is navigating away anyway.
func (s *Session) applyFailure(epoch int, messageID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || epoch != s.epoch {
		return
	}

	if generate.IsUnauthorized(err) {
		s.sending = false
		s.redirectLocked("generation unauthorized")
		return
	}

	msg := s.findPendingLocked(messageID)
	if msg == nil {
		return
	}
	msg.ErrorText = generate.UserMessage(err)
	msg.Pending = false
	s.sending = false
	s.log.Warn().Err(err).Str("message_id", messageID).Msg("generation failed")

	s.emitMessagesLocked()
	s.scheduleFlushLocked()
}

// findPendingLocked returns the pending message with the given id, or
// nil. Caller holds the mutex.
func (s *Session) findPendingLocked(id string) *conversation.Message {
	for i := range s.messages {
		if s.messages[i].ID == id && s.messages[i].Pending {
			return &s.messages[i]
		}
	}
	return nil
}
