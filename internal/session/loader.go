// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"time"

	"github.com/JoaoDevFullStack/genio-text/internal/conversation"
	"github.com/JoaoDevFullStack/genio-text/internal/identity"
	"github.com/JoaoDevFullStack/genio-text/internal/storage"
)

// =============================================================================
// ENTRY PARAMETERS
// =============================================================================

// EntryParams are the navigation inputs the loader resolves against, in
// priority order: a conversation id to resume, else a prompt to start
// from, else neither (which redirects to the entry surface).
type EntryParams struct {
	ConversationID string
	Prompt         string
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolve starts (or re-attempts) entry resolution. Idempotent: once the
// session is initialized, further calls are no-ops, even if identity or
// index state has changed since — re-running must never create a second
// conversation for the same entry.
//
// Identity resolution, index loading, and parameter availability
// complete in unspecified relative order; Resolve absorbs that by
// probing within a bounded window instead of concluding from whichever
// input happens to be missing first.
func (s *Session) Resolve(params EntryParams) {
	s.mu.Lock()
	if s.closed || s.initialized || s.state == StateRedirecting {
		s.mu.Unlock()
		return
	}
	if !s.resolveStarted {
		s.resolveStarted = true
		s.params = params
		s.resumeDeadline = time.Now().Add(s.durations.ResumeWindow)
		s.state = StateLoading
	}
	epoch := s.epoch
	s.mu.Unlock()

	s.attemptResolve(epoch)
}

// attemptResolve runs one resolution attempt. Re-armed by the probe
// timer until it reaches a terminal outcome or the window closes.
func (s *Session) attemptResolve(epoch int) {
	s.mu.Lock()
	if s.closed || epoch != s.epoch || s.initialized || s.state == StateRedirecting {
		s.mu.Unlock()
		return
	}

	params := s.params
	switch s.provider.Status() {
	case identity.StatusSignedOut:
		s.redirectLocked("signed out")
		s.mu.Unlock()
		return
	case identity.StatusResolving:
		// Identity can resolve after entry parameters are known; wait
		// for it within the window instead of failing the entry.
		if time.Now().Before(s.resumeDeadline) {
			s.scheduleProbeLocked(epoch)
		} else {
			s.redirectLocked("identity resolution timed out")
		}
		s.mu.Unlock()
		return
	}

	s.partition = identity.PartitionKey(s.provider.Identity())
	key := s.partition
	ctx := s.ctx
	s.mu.Unlock()

	if params.ConversationID == "" && params.Prompt == "" {
		s.mu.Lock()
		if !s.closed && epoch == s.epoch && !s.initialized && s.state != StateRedirecting {
			s.redirectLocked("no entry parameters")
		}
		s.mu.Unlock()
		return
	}

	idx, err := s.store.Load(ctx, key)
	if err != nil {
		// Already logged by the store; an unreadable medium degrades to
		// an empty history.
		idx = conversation.Index{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || epoch != s.epoch || s.initialized || s.state == StateRedirecting {
		return
	}
	s.index = idx

	if params.ConversationID != "" {
		s.state = StateResuming
		if conv := idx.Find(params.ConversationID); conv != nil && len(conv.Messages) > 0 {
			s.adoptLocked(*conv)
			return
		}
		// A stub without content is not resumable; the index may also
		// simply not be populated yet. Keep probing until the window
		// closes, then conclude the conversation does not exist.
		if time.Now().Before(s.resumeDeadline) {
			s.state = StateLoading
			s.scheduleProbeLocked(epoch)
			return
		}
		s.redirectLocked("conversation not found")
		return
	}

	s.state = StateCreating
	s.createFromPromptLocked(params.Prompt, epoch)
}

// scheduleProbeLocked arms the bounded-retry timer. Caller holds the
// mutex.
func (s *Session) scheduleProbeLocked(epoch int) {
	if s.resumeTimer != nil {
		s.resumeTimer.Stop()
	}
	s.resumeTimer = time.AfterFunc(s.durations.ResumeProbe, func() {
		s.attemptResolve(epoch)
	})
}

// adoptLocked takes over an existing conversation verbatim and marks
// the session initialized. Caller holds the mutex.
func (s *Session) adoptLocked(conv conversation.Conversation) {
	s.currentID = conv.ID
	s.messages = append([]conversation.Message(nil), conv.Messages...)
	s.initialized = true
	s.state = StateReady
	s.log.Info().Str("conversation_id", conv.ID).Msg("resumed conversation")
	s.emitMessagesLocked()
	s.emitHistoryLocked()
}

// createFromPromptLocked synthesizes a new conversation seeded from the
// entry prompt, registers it at the front of the index copy, and hands
// off to the pipeline for the first reply. Caller holds the mutex.
func (s *Session) createFromPromptLocked(prompt string, epoch int) {
	user, placeholder := conversation.NewMessagePair(prompt)

	conv := conversation.NewFromPrompt(prompt, time.Now())
	conv.Messages = []conversation.Message{user}
	s.index = s.index.Upsert(conv)

	s.currentID = conv.ID
	s.messages = []conversation.Message{user, placeholder}
	s.initialized = true
	s.state = StateReady
	s.sending = true

	s.log.Info().Str("conversation_id", conv.ID).Msg("created conversation from prompt")
	s.emitMessagesLocked()
	s.emitHistoryLocked()
	s.scheduleFlushLocked()

	go s.roundTrip(epoch, s.ctx, placeholder.ID, prompt)
}

// redirectLocked enters the terminal redirecting state and tells the
// front end to navigate to the entry surface. Caller holds the mutex.
func (s *Session) redirectLocked(reason string) {
	if s.state == StateRedirecting {
		return
	}
	s.state = StateRedirecting
	s.stopTimersLocked()
	s.log.Info().Str("reason", reason).Msg("redirecting to entry surface")
	s.emitLocked(Event{Type: EventRedirect})
}

// =============================================================================
// IDENTITY CHANGES
// =============================================================================

// HandleIdentityChanged reacts to a transition of the identity
// collaborator. Wire it to the provider's change hook.
//
// A sign-out invalidates all in-memory state and redirects. A switch to
// a different identity discards messages, index cache, and conversation
// id, clears the initialized flag, and re-runs resolution against the
// new partition — nothing created under the old identity may ever be
// written to the new one.
func (s *Session) HandleIdentityChanged() {
	s.mu.Lock()
	if s.closed || s.state == StateRedirecting {
		s.mu.Unlock()
		return
	}

	switch s.provider.Status() {
	case identity.StatusResolving:
		// Not settled yet; the probe timer (or the next hook call)
		// picks it up.
		s.mu.Unlock()
		return

	case identity.StatusSignedOut:
		s.resetLocked()
		s.partition = ""
		s.redirectLocked("signed out")
		s.mu.Unlock()
		return
	}

	key := identity.PartitionKey(s.provider.Identity())
	if s.initialized && key == s.partition {
		s.mu.Unlock()
		return
	}
	if !s.resolveStarted {
		// Resolve has not been called; nothing to re-run yet.
		s.mu.Unlock()
		return
	}

	s.resetLocked()
	s.state = StateLoading
	s.resumeDeadline = time.Now().Add(s.durations.ResumeWindow)
	epoch := s.epoch
	s.mu.Unlock()

	s.attemptResolve(epoch)
}

// resetLocked discards every piece of in-memory conversation state and
// orphans all in-flight work. Caller holds the mutex.
func (s *Session) resetLocked() {
	s.epoch++
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.stopTimersLocked()
	s.messages = nil
	s.index = nil
	s.currentID = ""
	s.initialized = false
	s.sending = false
}

// =============================================================================
// CONVERSATION SWITCHING
// =============================================================================

// ErrConversationNotFound rejects a switch to a conversation the index
// does not hold (or holds only as a contentless stub).
var ErrConversationNotFound = errors.New("conversation not found")

// Switch replaces the live conversation with another one from the
// index. The current log is folded into the index first, so nothing is
// lost; the next flush persists both. Rejected while a send is in
// flight.
func (s *Session) Switch(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state == StateRedirecting {
		return ErrSessionClosed
	}
	if s.sending {
		return ErrSendInFlight
	}
	if conversationID != "" && conversationID == s.currentID {
		return nil
	}

	conv := s.index.Find(conversationID)
	if conv == nil || len(conv.Messages) == 0 {
		return ErrConversationNotFound
	}

	if s.currentID != "" && len(s.messages) > 0 {
		s.foldLocked()
		// Find returns a pointer into the index, so re-read the target
		// after folding in case the fold reordered entries.
		conv = s.index.Find(conversationID)
	}
	s.cancelRevealLocked()
	s.adoptLocked(*conv)
	s.scheduleFlushLocked()
	return nil
}

// StartNew folds the live conversation into the index and clears the
// log. The next Send creates a fresh conversation lazily, exactly as a
// first message does. Rejected while a send is in flight.
func (s *Session) StartNew() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state == StateRedirecting {
		return ErrSessionClosed
	}
	if s.sending {
		return ErrSendInFlight
	}
	if s.currentID == "" && len(s.messages) == 0 {
		return nil
	}

	if s.currentID != "" && len(s.messages) > 0 {
		s.foldLocked()
	}
	s.cancelRevealLocked()
	s.currentID = ""
	s.messages = nil
	s.state = StateReady
	s.log.Info().Msg("cleared live conversation")
	s.emitMessagesLocked()
	s.emitHistoryLocked()
	return nil
}

// =============================================================================
// EXTERNAL STORE CHANGES
// =============================================================================

// ExternalRefresh reloads the index after another process rewrote this
// session's partition (see storage.Watcher). The live conversation's
// in-memory log stays authoritative: it is folded back over whatever
// the other writer stored.
func (s *Session) ExternalRefresh(sanitizedKey string) {
	s.mu.Lock()
	if s.closed || !s.initialized || s.partition == "" ||
		storage.SanitizeKey(s.partition) != sanitizedKey {
		s.mu.Unlock()
		return
	}
	epoch := s.epoch
	ctx := s.ctx
	key := s.partition
	s.mu.Unlock()

	idx, err := s.store.Load(ctx, key)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || epoch != s.epoch {
		return
	}
	s.index = idx
	if s.currentID != "" && len(s.messages) > 0 {
		s.foldLocked()
	}
	s.emitHistoryLocked()
}
