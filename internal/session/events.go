// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "github.com/JoaoDevFullStack/genio-text/internal/conversation"

// =============================================================================
// EVENTS
// =============================================================================

// EventType discriminates session events.
type EventType int

const (
	// EventMessages carries a fresh snapshot of the message log.
	EventMessages EventType = iota
	// EventReveal carries a prefix of a just-completed reply.
	EventReveal
	// EventRedirect asks the front end to navigate to the entry surface.
	EventRedirect
	// EventHistory carries a fresh snapshot of the conversation index.
	EventHistory
	// EventSaved reports a successful durable write.
	EventSaved
)

// Event is one notification from the session to its front end. Message
// and history events carry full snapshots, so a front end that misses
// an event is merely stale until the next one, never inconsistent.
type Event struct {
	Type EventType

	// EventMessages
	Messages []conversation.Message

	// EventReveal
	RevealMessageID string
	RevealPrefix    string
	RevealDone      bool

	// EventHistory
	History conversation.Index
}

// Events returns the channel front ends consume. It is closed by Close.
func (s *Session) Events() <-chan Event {
	return s.events
}

// emitLocked queues an event without blocking. The channel is buffered
// generously; if a front end stops draining, events are dropped rather
// than wedging the session (snapshots make that safe). Caller holds the
// mutex.
func (s *Session) emitLocked(ev Event) {
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.log.Debug().Int("type", int(ev.Type)).Msg("event dropped: channel full")
	}
}

// emitMessagesLocked snapshots the log and queues an EventMessages.
func (s *Session) emitMessagesLocked() {
	s.emitLocked(Event{
		Type:     EventMessages,
		Messages: append([]conversation.Message(nil), s.messages...),
	})
}

// emitHistoryLocked snapshots the index and queues an EventHistory.
func (s *Session) emitHistoryLocked() {
	s.emitLocked(Event{
		Type:    EventHistory,
		History: s.index.Clone(),
	})
}
