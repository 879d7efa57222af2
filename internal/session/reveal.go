// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "time"

// =============================================================================
// REVEAL SCHEDULER
// =============================================================================

// revealTask is one progressive reveal in flight. At most one exists;
// starting a new reveal cancels its predecessor.
type revealTask struct {
	messageID string
	cancel    chan struct{}
}

// startRevealLocked begins revealing content for messageID, one rune
// per tick. Caller holds the mutex.
func (s *Session) startRevealLocked(messageID, content string) {
	s.cancelRevealLocked()
	task := &revealTask{messageID: messageID, cancel: make(chan struct{})}
	s.reveal = task
	go s.runReveal(task, content, s.durations.RevealInterval)
}

// cancelRevealLocked stops the active reveal, if any. The underlying
// message keeps its full content; only the animation dies. Caller holds
// the mutex.
func (s *Session) cancelRevealLocked() {
	if s.reveal != nil {
		close(s.reveal.cancel)
		s.reveal = nil
	}
}

// runReveal emits rune-prefix increments until the content is fully
// revealed or the task is superseded. Prefix boundaries are rune
// boundaries, never bytes, so multi-byte text stays intact.
func (s *Session) runReveal(task *revealTask, content string, interval time.Duration) {
	runes := []rune(content)

	if len(runes) == 0 {
		s.mu.Lock()
		if !s.closed && s.reveal == task {
			s.emitLocked(Event{
				Type:            EventReveal,
				RevealMessageID: task.messageID,
				RevealDone:      true,
			})
			s.reveal = nil
		}
		s.mu.Unlock()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 1; i <= len(runes); i++ {
		select {
		case <-task.cancel:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.closed || s.reveal != task {
			s.mu.Unlock()
			return
		}
		s.emitLocked(Event{
			Type:            EventReveal,
			RevealMessageID: task.messageID,
			RevealPrefix:    string(runes[:i]),
			RevealDone:      i == len(runes),
		})
		if i == len(runes) {
			s.reveal = nil
		}
		s.mu.Unlock()
	}
}
