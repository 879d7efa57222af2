// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"

	"github.com/JoaoDevFullStack/genio-text/internal/conversation"
	"github.com/JoaoDevFullStack/genio-text/internal/session"
	"github.com/JoaoDevFullStack/genio-text/internal/ui/styles"
)

func TestFindMessage(t *testing.T) {
	msgs := []conversation.Message{
		{ID: "1_user", Role: conversation.RoleUser, Content: "hi"},
		{ID: "2_assistant", Role: conversation.RoleAssistant, Content: "hello"},
	}

	if got := findMessage(msgs, "2_assistant"); got == nil || got.Content != "hello" {
		t.Errorf("findMessage(2_assistant) = %v", got)
	}
	if got := findMessage(msgs, "missing"); got != nil {
		t.Errorf("findMessage(missing) = %v, want nil", got)
	}
	if got := findMessage(nil, "1_user"); got != nil {
		t.Errorf("findMessage on nil slice = %v, want nil", got)
	}
}

func TestHandleEventClearsStaleReveal(t *testing.T) {
	var m Model
	m.reveal = reveal{messageID: "gone", prefix: "par"}

	// A messages snapshot that no longer contains the revealing message
	// must drop the reveal, or the view would render a dead prefix.
	m.handleEvent(session.Event{
		Type: session.EventMessages,
		Messages: []conversation.Message{
			{ID: "other", Role: conversation.RoleAssistant, Content: "x"},
		},
	})

	if m.reveal.messageID != "" {
		t.Errorf("reveal.messageID = %q, want cleared", m.reveal.messageID)
	}
	if len(m.messages) != 1 {
		t.Errorf("len(messages) = %d, want 1", len(m.messages))
	}
}

func TestHandleEventTracksReveal(t *testing.T) {
	var m Model
	m.messages = []conversation.Message{
		{ID: "a1", Role: conversation.RoleAssistant, Content: "full reply"},
	}

	m.handleEvent(session.Event{
		Type:            session.EventReveal,
		RevealMessageID: "a1",
		RevealPrefix:    "full",
	})
	if m.reveal.prefix != "full" || m.reveal.done {
		t.Errorf("reveal = %+v, want in-flight prefix", m.reveal)
	}

	m.handleEvent(session.Event{
		Type:            session.EventReveal,
		RevealMessageID: "a1",
		RevealPrefix:    "full reply",
		RevealDone:      true,
	})
	if !m.reveal.done {
		t.Error("reveal.done = false after final event")
	}
}

func TestRedirectedViewNamesEntryFlags(t *testing.T) {
	var m Model
	m.ready = true
	m.redirected = true
	m.theme = styles.NewTheme()

	// A redirect also happens on a bare launch with no entry
	// parameters, so the notice must point at them, not only at
	// signing in.
	view := m.View()
	if !strings.Contains(view, "-prompt") || !strings.Contains(view, "-resume") {
		t.Errorf("redirect view %q does not name the entry flags", view)
	}
}

func TestDefaultKeyMapBindingsPresent(t *testing.T) {
	km := DefaultKeyMap()
	for name, b := range map[string][]string{
		"Submit":  km.Submit.Keys(),
		"History": km.History.Keys(),
		"Quit":    km.Quit.Keys(),
		"PageUp":  km.PageUp.Keys(),
	} {
		if len(b) == 0 {
			t.Errorf("%s has no keys bound", name)
		}
	}
}
