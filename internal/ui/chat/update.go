// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JoaoDevFullStack/genio-text/internal/session"
)

// =============================================================================
// SESSION EVENT BRIDGE
// =============================================================================

// sessionMsg wraps one session event for the Bubble Tea loop.
type sessionMsg session.Event

// sessionClosedMsg reports that the session's event channel closed.
type sessionClosedMsg struct{}

// waitForEvent blocks on the session's event channel and converts the
// next event into a tea.Msg. The handler re-arms it after every event.
func waitForEvent(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-s.Events()
		if !ok {
			return sessionClosedMsg{}
		}
		return sessionMsg(ev)
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.History):
			m.showHistory = !m.showHistory
			m.layout()
			return m, nil

		case key.Matches(msg, m.keyMap.Submit):
			return m.submit()

		case key.Matches(msg, m.keyMap.PageUp):
			m.viewport.HalfViewUp()
			return m, nil

		case key.Matches(msg, m.keyMap.PageDown):
			m.viewport.HalfViewDown()
			return m, nil
		}

	case sessionMsg:
		cmds = append(cmds, m.handleEvent(session.Event(msg)))
		cmds = append(cmds, waitForEvent(m.sess))

	case sessionClosedMsg:
		m.closed = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit sends the composed message to the session.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	err := m.sess.Send(text)
	switch {
	case err == nil:
		m.input.Reset()
		m.statusMsg = ""
	case errors.Is(err, session.ErrBlankMessage):
		// Nothing to send; keep quiet.
	case errors.Is(err, session.ErrSendInFlight):
		m.statusMsg = "Still waiting for the previous reply..."
	case errors.Is(err, session.ErrSessionClosed):
		return m, tea.Quit
	default:
		m.statusMsg = err.Error()
	}
	return m, nil
}

// handleEvent folds one session event into the view.
func (m *Model) handleEvent(ev session.Event) tea.Cmd {
	switch ev.Type {
	case session.EventMessages:
		m.messages = ev.Messages
		// A fresh snapshot supersedes any reveal for a message that no
		// longer exists.
		if m.reveal.messageID != "" && findMessage(m.messages, m.reveal.messageID) == nil {
			m.reveal = reveal{}
		}
		m.refreshViewport()

	case session.EventReveal:
		m.reveal = reveal{
			messageID: ev.RevealMessageID,
			prefix:    ev.RevealPrefix,
			done:      ev.RevealDone,
		}
		m.refreshViewport()

	case session.EventHistory:
		m.history = ev.History

	case session.EventSaved:
		m.statusMsg = "Saved"

	case session.EventRedirect:
		m.redirected = true
		return tea.Quit
	}
	return nil
}

// layout recomputes component dimensions after a resize or sidebar
// toggle.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	contentWidth := m.width
	if m.showHistory {
		contentWidth -= sidebarWidth
	}
	// Header, input box, and status bar frame the viewport.
	viewHeight := m.height - headerHeight - inputHeight - statusHeight
	if viewHeight < 1 {
		viewHeight = 1
	}

	if !m.ready {
		m.viewport = newViewport(contentWidth, viewHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = viewHeight
	}
	m.input.Width = contentWidth - 6
	m.refreshViewport()
}

// refreshViewport re-renders the transcript and keeps the view pinned
// to the bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom {
		m.viewport.GotoBottom()
	}
}
