// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/JoaoDevFullStack/genio-text/internal/conversation"
	"github.com/JoaoDevFullStack/genio-text/internal/util"
)

// Frame dimensions. The viewport takes whatever height remains.
const (
	headerHeight = 1
	inputHeight  = 3
	statusHeight = 1
	sidebarWidth = 32
)

func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.MouseWheelEnabled = true
	return vp
}

func findMessage(msgs []conversation.Message, id string) *conversation.Message {
	for i := range msgs {
		if msgs[i].ID == id {
			return &msgs[i]
		}
	}
	return nil
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.redirected {
		return m.theme.ErrorText.Render("Session ended. Sign in, then start with -prompt or -resume.") + "\n"
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatus(),
	)
	if !m.showHistory {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, main, m.renderSidebar())
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("geniotext")
	sub := ""
	if conv := m.history.Find(m.sess.CurrentID()); conv != nil {
		sub = "  " + m.theme.HeaderDate.Render(conv.Title)
	}
	width := m.width
	if m.showHistory {
		width -= sidebarWidth
	}
	return m.theme.Header.Width(width).Render(title + sub)
}

func (m Model) renderInput() string {
	width := m.width
	if m.showHistory {
		width -= sidebarWidth
	}
	return m.theme.InputContainer.Width(width - 2).Render(m.input.View())
}

func (m Model) renderStatus() string {
	width := m.width
	if m.showHistory {
		width -= sidebarWidth
	}

	left := m.theme.ShortcutKey.Render("enter") + m.theme.ShortcutDesc.Render(" send  ") +
		m.theme.ShortcutKey.Render("C-h") + m.theme.ShortcutDesc.Render(" history  ") +
		m.theme.ShortcutKey.Render("C-c") + m.theme.ShortcutDesc.Render(" quit")
	if m.statusMsg != "" {
		if m.statusMsg == "Saved" {
			left += "  " + m.theme.StatusSaved.Render(m.statusMsg)
		} else {
			left += "  " + m.theme.StatusError.Render(m.statusMsg)
		}
	}
	return m.theme.StatusBar.Width(width).Render(left)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders the full message log into viewport content.
func (m Model) renderTranscript() string {
	if len(m.messages) == 0 {
		return m.theme.HeaderDate.Render("Start the conversation below.")
	}

	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case conversation.RoleUser:
			b.WriteString(m.theme.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(m.theme.UserText.Render(msg.Content))
		case conversation.RoleAssistant:
			b.WriteString(m.theme.AssistantLabel.Render("Genio"))
			b.WriteString("\n")
			b.WriteString(m.renderAssistant(msg))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderAssistant renders one assistant message, honoring pending,
// failed, and mid-reveal states.
func (m Model) renderAssistant(msg conversation.Message) string {
	if msg.Pending {
		return m.spinner.View() + m.theme.PendingText.Render(" Thinking...")
	}
	if msg.ErrorText != "" {
		return m.theme.ErrorText.Render(msg.ErrorText)
	}

	// Mid-reveal: show the revealed prefix with a cursor instead of the
	// full content.
	if m.reveal.messageID == msg.ID && !m.reveal.done {
		return m.theme.AssistantText.Render(m.reveal.prefix) + m.theme.RevealCursor.Render("▌")
	}

	if m.renderer != nil {
		if out, err := m.renderer.Render(msg.Content); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return m.theme.AssistantText.Render(msg.Content)
}

// =============================================================================
// HISTORY SIDEBAR
// =============================================================================

// renderSidebar renders the conversation index, newest first, with the
// active conversation highlighted.
func (m Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(m.theme.SidebarTitle.Render("History"))
	b.WriteString("\n\n")

	if len(m.history) == 0 {
		b.WriteString(m.theme.SidebarDate.Render("No conversations yet"))
	}
	current := m.sess.CurrentID()
	for _, conv := range m.history {
		title := util.TruncateWidth(conv.Title, sidebarWidth-6)
		style := m.theme.SidebarItem
		if conv.ID == current {
			style = m.theme.SidebarSelected
		}
		b.WriteString(style.Render(title))
		b.WriteString("\n")
		b.WriteString(m.theme.SidebarDate.Render(conv.DisplayDate))
		b.WriteString("\n\n")
	}

	height := m.height - 2
	if height < 1 {
		height = 1
	}
	return m.theme.SidebarBox.Width(sidebarWidth - 2).Height(height).Render(b.String())
}
