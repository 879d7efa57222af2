// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/JoaoDevFullStack/genio-text/internal/config"
	"github.com/JoaoDevFullStack/genio-text/internal/conversation"
	"github.com/JoaoDevFullStack/genio-text/internal/session"
	"github.com/JoaoDevFullStack/genio-text/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// reveal tracks the progressive reveal of one assistant reply. While a
// reveal is in flight the transcript shows the prefix instead of the
// message's full content.
type reveal struct {
	messageID string
	prefix    string
	done      bool
}

// Model is the Bubble Tea model for the chat view. It owns no
// conversation state of its own: everything it renders is the latest
// snapshot received from the session's event channel.
type Model struct {
	sess  *session.Session
	theme *styles.Theme
	cfg   config.UIConfig

	// Dimensions
	width  int
	height int
	ready  bool

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	keyMap KeyMap

	// Latest snapshots from the session
	messages []conversation.Message
	history  conversation.Index
	reveal   reveal

	// Sidebar
	showHistory bool

	// Status line
	statusMsg  string
	redirected bool
	closed     bool

	// Markdown rendering (nil when disabled or unavailable)
	renderer *glamour.TermRenderer
}

// New creates the chat view bound to a session.
func New(sess *session.Session, cfg config.UIConfig, theme *styles.Theme) Model {
	input := textinput.New()
	input.Placeholder = "Type your message..."
	input.Prompt = theme.InputPrompt.Render("> ")
	input.CharLimit = 0
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = theme.PendingText

	m := Model{
		sess:    sess,
		theme:   theme,
		cfg:     cfg,
		input:   input,
		spinner: spin,
		keyMap:  DefaultKeyMap(),
	}
	if cfg.Markdown {
		m.renderer = newRenderer(cfg.WordWrap)
	}
	return m
}

// newRenderer builds the glamour renderer, or nil if the terminal
// cannot support one.
func newRenderer(wrap int) *glamour.TermRenderer {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if wrap > 0 {
		opts = append(opts, glamour.WithWordWrap(wrap))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil
	}
	return r
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		waitForEvent(m.sess),
	)
}
