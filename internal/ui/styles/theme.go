// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the geniotext TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderDate  lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	UserText       lipgloss.Style
	AssistantLabel lipgloss.Style
	AssistantText  lipgloss.Style
	PendingText    lipgloss.Style
	ErrorText      lipgloss.Style
	RevealCursor   lipgloss.Style

	// ==========================================================================
	// HISTORY SIDEBAR STYLES
	// ==========================================================================

	SidebarBox      lipgloss.Style
	SidebarTitle    lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
	SidebarDate     lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	StatusBar      lipgloss.Style
	StatusSaved    lipgloss.Style
	StatusError    lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style
}

// NewTheme creates a theme adapted to the current terminal.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       lipgloss.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.HeaderDate = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.UserText = lipgloss.NewStyle().
		Foreground(Text)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Indigo).
		Bold(true)
	t.AssistantText = lipgloss.NewStyle().
		Foreground(Text)
	t.PendingText = lipgloss.NewStyle().
		Foreground(Amber).
		Italic(true)
	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose)
	t.RevealCursor = lipgloss.NewStyle().
		Foreground(Indigo).
		Blink(true)

	t.SidebarBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
	t.SidebarTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.SidebarItem = lipgloss.NewStyle().
		Foreground(Text)
	t.SidebarSelected = lipgloss.NewStyle().
		Foreground(Indigo).
		Bold(true)
	t.SidebarDate = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextMuted).
		Padding(0, 1)
	t.StatusSaved = lipgloss.NewStyle().
		Foreground(Emerald)
	t.StatusError = lipgloss.NewStyle().
		Foreground(Rose)
	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	return t
}
