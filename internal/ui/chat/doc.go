// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// The view is a thin renderer over a session.Session: it never owns
// conversation state. Every repaint works from the latest snapshot
// delivered on the session's event channel, bridged into the Bubble Tea
// loop by a self-re-arming command.
//
// # Layout
//
// A header, scrollable transcript viewport, input box, and status bar
// stack vertically; Ctrl+H docks a conversation history sidebar on the
// right. Assistant replies render as markdown via glamour when enabled,
// except while a progressive reveal is in flight, when the revealed
// prefix is shown raw with a cursor.
//
// # Lifecycle
//
// The model quits the program on a redirect event (the user must sign
// in again) and when the session's event channel closes. Closing the
// session itself is the caller's job, after the program exits.
package chat
