// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the line-oriented REPL front end for geniotext.
//
// The REPL drives a session.Session from a liner prompt with input
// history: plain lines become Send calls, slash commands inspect the
// stored conversation index, and assistant replies print through the
// session's progressive reveal so the terminal output matches what the
// TUI shows.
package cli
