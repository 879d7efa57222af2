// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity supplies the session manager's view of who is signed
// in: a tri-state resolution status, an opaque identity string, and the
// storage partition key derived from it.
//
// The actual authentication flow is an external collaborator. This
// package defines the consumed interface plus a static provider for
// wiring and tests, and a best-effort recorder that mirrors sign-ins
// into a local database without ever blocking the session on failure.
package identity
