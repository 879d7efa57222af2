// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"strconv"
	"time"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Role identifies who authored a message. It is immutable after creation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation's log.
//
// A message with Pending=true is a placeholder for a reply that has not
// resolved yet; its Content is empty. Once the round-trip completes the
// placeholder is updated in place by id: Content is filled on success,
// ErrorText on failure, and Pending is cleared either way.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Pending   bool   `json:"pending,omitempty"`
	ErrorText string `json:"error_text,omitempty"`
}

// IsUser reports whether the message was authored by the user.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// HasError reports whether the message carries a failure from its turn.
func (m Message) HasError() bool {
	return m.ErrorText != ""
}

// =============================================================================
// MESSAGE CONSTRUCTION
// =============================================================================

// NewUserMessage creates a user message with a fresh unique id.
func NewUserMessage(content string) Message {
	base := time.Now().UnixNano()
	return Message{
		ID:      pairID(base, RoleUser),
		Role:    RoleUser,
		Content: content,
	}
}

// NewMessagePair creates the user message and pending assistant
// placeholder produced by one send. The two ids share a time-correlated
// base so the pair can be traced together.
func NewMessagePair(content string) (user Message, placeholder Message) {
	base := time.Now().UnixNano()
	user = Message{
		ID:      pairID(base, RoleUser),
		Role:    RoleUser,
		Content: content,
	}
	placeholder = Message{
		ID:      pairID(base+1, RoleAssistant),
		Role:    RoleAssistant,
		Pending: true,
	}
	return user, placeholder
}

// pairID renders a message id as "<base>_<role>".
func pairID(base int64, role Role) string {
	return strconv.FormatInt(base, 10) + "_" + string(role)
}
