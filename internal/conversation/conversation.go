// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/JoaoDevFullStack/genio-text/internal/util"
)

// TitleMaxRunes is the rune budget for derived conversation titles.
const TitleMaxRunes = 50

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is one chat: an id, display metadata derived at creation,
// the prompt that started it, and the append-ordered message log. The
// message ordering is the durable source of truth for display order.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	DisplayDate  string    `json:"date"`
	OriginPrompt string    `json:"prompt"`
	Messages     []Message `json:"messages"`
}

// NewFromPrompt creates a conversation seeded from a prompt. The id is
// assigned here and never reassigned; Title and DisplayDate are derived
// now and not recomputed on later mutation.
func NewFromPrompt(prompt string, now time.Time) Conversation {
	return Conversation{
		ID:           uuid.NewString(),
		Title:        DeriveTitle(prompt),
		DisplayDate:  FormatDisplayDate(now),
		OriginPrompt: prompt,
	}
}

// FirstUserMessage returns the first user message content, or "".
func (c *Conversation) FirstUserMessage() string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			return msg.Content
		}
	}
	return ""
}

// Clone returns a deep copy. The session works on copies so the
// in-memory view never aliases slices handed to the store.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	return out
}

// =============================================================================
// DERIVED FIELDS
// =============================================================================

// DeriveTitle builds a one-line display title from a prompt, truncated
// to TitleMaxRunes characters.
func DeriveTitle(prompt string) string {
	title := util.CollapseWhitespace(prompt)
	if title == "" {
		return "New conversation"
	}
	return util.TruncateRunes(title, TitleMaxRunes)
}

// FormatDisplayDate renders a creation time for the history list:
// "Today, 15:04" or "Yesterday, 15:04" for recent conversations,
// "02/01/2006" otherwise. Day boundaries are calendar days in local
// time, not 24-hour windows.
func FormatDisplayDate(t time.Time) string {
	now := time.Now()
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	day := time.Date(y1, m1, d1, 0, 0, 0, 0, t.Location())
	today := time.Date(y2, m2, d2, 0, 0, 0, 0, now.Location())

	switch days := int(today.Sub(day).Hours() / 24); days {
	case 0:
		return "Today, " + t.Format("15:04")
	case 1:
		return "Yesterday, " + t.Format("15:04")
	default:
		return t.Format("02/01/2006")
	}
}
