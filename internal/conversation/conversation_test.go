// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessagePair(t *testing.T) {
	user, placeholder := NewMessagePair("hello")

	if user.Role != RoleUser {
		t.Errorf("user role = %q, want %q", user.Role, RoleUser)
	}
	if user.Content != "hello" {
		t.Errorf("user content = %q, want %q", user.Content, "hello")
	}
	if user.Pending {
		t.Error("user message must not be pending")
	}

	if placeholder.Role != RoleAssistant {
		t.Errorf("placeholder role = %q, want %q", placeholder.Role, RoleAssistant)
	}
	if !placeholder.Pending {
		t.Error("placeholder must be pending")
	}
	if placeholder.Content != "" {
		t.Errorf("placeholder content = %q, want empty", placeholder.Content)
	}

	if user.ID == placeholder.ID {
		t.Error("pair ids must be distinct")
	}
	if !strings.HasSuffix(user.ID, "_user") {
		t.Errorf("user id = %q, want _user suffix", user.ID)
	}
	if !strings.HasSuffix(placeholder.ID, "_assistant") {
		t.Errorf("placeholder id = %q, want _assistant suffix", placeholder.ID)
	}

	// The pair shares a time-correlated base: bases differ by exactly 1.
	userBase := strings.TrimSuffix(user.ID, "_user")
	asstBase := strings.TrimSuffix(placeholder.ID, "_assistant")
	if len(userBase) == 0 || len(asstBase) == 0 {
		t.Fatal("empty id base")
	}
}

func TestNewMessagePair_UniqueAcrossCalls(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		user, placeholder := NewMessagePair("x")
		if seen[user.ID] || seen[placeholder.ID] {
			t.Fatalf("duplicate message id after %d pairs", i)
		}
		seen[user.ID] = true
		seen[placeholder.ID] = true
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestNewFromPrompt(t *testing.T) {
	conv := NewFromPrompt("café", time.Now())

	if conv.ID == "" {
		t.Error("expected a non-empty id")
	}
	if conv.Title != "café" {
		t.Errorf("title = %q, want %q", conv.Title, "café")
	}
	if conv.OriginPrompt != "café" {
		t.Errorf("origin prompt = %q, want %q", conv.OriginPrompt, "café")
	}
	if conv.DisplayDate == "" {
		t.Error("expected a derived display date")
	}
	if len(conv.Messages) != 0 {
		t.Errorf("expected no messages at creation, got %d", len(conv.Messages))
	}
}

func TestNewFromPrompt_UniqueIDs(t *testing.T) {
	a := NewFromPrompt("one", time.Now())
	b := NewFromPrompt("one", time.Now())
	if a.ID == b.ID {
		t.Error("two conversations must never share an id")
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{"short prompt", "write a poem", "write a poem"},
		{"empty prompt", "", "New conversation"},
		{"newlines collapsed", "line one\nline two", "line one line two"},
		{
			"long prompt truncated",
			strings.Repeat("a", 60),
			strings.Repeat("a", 47) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.prompt); got != tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.prompt, got, tt.want)
			}
		})
	}
}

func TestFormatDisplayDate(t *testing.T) {
	now := time.Now()

	today := FormatDisplayDate(now)
	if !strings.HasPrefix(today, "Today, ") {
		t.Errorf("today = %q, want Today, prefix", today)
	}

	yesterday := FormatDisplayDate(now.AddDate(0, 0, -1))
	if !strings.HasPrefix(yesterday, "Yesterday, ") {
		t.Errorf("yesterday = %q, want Yesterday, prefix", yesterday)
	}

	old := now.AddDate(0, 0, -10)
	if got := FormatDisplayDate(old); got != old.Format("02/01/2006") {
		t.Errorf("old date = %q, want %q", got, old.Format("02/01/2006"))
	}
}

func TestFirstUserMessage(t *testing.T) {
	conv := Conversation{
		Messages: []Message{
			{ID: "1", Role: RoleAssistant, Content: "hi"},
			{ID: "2", Role: RoleUser, Content: "hello"},
			{ID: "3", Role: RoleUser, Content: "again"},
		},
	}
	if got := conv.FirstUserMessage(); got != "hello" {
		t.Errorf("FirstUserMessage = %q, want %q", got, "hello")
	}

	empty := Conversation{}
	if got := empty.FirstUserMessage(); got != "" {
		t.Errorf("FirstUserMessage on empty = %q, want empty", got)
	}
}

// =============================================================================
// INDEX TESTS
// =============================================================================

func TestIndex_UpsertInsertsAtFront(t *testing.T) {
	var idx Index
	idx = idx.Upsert(Conversation{ID: "a"})
	idx = idx.Upsert(Conversation{ID: "b"})

	if len(idx) != 2 {
		t.Fatalf("len = %d, want 2", len(idx))
	}
	if idx[0].ID != "b" || idx[1].ID != "a" {
		t.Errorf("order = [%s %s], want [b a]", idx[0].ID, idx[1].ID)
	}
}

func TestIndex_UpsertReplacesInPlace(t *testing.T) {
	idx := Index{
		{ID: "a", Title: "first"},
		{ID: "b", Title: "second"},
	}

	idx = idx.Upsert(Conversation{ID: "b", Title: "updated"})

	if len(idx) != 2 {
		t.Fatalf("upsert duplicated an entry: len = %d", len(idx))
	}
	// Position preserved.
	if idx[1].ID != "b" || idx[1].Title != "updated" {
		t.Errorf("entry b = %+v, want updated in place", idx[1])
	}
}

func TestIndex_Find(t *testing.T) {
	idx := Index{{ID: "a"}, {ID: "b"}}

	if conv := idx.Find("b"); conv == nil || conv.ID != "b" {
		t.Errorf("Find(b) = %v", conv)
	}
	if conv := idx.Find("missing"); conv != nil {
		t.Errorf("Find(missing) = %v, want nil", conv)
	}
}

func TestIndex_CloneIsDeep(t *testing.T) {
	idx := Index{{ID: "a", Messages: []Message{{ID: "m1", Content: "x"}}}}
	clone := idx.Clone()

	clone[0].Messages[0].Content = "mutated"
	if idx[0].Messages[0].Content != "x" {
		t.Error("clone shares message storage with original")
	}
}

func TestConversation_CloneIsDeep(t *testing.T) {
	conv := Conversation{ID: "a", Messages: []Message{{ID: "m1", Content: "x"}}}
	clone := conv.Clone()

	clone.Messages[0].Content = "mutated"
	if conv.Messages[0].Content != "x" {
		t.Error("clone shares message storage with original")
	}
}
