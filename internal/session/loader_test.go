// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JoaoDevFullStack/genio-text/internal/conversation"
	"github.com/JoaoDevFullStack/genio-text/internal/identity"
)

func seededConversation(id, prompt string, contents ...string) conversation.Conversation {
	conv := conversation.NewFromPrompt(prompt, time.Now())
	conv.ID = id
	for i, c := range contents {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		conv.Messages = append(conv.Messages, conversation.Message{
			ID:      id + "-" + string(rune('a'+i)),
			Role:    role,
			Content: c,
		})
	}
	return conv
}

func TestResumeExistingConversation(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))
	h.store.seed("chatHistory_alice@example.com", conversation.Index{
		seededConversation("conv-1", "hello there", "hello there", "hi!"),
	})

	h.session.Resolve(EntryParams{ConversationID: "conv-1"})
	waitForState(t, h.session, StateReady)

	require.True(t, h.session.Initialized())
	require.Equal(t, "conv-1", h.session.CurrentID())
	msgs := h.session.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, conversation.RoleUser, msgs[0].Role)
	require.Equal(t, "hi!", msgs[1].Content)
	// Resuming must not run a generation round-trip.
	require.Equal(t, 0, h.generator.callCount())
}

func TestResumeWaitsForIdentityResolution(t *testing.T) {
	provider := identity.NewStaticProvider()
	h := newHarness(t, provider)
	h.store.seed("chatHistory_alice@example.com", conversation.Index{
		seededConversation("conv-1", "hello", "hello", "hi"),
	})

	h.session.Resolve(EntryParams{ConversationID: "conv-1"})
	require.Equal(t, StateLoading, h.session.State())

	// Identity resolves after the id is already known; the loader must
	// pick it up within the window instead of concluding signed-out.
	time.Sleep(50 * time.Millisecond)
	provider.SignIn("alice@example.com")

	waitForState(t, h.session, StateReady)
	require.Equal(t, "conv-1", h.session.CurrentID())
}

func TestResumeWaitsForIndexPopulation(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))

	h.session.Resolve(EntryParams{ConversationID: "conv-late"})
	time.Sleep(50 * time.Millisecond)
	h.store.seed("chatHistory_alice@example.com", conversation.Index{
		seededConversation("conv-late", "late", "late", "better than never"),
	})

	waitForState(t, h.session, StateReady)
	require.Equal(t, "conv-late", h.session.CurrentID())
}

func TestResumeUnknownIDRedirectsAfterWindow(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))

	start := time.Now()
	h.session.Resolve(EntryParams{ConversationID: "no-such-id"})
	drainUntilRedirect(t, h.session)

	// Redirect only after the retry window, and without fabricating a
	// conversation or touching the store.
	require.GreaterOrEqual(t, time.Since(start), testDurations().ResumeWindow)
	require.Equal(t, StateRedirecting, h.session.State())
	require.False(t, h.session.Initialized())
	require.Empty(t, h.session.History())
	require.Equal(t, 0, h.store.saveCount())
}

func TestResumeContentlessStubRedirects(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))
	h.store.seed("chatHistory_alice@example.com", conversation.Index{
		seededConversation("conv-stub", "stub"),
	})

	h.session.Resolve(EntryParams{ConversationID: "conv-stub"})
	drainUntilRedirect(t, h.session)
	require.False(t, h.session.Initialized())
}

func TestPromptEntryCreatesConversation(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))

	h.session.Resolve(EntryParams{Prompt: "  what is Go?  "})
	waitForState(t, h.session, StateReady)

	require.True(t, h.session.Initialized())
	require.NotEmpty(t, h.session.CurrentID())
	msgs := h.session.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, conversation.RoleUser, msgs[0].Role)
	require.True(t, msgs[1].Pending)

	waitFor(t, func() bool { return !h.session.Sending() }, "reply applied")
	require.Equal(t, "a reply", h.session.Messages()[1].Content)
}

func TestResolveIsIdempotent(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))

	h.session.Resolve(EntryParams{Prompt: "once"})
	id := h.session.CurrentID()
	require.NotEmpty(t, id)

	// Re-running with different parameters must not create a second
	// conversation or re-dispatch.
	h.session.Resolve(EntryParams{Prompt: "twice"})
	h.session.Resolve(EntryParams{ConversationID: "other"})

	waitFor(t, func() bool { return !h.session.Sending() }, "reply applied")
	require.Equal(t, id, h.session.CurrentID())
	require.Equal(t, 1, h.generator.callCount())
	require.Len(t, h.session.History(), 1)
}

func TestNoEntryParametersRedirects(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))
	h.session.Resolve(EntryParams{})
	drainUntilRedirect(t, h.session)
	require.Equal(t, StateRedirecting, h.session.State())
}

func TestSignedOutEntryRedirects(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn(""))
	h.session.Resolve(EntryParams{Prompt: "anyone there?"})
	drainUntilRedirect(t, h.session)
	require.Equal(t, 0, h.generator.callCount())
}

func TestSignOutMidSessionRedirectsAndStopsWrites(t *testing.T) {
	provider := identity.NewSignedIn("alice@example.com")
	h := newHarness(t, provider)

	h.session.Resolve(EntryParams{Prompt: "hello"})
	waitFor(t, func() bool { return !h.session.Sending() }, "reply applied")
	waitFor(t, func() bool { return h.store.saveCount() > 0 }, "first flush")
	saves := h.store.saveCount()

	provider.SignOut()
	waitForState(t, h.session, StateRedirecting)

	require.False(t, h.session.Initialized())
	require.Empty(t, h.session.Messages())

	time.Sleep(3 * testDurations().Debounce)
	require.Equal(t, saves, h.store.saveCount())
}

func TestIdentitySwitchIsolatesPartitions(t *testing.T) {
	provider := identity.NewSignedIn("alice@example.com")
	h := newHarness(t, provider)

	h.session.Resolve(EntryParams{Prompt: "alice's question"})
	waitFor(t, func() bool { return !h.session.Sending() }, "reply applied")
	waitFor(t, func() bool { return len(h.store.saved("chatHistory_alice@example.com")) == 1 }, "alice flushed")
	aliceID := h.session.CurrentID()

	provider.SignIn("bob@example.com")
	waitFor(t, func() bool {
		return h.session.Initialized() && h.session.CurrentID() != aliceID
	}, "re-resolved under new identity")
	waitFor(t, func() bool { return !h.session.Sending() }, "bob's reply applied")
	waitFor(t, func() bool { return len(h.store.saved("chatHistory_bob@example.com")) == 1 }, "bob flushed")

	// Nothing of alice's session may leak into bob's partition, and
	// alice's record must be untouched.
	aliceIdx := h.store.saved("chatHistory_alice@example.com")
	bobIdx := h.store.saved("chatHistory_bob@example.com")
	require.Len(t, aliceIdx, 1)
	require.Len(t, bobIdx, 1)
	require.Equal(t, aliceID, aliceIdx[0].ID)
	require.NotEqual(t, aliceID, bobIdx[0].ID)
}

func TestExternalRefreshMergesOtherWriters(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))

	h.session.Resolve(EntryParams{Prompt: "mine"})
	waitFor(t, func() bool { return !h.session.Sending() }, "reply applied")
	mine := h.session.CurrentID()

	// Another process rewrites the partition with an extra conversation
	// and a stale copy of ours.
	stale := seededConversation(mine, "mine", "mine")
	other := seededConversation("conv-other", "theirs", "theirs", "sure")
	h.store.seed("chatHistory_alice@example.com", conversation.Index{other, stale})

	h.session.ExternalRefresh("chatHistory_alice_example.com")
	waitFor(t, func() bool { return len(h.session.History()) == 2 }, "index refreshed")

	// The live log stays authoritative over the stale external copy.
	idx := h.session.History()
	cur := idx.Find(mine)
	require.NotNil(t, cur)
	require.Len(t, cur.Messages, 2)
	require.NotNil(t, idx.Find("conv-other"))
}

func TestExternalRefreshIgnoresForeignKeys(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))

	h.session.Resolve(EntryParams{Prompt: "mine"})
	waitFor(t, func() bool { return !h.session.Sending() }, "reply applied")

	h.store.seed("chatHistory_bob@example.com", conversation.Index{
		seededConversation("conv-bob", "bob", "bob", "yes"),
	})
	h.session.ExternalRefresh("chatHistory_bob_example.com")

	time.Sleep(20 * time.Millisecond)
	require.Len(t, h.session.History(), 1)
}

func TestSwitchAdoptsStoredConversation(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))
	h.store.seed("chatHistory_alice@example.com", conversation.Index{
		seededConversation("conv-1", "first", "first", "reply one"),
		seededConversation("conv-2", "second", "second", "reply two"),
	})

	h.session.Resolve(EntryParams{ConversationID: "conv-1"})
	waitForState(t, h.session, StateReady)

	require.NoError(t, h.session.Switch("conv-2"))
	require.Equal(t, "conv-2", h.session.CurrentID())
	msgs := h.session.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "reply two", msgs[1].Content)

	// The previous conversation keeps its messages in the index.
	prev := h.session.History().Find("conv-1")
	require.NotNil(t, prev)
	require.Len(t, prev.Messages, 2)
}

func TestSwitchUnknownIDFails(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))
	h.store.seed("chatHistory_alice@example.com", conversation.Index{
		seededConversation("conv-1", "first", "first", "reply one"),
	})

	h.session.Resolve(EntryParams{ConversationID: "conv-1"})
	waitForState(t, h.session, StateReady)

	require.ErrorIs(t, h.session.Switch("no-such-id"), ErrConversationNotFound)
	require.Equal(t, "conv-1", h.session.CurrentID())
}

func TestSwitchRejectedWhileSending(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))
	h.generator.delay = time.Second
	h.store.seed("chatHistory_alice@example.com", conversation.Index{
		seededConversation("conv-2", "second", "second", "reply two"),
	})

	h.session.Resolve(EntryParams{Prompt: "slow one"})
	waitFor(t, func() bool { return h.session.Sending() }, "send in flight")

	require.ErrorIs(t, h.session.Switch("conv-2"), ErrSendInFlight)
	require.ErrorIs(t, h.session.StartNew(), ErrSendInFlight)
}

func TestStartNewClearsLiveConversation(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))

	h.session.Resolve(EntryParams{Prompt: "origin"})
	waitFor(t, func() bool { return !h.session.Sending() }, "reply applied")
	first := h.session.CurrentID()

	require.NoError(t, h.session.StartNew())
	require.Empty(t, h.session.CurrentID())
	require.Empty(t, h.session.Messages())
	require.True(t, h.session.Initialized())

	// The folded conversation survives in the index, and the next send
	// opens a distinct one.
	require.NotNil(t, h.session.History().Find(first))
	require.NoError(t, h.session.Send("fresh start"))
	waitFor(t, func() bool { return !h.session.Sending() }, "reply applied")
	require.NotEqual(t, first, h.session.CurrentID())
	require.Len(t, h.session.History(), 2)
}
