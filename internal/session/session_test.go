// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/JoaoDevFullStack/genio-text/internal/conversation"
	"github.com/JoaoDevFullStack/genio-text/internal/identity"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type memStore struct {
	mu       sync.Mutex
	data     map[string]conversation.Index
	saves    int
	failSave bool
}

func newMemStore() *memStore {
	return &memStore{data: map[string]conversation.Index{}}
}

func (m *memStore) Load(_ context.Context, key string) (conversation.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key].Clone(), nil
}

func (m *memStore) Save(_ context.Context, key string, idx conversation.Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("save refused")
	}
	m.data[key] = idx.Clone()
	m.saves++
	return nil
}

func (m *memStore) saved(key string) conversation.Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key].Clone()
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memStore) seed(key string, idx conversation.Index) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = idx.Clone()
}

type scriptedGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	delay time.Duration
	calls []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, prompt)
	reply, err, delay := g.reply, g.err, g.delay
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return reply, err
}

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *scriptedGenerator) set(reply string, err error) {
	g.mu.Lock()
	g.reply = reply
	g.err = err
	g.mu.Unlock()
}

// =============================================================================
// HARNESS
// =============================================================================

func testDurations() Durations {
	return Durations{
		ResumeWindow:   200 * time.Millisecond,
		ResumeProbe:    10 * time.Millisecond,
		CosmeticDelay:  10 * time.Millisecond,
		Debounce:       20 * time.Millisecond,
		RevealInterval: time.Millisecond,
	}
}

type harness struct {
	session   *Session
	provider  *identity.StaticProvider
	store     *memStore
	generator *scriptedGenerator
}

func newHarness(t *testing.T, provider *identity.StaticProvider) *harness {
	t.Helper()
	h := &harness{
		provider:  provider,
		store:     newMemStore(),
		generator: &scriptedGenerator{reply: "a reply"},
	}
	h.session = New(Config{
		Provider:  provider,
		Store:     h.store,
		Generator: h.generator,
		Durations: testDurations(),
		Logger:    zerolog.Nop(),
	})
	provider.OnChange(h.session.HandleIdentityChanged)
	t.Cleanup(func() { h.session.Close() })
	return h
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition never held: %s", msg)
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()
	waitFor(t, func() bool { return s.State() == want }, "state "+want.String())
}

// drainUntilRedirect consumes events until an EventRedirect arrives.
func drainUntilRedirect(t *testing.T, s *Session) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				t.Fatal("event channel closed before redirect")
			}
			if ev.Type == EventRedirect {
				return
			}
		case <-deadline:
			t.Fatal("no redirect event")
		}
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestCloseIsIdempotent(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))
	require.NoError(t, h.session.Close())
	require.NoError(t, h.session.Close())
}

func TestCloseFlushesPendingWork(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))
	h.session.Resolve(EntryParams{Prompt: "keep this"})
	waitFor(t, func() bool { return !h.session.Sending() }, "reply applied")

	// Close well inside the debounce window; the final flush must still
	// write the log.
	require.NoError(t, h.session.Close())

	idx := h.store.saved("chatHistory_alice@example.com")
	require.Len(t, idx, 1)
	require.Len(t, idx[0].Messages, 2)
	require.Equal(t, "keep this", idx[0].Messages[0].Content)
	require.Equal(t, "a reply", idx[0].Messages[1].Content)
}

func TestCloseOrphansInFlightRoundTrip(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))
	h.generator.delay = time.Second

	h.session.Resolve(EntryParams{Prompt: "slow one"})
	waitFor(t, func() bool { return h.generator.callCount() == 1 }, "generator called")
	require.NoError(t, h.session.Close())

	// The orphaned completion must not panic or resurrect state.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, StateReady, h.session.State())
}

func TestEventsChannelClosesOnClose(t *testing.T) {
	h := newHarness(t, identity.NewSignedIn("alice@example.com"))
	require.NoError(t, h.session.Close())

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-h.session.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event channel never closed")
		}
	}
}
