// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/JoaoDevFullStack/genio-text/internal/conversation"
	"github.com/JoaoDevFullStack/genio-text/internal/generate"
	"github.com/JoaoDevFullStack/genio-text/internal/identity"
	"github.com/JoaoDevFullStack/genio-text/internal/storage"
)

// =============================================================================
// STATE MACHINE
// =============================================================================

// State is the loader's finite state machine. Transitions are gated on
// identity status, entry parameters, and index availability, which keeps
// the overlapping-trigger races out of the callers.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateResuming
	StateCreating
	StateReady
	StateRedirecting
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateResuming:
		return "resuming"
	case StateCreating:
		return "creating"
	case StateReady:
		return "ready"
	case StateRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Durations collects every timing knob of the session. Tests inject
// millisecond values; production uses the defaults.
type Durations struct {
	// ResumeWindow bounds how long the loader keeps retrying a
	// resume-by-id lookup before concluding the conversation does not
	// exist (default 2s). The window exists because identity resolution
	// and index loading can complete after the id is already known.
	ResumeWindow time.Duration

	// ResumeProbe is the interval between loader retries (default 100ms).
	ResumeProbe time.Duration

	// CosmeticDelay is applied before a successful reply replaces its
	// placeholder, so the response never appears implausibly instant
	// (default 1.5s).
	CosmeticDelay time.Duration

	// Debounce is how long the message log must stay quiet before the
	// synchronizer folds it into the durable index (default 500ms).
	Debounce time.Duration

	// RevealInterval is the cadence of the progressive reveal
	// (default 20ms per increment).
	RevealInterval time.Duration
}

// DefaultDurations returns the production timing values.
func DefaultDurations() Durations {
	return Durations{
		ResumeWindow:   2000 * time.Millisecond,
		ResumeProbe:    100 * time.Millisecond,
		CosmeticDelay:  1500 * time.Millisecond,
		Debounce:       500 * time.Millisecond,
		RevealInterval: 20 * time.Millisecond,
	}
}

// Config wires a Session to its collaborators.
type Config struct {
	Provider  identity.Provider
	Store     storage.Store
	Generator generate.Generator
	Durations Durations
	Logger    zerolog.Logger

	// EventBuffer sizes the event channel (default 128).
	EventBuffer int
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the conversation session manager. Construct with New,
// start with Resolve, drive with Send, consume Events, and Close when
// the surface unmounts.
type Session struct {
	mu sync.Mutex

	provider  identity.Provider
	store     storage.Store
	generator generate.Generator
	durations Durations
	log       zerolog.Logger

	// Loader state
	state          State
	params         EntryParams
	resolveStarted bool
	resumeDeadline time.Time
	resumeTimer    *time.Timer
	initialized    bool

	// Conversation state
	partition string
	currentID string
	messages  []conversation.Message
	index     conversation.Index

	// Pipeline state
	sending bool

	// Synchronizer state
	flushTimer *time.Timer

	// Reveal state
	reveal *revealTask

	// Teardown: epoch stamps every asynchronous completion; a mismatch
	// means the session was reset or torn down in the meantime and the
	// completion must not mutate anything.
	epoch  int
	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	events chan Event
}

// New creates a session. It performs no I/O; call Resolve to start.
func New(cfg Config) *Session {
	if cfg.Durations == (Durations{}) {
		cfg.Durations = DefaultDurations()
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 128
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		provider:  cfg.Provider,
		store:     cfg.Store,
		generator: cfg.Generator,
		durations: cfg.Durations,
		log:       cfg.Logger.With().Str("component", "session").Logger(),
		state:     StateUninitialized,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan Event, cfg.EventBuffer),
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the loader state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentID returns the bound conversation id, or "".
func (s *Session) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Initialized reports whether the loader has completed.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Sending reports whether a send is in flight.
func (s *Session) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Messages returns a snapshot of the in-memory message log.
func (s *Session) Messages() []conversation.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]conversation.Message(nil), s.messages...)
}

// History returns a snapshot of the cached conversation index.
func (s *Session) History() conversation.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Clone()
}

// =============================================================================
// TEARDOWN
// =============================================================================

// Close tears the session down: every pending timer is cleared and any
// in-flight round-trip's eventual completion is ignored. If the session
// is initialized and signed in, the current log is flushed one final
// time so a quit right after a reply does not lose it.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.epoch++
	s.cancel()
	s.stopTimersLocked()

	var (
		flushKey string
		flushIdx conversation.Index
	)
	if s.initialized && s.signedInLocked() && s.currentID != "" && len(s.messages) > 0 {
		s.foldLocked()
		flushKey = s.partition
		flushIdx = s.index.Clone()
	}
	close(s.events)
	s.mu.Unlock()

	if flushKey != "" {
		if err := s.store.Save(context.Background(), flushKey, flushIdx); err != nil {
			s.log.Warn().Err(err).Msg("final history flush failed")
		}
	}
	return nil
}

// stopTimersLocked clears the resume probe, the debounce timer, and any
// active reveal. Caller holds the mutex.
func (s *Session) stopTimersLocked() {
	if s.resumeTimer != nil {
		s.resumeTimer.Stop()
		s.resumeTimer = nil
	}
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
	s.cancelRevealLocked()
}

// signedInLocked reports whether the identity collaborator is currently
// signed in. Caller holds the mutex.
func (s *Session) signedInLocked() bool {
	return s.provider.Status() == identity.StatusSignedIn
}
