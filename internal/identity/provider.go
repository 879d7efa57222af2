// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import "sync"

// =============================================================================
// PROVIDER INTERFACE
// =============================================================================

// Status is the tri-state resolution status of the identity collaborator.
type Status int

const (
	// StatusResolving means the collaborator has not finished resolving
	// the current identity yet. Consumers must wait, not assume signed-out.
	StatusResolving Status = iota
	// StatusSignedIn means a stable identity string is available.
	StatusSignedIn
	// StatusSignedOut means no identity is present.
	StatusSignedOut
)

// String returns the status name for logging.
func (s Status) String() string {
	switch s {
	case StatusResolving:
		return "resolving"
	case StatusSignedIn:
		return "signed-in"
	case StatusSignedOut:
		return "signed-out"
	default:
		return "unknown"
	}
}

// Provider exposes the current authentication state. Implementations
// must be safe for concurrent use.
type Provider interface {
	// Status returns the current resolution status.
	Status() Status
	// Identity returns the stable opaque identity string. Only
	// meaningful while Status() == StatusSignedIn.
	Identity() string
}

// Account carries the collaborator-supplied profile for a sign-in.
type Account struct {
	Identity string
	Name     string
	Image    string
}

// =============================================================================
// STATIC PROVIDER
// =============================================================================

// StaticProvider is a Provider with settable state, used for wiring a
// fixed identity at startup and for driving identity transitions in
// tests.
type StaticProvider struct {
	mu       sync.Mutex
	status   Status
	identity string
	onChange func()
}

// NewStaticProvider creates a provider in the resolving state.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{status: StatusResolving}
}

// NewSignedIn creates a provider already signed in as the given identity.
// An empty identity yields a signed-out provider.
func NewSignedIn(id string) *StaticProvider {
	if id == "" {
		return &StaticProvider{status: StatusSignedOut}
	}
	return &StaticProvider{status: StatusSignedIn, identity: id}
}

// Status implements Provider.
func (p *StaticProvider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Identity implements Provider.
func (p *StaticProvider) Identity() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identity
}

// SignIn transitions to signed-in as the given identity.
func (p *StaticProvider) SignIn(id string) {
	p.set(StatusSignedIn, id)
}

// SignOut transitions to signed-out and clears the identity.
func (p *StaticProvider) SignOut() {
	p.set(StatusSignedOut, "")
}

// SetResolving returns the provider to the resolving state.
func (p *StaticProvider) SetResolving() {
	p.set(StatusResolving, "")
}

// OnChange registers a hook invoked after every state transition.
func (p *StaticProvider) OnChange(fn func()) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

func (p *StaticProvider) set(status Status, id string) {
	p.mu.Lock()
	p.status = status
	p.identity = id
	hook := p.onChange
	p.mu.Unlock()

	if hook != nil {
		hook()
	}
}
