// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"errors"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// Request is the generation round-trip request body.
type Request struct {
	Prompt string `json:"prompt"`
}

// Response is the generation round-trip success body.
type Response struct {
	GeneratedText string `json:"generatedText"`
}

// errorBody is the structured failure body returned by the endpoint.
type errorBody struct {
	Error string `json:"error"`
}

// =============================================================================
// GENERATOR INTERFACE
// =============================================================================

// Generator is the round-trip the session consumes. Implementations
// return the generated text or a *ClientError describing the failure.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// FailureStatus categorizes round-trip failures for handling.
type FailureStatus int

const (
	StatusGeneric FailureStatus = iota
	StatusUnauthorized
	StatusRateLimited
	StatusOverloaded
)

// String returns the status name for logging.
func (s FailureStatus) String() string {
	switch s {
	case StatusUnauthorized:
		return "unauthorized"
	case StatusRateLimited:
		return "rate-limited"
	case StatusOverloaded:
		return "overloaded"
	default:
		return "generic"
	}
}

// GenericFailureMessage is shown when the endpoint supplied no usable
// error message.
const GenericFailureMessage = "Failed to generate a reply."

// ClientError represents a failed generation round-trip. Message is
// intended for direct display on the failed turn, except for
// unauthorized failures, which trigger redirection instead.
type ClientError struct {
	Status  FailureStatus
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// IsUnauthorized checks whether an error is an authorization failure.
func IsUnauthorized(err error) bool {
	return failureStatus(err) == StatusUnauthorized
}

// IsRateLimited checks whether an error is a rate-limit failure.
func IsRateLimited(err error) bool {
	return failureStatus(err) == StatusRateLimited
}

// IsOverloaded checks whether an error is an overload failure.
func IsOverloaded(err error) bool {
	return failureStatus(err) == StatusOverloaded
}

func failureStatus(err error) FailureStatus {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Status
	}
	return StatusGeneric
}

// UserMessage extracts the display message for a failed round-trip.
func UserMessage(err error) string {
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Message != "" {
		return clientErr.Message
	}
	return GenericFailureMessage
}
