// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the generation client.
type ClientConfig struct {
	// BaseURL of the generation service (default: http://127.0.0.1:8080)
	BaseURL string

	// Timeout for the round-trip (default: 60s; generation is slow)
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:8080",
		Timeout: 60 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client implements Generator against the HTTP generation endpoint.
// Safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a generation client.
func NewClient(config *ClientConfig, log zerolog.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8080"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		log:        log.With().Str("component", "generate").Logger(),
	}
}

// Generate implements Generator.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(Request{Prompt: prompt})
	if err != nil {
		return "", &ClientError{Status: StatusGeneric, Message: GenericFailureMessage, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", &ClientError{Status: StatusGeneric, Message: GenericFailureMessage, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Context cancellation propagates untouched so a torn-down
		// session can tell its own cancellation from a network fault.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.log.Warn().Err(err).Msg("generation request failed")
		return "", &ClientError{Status: StatusGeneric, Message: GenericFailureMessage, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.classify(resp)
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ClientError{Status: StatusGeneric, Message: GenericFailureMessage, Cause: err}
	}

	return result.GeneratedText, nil
}

// classify maps a non-success response to a ClientError, preferring the
// endpoint-supplied message over the status line.
func (c *Client) classify(resp *http.Response) *ClientError {
	message := GenericFailureMessage
	var parsed errorBody
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil && parsed.Error != "" {
		message = parsed.Error
	} else if resp.Status != "" {
		message = "Service error: " + resp.Status
	}

	status := StatusGeneric
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		status = StatusUnauthorized
	case http.StatusTooManyRequests:
		status = StatusRateLimited
	case http.StatusServiceUnavailable:
		status = StatusOverloaded
	}

	c.log.Warn().
		Int("status_code", resp.StatusCode).
		Str("classification", status.String()).
		Msg("generation request rejected")

	return &ClientError{Status: status, Message: message}
}
