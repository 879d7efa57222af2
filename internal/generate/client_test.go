// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(&ClientConfig{BaseURL: srv.URL}, zerolog.Nop())
	return client, srv
}

func TestClient_Success(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Prompt != "café" {
			t.Errorf("prompt = %q, want %q", req.Prompt, "café")
		}
		json.NewEncoder(w).Encode(Response{GeneratedText: "um cafezinho"})
	})
	defer srv.Close()

	text, err := client.Generate(context.Background(), "café")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "um cafezinho" {
		t.Errorf("text = %q, want %q", text, "um cafezinho")
	}
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		check      func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, IsUnauthorized},
		{"rate limited", http.StatusTooManyRequests, IsRateLimited},
		{"overloaded", http.StatusServiceUnavailable, IsOverloaded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				json.NewEncoder(w).Encode(map[string]string{"error": "service says no"})
			})
			defer srv.Close()

			_, err := client.Generate(context.Background(), "x")
			if err == nil {
				t.Fatal("expected an error")
			}
			if !tt.check(err) {
				t.Errorf("classification check failed for %v", err)
			}
			if got := UserMessage(err); got != "service says no" {
				t.Errorf("UserMessage = %q, want endpoint-supplied message", got)
			}
		})
	}
}

func TestClient_GenericFailureWithUnreadableBody(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("not json"))
	})
	defer srv.Close()

	_, err := client.Generate(context.Background(), "x")
	if err == nil {
		t.Fatal("expected an error")
	}
	if IsUnauthorized(err) || IsRateLimited(err) || IsOverloaded(err) {
		t.Errorf("500 should classify as generic, got %v", err)
	}

	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected *ClientError, got %T", err)
	}
	if clientErr.Message == "" {
		t.Error("expected a fallback message")
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		<-block
	})
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestUserMessage_Fallback(t *testing.T) {
	if got := UserMessage(errors.New("boom")); got != GenericFailureMessage {
		t.Errorf("UserMessage = %q, want generic fallback", got)
	}
}
