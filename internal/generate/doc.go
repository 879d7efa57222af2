// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package generate provides the HTTP client for the text generation
// endpoint.
//
// The endpoint accepts {"prompt": text} and returns {"generatedText":
// text}. Failures are classified by HTTP status into the categories the
// session acts on: unauthorized (redirect), rate-limited and overloaded
// (shown inline on the failed turn), and generic. The error body's
// "error" field is the user-visible message; an unreadable body falls
// back to a generic message.
package generate
