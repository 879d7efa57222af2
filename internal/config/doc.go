// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// geniotext.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - GenerateConfig: Text generation endpoint settings
//   - StorageConfig: Conversation history backend settings
//   - SessionConfig: Session manager timing knobs
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (GENIOTEXT_*)
//   - ~/.geniotext/config.toml
//   - ~/.geniotext/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	baseURL := cfg.Generate.BaseURL
//	timeout := cfg.Generate.Timeout()
package config
