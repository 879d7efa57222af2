// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// geniotext.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.geniotext/config.toml
//   - ~/.geniotext/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/JoaoDevFullStack/genio-text/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete geniotext configuration.
type Config struct {
	// Generate configures the text generation endpoint.
	Generate GenerateConfig `toml:"generate" json:"generate"`

	// Storage configures where conversation history lives.
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Session configures the session manager's timing knobs.
	Session SessionConfig `toml:"session" json:"session"`

	// UI configures the interactive front ends.
	UI UIConfig `toml:"ui" json:"ui"`
}

// GenerateConfig contains generation endpoint configuration.
type GenerateConfig struct {
	// BaseURL is the generation service base URL.
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// StorageConfig contains history storage configuration.
type StorageConfig struct {
	// Backend selects the store: "file" or "sqlite".
	Backend string `toml:"backend" json:"backend"`
	// Dir is the history directory for the file backend
	// (empty = ~/.geniotext/history).
	Dir string `toml:"dir" json:"dir"`
	// DatabasePath is the database file for the sqlite backend
	// (empty = ~/.geniotext/geniotext.db).
	DatabasePath string `toml:"database_path" json:"database_path"`
	// WatchExternal reloads history rewritten by another process.
	// File backend only.
	WatchExternal bool `toml:"watch_external" json:"watch_external"`
}

// SessionConfig contains session manager timing configuration.
// Zero values mean "use the built-in default".
type SessionConfig struct {
	// ResumeWindowMs bounds resume-by-id retries (default 2000).
	ResumeWindowMs int `toml:"resume_window_ms" json:"resume_window_ms"`
	// ResumeProbeMs is the retry interval within the window (default 100).
	ResumeProbeMs int `toml:"resume_probe_ms" json:"resume_probe_ms"`
	// CosmeticDelayMs holds a finished reply briefly before it replaces
	// its placeholder (default 1500).
	CosmeticDelayMs int `toml:"cosmetic_delay_ms" json:"cosmetic_delay_ms"`
	// DebounceMs is the write-back quiet period (default 500).
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms"`
	// RevealIntervalMs is the progressive reveal cadence (default 20).
	RevealIntervalMs int `toml:"reveal_interval_ms" json:"reveal_interval_ms"`
}

// UIConfig contains front-end configuration.
type UIConfig struct {
	// Markdown renders assistant replies as markdown in the TUI.
	Markdown bool `toml:"markdown" json:"markdown"`
	// WordWrap is the render width for markdown (0 = terminal width).
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
	// ShowTimestamps prefixes transcript lines with wall-clock times.
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with all default values.
func Default() *Config {
	return &Config{
		Generate: GenerateConfig{
			BaseURL:     "http://127.0.0.1:8080",
			TimeoutSecs: 60,
		},
		Storage: StorageConfig{
			Backend:       "file",
			WatchExternal: true,
		},
		Session: SessionConfig{
			ResumeWindowMs:   2000,
			ResumeProbeMs:    100,
			CosmeticDelayMs:  1500,
			DebounceMs:       500,
			RevealIntervalMs: 20,
		},
		UI: UIConfig{
			Markdown: true,
		},
	}
}

// SetDefaults fills any zero-valued fields with defaults.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Generate.BaseURL == "" {
		c.Generate.BaseURL = def.Generate.BaseURL
	}
	if c.Generate.TimeoutSecs <= 0 {
		c.Generate.TimeoutSecs = def.Generate.TimeoutSecs
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if c.Session.ResumeWindowMs <= 0 {
		c.Session.ResumeWindowMs = def.Session.ResumeWindowMs
	}
	if c.Session.ResumeProbeMs <= 0 {
		c.Session.ResumeProbeMs = def.Session.ResumeProbeMs
	}
	if c.Session.CosmeticDelayMs < 0 {
		c.Session.CosmeticDelayMs = def.Session.CosmeticDelayMs
	}
	if c.Session.DebounceMs <= 0 {
		c.Session.DebounceMs = def.Session.DebounceMs
	}
	if c.Session.RevealIntervalMs <= 0 {
		c.Session.RevealIntervalMs = def.Session.RevealIntervalMs
	}
}

// Timeout returns the generation request timeout.
func (g GenerateConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// =============================================================================
// FILE LOCATIONS
// =============================================================================

// ConfigDir returns the geniotext configuration directory (~/.geniotext).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".geniotext"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}
	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from an explicit file path. The
// format is chosen by extension: ".json" is JSON, everything else TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = loadJSON(cfg, path)
	} else {
		err = loadTOML(cfg, path)
	}
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

func loadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with restrictive
// permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# geniotext configuration file\n")
	sb.WriteString("# Generated by geniotext - edit with care\n\n")
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with restrictive
// permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Generate.BaseURL != "" {
		u, err := url.Parse(c.Generate.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "generate.base_url",
				Message: fmt.Sprintf("invalid URL %q", c.Generate.BaseURL),
			})
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, ValidationError{
				Field:   "generate.base_url",
				Message: fmt.Sprintf("unsupported scheme %q", u.Scheme),
			})
		}
	}
	if c.Generate.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "generate.timeout_secs",
			Message: "must not be negative",
		})
	}

	switch c.Storage.Backend {
	case "", "file", "sqlite":
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("unknown backend %q (want \"file\" or \"sqlite\")", c.Storage.Backend),
		})
	}

	if c.Session.ResumeWindowMs < 0 {
		errs = append(errs, ValidationError{Field: "session.resume_window_ms", Message: "must not be negative"})
	}
	if c.Session.ResumeProbeMs < 0 {
		errs = append(errs, ValidationError{Field: "session.resume_probe_ms", Message: "must not be negative"})
	}
	if c.Session.CosmeticDelayMs < 0 {
		errs = append(errs, ValidationError{Field: "session.cosmetic_delay_ms", Message: "must not be negative"})
	}
	if c.Session.DebounceMs < 0 {
		errs = append(errs, ValidationError{Field: "session.debounce_ms", Message: "must not be negative"})
	}
	if c.Session.RevealIntervalMs < 0 {
		errs = append(errs, ValidationError{Field: "session.reveal_interval_ms", Message: "must not be negative"})
	}
	if c.UI.WordWrap < 0 {
		errs = append(errs, ValidationError{Field: "ui.word_wrap", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - GENIOTEXT_BASE_URL: overrides generate.base_url
//   - GENIOTEXT_TIMEOUT_SECS: overrides generate.timeout_secs
//   - GENIOTEXT_STORAGE_BACKEND: overrides storage.backend
//   - GENIOTEXT_STORAGE_DIR: overrides storage.dir
//   - GENIOTEXT_DATABASE_PATH: overrides storage.database_path
//   - GENIOTEXT_NO_MARKDOWN: set to "1" or "true" to disable markdown
func (c *Config) ApplyEnvOverrides() {
	if baseURL := os.Getenv("GENIOTEXT_BASE_URL"); baseURL != "" {
		c.Generate.BaseURL = baseURL
	}
	if secs := os.Getenv("GENIOTEXT_TIMEOUT_SECS"); secs != "" {
		var n int
		if _, err := fmt.Sscanf(secs, "%d", &n); err == nil && n > 0 {
			c.Generate.TimeoutSecs = n
		}
	}
	if backend := os.Getenv("GENIOTEXT_STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if dir := os.Getenv("GENIOTEXT_STORAGE_DIR"); dir != "" {
		c.Storage.Dir = dir
	}
	if dbPath := os.Getenv("GENIOTEXT_DATABASE_PATH"); dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}
	if noMD := os.Getenv("GENIOTEXT_NO_MARKDOWN"); noMD != "" {
		if noMD == "1" || strings.EqualFold(noMD, "true") {
			c.UI.Markdown = false
		}
	}
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
// Disarms the lazy load so a later Global() cannot clobber the value.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
