// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// input.go - line editing and input history for the geniotext REPL.
package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/JoaoDevFullStack/genio-text/internal/config"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// InputCLI provides input history and line editing for the REPL.
// Supports arrow keys for history navigation.
type InputCLI struct {
	line        *liner.State
	historyFile string
}

// NewInputCLI creates an InputCLI with input history support.
func NewInputCLI() *InputCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &InputCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "repl_history"),
	}
	c.loadHistory()
	return c
}

func (c *InputCLI) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Non-blank
// input is appended to the history.
func (c *InputCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// saveHistory persists input history with secure permissions.
func (c *InputCLI) saveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *InputCLI) Close() {
	c.saveHistory()
	c.line.Close()
}
