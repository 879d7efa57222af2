// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the geniotext TUI.
//
// Colors are defined once as Lip Gloss AdaptiveColor values so light and
// dark terminals both get readable output, and Theme bundles every
// styled component the chat view uses. Construct a Theme with NewTheme
// at startup and pass it down; styles are cheap to copy but the theme
// is shared so the whole UI stays consistent.
package styles
