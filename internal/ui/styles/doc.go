// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the quill TUI.
//
// All colors use Lip Gloss AdaptiveColor so the palette adjusts to light
// and dark terminals automatically. A Theme bundles the configured styles
// and the detected terminal capabilities; the chat model holds one Theme
// and passes it down to components.
package styles
