// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns assistant markdown into terminal output.
//
// The pipeline has three stages: fence-aware splitting (fenced code blocks
// are never re-flowed or sanitized), an HTML allow-list pass over prose
// segments (skipping inline code spans, whose content is literal text), and
// glamour rendering to ANSI. Every stage degrades to plain
// text on failure; a message is never dropped because it failed to render.
//
// Syntax highlighting is a separate, pure pass (Highlight) so callers that
// bypass glamour, such as the streaming transcript view, can still colorize
// code blocks.
package render
