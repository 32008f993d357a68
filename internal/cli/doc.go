// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements quill's non-TUI surfaces: the plain line-based
// REPL (-plain) and the one-shot ask mode used for piped input. Both sit
// on the same session engine as the TUI, so the turn protocol, context
// history, and error handling are identical across surfaces.
package cli
