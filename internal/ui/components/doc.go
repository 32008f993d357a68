// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the quill TUI.
//
// Components are pure view helpers: they take state and a theme and return
// rendered strings. They never mutate session state.
//
// MessageBubble (message.go) - Styled bubbles for transcript messages.
// CodeBlock (codeblock.go) - Bordered, highlighted fenced code blocks.
// Header (header.go) - Top title bar with model name.
// StatusBar (statusbar.go) - Bottom bar with connection state and shortcuts.
package components
