// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"

	"golang.org/x/term"
)

// =============================================================================
// TERMINAL DETECTION
// =============================================================================

// IsInteractive reports whether both stdin and stdout are terminals. Piped
// input or redirected output selects the one-shot ask path.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// StdinIsPipe reports whether stdin is not a terminal.
func StdinIsPipe() bool {
	return !term.IsTerminal(int(os.Stdin.Fd()))
}

// TerminalWidth returns the stdout width, or 80 when it cannot be
// determined.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
