// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/quillchat/quill/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status represents the current application status.
type Status int

const (
	StatusReady Status = iota
	StatusThinking
	StatusStreaming
	StatusError
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusThinking:
		return "Thinking..."
	case StatusStreaming:
		return "Streaming..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// StatusBar is the bottom bar showing state, model, and key shortcuts.
type StatusBar struct {
	Status    Status
	Model     string
	Connected bool
	StatsLine string
	Width     int
	theme     *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Status:    StatusReady,
		Connected: true,
		Width:     80,
		theme:     theme,
	}
}

// SetWidth sets the bar width.
func (sb *StatusBar) SetWidth(width int) {
	sb.Width = width
}

// View renders the status bar.
func (sb *StatusBar) View() string {
	var left []string

	if sb.Connected {
		left = append(left, sb.theme.StatusConnected.Render("ollama"))
	} else {
		left = append(left, sb.theme.StatusError.Render("offline"))
	}

	if sb.Model != "" {
		left = append(left, sb.Model)
	}
	left = append(left, sb.statusText())

	if sb.StatsLine != "" {
		left = append(left, sb.theme.StatsBar.Render(sb.StatsLine))
	}

	leftStr := strings.Join(left, "  ")

	shortcuts := sb.theme.ShortcutKey.Render("ctrl+c") +
		sb.theme.ShortcutDesc.Render(" quit  ") +
		sb.theme.ShortcutKey.Render("esc") +
		sb.theme.ShortcutDesc.Render(" clear input")

	// lipgloss.Width is ANSI-aware; the strings are already styled.
	gap := sb.Width - lipgloss.Width(leftStr) - lipgloss.Width(shortcuts) - 2
	if gap < 1 {
		gap = 1
	}

	bar := leftStr + strings.Repeat(" ", gap) + shortcuts
	return sb.theme.StatusBar.Width(sb.Width).Render(bar)
}

func (sb *StatusBar) statusText() string {
	switch sb.Status {
	case StatusError:
		return sb.theme.StatusError.Render(sb.Status.String())
	case StatusThinking, StatusStreaming:
		return sb.theme.ThinkingText.Render(sb.Status.String())
	default:
		return sb.Status.String()
	}
}

// Center centers a string within the given width.
func Center(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(s)
}
