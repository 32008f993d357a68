// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/quillchat/quill/internal/ui/components"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat screen: header, transcript, input, status bar.
func (m *Model) View() string {
	if !m.ready {
		return "Starting quill..."
	}

	sections := []string{
		m.header.View(),
		m.viewport.View(),
		m.inputView(),
		m.statusBar.View(),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// inputView renders the prompt line. While a response is streaming the
// input is replaced by the spinner so the user cannot type into a turn
// that would be rejected anyway.
func (m *Model) inputView() string {
	if m.streaming {
		waiting := m.spinner.View() + " " + m.theme.ThinkingText.Render(m.waitingText())
		return m.theme.InputContainer.Width(m.width - 2).Render(waiting)
	}

	prompt := m.theme.InputPrompt.Render("> ")
	return m.theme.InputContainer.Width(m.width - 2).Render(prompt + m.input.View())
}

func (m *Model) waitingText() string {
	elapsed := time.Since(m.streamStart).Round(time.Second)
	if m.statusBar.Status == components.StatusStreaming {
		return "Streaming response... " + elapsed.String() + " (esc to cancel)"
	}
	return "Waiting for response... " + elapsed.String() + " (esc to cancel)"
}
