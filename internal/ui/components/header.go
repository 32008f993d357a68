// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/quillchat/quill/internal/ui/styles"
	"github.com/quillchat/quill/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the top title bar showing the application name and model.
type Header struct {
	Title string
	Model string
	Width int
	theme *styles.Theme
}

// NewHeader creates a header.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "quill",
		Width: 80,
		theme: theme,
	}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetModel sets the displayed model name.
func (h *Header) SetModel(model string) {
	h.Model = model
}

// View renders the header.
func (h *Header) View() string {
	title := h.theme.HeaderTitle.Render(h.Title)

	var subtitle string
	if h.Model != "" {
		// Long model tags get clipped rather than wrapping the bar.
		name := util.TruncateWidth(h.Model, h.Width/2)
		subtitle = h.theme.HeaderSubtitle.Render(name)
	}

	line := title
	if subtitle != "" {
		line = title + "  " + subtitle
	}

	return lipgloss.NewStyle().
		Width(h.Width).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		Render(line)
}
