// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/quillchat/quill/internal/render"
	"github.com/quillchat/quill/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK COMPONENT
// =============================================================================

// CodeBlock renders one fenced code block with a language badge, border,
// and syntax highlighting. Whitespace inside the block is preserved exactly.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int
	theme    *styles.Theme
}

// NewCodeBlock creates a new code block.
func NewCodeBlock(language, code string, theme *styles.Theme) CodeBlock {
	return CodeBlock{
		Language: language,
		Code:     code,
		MaxWidth: 80,
		theme:    theme,
	}
}

// SetMaxWidth sets the maximum width for the code block.
func (c *CodeBlock) SetMaxWidth(width int) {
	c.MaxWidth = width
}

// View renders the code block. Highlighting failure never drops content;
// the block falls back to plain text.
func (c CodeBlock) View() string {
	language := c.Language
	if language == "" {
		language = render.DetectLanguage(c.Code)
	}

	highlighted := render.Highlight(strings.TrimRight(c.Code, "\n"), language)

	var header string
	if c.Language != "" {
		header = c.theme.CodeLangBadge.Render(c.Language) + "\n"
	}

	maxWidth := c.MaxWidth - 4
	if maxWidth < 20 {
		maxWidth = 20
	}

	return c.theme.CodeBlock.MaxWidth(maxWidth).Render(header + highlighted)
}

// =============================================================================
// STREAMING MARKDOWN HELPERS
// =============================================================================

// RenderMessageMarkdown renders message text for the live streaming view:
// fenced blocks become CodeBlock components and inline code gets styled,
// without the full glamour pass (too expensive per chunk).
func RenderMessageMarkdown(text string, maxWidth int, theme *styles.Theme) string {
	lines := strings.Split(text, "\n")
	var result []string
	var codeLines []string
	var language string
	var inCodeBlock bool

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			if inCodeBlock {
				cb := NewCodeBlock(language, strings.Join(codeLines, "\n"), theme)
				cb.SetMaxWidth(maxWidth)
				result = append(result, cb.View())
				codeLines = nil
				language = ""
				inCodeBlock = false
			} else {
				language = strings.TrimSpace(strings.TrimPrefix(line, "```"))
				inCodeBlock = true
			}
			continue
		}
		if inCodeBlock {
			codeLines = append(codeLines, line)
		} else {
			result = append(result, renderInlineCode(line, theme))
		}
	}

	// An unclosed fence mid-stream still displays as a code block.
	if inCodeBlock && len(codeLines) > 0 {
		cb := NewCodeBlock(language, strings.Join(codeLines, "\n"), theme)
		cb.SetMaxWidth(maxWidth)
		result = append(result, cb.View())
	}

	return strings.Join(result, "\n")
}

// renderInlineCode replaces `code` spans with styled inline code.
func renderInlineCode(text string, theme *styles.Theme) string {
	if !strings.Contains(text, "`") {
		return text
	}

	var result strings.Builder
	var codeBuffer strings.Builder
	var inCode bool

	for _, r := range text {
		switch {
		case r == '`' && inCode:
			result.WriteString(theme.InlineCode.Render(codeBuffer.String()))
			codeBuffer.Reset()
			inCode = false
		case r == '`':
			inCode = true
		case inCode:
			codeBuffer.WriteRune(r)
		default:
			result.WriteRune(r)
		}
	}

	// Unclosed backtick: emit it literally.
	if inCode {
		result.WriteString("`")
		result.WriteString(codeBuffer.String())
	}

	return result.String()
}
