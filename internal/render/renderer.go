// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// Renderer converts assistant markdown to styled terminal output.
// It is safe for concurrent use and safe to invoke repeatedly on
// progressively growing text during streaming.
type Renderer struct {
	mu           sync.Mutex
	term         *glamour.TermRenderer
	width        int
	allowRawHTML bool
	policy       *bluemonday.Policy
}

// Options configures a Renderer.
type Options struct {
	// Width is the word-wrap column (default: 80).
	Width int

	// AllowRawHTML disables the HTML allow-list and passes embedded
	// markup through unmodified. Off by default.
	AllowRawHTML bool
}

// NewRenderer creates a markdown renderer. If the underlying terminal
// renderer cannot be initialized, the returned Renderer still works and
// degrades to plain text.
func NewRenderer(opts Options) *Renderer {
	width := opts.Width
	if width <= 0 {
		width = 80
	}

	term, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		term = nil
	}

	return &Renderer{
		term:         term,
		width:        width,
		allowRawHTML: opts.AllowRawHTML,
		policy:       newSanitizerPolicy(),
	}
}

// Render converts markdown to ANSI output. It never fails: any error in
// sanitization or rendering degrades to the raw text so the message is
// always displayed.
func (r *Renderer) Render(text string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	prepared := text
	if !r.allowRawHTML {
		prepared = sanitizeProse(r.policy, text)
	}

	if r.term == nil {
		return prepared
	}

	rendered, err := r.term.Render(prepared)
	if err != nil {
		return prepared
	}
	return rendered
}

// SetWidth rebuilds the terminal renderer for a new wrap column, e.g. after
// a window resize. Degrades to plain text if the rebuild fails.
func (r *Renderer) SetWidth(width int) {
	if width <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if width == r.width {
		return
	}
	r.width = width

	term, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		r.term = nil
		return
	}
	r.term = term
}

// Width returns the current word-wrap column.
func (r *Renderer) Width() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width
}

// Sanitize applies the HTML allow-list to prose segments of the given
// markdown, leaving fenced code blocks and inline code spans untouched.
// Exposed for callers that render outside the glamour pipeline.
func (r *Renderer) Sanitize(text string) string {
	if r.allowRawHTML {
		return text
	}
	return sanitizeProse(r.policy, text)
}

// StripTrailingBlankLines trims the blank padding glamour appends, which
// inflates viewport height during streaming.
func StripTrailingBlankLines(s string) string {
	return strings.TrimRight(s, "\n") + "\n"
}
