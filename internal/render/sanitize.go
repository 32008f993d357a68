// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// =============================================================================
// HTML SANITIZATION
// =============================================================================

// SECURITY: Generated text may embed raw HTML. Rather than passing it
// through unrestricted, prose segments go through an explicit allow-list:
// basic formatting tags survive, everything else (script, iframe, event
// handlers) is stripped. Fenced code blocks and inline code spans are
// exempt; their content is literal text, never markup.

// newSanitizerPolicy builds the allow-list policy for prose segments.
func newSanitizerPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	// Inline formatting
	p.AllowElements("b", "i", "em", "strong", "s", "del", "u", "sub", "sup")

	// Code and structure
	p.AllowElements("code", "pre", "p", "br", "hr", "blockquote")
	p.AllowElements("ul", "ol", "li")
	p.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")

	// Links with safe URL schemes only
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()

	return p
}

// =============================================================================
// FENCE-AWARE SEGMENTATION
// =============================================================================

// segment is one fence-delimited slice of a markdown document.
type segment struct {
	code     bool
	language string
	content  string
}

// splitFences splits markdown text into alternating prose and fenced-code
// segments. An unclosed trailing fence is treated as code, so the splitter
// is safe on progressively growing text mid-stream.
func splitFences(text string) []segment {
	lines := strings.Split(text, "\n")
	var segments []segment
	var current []string
	var inCode bool
	var language string

	flush := func(code bool, lang string) {
		if len(current) == 0 {
			return
		}
		segments = append(segments, segment{
			code:     code,
			language: lang,
			content:  strings.Join(current, "\n"),
		})
		current = nil
	}

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inCode {
				flush(true, language)
				inCode = false
				language = ""
			} else {
				flush(false, "")
				inCode = true
				language = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
			}
			continue
		}
		current = append(current, line)
	}
	flush(inCode, language)

	return segments
}

// joinFences reassembles segments into markdown, restoring fence markers.
func joinFences(segments []segment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString("\n")
		}
		if seg.code {
			b.WriteString("```")
			b.WriteString(seg.language)
			b.WriteString("\n")
			b.WriteString(seg.content)
			b.WriteString("\n```")
		} else {
			b.WriteString(seg.content)
		}
	}
	return b.String()
}

// sanitizeProse applies the allow-list to every prose segment, leaving
// fenced code untouched.
func sanitizeProse(policy *bluemonday.Policy, text string) string {
	segments := splitFences(text)
	for i := range segments {
		// Only segments that can contain markup pay the sanitizer cost;
		// entity-escaping plain prose would mangle markdown syntax like
		// blockquotes.
		if !segments[i].code && strings.Contains(segments[i].content, "<") {
			segments[i].content = sanitizeAroundSpans(policy, segments[i].content)
		}
	}
	return joinFences(segments)
}

// sanitizeAroundSpans sanitizes prose while keeping backtick code spans
// literal. Like fenced blocks, span content is text, never markup; running
// the allow-list over it would eat things like `<div>`.
//
// A span opened by a run of N backticks closes at the next run of N. An
// unclosed span is passed through verbatim, so mid-stream text is safe.
func sanitizeAroundSpans(policy *bluemonday.Policy, prose string) string {
	if !strings.Contains(prose, "`") {
		return policy.Sanitize(prose)
	}

	var b strings.Builder
	rest := prose
	for {
		start := strings.IndexByte(rest, '`')
		if start < 0 {
			b.WriteString(sanitizeChunk(policy, rest))
			break
		}

		run := 1
		for start+run < len(rest) && rest[start+run] == '`' {
			run++
		}
		marker := rest[start : start+run]

		end := strings.Index(rest[start+run:], marker)
		if end < 0 {
			b.WriteString(sanitizeChunk(policy, rest[:start]))
			b.WriteString(rest[start:])
			break
		}

		spanEnd := start + run + end + run
		b.WriteString(sanitizeChunk(policy, rest[:start]))
		b.WriteString(rest[start:spanEnd])
		rest = rest[spanEnd:]
	}
	return b.String()
}

func sanitizeChunk(policy *bluemonday.Policy, s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	return policy.Sanitize(s)
}
