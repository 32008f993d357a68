// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// Highlight applies terminal syntax highlighting to code. It is a pure,
// idempotent pass: the input text is returned unchanged if the language is
// unknown or highlighting fails, so a display never loses content to a
// highlighting error.
func Highlight(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// DetectLanguage guesses the language of a code snippet. Shebang lines are
// resolved by interpreter name, since chroma's content analysis is not
// confident on short scripts. Returns "" when no guess can be made.
func DetectLanguage(code string) string {
	if lang := shebangLanguage(code); lang != "" {
		return lang
	}
	if lexer := lexers.Analyse(code); lexer != nil {
		return lexer.Config().Name
	}
	return ""
}

// shebangLanguage maps a leading #! line to a lexer by interpreter name.
func shebangLanguage(code string) string {
	if !strings.HasPrefix(code, "#!") {
		return ""
	}
	line := code[2:]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	interp := fields[0]
	if i := strings.LastIndexByte(interp, '/'); i >= 0 {
		interp = interp[i+1:]
	}
	// "#!/usr/bin/env python" names the interpreter in the argument.
	if interp == "env" {
		if len(fields) < 2 {
			return ""
		}
		interp = fields[1]
	}

	if lexer := lexers.Get(interp); lexer != nil {
		return lexer.Config().Name
	}
	// Versioned interpreters like python3 or ruby2.7.
	trimmed := strings.TrimRight(interp, "0123456789.")
	if trimmed != interp {
		if lexer := lexers.Get(trimmed); lexer != nil {
			return lexer.Config().Name
		}
	}
	return ""
}
