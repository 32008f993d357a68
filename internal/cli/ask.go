// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/quillchat/quill/internal/config"
	"github.com/quillchat/quill/internal/render"
	"github.com/quillchat/quill/internal/session"
)

// =============================================================================
// ONE-SHOT ASK
// =============================================================================

// Ask runs a single turn and prints the response. The prompt is the joined
// arguments, with piped stdin appended when present; this makes
// `cat file | quill ask "explain this"` work the way people expect.
func Ask(ctx context.Context, engine *session.Engine, cfg *config.Config, args []string) error {
	prompt := strings.TrimSpace(strings.Join(args, " "))

	if StdinIsPipe() {
		piped, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		if len(piped) > 0 {
			if prompt != "" {
				prompt += "\n\n"
			}
			prompt += string(piped)
		}
	}

	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("nothing to ask: pass a prompt or pipe input")
	}

	if err := engine.Submit(ctx, prompt); err != nil {
		return err
	}

	snap := engine.Snapshot()
	if len(snap.Messages) == 0 {
		return nil
	}
	response := snap.Messages[len(snap.Messages)-1].DisplayContent()

	// Markdown rendering only when stdout is a terminal; pipes get the
	// raw text so downstream tools see clean content.
	if term.IsTerminal(int(os.Stdout.Fd())) {
		renderer := render.NewRenderer(render.Options{
			Width:        renderWidth(cfg),
			AllowRawHTML: cfg.Render.AllowRawHTML,
		})
		response = render.StripTrailingBlankLines(renderer.Render(response))
	}

	fmt.Println(response)

	if cfg.UI.ShowStats && term.IsTerminal(int(os.Stderr.Fd())) {
		if stats := engine.LastStats(); stats != nil {
			fmt.Fprintln(os.Stderr, statsStyle.Render(stats.Format()))
		}
	}
	return nil
}

func renderWidth(cfg *config.Config) int {
	width := cfg.Render.WrapWidth
	limit := TerminalWidth()
	if width <= 0 || width > limit {
		width = limit
	}
	return width
}
