// quill - a terminal chat client for local LLMs.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quillchat/quill/internal/cli"
	"github.com/quillchat/quill/internal/config"
	"github.com/quillchat/quill/internal/ollama"
	"github.com/quillchat/quill/internal/session"
	"github.com/quillchat/quill/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		plain       = flag.Bool("plain", false, "run the line-based REPL instead of the TUI")
		modelFlag   = flag.String("model", "", "model to chat with (overrides config)")
		urlFlag     = flag.String("url", "", "Ollama base URL (overrides config)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("quill %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
		cfg = config.Default()
	}
	if *urlFlag != "" {
		cfg.Backend.URL = *urlFlag
	}
	if *modelFlag != "" {
		cfg.Backend.Model = *modelFlag
	}
	config.SetGlobal(cfg)

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Backend.URL,
		Timeout:      time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
		DefaultModel: cfg.Backend.Model,
	})
	connector := ollama.NewConnector(client, cfg.Backend.Model)
	engine := session.NewEngine(connector, session.Params{
		Temperature: cfg.Generation.Temperature,
		TopP:        cfg.Generation.TopP,
		TopK:        cfg.Generation.TopK,
		MaxTokens:   cfg.Generation.MaxTokens,
		Format:      cfg.Generation.Format,
	})

	ctx := context.Background()
	args := flag.Args()

	switch {
	case len(args) > 0 && args[0] == "ask":
		exitOnError(cli.Ask(ctx, engine, cfg, args[1:]))

	case !cli.IsInteractive():
		// Piped input or redirected output: behave like ask so quill
		// composes with shell pipelines.
		exitOnError(cli.Ask(ctx, engine, cfg, args))

	case *plain:
		repl := cli.NewREPL(engine, connector, client, cfg)
		exitOnError(repl.Run(ctx))

	default:
		exitOnError(runTUI(engine, connector, client, cfg))
	}
}

// runTUI starts the Bubble Tea interface with config hot reload.
func runTUI(engine *session.Engine, connector *ollama.Connector, client *ollama.Client, cfg *config.Config) error {
	m := chat.New(engine, client, cfg)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	// Stream events are produced off the Bubble Tea loop; they reach the
	// program through Send.
	m.Runner().SetSend(p.Send)

	if path, err := config.ConfigPath(); err == nil {
		watcher, werr := config.NewWatcher(path, func(reloaded *config.Config) {
			config.SetGlobal(reloaded)
			connector.SetModel(reloaded.Backend.Model)
			p.Send(chat.ConfigReloadedMsg{Config: reloaded})
		})
		if werr == nil {
			if werr = watcher.Watch(); werr == nil {
				defer watcher.Close()
			}
		}
	}

	_, err := p.Run()
	return err
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `quill - chat with local LLMs through Ollama

Usage:
  quill [flags]              start the TUI
  quill -plain               start the line-based REPL
  quill ask <prompt>         one-shot question (also reads piped stdin)

Flags:
`)
	flag.PrintDefaults()
}
