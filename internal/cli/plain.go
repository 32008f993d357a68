// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/quillchat/quill/internal/config"
	"github.com/quillchat/quill/internal/ollama"
	"github.com/quillchat/quill/internal/session"
	"github.com/quillchat/quill/internal/ui/styles"
	"github.com/quillchat/quill/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Teal).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Violet).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Red).
			Bold(true)

	statsStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true)
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader wraps liner with persistent input history.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	r := &lineReader{
		line:        line,
		historyFile: filepath.Join(configDir, "history"),
	}
	r.loadHistory()
	return r
}

func (r *lineReader) loadHistory() {
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
}

func (r *lineReader) saveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	r.line.WriteHistory(f)
}

// read reads one line with history navigation.
func (r *lineReader) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *lineReader) close() {
	r.saveHistory()
	r.line.Close()
}

// =============================================================================
// PLAIN REPL
// =============================================================================

// REPL is the line-based chat loop behind the -plain flag.
type REPL struct {
	engine    *session.Engine
	connector *ollama.Connector
	client    *ollama.Client
	cfg       *config.Config

	reader *lineReader

	cancelFunc context.CancelFunc
}

// NewREPL builds a plain REPL over an already wired engine.
func NewREPL(engine *session.Engine, connector *ollama.Connector, client *ollama.Client, cfg *config.Config) *REPL {
	return &REPL{
		engine:    engine,
		connector: connector,
		client:    client,
		cfg:       cfg,
		reader:    newLineReader(),
	}
}

// Run executes the REPL until exit or EOF.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.client.CheckRunning(ctx); err != nil {
		return fmt.Errorf("ollama is not running, start it with: ollama serve")
	}

	r.printWelcome()
	defer r.reader.close()

	// First Ctrl+C during a stream cancels it instead of killing the
	// process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			if r.cancelFunc != nil {
				r.cancelFunc()
				r.cancelFunc = nil
				fmt.Fprintln(os.Stderr, "\n"+errorStyle.Render("[cancelled]"))
			}
		}
	}()

	for {
		input, err := r.reader.read(promptStyle.Render("quill> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D, or a closed stdin all end
			// the session.
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				fmt.Fprintln(os.Stderr, err)
			}
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if !r.handleCommand(ctx, input) {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		r.streamTurn(ctx, input)
	}
}

// streamTurn submits one message and prints chunks as they arrive.
func (r *REPL) streamTurn(parent context.Context, input string) {
	ctx, cancel := context.WithCancel(parent)
	r.cancelFunc = cancel
	defer func() {
		cancel()
		r.cancelFunc = nil
	}()

	failed := false
	r.engine.SetNotifier(func(ev session.Event) {
		switch ev.Kind {
		case session.EventChunkApplied:
			fmt.Print(ev.Chunk)
		case session.EventTurnFailed:
			failed = true
		}
	})

	err := r.engine.Submit(ctx, input)
	switch {
	case failed:
		fmt.Println()
		fmt.Println(errorStyle.Render(session.ResponseErrorText))
	case errors.Is(err, session.ErrBusy):
		fmt.Println(errorStyle.Render("a response is still in progress"))
	case err != nil && !errors.Is(err, session.ErrInvalidInput):
		fmt.Println(errorStyle.Render(err.Error()))
	default:
		fmt.Println()
		if r.cfg.UI.ShowStats {
			if stats := r.engine.LastStats(); stats != nil {
				fmt.Println(statsStyle.Render(stats.Format()))
			}
		}
	}
	fmt.Println()
}

// =============================================================================
// COMMANDS
// =============================================================================

// handleCommand runs a slash command. Returns false when the REPL should
// exit.
func (r *REPL) handleCommand(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "/quit", "/exit", "/q":
		return false

	case "/help", "/?":
		r.printHelp()

	case "/clear":
		if err := r.engine.Reset(); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
		} else {
			fmt.Println(infoStyle.Render("conversation cleared"))
		}

	case "/model":
		if len(fields) < 2 {
			fmt.Println(infoStyle.Render("current model: " + r.connector.Model()))
			break
		}
		r.connector.SetModel(fields[1])
		fmt.Println(infoStyle.Render("switched to " + fields[1]))

	case "/models":
		models, err := r.client.ListModels(ctx)
		if err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			break
		}
		for _, m := range models {
			name := util.PadRight(util.TruncateRunes(m.Name, 40), 42)
			fmt.Println("  " + name + infoStyle.Render(formatSize(m.Size)))
		}

	case "/stats":
		if stats := r.engine.LastStats(); stats != nil {
			fmt.Println(statsStyle.Render(stats.Format()))
		} else {
			fmt.Println(infoStyle.Render("no completed turns yet"))
		}

	default:
		fmt.Println(errorStyle.Render("unknown command: " + cmd))
		r.printHelp()
	}

	return true
}

// formatSize renders a model size in human units.
func formatSize(bytes int64) string {
	const gb = 1 << 30
	const mb = 1 << 20
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.0f MB", float64(bytes)/mb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

func (r *REPL) printWelcome() {
	fmt.Println(welcomeStyle.Render("quill") + infoStyle.Render("  chatting with "+r.connector.Model()))
	fmt.Println(infoStyle.Render("type /help for commands, /quit to exit"))
	fmt.Println()
}

func (r *REPL) printHelp() {
	fmt.Println(infoStyle.Render(`commands:
  /model [name]  show or switch the active model
  /models        list installed models
  /clear         clear the conversation
  /stats         show last turn statistics
  /quit          exit`))
}
