// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quillchat/quill/internal/config"
	"github.com/quillchat/quill/internal/ollama"
	"github.com/quillchat/quill/internal/render"
	"github.com/quillchat/quill/internal/session"
	"github.com/quillchat/quill/internal/ui/components"
	"github.com/quillchat/quill/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view. It owns no conversation
// state of its own; the transcript and history live in the session engine
// and the view re-reads them through Snapshot after every change.
type Model struct {
	engine *session.Engine
	runner *StreamRunner
	buffer *StreamingBuffer
	client *ollama.Client

	theme       *styles.Theme
	keys        KeyMap
	header      *components.Header
	statusBar   *components.StatusBar
	messageList *components.MessageList
	renderer    *render.Renderer

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	cfg *config.Config

	streaming    bool
	streamStart  time.Time
	streamCancel context.CancelFunc

	width  int
	height int
	ready  bool
}

// New builds the chat view over an already wired engine and client.
func New(engine *session.Engine, client *ollama.Client, cfg *config.Config) *Model {
	theme := styles.NewTheme()

	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 4096
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 8,
	}
	sp.Style = theme.Spinner

	buffer := NewStreamingBuffer()

	renderer := render.NewRenderer(render.Options{
		Width:        cfg.Render.WrapWidth,
		AllowRawHTML: cfg.Render.AllowRawHTML,
	})

	list := components.NewMessageList(theme)
	list.ShowTimestamps = cfg.UI.ShowTimestamps
	list.RenderAssistant = func(text string) string {
		return render.StripTrailingBlankLines(renderer.Render(text))
	}
	// Full markdown rendering is too expensive per tick; the open message
	// gets the cheap fence-and-highlight pass until it closes.
	list.RenderStreaming = func(text string) string {
		return components.RenderMessageMarkdown(text, list.Width-6, theme)
	}

	header := components.NewHeader(theme)
	header.SetModel(cfg.Backend.Model)

	statusBar := components.NewStatusBar(theme)
	statusBar.Model = cfg.Backend.Model
	statusBar.Connected = false

	return &Model{
		engine:      engine,
		runner:      NewStreamRunner(engine, buffer),
		buffer:      buffer,
		client:      client,
		theme:       theme,
		keys:        DefaultKeyMap(),
		header:      header,
		statusBar:   statusBar,
		messageList: list,
		renderer:    renderer,
		viewport:    viewport.New(80, 20),
		input:       input,
		spinner:     sp,
		cfg:         cfg,
	}
}

// Runner exposes the stream runner so main can inject the program's Send.
func (m *Model) Runner() *StreamRunner {
	return m.runner
}

// Init starts the cursor blink and the backend health check.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.checkBackendCmd(),
		m.listModelsCmd(),
	)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamStartMsg:
		m.streaming = true
		m.streamStart = msg.StartTime
		m.statusBar.Status = components.StatusThinking
		m.statusBar.StatsLine = ""
		m.refreshViewport()
		return m, tea.Batch(m.spinner.Tick, streamTickCmd())

	case StreamTickMsg:
		if !m.streaming {
			return m, nil
		}
		if _, ok := m.buffer.Drain(); ok {
			m.statusBar.Status = components.StatusStreaming
			m.refreshViewport()
		}
		return m, streamTickCmd()

	case StreamDoneMsg:
		m.buffer.ForceDrain()
		m.finishStream()
		m.statusBar.Status = components.StatusReady
		if m.cfg.UI.ShowStats && msg.Stats != nil {
			m.statusBar.StatsLine = msg.Stats.Format()
		}
		m.refreshViewport()
		return m, nil

	case StreamFailedMsg:
		m.buffer.Reset()
		m.finishStream()
		m.statusBar.Status = components.StatusError
		m.refreshViewport()
		return m, nil

	case StreamRejectedMsg:
		// Busy or blank input. The transcript is unchanged; nothing to do.
		return m, nil

	case BackendStatusMsg:
		m.statusBar.Connected = msg.Running
		if !msg.Running {
			m.statusBar.Status = components.StatusError
		} else if !m.streaming {
			m.statusBar.Status = components.StatusReady
		}
		return m, nil

	case ModelListMsg:
		if msg.Err == nil && len(msg.Models) > 0 {
			m.header.SetModel(m.cfg.Backend.Model)
		}
		return m, nil

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.streamCancel != nil {
			m.streamCancel()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m, m.submit()

	case key.Matches(msg, m.keys.Cancel):
		if m.streaming && m.streamCancel != nil {
			m.streamCancel()
			return m, nil
		}
		m.input.SetValue("")
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if !m.streaming {
			if err := m.engine.Reset(); err == nil {
				m.statusBar.StatsLine = ""
				m.refreshViewport()
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit hands the input line to the engine. Blank input is a silent no-op
// that keeps whatever is typed; the engine's own guards are the backstop.
func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if m.streaming || strings.TrimSpace(text) == "" {
		return nil
	}

	if cmd, handled := m.slashCommand(strings.TrimSpace(text)); handled {
		m.input.SetValue("")
		return cmd
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.streamCancel = cancel
	m.input.SetValue("")

	return m.runner.Submit(ctx, text)
}

// slashCommand handles the trimmed command set. Unrecognized slash input
// falls through and is sent to the model as a normal message.
func (m *Model) slashCommand(text string) (tea.Cmd, bool) {
	switch text {
	case "/new":
		if err := m.engine.Reset(); err == nil {
			m.statusBar.StatsLine = ""
			m.refreshViewport()
		}
		return nil, true
	case "/quit":
		return tea.Quit, true
	}
	return nil, false
}

func (m *Model) finishStream() {
	m.streaming = false
	if m.streamCancel != nil {
		m.streamCancel()
		m.streamCancel = nil
	}
}

// =============================================================================
// VIEWPORT
// =============================================================================

// refreshViewport rebuilds the transcript from an engine snapshot.
func (m *Model) refreshViewport() {
	snap := m.engine.Snapshot()

	atBottom := m.viewport.AtBottom()
	m.messageList.SetMessages(snap.Messages)
	m.viewport.SetContent(m.messageList.View())

	if atBottom || m.streaming {
		m.viewport.GotoBottom()
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)
	m.ready = true

	m.header.SetWidth(width)
	m.statusBar.SetWidth(width)
	m.messageList.SetWidth(width)

	headerHeight := lipgloss.Height(m.header.View())
	inputHeight := 3
	statusHeight := 1

	m.viewport.Width = width
	m.viewport.Height = height - headerHeight - inputHeight - statusHeight
	if m.viewport.Height < 3 {
		m.viewport.Height = 3
	}

	m.input.Width = width - 6

	wrap := m.cfg.Render.WrapWidth
	if wrap <= 0 || wrap > width-6 {
		wrap = width - 6
	}
	m.renderer.SetWidth(wrap)

	m.refreshViewport()
}

// applyConfig swaps in a hot-reloaded config.
func (m *Model) applyConfig(cfg *config.Config) {
	m.cfg = cfg

	m.engine.SetParams(session.Params{
		Temperature: cfg.Generation.Temperature,
		TopP:        cfg.Generation.TopP,
		TopK:        cfg.Generation.TopK,
		MaxTokens:   cfg.Generation.MaxTokens,
		Format:      cfg.Generation.Format,
	})

	m.renderer = render.NewRenderer(render.Options{
		Width:        cfg.Render.WrapWidth,
		AllowRawHTML: cfg.Render.AllowRawHTML,
	})
	renderer := m.renderer
	m.messageList.RenderAssistant = func(text string) string {
		return render.StripTrailingBlankLines(renderer.Render(text))
	}
	m.messageList.ShowTimestamps = cfg.UI.ShowTimestamps

	m.header.SetModel(cfg.Backend.Model)
	m.statusBar.Model = cfg.Backend.Model

	if m.ready {
		m.resize(m.width, m.height)
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

// checkBackendCmd probes the Ollama server with a short timeout.
func (m *Model) checkBackendCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := m.client.CheckRunning(ctx); err != nil {
			return BackendStatusMsg{Running: false, Err: err}
		}
		return BackendStatusMsg{Running: true}
	}
}

// listModelsCmd fetches the installed models.
func (m *Model) listModelsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		models, err := m.client.ListModels(ctx)
		return ModelListMsg{Models: models, Err: err}
	}
}
