// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quillchat/quill/internal/session"
)

// =============================================================================
// STREAM RUNNER
// =============================================================================

// StreamRunner drives the session engine from the Bubble Tea loop. Each
// submit runs in its own goroutine; engine events come back to the program
// as messages through the injected send function, and chunk text goes
// through the StreamingBuffer so the view refreshes at a capped rate.
type StreamRunner struct {
	engine *session.Engine
	buffer *StreamingBuffer

	sendMu sync.RWMutex
	send   func(tea.Msg)
}

// NewStreamRunner wires a runner to an engine. The send function is injected
// later, once the tea.Program exists.
func NewStreamRunner(engine *session.Engine, buffer *StreamingBuffer) *StreamRunner {
	return &StreamRunner{
		engine: engine,
		buffer: buffer,
	}
}

// SetSend installs the message dispatch function. Must be called before the
// first Submit; in practice main wires p.Send here right after constructing
// the program.
func (r *StreamRunner) SetSend(send func(tea.Msg)) {
	r.sendMu.Lock()
	r.send = send
	r.sendMu.Unlock()
}

func (r *StreamRunner) dispatch(msg tea.Msg) {
	r.sendMu.RLock()
	send := r.send
	r.sendMu.RUnlock()
	if send != nil {
		send(msg)
	}
}

// Engine exposes the underlying engine for snapshot reads.
func (r *StreamRunner) Engine() *session.Engine {
	return r.engine
}

// Submit starts a turn for the given input. The returned command launches
// the stream goroutine and resolves immediately; progress arrives as
// Stream* messages.
func (r *StreamRunner) Submit(ctx context.Context, text string) tea.Cmd {
	return func() tea.Msg {
		go r.run(ctx, text)
		return nil
	}
}

func (r *StreamRunner) run(ctx context.Context, text string) {
	r.engine.SetNotifier(func(ev session.Event) {
		switch ev.Kind {
		case session.EventTurnStarted:
			r.buffer.Reset()
			r.dispatch(StreamStartMsg{StartTime: time.Now()})
		case session.EventChunkApplied:
			r.buffer.Write(ev.Chunk)
		case session.EventTurnFinalized:
			r.dispatch(StreamDoneMsg{Stats: r.engine.LastStats()})
		case session.EventTurnFailed:
			r.dispatch(StreamFailedMsg{Err: ev.Err})
		}
	})

	err := r.engine.Submit(ctx, text)
	if err == nil {
		return
	}

	// Turn failures already produced EventTurnFailed. The remaining errors
	// are rejections that never opened a turn.
	if errors.Is(err, session.ErrInvalidInput) || errors.Is(err, session.ErrBusy) {
		r.dispatch(StreamRejectedMsg{Err: err})
	}
}
