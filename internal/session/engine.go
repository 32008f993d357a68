// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the conversational session engine.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/quillchat/quill/internal/model"
)

// ErrBusy is returned when Submit is called while a turn is in flight.
var ErrBusy = errors.New("a turn is already in flight")

// ResponseErrorText is the fixed, user-visible notice that replaces a
// partial assistant response when the connector fails mid-turn.
const ResponseErrorText = "Sorry, something went wrong while generating a response. Please try again."

// =============================================================================
// TURN STATE MACHINE
// =============================================================================

// State is the turn controller state.
type State int

const (
	// StateIdle means no turn is in flight; Submit is accepted.
	StateIdle State = iota
	// StateAwaitingFirstChunk means the prompt has been sent and no content
	// has arrived yet.
	StateAwaitingFirstChunk
	// StateStreaming means chunks are being applied to the transcript.
	StateStreaming
)

// String returns a short name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstChunk:
		return "awaiting"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies a turn lifecycle event.
type EventKind int

const (
	// EventTurnStarted fires after the user message and the empty assistant
	// message have been appended.
	EventTurnStarted EventKind = iota
	// EventChunkApplied fires after each chunk is concatenated onto the open
	// assistant message.
	EventChunkApplied
	// EventTurnFinalized fires after a successful commit to the context
	// history.
	EventTurnFinalized
	// EventTurnFailed fires after the open assistant message has been
	// replaced with the error notice. Err carries the connector error.
	EventTurnFailed
)

// Event describes one turn lifecycle transition. Chunk carries the applied
// text for EventChunkApplied and is empty otherwise.
type Event struct {
	Kind  EventKind
	Chunk string
	Err   error
}

// Notifier receives turn events. It is called synchronously from the turn
// loop, after the corresponding store mutation, never while a store lock is
// held.
type Notifier func(Event)

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is the read-only projection handed to the presentation layer.
type Snapshot struct {
	Messages         []model.Message
	AwaitingResponse bool
}

// =============================================================================
// SESSION ENGINE
// =============================================================================

// Engine owns the session state and orchestrates turns.
//
// All mutation of the transcript and context history flows through Submit;
// no other component retains a writable reference. One Engine serves one
// session; sessions share nothing.
type Engine struct {
	mu    sync.Mutex
	state State

	sessionID  string
	transcript *Transcript
	history    *ContextHistory
	connector  Connector
	params     Params

	notify    Notifier
	lastStats *model.Statistics
}

// NewEngine creates an engine with an empty session.
func NewEngine(connector Connector, params Params) *Engine {
	return &Engine{
		sessionID:  "sess_" + uuid.NewString()[:8],
		transcript: NewTranscript(),
		history:    NewContextHistory(),
		connector:  connector,
		params:     params,
	}
}

// SessionID returns the session identifier.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// SetNotifier registers the event callback. Replaces any previous one.
func (e *Engine) SetNotifier(fn Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notify = fn
}

// SetParams replaces the generation parameters for subsequent turns.
// An in-flight turn keeps the parameters it started with.
func (e *Engine) SetParams(params Params) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = params
}

// State returns the current turn state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns a read-only projection of the transcript and the
// awaiting-response flag.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	awaiting := e.state != StateIdle
	e.mu.Unlock()

	return Snapshot{
		Messages:         e.transcript.Messages(),
		AwaitingResponse: awaiting,
	}
}

// History returns a value copy of the committed context turns.
func (e *Engine) History() []ContextTurn {
	return e.history.Turns()
}

// LastStats returns the statistics of the most recently finalized turn, or
// nil if none finished yet.
func (e *Engine) LastStats() *model.Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastStats
}

// Reset clears the transcript and context history. Rejected with ErrBusy
// while a turn is in flight.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return ErrBusy
	}
	e.transcript.Clear()
	e.history.Clear()
	e.lastStats = nil
	return nil
}

// =============================================================================
// TURN PROTOCOL
// =============================================================================

// Submit runs one complete turn: it appends the user message, opens an
// assistant turn, streams the connector's response into the transcript, and
// finalizes or fails the turn. It blocks until the turn is over and the
// engine is idle again.
//
// Guards: ErrInvalidInput for blank text, ErrBusy while a turn is in flight.
// A rejected submit mutates nothing.
//
// Cancelling ctx mid-stream fails the turn with the same rollback as a
// connector error: the context history is left at its last successful state.
func (e *Engine) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrInvalidInput
	}

	// Guard and open the turn under one lock so two submitters cannot
	// interleave their transcript writes.
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return ErrBusy
	}

	if _, err := e.transcript.AppendUser(text); err != nil {
		e.mu.Unlock()
		return err
	}
	if _, err := e.transcript.OpenAssistantTurn(); err != nil {
		// Unreachable while the Busy guard holds; surface it anyway.
		e.mu.Unlock()
		return err
	}

	prompt := e.history.SnapshotForPrompt(text)
	params := e.params
	notify := e.notify
	e.state = StateAwaitingFirstChunk
	e.mu.Unlock()

	emit := func(ev Event) {
		if notify != nil {
			notify(ev)
		}
	}
	emit(Event{Kind: EventTurnStarted})

	stats := model.NewStatistics()
	chunks, err := e.connector.Stream(ctx, prompt, params)
	if err != nil {
		return e.failTurn(emit, err)
	}

	tokenCount := 0
	for chunk := range chunks {
		if chunk.Err != nil {
			return e.failTurn(emit, chunk.Err)
		}

		if chunk.Content != "" {
			if err := e.transcript.AppendChunk(chunk.Content); err != nil {
				return e.failTurn(emit, err)
			}
			stats.RecordFirstToken()
			tokenCount++

			e.mu.Lock()
			e.state = StateStreaming
			e.mu.Unlock()
			emit(Event{Kind: EventChunkApplied, Chunk: chunk.Content})
		}

		if chunk.Done {
			if chunk.Tokens > 0 {
				tokenCount = chunk.Tokens
			}
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return e.failTurn(emit, err)
	}

	// Normal completion: close the turn, then commit the exchange.
	accumulated := e.transcript.CloseTurn()
	e.history.Commit(text, accumulated)
	stats.Finalize(tokenCount)

	e.mu.Lock()
	e.state = StateIdle
	e.lastStats = stats
	e.mu.Unlock()

	emit(Event{Kind: EventTurnFinalized})
	return nil
}

// failTurn swaps the partial assistant message for the fixed error notice,
// leaves the context history untouched, and returns the engine to idle. The
// connector error is reported through the event stream and the return value;
// it never crashes the session.
func (e *Engine) failTurn(emit func(Event), cause error) error {
	e.transcript.ReplaceOpenTurn(ResponseErrorText)

	e.mu.Lock()
	e.state = StateIdle
	e.mu.Unlock()

	emit(Event{Kind: EventTurnFailed, Err: cause})
	return cause
}
