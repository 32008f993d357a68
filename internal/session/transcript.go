// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the conversational session engine.
package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/quillchat/quill/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidInput is returned when a submission is blank after trimming.
	ErrInvalidInput = errors.New("input is empty")

	// ErrTurnAlreadyOpen is returned when an assistant turn is opened while
	// another is still receiving chunks.
	ErrTurnAlreadyOpen = errors.New("an assistant turn is already open")

	// ErrNoOpenTurn is returned when a chunk arrives with no open turn.
	ErrNoOpenTurn = errors.New("no assistant turn is open")
)

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// Transcript holds the UI-visible ordered message list.
//
// It is append-only except for the in-place content mutation of the trailing
// assistant message while a turn streams. At most one assistant message is
// open at a time.
type Transcript struct {
	mu       sync.RWMutex
	messages []*model.Message
	open     *model.Message
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// AppendUser appends an immutable user message.
func (t *Transcript) AppendUser(text string) (*model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidInput
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	msg := model.NewUserMessage(text)
	t.messages = append(t.messages, msg)
	return msg, nil
}

// OpenAssistantTurn appends an empty assistant message and marks it open.
func (t *Transcript) OpenAssistantTurn() (*model.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open != nil {
		return nil, ErrTurnAlreadyOpen
	}

	msg := model.NewAssistantMessage()
	t.messages = append(t.messages, msg)
	t.open = msg
	return msg, nil
}

// AppendChunk concatenates text onto the open assistant message. Chunks are
// applied strictly in call order; the final content is order-dependent
// concatenation.
func (t *Transcript) AppendChunk(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open == nil {
		return ErrNoOpenTurn
	}

	t.open.AppendToken(text)
	return nil
}

// CloseTurn marks the open assistant message closed and returns its final
// content. A no-op returning "" if no turn is open.
func (t *Transcript) CloseTurn() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open == nil {
		return ""
	}

	content := t.open.Close()
	t.open = nil
	return content
}

// ReplaceOpenTurn overwrites the open assistant message with a user-visible
// error notice and closes it. A no-op if no turn is open.
func (t *Transcript) ReplaceOpenTurn(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open == nil {
		return
	}

	t.open.Replace(text)
	t.open = nil
}

// HasOpenTurn reports whether an assistant message is still receiving chunks.
func (t *Transcript) HasOpenTurn() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.open != nil
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Messages returns a value-copy snapshot of the transcript for the
// presentation layer. Later mutation of the store does not affect it.
func (t *Transcript) Messages() []model.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]model.Message, len(t.messages))
	for i, msg := range t.messages {
		out[i] = msg.Snapshot()
	}
	return out
}

// Last returns a snapshot of the most recent message and true, or a zero
// Message and false when the transcript is empty.
func (t *Transcript) Last() (model.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.messages) == 0 {
		return model.Message{}, false
	}
	return t.messages[len(t.messages)-1].Snapshot(), true
}

// Clear removes all messages. Only valid while no turn is open.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open != nil {
		return
	}
	t.messages = nil
}
