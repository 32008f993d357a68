// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the conversational session engine.
package session

import "sync"

// =============================================================================
// CONTEXT HISTORY STORE
// =============================================================================

// ContextHistory holds the backend-facing turn history used to build prompts.
//
// Invariant: it contains only completed turns. Partial or streaming content
// never enters this store, so a prompt built after a mid-stream failure
// reflects the last fully successful exchange.
type ContextHistory struct {
	mu    sync.RWMutex
	turns []ContextTurn
}

// NewContextHistory creates an empty context history.
func NewContextHistory() *ContextHistory {
	return &ContextHistory{}
}

// Commit appends a user turn followed by a model turn. Both become visible
// to readers atomically.
func (h *ContextHistory) Commit(userText, assistantText string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns,
		ContextTurn{Role: TurnRoleUser, Content: userText},
		ContextTurn{Role: TurnRoleModel, Content: assistantText},
	)
}

// SnapshotForPrompt returns the ordered turn sequence to send to the backend:
// every committed turn plus a trailing user turn for nextUserText.
//
// The result is a value copy; later commits do not affect a prompt already
// built from an earlier snapshot.
func (h *ContextHistory) SnapshotForPrompt(nextUserText string) []ContextTurn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ContextTurn, len(h.turns), len(h.turns)+1)
	copy(out, h.turns)
	return append(out, ContextTurn{Role: TurnRoleUser, Content: nextUserText})
}

// Turns returns a value copy of all committed turns.
func (h *ContextHistory) Turns() []ContextTurn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ContextTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of committed turns (two per completed exchange).
func (h *ContextHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Clear removes all committed turns.
func (h *ContextHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}
