// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the conversational session engine.
package session

import "context"

// =============================================================================
// CONTEXT TURNS
// =============================================================================

// TurnRole is the backend-facing analog of a message role.
type TurnRole string

const (
	TurnRoleUser  TurnRole = "user"
	TurnRoleModel TurnRole = "model"
)

// ContextTurn is one backend-facing turn of a completed exchange.
type ContextTurn struct {
	Role    TurnRole
	Content string
}

// =============================================================================
// GENERATION PARAMETERS
// =============================================================================

// Params are the generation parameters handed to the connector with every
// prompt. Zero values mean "backend default".
type Params struct {
	Temperature float64 // Sampling temperature
	TopP        float64 // Nucleus sampling
	TopK        int     // Top-k sampling
	MaxTokens   int     // Maximum output length, 0 for unlimited
	Format      string  // Output mode, e.g. "" (text) or "json"
}

// =============================================================================
// CONNECTOR BOUNDARY
// =============================================================================

// Chunk is one incremental unit of generated text.
//
// A chunk with Err set terminates the stream abnormally. A chunk with Done
// set carries no further content and signals normal completion; the channel
// is closed afterwards. Tokens is the backend's completion token count,
// populated on the final chunk when known.
type Chunk struct {
	Content string
	Done    bool
	Tokens  int
	Err     error
}

// Connector produces a text chunk stream for a prompt. Implementations must
// close the returned channel exactly once, after sending either a Done chunk
// or an Err chunk. Cancelling the context must terminate the stream.
//
// The engine never retries a connector call; any retry policy lives behind
// this interface.
type Connector interface {
	Stream(ctx context.Context, turns []ContextTurn, params Params) (<-chan Chunk, error)
}
