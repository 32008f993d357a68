// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view for quill.
//
// The chat model is a thin presentation layer over session.Engine: it pushes
// raw user text into the engine and renders the read-only transcript
// snapshots the engine exposes. All turn-protocol state (open assistant
// message, context history, busy guard) lives in the engine, never here.
//
// Streaming flow: a submitted turn runs engine.Submit in a StreamRunner
// goroutine. Engine events are forwarded to the program as messages; chunk
// text is batched in a StreamingBuffer and drained by a 30fps tick so the
// viewport re-renders at a capped rate instead of once per token.
package chat
