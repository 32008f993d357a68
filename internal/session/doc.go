// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the conversational session engine.
//
// The engine owns two parallel histories that must never be collapsed into
// one:
//
//   - Transcript: the UI-visible message list, mutated incrementally as
//     tokens stream in.
//   - ContextHistory: the backend-facing record of completed turns used to
//     build prompts, mutated only atomically when a turn finalizes.
//
// The split guarantees that a failed or cancelled generation never leaks
// partial text into future prompts: on failure the transcript's open
// assistant message is replaced with an error notice while the context
// history stays at its last successful exchange.
//
// Engine is the façade for the presentation layer: Submit runs one full
// turn against a Connector, and Snapshot exposes read-only state.
package session
