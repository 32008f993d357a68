// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama
// API, and adapts it to the session.Connector boundary.
//
// The client covers the subset of the API quill needs: a health check,
// model listing, and streaming chat. Streaming responses are newline-
// delimited JSON; StreamReader parses them line by line and feeds a
// callback in arrival order.
//
// The client never retries a request. Timeouts apply to non-streaming
// calls only; streaming lifetimes are governed by the caller's context.
package ollama
