// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages.
//
// A Message is the UI-visible record of one utterance. User messages are
// immutable from creation. Assistant messages start "open" and accumulate
// streamed tokens; closing a message fixes its content permanently. At most
// one assistant message is open at a time, enforced by the session package.
package model
