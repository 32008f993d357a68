// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/quillchat/quill/internal/config"
	"github.com/quillchat/quill/internal/model"
	"github.com/quillchat/quill/internal/ollama"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that a turn has started and the engine is waiting
// for the first chunk.
type StreamStartMsg struct {
	StartTime time.Time
}

// StreamDoneMsg signals that the turn finalized successfully.
type StreamDoneMsg struct {
	Stats *model.Statistics
}

// StreamFailedMsg signals that the turn failed. The transcript already
// carries the fixed error text; Err is for the status bar only.
type StreamFailedMsg struct {
	Err error
}

// StreamRejectedMsg signals that a submission was rejected without starting
// a turn (busy or blank input).
type StreamRejectedMsg struct {
	Err error
}

// StreamTickMsg drives the capped-rate viewport refresh while streaming.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// BACKEND MESSAGES
// =============================================================================

// BackendStatusMsg reports the Ollama health check result.
type BackendStatusMsg struct {
	Running bool
	Err     error
}

// ModelListMsg delivers the installed models.
type ModelListMsg struct {
	Models []ollama.ModelInfo
	Err    error
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadedMsg delivers a freshly loaded config after a hot reload.
type ConfigReloadedMsg struct {
	Config *config.Config
}
