// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches chunk text between viewport refreshes. Chunks are
// written from the stream goroutine and drained on the Bubble Tea loop's
// tick, so rendering happens at most maxFPS times per second instead of
// once per token.
//
// Drains preserve arrival order exactly; the buffer concatenates, it never
// reorders.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	chunkCount int
	lastDrain  time.Time

	batchSize    int
	minDrainWait time.Duration
}

const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

// NewStreamingBuffer creates a buffer with the default batch size and
// refresh cap.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{
		batchSize:    defaultBatchSize,
		minDrainWait: time.Second / defaultMaxFPS,
		lastDrain:    time.Now(),
	}
}

// Write appends chunk text. Called from the stream goroutine.
func (sb *StreamingBuffer) Write(chunk string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.WriteString(chunk)
	sb.chunkCount++
}

// Drain returns the accumulated text if the batch size or refresh interval
// threshold has been reached. Returns ("", false) when a refresh is not
// due yet.
func (sb *StreamingBuffer) Drain() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	if sb.chunkCount < sb.batchSize && time.Since(sb.lastDrain) < sb.minDrainWait {
		return "", false
	}
	return sb.drainLocked()
}

// ForceDrain returns everything buffered regardless of thresholds. Used
// when a turn completes so no trailing tokens are lost.
func (sb *StreamingBuffer) ForceDrain() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.drainLocked()
}

func (sb *StreamingBuffer) drainLocked() (string, bool) {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.chunkCount = 0
	sb.lastDrain = time.Now()
	return content, true
}

// Reset clears the buffer without draining. Used when a new turn begins.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.Reset()
	sb.chunkCount = 0
	sb.lastDrain = time.Now()
}

// Pending returns the number of buffered chunks.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.chunkCount
}

// =============================================================================
// STREAM TICK
// =============================================================================

// streamTickCmd emits StreamTickMsg at the refresh cap while streaming.
func streamTickCmd() tea.Cmd {
	return tea.Tick(time.Second/defaultMaxFPS, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
