// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
	"time"
)

func TestStreamingBufferBatchThreshold(t *testing.T) {
	sb := NewStreamingBuffer()

	// Below the batch size and inside the refresh interval nothing drains.
	sb.Write("a")
	sb.Write("b")
	if content, ok := sb.Drain(); ok {
		t.Errorf("Drain returned %q before threshold", content)
	}

	for i := 0; i < defaultBatchSize; i++ {
		sb.Write("x")
	}
	content, ok := sb.Drain()
	if !ok {
		t.Fatal("Drain should fire once the batch size is reached")
	}
	if len(content) != 2+defaultBatchSize {
		t.Errorf("drained %d bytes, want %d", len(content), 2+defaultBatchSize)
	}
}

func TestStreamingBufferIntervalThreshold(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.lastDrain = time.Now().Add(-time.Second)

	sb.Write("hello")
	content, ok := sb.Drain()
	if !ok {
		t.Fatal("Drain should fire once the refresh interval has passed")
	}
	if content != "hello" {
		t.Errorf("content = %q", content)
	}
}

func TestStreamingBufferPreservesOrder(t *testing.T) {
	sb := NewStreamingBuffer()
	for _, chunk := range []string{"The ", "quick ", "brown ", "fox"} {
		sb.Write(chunk)
	}

	content, ok := sb.ForceDrain()
	if !ok {
		t.Fatal("ForceDrain should return buffered content")
	}
	if content != "The quick brown fox" {
		t.Errorf("content = %q", content)
	}
}

func TestStreamingBufferForceDrainEmpty(t *testing.T) {
	sb := NewStreamingBuffer()
	if content, ok := sb.ForceDrain(); ok {
		t.Errorf("ForceDrain on empty buffer returned %q", content)
	}
}

func TestStreamingBufferReset(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("stale")
	sb.Reset()

	if sb.Pending() != 0 {
		t.Errorf("Pending = %d after Reset", sb.Pending())
	}
	if content, ok := sb.ForceDrain(); ok {
		t.Errorf("ForceDrain returned %q after Reset", content)
	}
}

func TestStreamingBufferPending(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("a")
	sb.Write("b")
	sb.Write("c")

	if got := sb.Pending(); got != 3 {
		t.Errorf("Pending = %d, want 3", got)
	}

	sb.ForceDrain()
	if got := sb.Pending(); got != 0 {
		t.Errorf("Pending = %d after drain, want 0", got)
	}
}

func TestStreamingBufferDrainResetsCount(t *testing.T) {
	sb := NewStreamingBuffer()
	for i := 0; i < defaultBatchSize; i++ {
		sb.Write("x")
	}
	if _, ok := sb.Drain(); !ok {
		t.Fatal("first Drain should fire")
	}

	// Counters reset after a drain; one fresh chunk inside the interval
	// must not drain again.
	sb.Write("y")
	if content, ok := sb.Drain(); ok {
		t.Errorf("second Drain returned %q immediately after the first", content)
	}
}
