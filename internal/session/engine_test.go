// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the conversational session engine.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quillchat/quill/internal/model"
)

// =============================================================================
// FAKE CONNECTOR
// =============================================================================

// fakeConnector replays a fixed chunk script. When gate is set, the stream
// waits for the gate to close before emitting anything, which lets tests
// observe the engine mid-turn.
type fakeConnector struct {
	mu      sync.Mutex
	script  []Chunk
	callErr error
	gate    chan struct{}

	lastPrompt []ContextTurn
	lastParams Params
	calls      int
}

func (f *fakeConnector) Stream(ctx context.Context, turns []ContextTurn, params Params) (<-chan Chunk, error) {
	f.mu.Lock()
	f.calls++
	f.lastPrompt = turns
	f.lastParams = params
	script := f.script
	gate := f.gate
	err := f.callErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}

	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		if gate != nil {
			<-gate
		}
		for _, c := range script {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func tokenChunks(tokens ...string) []Chunk {
	chunks := make([]Chunk, 0, len(tokens)+1)
	for _, tok := range tokens {
		chunks = append(chunks, Chunk{Content: tok})
	}
	return append(chunks, Chunk{Done: true, Tokens: len(tokens)})
}

// =============================================================================
// SUBMIT TESTS
// =============================================================================

func TestEngine_Submit_HappyPath(t *testing.T) {
	conn := &fakeConnector{script: tokenChunks("Hi", " there", "!")}
	e := NewEngine(conn, Params{})

	if err := e.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	snap := e.Snapshot()
	if len(snap.Messages) != 2 {
		t.Fatalf("transcript has %d messages, want 2", len(snap.Messages))
	}
	if snap.Messages[0].Role != model.RoleUser || snap.Messages[0].Content != "hello" {
		t.Errorf("messages[0] = %+v, want the user message", snap.Messages[0])
	}
	if snap.Messages[1].Role != model.RoleAssistant || snap.Messages[1].Content != "Hi there!" {
		t.Errorf("messages[1] = %+v, want {assistant Hi there!}", snap.Messages[1])
	}
	if snap.AwaitingResponse {
		t.Error("AwaitingResponse should be false after the turn finalizes")
	}

	hist := e.History()
	if len(hist) != 2 {
		t.Fatalf("history has %d turns, want 2", len(hist))
	}
	if hist[0] != (ContextTurn{Role: TurnRoleUser, Content: "hello"}) {
		t.Errorf("history[0] = %+v", hist[0])
	}
	if hist[1] != (ContextTurn{Role: TurnRoleModel, Content: "Hi there!"}) {
		t.Errorf("history[1] = %+v", hist[1])
	}
}

func TestEngine_Submit_BlankInput(t *testing.T) {
	conn := &fakeConnector{}
	e := NewEngine(conn, Params{})

	if err := e.Submit(context.Background(), "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Submit error = %v, want ErrInvalidInput", err)
	}
	if len(e.Snapshot().Messages) != 0 {
		t.Error("blank submit must not mutate the transcript")
	}
	if conn.calls != 0 {
		t.Error("blank submit must not reach the connector")
	}
}

func TestEngine_Submit_BusyRejected(t *testing.T) {
	gate := make(chan struct{})
	conn := &fakeConnector{script: tokenChunks("slow"), gate: gate}
	e := NewEngine(conn, Params{})

	done := make(chan error, 1)
	go func() { done <- e.Submit(context.Background(), "first") }()

	// Wait until the first turn is in flight.
	for i := 0; e.State() == StateIdle && i < 100; i++ {
		time.Sleep(time.Millisecond)
	}
	if e.State() == StateIdle {
		t.Fatal("first turn never started")
	}

	if err := e.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Submit error = %v, want ErrBusy", err)
	}
	if e.history.Len() != 0 {
		t.Error("rejected submit must not touch the context history")
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first Submit returned error: %v", err)
	}

	// The rejected submit left no trace: exactly one user + one assistant.
	if got := len(e.Snapshot().Messages); got != 2 {
		t.Errorf("transcript has %d messages, want 2", got)
	}
}

func TestEngine_Submit_ConnectorErrorBeforeStream(t *testing.T) {
	cause := errors.New("backend unreachable")
	conn := &fakeConnector{callErr: cause}
	e := NewEngine(conn, Params{})

	if err := e.Submit(context.Background(), "hello"); !errors.Is(err, cause) {
		t.Fatalf("Submit error = %v, want the connector error", err)
	}

	snap := e.Snapshot()
	if len(snap.Messages) != 2 {
		t.Fatalf("transcript has %d messages, want 2", len(snap.Messages))
	}
	if snap.Messages[1].Content != ResponseErrorText {
		t.Errorf("assistant content = %q, want the fixed error text", snap.Messages[1].Content)
	}
	if e.history.Len() != 0 {
		t.Error("failed turn must not commit to the context history")
	}
	if e.State() != StateIdle {
		t.Error("engine must return to idle after failure")
	}
}

func TestEngine_Submit_MidStreamFailure(t *testing.T) {
	cause := errors.New("stream broke")
	conn := &fakeConnector{script: []Chunk{{Content: "par"}, {Err: cause}}}
	e := NewEngine(conn, Params{})

	// Seed one successful exchange so we can verify history is preserved.
	conn.script = tokenChunks("ok")
	if err := e.Submit(context.Background(), "warmup"); err != nil {
		t.Fatalf("warmup Submit returned error: %v", err)
	}
	histBefore := e.History()

	conn.script = []Chunk{{Content: "par"}, {Err: cause}}
	if err := e.Submit(context.Background(), "fail please"); !errors.Is(err, cause) {
		t.Fatalf("Submit error = %v, want stream error", err)
	}

	last, _ := e.transcript.Last()
	if last.Content != ResponseErrorText {
		t.Errorf("assistant content = %q, want the fixed error text (not 'par')", last.Content)
	}

	histAfter := e.History()
	if len(histAfter) != len(histBefore) {
		t.Fatalf("history grew from %d to %d turns on failure", len(histBefore), len(histAfter))
	}
	for i := range histBefore {
		if histAfter[i] != histBefore[i] {
			t.Errorf("history[%d] changed on failure", i)
		}
	}

	// The session stays usable: a subsequent submit succeeds normally.
	conn.script = tokenChunks("recovered")
	if err := e.Submit(context.Background(), "again"); err != nil {
		t.Fatalf("Submit after failure returned error: %v", err)
	}
	last, _ = e.transcript.Last()
	if last.Content != "recovered" {
		t.Errorf("content after recovery = %q, want 'recovered'", last.Content)
	}
}

func TestEngine_Submit_Cancellation(t *testing.T) {
	gate := make(chan struct{})
	conn := &fakeConnector{script: tokenChunks("never"), gate: gate}
	e := NewEngine(conn, Params{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Submit(ctx, "hello") }()

	for i := 0; e.State() == StateIdle && i < 100; i++ {
		time.Sleep(time.Millisecond)
	}
	cancel()
	close(gate)

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Submit error = %v, want context.Canceled", err)
	}
	if e.history.Len() != 0 {
		t.Error("cancelled turn must not commit to the context history")
	}
	if e.State() != StateIdle {
		t.Error("engine must return to idle after cancellation")
	}
}

func TestEngine_Submit_PromptShape(t *testing.T) {
	conn := &fakeConnector{script: tokenChunks("one")}
	e := NewEngine(conn, Params{Temperature: 0.7, TopP: 0.9, TopK: 40, MaxTokens: 256})

	e.Submit(context.Background(), "first")

	conn.script = tokenChunks("two")
	e.Submit(context.Background(), "second")

	// The second prompt carries the first committed exchange plus the
	// trailing user turn.
	if len(conn.lastPrompt) != 3 {
		t.Fatalf("prompt has %d turns, want 3", len(conn.lastPrompt))
	}
	if conn.lastPrompt[2] != (ContextTurn{Role: TurnRoleUser, Content: "second"}) {
		t.Errorf("trailing prompt turn = %+v", conn.lastPrompt[2])
	}
	if conn.lastParams.Temperature != 0.7 || conn.lastParams.TopK != 40 {
		t.Errorf("params not forwarded: %+v", conn.lastParams)
	}
}

// =============================================================================
// EVENT TESTS
// =============================================================================

func TestEngine_Events_HappyPath(t *testing.T) {
	conn := &fakeConnector{script: tokenChunks("a", "b")}
	e := NewEngine(conn, Params{})

	var mu sync.Mutex
	var kinds []EventKind
	e.SetNotifier(func(ev Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})

	if err := e.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	want := []EventKind{EventTurnStarted, EventChunkApplied, EventChunkApplied, EventTurnFinalized}
	mu.Lock()
	defer mu.Unlock()
	if len(kinds) != len(want) {
		t.Fatalf("got %d events, want %d: %v", len(kinds), len(want), kinds)
	}
	for i, k := range want {
		if kinds[i] != k {
			t.Errorf("event[%d] = %v, want %v", i, kinds[i], k)
		}
	}
}

func TestEngine_Events_Failure(t *testing.T) {
	cause := errors.New("boom")
	conn := &fakeConnector{script: []Chunk{{Err: cause}}}
	e := NewEngine(conn, Params{})

	var last Event
	e.SetNotifier(func(ev Event) { last = ev })

	e.Submit(context.Background(), "hi")

	if last.Kind != EventTurnFailed {
		t.Errorf("last event = %v, want EventTurnFailed", last.Kind)
	}
	if !errors.Is(last.Err, cause) {
		t.Errorf("event error = %v, want the connector error", last.Err)
	}
}

// =============================================================================
// ENGINE STATE TESTS
// =============================================================================

func TestEngine_Reset(t *testing.T) {
	conn := &fakeConnector{script: tokenChunks("x")}
	e := NewEngine(conn, Params{})
	e.Submit(context.Background(), "hello")

	if err := e.Reset(); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if len(e.Snapshot().Messages) != 0 {
		t.Error("Reset must clear the transcript")
	}
	if e.history.Len() != 0 {
		t.Error("Reset must clear the context history")
	}
}

func TestEngine_SessionID(t *testing.T) {
	e := NewEngine(&fakeConnector{}, Params{})
	if !strings.HasPrefix(e.SessionID(), "sess_") {
		t.Errorf("SessionID = %q, want sess_ prefix", e.SessionID())
	}
}

func TestEngine_LastStats(t *testing.T) {
	conn := &fakeConnector{script: tokenChunks("a", "b", "c")}
	e := NewEngine(conn, Params{})

	if e.LastStats() != nil {
		t.Error("LastStats should be nil before any turn")
	}

	e.Submit(context.Background(), "hi")

	stats := e.LastStats()
	if stats == nil {
		t.Fatal("LastStats should be set after a finalized turn")
	}
	if stats.CompletionTokens != 3 {
		t.Errorf("CompletionTokens = %d, want 3", stats.CompletionTokens)
	}
}
