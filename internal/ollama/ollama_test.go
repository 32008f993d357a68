// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/quillchat/quill/internal/session"
)

// newTestServer returns an httptest server that speaks just enough of the
// Ollama API for these tests: a root health endpoint, /api/tags, and a
// streaming /api/chat that emits the given NDJSON body.
func newTestServer(t *testing.T, chatBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.WriteHeader(http.StatusOK)
		case "/api/tags":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"models":[{"name":"llama3.2","size":1000000}]}`))
		case "/api/chat":
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.Write([]byte(chatBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(baseURL string) *Client {
	return NewClientWithConfig(&ClientConfig{
		BaseURL:      baseURL,
		Timeout:      5 * time.Second,
		DefaultModel: "llama3.2",
	})
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func TestCheckRunning(t *testing.T) {
	server := newTestServer(t, "")
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.CheckRunning(context.Background()); err != nil {
		t.Errorf("CheckRunning() against live server: %v", err)
	}
}

func TestCheckRunningNotRunning(t *testing.T) {
	server := newTestServer(t, "")
	server.Close() // shut it down first

	client := newTestClient(server.URL)
	err := client.CheckRunning(context.Background())
	if !IsNotRunning(err) {
		t.Errorf("expected not-running error, got %v", err)
	}
}

func TestListModels(t *testing.T) {
	server := newTestServer(t, "")
	defer server.Close()

	client := newTestClient(server.URL)
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error: %v", err)
	}
	if len(models) != 1 || models[0].Name != "llama3.2" {
		t.Errorf("unexpected models: %+v", models)
	}
}

func TestChatStream(t *testing.T) {
	body := strings.Join([]string{
		`{"model":"llama3.2","message":{"role":"assistant","content":"Hello"},"done":false}`,
		`{"model":"llama3.2","message":{"role":"assistant","content":" world"},"done":false}`,
		`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","eval_count":2,"prompt_eval_count":5,"eval_duration":1000000000}`,
	}, "\n") + "\n"

	server := newTestServer(t, body)
	defer server.Close()

	client := newTestClient(server.URL)

	var contents []string
	var final StreamChunk
	err := client.ChatStream(context.Background(), "llama3.2",
		[]Message{NewUserMessage("hi")}, nil, "",
		func(chunk StreamChunk) {
			if chunk.Content != "" {
				contents = append(contents, chunk.Content)
			}
			if chunk.Done {
				final = chunk
			}
		})
	if err != nil {
		t.Fatalf("ChatStream() error: %v", err)
	}

	if got := strings.Join(contents, ""); got != "Hello world" {
		t.Errorf("accumulated content = %q, want %q", got, "Hello world")
	}
	if !final.Done {
		t.Error("never received done chunk")
	}
	if final.CompletionTokens != 2 {
		t.Errorf("CompletionTokens = %d, want 2", final.CompletionTokens)
	}
	if final.PromptTokens != 5 {
		t.Errorf("PromptTokens = %d, want 5", final.PromptTokens)
	}
	if final.DoneReason != "stop" {
		t.Errorf("DoneReason = %q, want %q", final.DoneReason, "stop")
	}
}

func TestChatStreamSkipsMalformedLines(t *testing.T) {
	body := strings.Join([]string{
		`{"model":"llama3.2","message":{"role":"assistant","content":"ok"},"done":false}`,
		`not json at all`,
		``,
		`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true}`,
	}, "\n") + "\n"

	server := newTestServer(t, body)
	defer server.Close()

	client := newTestClient(server.URL)

	var content strings.Builder
	err := client.ChatStream(context.Background(), "", nil, nil, "", func(chunk StreamChunk) {
		content.WriteString(chunk.Content)
	})
	if err != nil {
		t.Fatalf("ChatStream() error: %v", err)
	}
	if content.String() != "ok" {
		t.Errorf("content = %q, want %q", content.String(), "ok")
	}
}

func TestChatStreamModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.ChatStream(context.Background(), "nope", nil, nil, "", func(StreamChunk) {})
	if !IsModelNotFound(err) {
		t.Errorf("expected model-not-found error, got %v", err)
	}
}

func TestChatStreamCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"message":{"content":"partial"},"done":false}` + "\n"))
		w.(http.Flusher).Flush()
		<-release // hold the stream open
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())

	received := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- client.ChatStream(ctx, "", nil, nil, "", func(chunk StreamChunk) {
			select {
			case received <- struct{}{}:
			default:
			}
		})
	}()

	<-received
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error after cancellation, got nil")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ChatStream did not return after cancellation")
	}
}

// =============================================================================
// STREAM READER TESTS
// =============================================================================

func TestStreamReaderAccumulation(t *testing.T) {
	body := `{"message":{"content":"a"},"done":false}` + "\n" +
		`{"message":{"content":"b"},"done":false}` + "\n" +
		`{"message":{"content":""},"done":true}` + "\n"

	reader := NewStreamReader(strings.NewReader(body))
	if err := reader.Process(context.Background(), func(StreamChunk) {}); err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if reader.Accumulated() != "ab" {
		t.Errorf("Accumulated() = %q, want %q", reader.Accumulated(), "ab")
	}
	if reader.TokenCount() != 2 {
		t.Errorf("TokenCount() = %d, want 2", reader.TokenCount())
	}
}

func TestStreamReaderEOFWithoutDone(t *testing.T) {
	// A stream that ends without a done marker completes without error.
	body := `{"message":{"content":"x"},"done":false}` + "\n"

	reader := NewStreamReader(strings.NewReader(body))
	if err := reader.Process(context.Background(), func(StreamChunk) {}); err != nil {
		t.Errorf("Process() on truncated stream: %v", err)
	}
	if reader.Accumulated() != "x" {
		t.Errorf("Accumulated() = %q, want %q", reader.Accumulated(), "x")
	}
}

// =============================================================================
// CONNECTOR TESTS
// =============================================================================

func TestConnectorStream(t *testing.T) {
	body := strings.Join([]string{
		`{"model":"llama3.2","message":{"role":"assistant","content":"Hi"},"done":false}`,
		`{"model":"llama3.2","message":{"role":"assistant","content":"!"},"done":true,"eval_count":2}`,
	}, "\n") + "\n"

	server := newTestServer(t, body)
	defer server.Close()

	connector := NewConnector(newTestClient(server.URL), "llama3.2")

	turns := []session.ContextTurn{
		{Role: session.TurnRoleUser, Content: "hello"},
		{Role: session.TurnRoleModel, Content: "previous answer"},
		{Role: session.TurnRoleUser, Content: "again"},
	}

	ch, err := connector.Stream(context.Background(), turns, session.Params{})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}

	var content strings.Builder
	var sawDone bool
	var tokens int
	for chunk := range ch {
		if chunk.Err != nil {
			t.Fatalf("unexpected chunk error: %v", chunk.Err)
		}
		content.WriteString(chunk.Content)
		if chunk.Done {
			sawDone = true
			tokens = chunk.Tokens
		}
	}

	if content.String() != "Hi!" {
		t.Errorf("content = %q, want %q", content.String(), "Hi!")
	}
	if !sawDone {
		t.Error("never received done chunk")
	}
	if tokens != 2 {
		t.Errorf("tokens = %d, want 2", tokens)
	}
}

func TestConnectorStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	connector := NewConnector(newTestClient(server.URL), "missing")

	ch, err := connector.Stream(context.Background(), nil, session.Params{})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}

	var streamErr error
	for chunk := range ch {
		if chunk.Err != nil {
			streamErr = chunk.Err
		}
	}
	if !IsModelNotFound(streamErr) {
		t.Errorf("expected model-not-found on channel, got %v", streamErr)
	}
}

func TestToWireMessages(t *testing.T) {
	turns := []session.ContextTurn{
		{Role: session.TurnRoleUser, Content: "q"},
		{Role: session.TurnRoleModel, Content: "a"},
	}
	messages := toWireMessages(turns)
	if len(messages) != 2 {
		t.Fatalf("len = %d, want 2", len(messages))
	}
	if messages[0].Role != "user" || messages[1].Role != "assistant" {
		t.Errorf("role mapping wrong: %+v", messages)
	}
}

func TestToWireOptions(t *testing.T) {
	if opts := toWireOptions(session.Params{}); opts != nil {
		t.Errorf("zero params should produce nil options, got %+v", opts)
	}

	opts := toWireOptions(session.Params{Temperature: 0.7, MaxTokens: 100})
	if opts == nil {
		t.Fatal("non-zero params produced nil options")
	}
	if opts.Temperature != 0.7 || opts.NumPredict != 100 {
		t.Errorf("options mapping wrong: %+v", opts)
	}
}
