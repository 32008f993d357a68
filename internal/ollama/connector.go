// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
package ollama

import (
	"context"

	"github.com/quillchat/quill/internal/session"
)

// =============================================================================
// SESSION CONNECTOR ADAPTER
// =============================================================================

// Connector adapts a Client to the session.Connector boundary. It maps
// context turns onto the Ollama wire roles and exposes the chunk stream as
// a channel so the session engine can consume and cancel it explicitly.
type Connector struct {
	client *Client
	model  string
}

// NewConnector creates a connector for the given model. An empty model
// falls back to the client's default.
func NewConnector(client *Client, model string) *Connector {
	return &Connector{client: client, model: model}
}

// SetModel switches the model used for subsequent turns.
func (c *Connector) SetModel(model string) {
	c.model = model
}

// Model returns the model used for generation.
func (c *Connector) Model() string {
	if c.model != "" {
		return c.model
	}
	return c.client.GetDefaultModel()
}

// Stream implements session.Connector. The returned channel is closed after
// a Done or Err chunk; cancelling ctx terminates the stream.
func (c *Connector) Stream(ctx context.Context, turns []session.ContextTurn, params session.Params) (<-chan session.Chunk, error) {
	messages := toWireMessages(turns)
	opts := toWireOptions(params)

	ch := make(chan session.Chunk)
	go func() {
		defer close(ch)

		err := c.client.ChatStream(ctx, c.model, messages, opts, params.Format, func(chunk StreamChunk) {
			out := session.Chunk{
				Content: chunk.Content,
				Done:    chunk.Done,
				Tokens:  chunk.CompletionTokens,
				Err:     chunk.Error,
			}
			select {
			case ch <- out:
			case <-ctx.Done():
			}
		})

		if err != nil {
			select {
			case ch <- session.Chunk{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}

// toWireMessages maps backend-facing context turns onto Ollama roles.
func toWireMessages(turns []session.ContextTurn) []Message {
	messages := make([]Message, 0, len(turns))
	for _, turn := range turns {
		role := "user"
		if turn.Role == session.TurnRoleModel {
			role = "assistant"
		}
		messages = append(messages, Message{Role: role, Content: turn.Content})
	}
	return messages
}

// toWireOptions maps generation parameters onto Ollama inference options.
// A fully zero Params sends no options block at all.
func toWireOptions(params session.Params) *Options {
	if params.Temperature == 0 && params.TopP == 0 && params.TopK == 0 && params.MaxTokens == 0 {
		return nil
	}
	return &Options{
		Temperature: params.Temperature,
		TopP:        params.TopP,
		TopK:        params.TopK,
		NumPredict:  params.MaxTokens,
	}
}
