// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the conversational session engine.
package session

import "testing"

// =============================================================================
// CONTEXT HISTORY TESTS
// =============================================================================

func TestContextHistory_Commit(t *testing.T) {
	h := NewContextHistory()

	h.Commit("hello", "Hi there!")

	turns := h.Turns()
	if len(turns) != 2 {
		t.Fatalf("Len = %d, want 2", len(turns))
	}
	if turns[0].Role != TurnRoleUser || turns[0].Content != "hello" {
		t.Errorf("turns[0] = %+v, want {user hello}", turns[0])
	}
	if turns[1].Role != TurnRoleModel || turns[1].Content != "Hi there!" {
		t.Errorf("turns[1] = %+v, want {model Hi there!}", turns[1])
	}
}

func TestContextHistory_SnapshotForPrompt_Shape(t *testing.T) {
	h := NewContextHistory()

	// After N committed turns the prompt has 2N+1 entries, alternating
	// user/model pairs then a trailing user turn.
	const n = 3
	for i := 0; i < n; i++ {
		h.Commit("question", "answer")
	}

	prompt := h.SnapshotForPrompt("next")
	if len(prompt) != 2*n+1 {
		t.Fatalf("prompt length = %d, want %d", len(prompt), 2*n+1)
	}

	for i := 0; i < 2*n; i++ {
		want := TurnRoleUser
		if i%2 == 1 {
			want = TurnRoleModel
		}
		if prompt[i].Role != want {
			t.Errorf("prompt[%d].Role = %q, want %q", i, prompt[i].Role, want)
		}
	}

	tail := prompt[len(prompt)-1]
	if tail.Role != TurnRoleUser || tail.Content != "next" {
		t.Errorf("trailing turn = %+v, want {user next}", tail)
	}
}

func TestContextHistory_SnapshotForPrompt_ValueCopy(t *testing.T) {
	h := NewContextHistory()
	h.Commit("a", "b")

	prompt := h.SnapshotForPrompt("c")

	// A commit after the snapshot must not affect the in-flight prompt.
	h.Commit("later", "turn")
	if len(prompt) != 3 {
		t.Errorf("prompt length changed after commit: %d", len(prompt))
	}
	if prompt[2].Content != "c" {
		t.Errorf("prompt tail = %q, want 'c'", prompt[2].Content)
	}
}

func TestContextHistory_Clear(t *testing.T) {
	h := NewContextHistory()
	h.Commit("a", "b")

	h.Clear()
	if h.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", h.Len())
	}
	if got := h.SnapshotForPrompt("x"); len(got) != 1 {
		t.Errorf("prompt after Clear has %d entries, want 1", len(got))
	}
}
