// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai provides the HTTP client and stream decoding for the
// OpenAI-compatible chat completion API.
package openai

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatMessage is one message in the request payload.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of a chat completion request.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Stream      bool          `json:"stream"`
}

// =============================================================================
// WIRE EVENT SCHEMA
// =============================================================================

// wireChoice is one choice inside a streamed event. Two schema generations
// are in the wild: completion-style events carry the fragment in "text",
// chat-style events nest it under "delta.content". The parser accepts both.
type wireChoice struct {
	Text  string `json:"text"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	Index        int    `json:"index"`
	FinishReason string `json:"finish_reason"`
}

// wireEvent is the JSON body of one "data: " frame.
type wireEvent struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
}

// fragment returns the delta text carried by the event, tolerant of both
// schema variants. ok is false when the event has no choices.
func (e *wireEvent) fragment() (text string, ok bool) {
	if len(e.Choices) == 0 {
		return "", false
	}
	c := e.Choices[0]
	if c.Text != "" {
		return c.Text, true
	}
	return c.Delta.Content, true
}

// apiError is the error body returned on non-200 responses.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// EventType distinguishes the decoded stream events.
type EventType int

const (
	// EventDelta carries an incremental text fragment for a turn.
	EventDelta EventType = iota

	// EventDone is the termination sentinel; no further events follow.
	EventDone
)

// Event is one decoded unit from the wire.
type Event struct {
	Type EventType

	// TurnID correlates a delta to its in-flight turn. Empty for Done.
	TurnID string

	// Text is the delta fragment. Empty for Done.
	Text string
}
