// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript.
package model

// MaxMessages is the maximum number of messages to keep in the transcript.
// When exceeded, the oldest messages are pruned to prevent unbounded memory
// growth over a long-lived session.
const MaxMessages = 1000

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript holds the ordered sequence of turns for one chat exchange.
//
// The transcript is owned by the session controller; it is not safe for
// concurrent mutation. Read-only copies for observers are taken via All.
type Transcript struct {
	messages []*Message
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{messages: make([]*Message, 0)}
}

// =============================================================================
// TRANSCRIPT METHODS
// =============================================================================

// Append adds a message to the end of the transcript, pruning the oldest
// entries when the history cap is exceeded.
func (t *Transcript) Append(m *Message) {
	t.messages = append(t.messages, m)
	if len(t.messages) > MaxMessages {
		excess := len(t.messages) - MaxMessages
		t.messages = append(t.messages[:0:0], t.messages[excess:]...)
	}
}

// Last returns the most recent message, or nil for an empty transcript.
func (t *Transcript) Last() *Message {
	if len(t.messages) == 0 {
		return nil
	}
	return t.messages[len(t.messages)-1]
}

// FindByID returns the message with the given turn ID, or nil.
func (t *Transcript) FindByID(id string) *Message {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].ID == id {
			return t.messages[i]
		}
	}
	return nil
}

// Len returns the number of messages in the transcript.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// All returns a copy of the message slice. The messages themselves are
// shared; callers must treat them as read-only.
func (t *Transcript) All() []*Message {
	out := make([]*Message, len(t.messages))
	copy(out, t.messages)
	return out
}
