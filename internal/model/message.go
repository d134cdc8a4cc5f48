// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in the exchange.
//
// For assistant turns, ID is the turn correlation key declared by the wire
// protocol: every delta event carrying the same ID is appended to the same
// message. For user turns the ID is generated locally.
//
// Ownership: the cumulative text is mutated only by the session controller on
// the stream-delivery goroutine. Once Finalize is called the text is
// immutable; every intermediate state is a prefix of the final text.
type Message struct {
	ID      string
	Role    Role
	Created time.Time

	// PERFORMANCE: strings.Builder avoids quadratic allocations
	text     strings.Builder
	terminal bool
}

// NewUserMessage creates a new user turn with a generated ID.
// User turns are complete at creation time.
func NewUserMessage(text string) *Message {
	m := &Message{
		ID:      uuid.NewString(),
		Role:    RoleUser,
		Created: time.Now(),
	}
	m.text.WriteString(text)
	m.terminal = true
	return m
}

// NewAssistantMessage creates a new streaming assistant turn keyed by the
// wire-provided turn ID.
func NewAssistantMessage(turnID string) *Message {
	return &Message{
		ID:      turnID,
		Role:    RoleAssistant,
		Created: time.Now(),
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Append adds a delta fragment to the cumulative text.
//
// While the message is still empty, leading newlines are trimmed: the model
// tends to open a response (and a fresh code fence) with newline padding that
// must not become part of the turn's text. Appending to a terminal message is
// a no-op.
func (m *Message) Append(fragment string) {
	if m.terminal {
		return
	}
	if m.text.Len() == 0 {
		fragment = strings.TrimLeft(fragment, "\n")
	}
	m.text.WriteString(fragment)
}

// Finalize marks the turn terminal. The text never changes afterwards.
func (m *Message) Finalize() {
	m.terminal = true
}

// Terminal reports whether the turn has reached its final text.
func (m *Message) Terminal() bool {
	return m.terminal
}

// Text returns the full cumulative text for this turn.
func (m *Message) Text() string {
	return m.text.String()
}

// Len returns the length of the cumulative text in bytes.
func (m *Message) Len() int {
	return m.text.Len()
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return m.text.Len() == 0
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := m.Text()
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
