// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns one in-flight chat exchange.
package session

import (
	"github.com/jeranaias/gptstream/internal/segment"
)

// =============================================================================
// SESSION STATE
// =============================================================================

// State is the lifecycle position of the current turn.
type State int

const (
	// StateIdle means no turn has been submitted yet.
	StateIdle State = iota

	// StateSending means the request has been issued but no bytes have
	// arrived.
	StateSending

	// StateReceiving means stream chunks are being ingested.
	StateReceiving

	// StateTerminal means the turn has ended, cleanly or with an error.
	StateTerminal
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateReceiving:
		return "receiving"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is one read-only publication of a turn's segmentation.
//
// Settled is true only on the final snapshot, after the stream has
// terminated and all classification work has completed.
type Snapshot struct {
	MessageID string
	Segments  []segment.Segment
	Settled   bool
}
