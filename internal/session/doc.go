// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns one in-flight chat exchange.
//
// The Controller drives the whole ingestion pipeline: it receives raw byte
// chunks from the transport, feeds them to the stream parser, accumulates
// the authoritative message text, hands each new cumulative snapshot to the
// serialized classification queue, and publishes the resulting segmentation
// to subscribers.
//
// # State Machine
//
//	Idle → Sending → Receiving → Terminal(err?)
//
// Terminal is sticky for the turn: an error is surfaced exactly once and the
// controller accepts nothing further until a new turn is submitted. Only one
// turn may be in flight at a time; Send rejects a second turn while one is
// still Sending or Receiving.
//
// # Settling
//
// A turn is settled only when the wire stream has terminated AND the
// classification queue has drained. The two conditions race; the controller
// handles both orders and publishes exactly one settled snapshot.
package session
