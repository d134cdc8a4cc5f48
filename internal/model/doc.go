// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript.
//
// This package defines the core domain types used throughout the application
// for representing an exchange of turns with a streaming model.
//
// # Key Types
//
//   - Message: one turn (user prompt or assistant response) with cumulative text
//   - Role: message role enumeration (user, assistant)
//   - Transcript: ordered container of messages with a history cap
//
// # Usage
//
// Create a transcript and append a user turn:
//
//	tr := model.NewTranscript()
//	tr.Append(model.NewUserMessage("Hello!"))
//
// Assistant turns are created with the wire-provided turn ID so that
// incoming deltas can be correlated back to the same message:
//
//	msg := model.NewAssistantMessage(turnID)
//	msg.Append("Hello, ")
//	msg.Append("world")
//	msg.Finalize()
package model
