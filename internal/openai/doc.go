// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai provides the HTTP client and stream decoding for the
// OpenAI-compatible chat completion API.
//
// The client issues a streaming POST to /v1/chat/completions and hands raw
// body chunks to the caller in arrival order. StreamParser turns those
// chunks into typed events: text deltas correlated to a turn ID, the [DONE]
// termination sentinel, or a fatal error.
//
// # Error Handling
//
// All failures are represented as *ClientError with a Type from the error
// taxonomy (transport, decoding, protocol, unknown). Every error is fatal to
// the current turn; the client never retries.
package openai
