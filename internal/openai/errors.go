// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai provides the HTTP client and stream decoding for the
// OpenAI-compatible chat completion API.
package openai

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	// ErrTypeUnknown covers well-formed chunks from which no event could be
	// extracted.
	ErrTypeUnknown ErrorType = iota

	// ErrTypeTransport covers network and HTTP level failures.
	ErrTypeTransport

	// ErrTypeDecoding covers byte sequences that are not valid UTF-8 text.
	ErrTypeDecoding

	// ErrTypeProtocol covers frames that are not valid event JSON or are
	// missing required fields.
	ErrTypeProtocol
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeTransport:
		return "transport"
	case ErrTypeDecoding:
		return "decoding"
	case ErrTypeProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// ClientError represents an error from the streaming client or parser.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	// ErrInvalidEncoding signals stream bytes that cannot be decoded as
	// UTF-8 text.
	ErrInvalidEncoding = &ClientError{Type: ErrTypeDecoding, Message: "invalid encoding"}

	// ErrNoDelta signals a chunk that carried frames, none of which could
	// be decoded.
	ErrNoDelta = &ClientError{Type: ErrTypeUnknown, Message: "no delta could be extracted from chunk"}
)

// transportError wraps a network failure.
func transportError(msg string, cause error) *ClientError {
	return &ClientError{Type: ErrTypeTransport, Message: msg, Cause: cause}
}

// protocolError wraps a malformed frame.
func protocolError(msg string, cause error) *ClientError {
	return &ClientError{Type: ErrTypeProtocol, Message: msg, Cause: cause}
}
