// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai provides the HTTP client and stream decoding for the
// OpenAI-compatible chat completion API.
package openai

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// framePrefix is the server-sent-event frame delimiter.
const framePrefix = "data: "

// doneSentinel is the distinguished terminal frame value.
const doneSentinel = "[DONE]"

// =============================================================================
// STREAM PARSER
// =============================================================================

// StreamParser decodes raw byte chunks of the wire protocol into typed
// events.
//
// Chunks arrive with no alignment guarantees: a multi-byte UTF-8 sequence may
// be split across two chunks, so the parser holds back an incomplete trailing
// sequence and prepends it to the next chunk instead of failing. A byte
// sequence that can never complete into valid UTF-8 is a fatal decoding
// error.
//
// Once the [DONE] sentinel has been seen, all further input is ignored.
//
// A StreamParser belongs to a single response stream and is not safe for
// concurrent use; Feed is called from the stream-delivery goroutine only.
type StreamParser struct {
	carry []byte
	done  bool
}

// NewStreamParser creates a parser for one response stream.
func NewStreamParser() *StreamParser {
	return &StreamParser{}
}

// Done reports whether the termination sentinel has been parsed.
func (p *StreamParser) Done() bool {
	return p.done
}

// Feed decodes one byte chunk into zero or more events, preserving frame
// order. The returned error, if any, is a *ClientError and is fatal to the
// stream: no further Feed calls should be made after a non-nil error.
func (p *StreamParser) Feed(chunk []byte) ([]Event, error) {
	if p.done {
		return nil, nil
	}

	text, err := p.decode(chunk)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}

	var events []Event
	decoded := 0

	for _, frame := range strings.Split(trimmed, framePrefix) {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			continue
		}

		// The sentinel wins over anything queued after it.
		if frame == doneSentinel {
			p.done = true
			events = append(events, Event{Type: EventDone})
			return events, nil
		}

		var ev wireEvent
		if err := json.Unmarshal([]byte(frame), &ev); err != nil {
			return nil, protocolError("malformed event frame", err)
		}
		decoded++

		// A decoded event with no choices contributes no delta but is
		// not an error.
		if text, ok := ev.fragment(); ok {
			events = append(events, Event{Type: EventDelta, TurnID: ev.ID, Text: text})
		}
	}

	if decoded == 0 {
		// Frames were present yet none could be decoded at all.
		return nil, ErrNoDelta
	}
	return events, nil
}

// =============================================================================
// UTF-8 DECODING
// =============================================================================

// decode validates the chunk as UTF-8 text, carrying an incomplete trailing
// multi-byte sequence over to the next chunk.
func (p *StreamParser) decode(chunk []byte) (string, error) {
	buf := chunk
	if len(p.carry) > 0 {
		buf = append(p.carry, chunk...)
		p.carry = nil
	}

	valid := 0
	for valid < len(buf) {
		r, size := utf8.DecodeRune(buf[valid:])
		if r == utf8.RuneError && size <= 1 {
			if incompleteTail(buf[valid:]) {
				// Might complete with the next chunk; hold it back.
				p.carry = append([]byte(nil), buf[valid:]...)
				return string(buf[:valid]), nil
			}
			return "", ErrInvalidEncoding
		}
		valid += size
	}
	return string(buf), nil
}

// incompleteTail reports whether the remaining bytes are the prefix of a
// valid multi-byte UTF-8 sequence cut off at the chunk boundary.
func incompleteTail(b []byte) bool {
	if len(b) == 0 || len(b) >= utf8.UTFMax {
		return false
	}
	lead := b[0]
	var need int
	switch {
	case lead&0xE0 == 0xC0:
		need = 2
	case lead&0xF0 == 0xE0:
		need = 3
	case lead&0xF8 == 0xF0:
		need = 4
	default:
		return false
	}
	if len(b) >= need {
		return false
	}
	for _, c := range b[1:] {
		if c&0xC0 != 0x80 {
			return false
		}
	}
	return true
}
