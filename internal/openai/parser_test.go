// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openai

import (
	"errors"
	"testing"
)

func deltaFrame(id, content string) string {
	return `data: {"id":"` + id + `","object":"chat.completion.chunk","choices":[{"delta":{"content":"` + content + `"},"index":0}]}` + "\n\n"
}

func TestFeedSingleDelta(t *testing.T) {
	p := NewStreamParser()
	events, err := p.Feed([]byte(deltaFrame("turn-1", "Hello")))
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Type != EventDelta || ev.TurnID != "turn-1" || ev.Text != "Hello" {
		t.Errorf("event = %+v", ev)
	}
}

func TestFeedMultipleFramesInOneChunk(t *testing.T) {
	p := NewStreamParser()
	chunk := deltaFrame("t", "one") + deltaFrame("t", "two") + deltaFrame("t", "three")
	events, err := p.Feed([]byte(chunk))
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, want := range []string{"one", "two", "three"} {
		if events[i].Text != want {
			t.Errorf("event %d text = %q, want %q (order must be preserved)", i, events[i].Text, want)
		}
	}
}

func TestFeedCompletionStyleSchema(t *testing.T) {
	p := NewStreamParser()
	events, err := p.Feed([]byte(`data: {"id":"t","choices":[{"text":"legacy"}]}` + "\n"))
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(events) != 1 || events[0].Text != "legacy" {
		t.Fatalf("events = %+v", events)
	}
}

func TestFeedDoneSentinel(t *testing.T) {
	p := NewStreamParser()
	events, err := p.Feed([]byte("data: [DONE]\n\n"))
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(events) != 1 || events[0].Type != EventDone {
		t.Fatalf("events = %+v, want single Done", events)
	}
	if !p.Done() {
		t.Error("parser not marked done after sentinel")
	}
}

// Frames queued behind the sentinel in the same chunk must not surface, and
// later chunks are ignored entirely.
func TestFeedDoneShortCircuits(t *testing.T) {
	p := NewStreamParser()
	chunk := deltaFrame("t", "before") + "data: [DONE]\n\n" + deltaFrame("t", "after")
	events, err := p.Feed([]byte(chunk))
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(events) != 2 || events[0].Text != "before" || events[1].Type != EventDone {
		t.Fatalf("events = %+v, want [delta(before), done]", events)
	}

	events, err = p.Feed([]byte(deltaFrame("t", "late")))
	if err != nil || events != nil {
		t.Errorf("post-done Feed = (%v, %v), want (nil, nil)", events, err)
	}
}

func TestFeedWhitespaceOnlyChunk(t *testing.T) {
	p := NewStreamParser()
	events, err := p.Feed([]byte("\n\n"))
	if err != nil || events != nil {
		t.Errorf("Feed = (%v, %v), want (nil, nil)", events, err)
	}
}

func TestFeedMalformedFrame(t *testing.T) {
	p := NewStreamParser()
	_, err := p.Feed([]byte("data: {not json}\n"))
	if err == nil {
		t.Fatal("expected protocol error")
	}
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Type != ErrTypeProtocol {
		t.Errorf("err = %v, want protocol ClientError", err)
	}
}

// A decoded frame with no choices contributes no delta but is not an
// error.
func TestFeedEmptyChoices(t *testing.T) {
	p := NewStreamParser()
	events, err := p.Feed([]byte(`data: {"id":"t","choices":[]}` + "\n"))
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events = %+v, want none", events)
	}
}

// An empty-content delta still counts as a message; finish frames look like
// this.
func TestFeedEmptyDelta(t *testing.T) {
	p := NewStreamParser()
	events, err := p.Feed([]byte(`data: {"id":"t","choices":[{"delta":{},"finish_reason":"stop"}]}` + "\n"))
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(events) != 1 || events[0].Text != "" {
		t.Fatalf("events = %+v, want one empty delta", events)
	}
}

// A multi-byte rune split across two chunks is held back and prepended to
// the next chunk rather than failing the decode.
func TestDecodeCarriesSplitRune(t *testing.T) {
	p := NewStreamParser()

	head, err := p.decode([]byte("ab\xC3")) // lead byte of é, cut off
	if err != nil {
		t.Fatalf("decode of split head failed: %v", err)
	}
	if head != "ab" {
		t.Fatalf("head = %q, want %q", head, "ab")
	}

	tail, err := p.decode([]byte("\xA9cd"))
	if err != nil {
		t.Fatalf("decode of split tail failed: %v", err)
	}
	if tail != "écd" {
		t.Errorf("tail = %q, want %q", tail, "écd")
	}
}

func TestFeedInvalidUTF8(t *testing.T) {
	p := NewStreamParser()
	_, err := p.Feed([]byte{0xFF, 0xFE, 0xFD})
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("err = %v, want ErrInvalidEncoding", err)
	}
}

func TestIncompleteTail(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		want bool
	}{
		{"empty", nil, false},
		{"two-byte lead alone", []byte{0xC3}, true},
		{"three-byte lead with one cont", []byte{0xE2, 0x82}, true},
		{"four-byte lead with two cont", []byte{0xF0, 0x9F, 0x98}, true},
		{"continuation byte alone", []byte{0x82}, false},
		{"invalid lead", []byte{0xFF}, false},
		{"lead plus non-continuation", []byte{0xC3, 0x41}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := incompleteTail(tt.b); got != tt.want {
				t.Errorf("incompleteTail(% x) = %v, want %v", tt.b, got, tt.want)
			}
		})
	}
}
