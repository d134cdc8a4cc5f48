// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/gptstream/internal/model"
	"github.com/jeranaias/gptstream/internal/openai"
	"github.com/jeranaias/gptstream/internal/segment"
)

// =============================================================================
// FAKE TRANSPORT
// =============================================================================

// fakeStreamer replays canned chunks through the handler, then returns err.
type fakeStreamer struct {
	chunks [][]byte
	err    error

	// gate, when non-nil, delays delivery until closed.
	gate chan struct{}
}

func (f *fakeStreamer) StreamChat(_ context.Context, _ []openai.ChatMessage, handler openai.ChunkHandler) error {
	if f.gate != nil {
		<-f.gate
	}
	for _, chunk := range f.chunks {
		if err := handler(chunk); err != nil {
			return err
		}
	}
	return f.err
}

func delta(id, text string) []byte {
	return []byte(`data: {"id":"` + id + `","choices":[{"delta":{"content":"` + text + `"}}]}` + "\n\n")
}

func done() []byte {
	return []byte("data: [DONE]\n\n")
}

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestController(s Streamer) *Controller {
	return NewController(s, segment.NewClassifier(nil))
}

// collectUntilSettled drains snapshots until the settled one arrives.
func collectUntilSettled(t *testing.T, snaps <-chan Snapshot) (all []Snapshot, settled Snapshot) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-snaps:
			all = append(all, snap)
			if snap.Settled {
				return all, snap
			}
		case <-deadline:
			t.Fatal("turn never settled")
		}
	}
}

func waitTerminal(t *testing.T, c *Controller) error {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state, err := c.State(); state == StateTerminal {
			return err
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("turn never reached terminal state")
	return nil
}

// =============================================================================
// TESTS
// =============================================================================

func TestSendStreamsAndSettles(t *testing.T) {
	// Content strings are JSON-escaped; fence markers arrive as their own
	// tokens the way the tokenizer emits them.
	streamer := &fakeStreamer{chunks: [][]byte{
		delta("turn-1", `Here:\n`),
		delta("turn-1", "```"),
		delta("turn-1", "python"),
		delta("turn-1", `\n`),
		delta("turn-1", `print(1)\n`),
		delta("turn-1", "```"),
		done(),
	}}
	c := newTestController(streamer)
	defer c.Close()

	snaps, unsubscribe := c.Subscribe()
	defer unsubscribe()

	require.NoError(t, c.Send(context.Background(), "show me python"))
	all, settled := collectUntilSettled(t, snaps)

	require.NoError(t, waitTerminal(t, c))

	assert.Equal(t, "turn-1", settled.MessageID)
	require.Len(t, settled.Segments, 3)
	assert.Equal(t, segment.KindPlain, settled.Segments[0].Kind)
	assert.Equal(t, "Here:\n", settled.Segments[0].Content)
	assert.Equal(t, segment.KindCode, settled.Segments[1].Kind)
	assert.Equal(t, "print(1)\n", settled.Segments[1].Content)
	assert.Equal(t, "python", settled.Segments[1].Lang)
	assert.Equal(t, segment.KindPlain, settled.Segments[2].Kind)
	assert.True(t, settled.Segments[2].IsEmpty())

	// Exactly one settled snapshot, and it is the last one.
	for _, snap := range all[:len(all)-1] {
		assert.False(t, snap.Settled)
	}

	msgs := c.Transcript()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Here:\n```python\nprint(1)\n```", msgs[1].Text())
	assert.True(t, msgs[1].Terminal())
}

func TestSendRejectsConcurrentTurn(t *testing.T) {
	gate := make(chan struct{})
	streamer := &fakeStreamer{gate: gate, chunks: [][]byte{done()}}
	c := newTestController(streamer)
	defer c.Close()

	require.NoError(t, c.Send(context.Background(), "first"))
	err := c.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrTurnInFlight)

	close(gate)
	require.NoError(t, waitTerminal(t, c))

	// Only the accepted turn's user message made it into the transcript.
	msgs := c.Transcript()
	require.Len(t, msgs, 1)
	assert.Equal(t, "first", msgs[0].Text())
}

func TestSecondTurnAfterTerminal(t *testing.T) {
	streamer := &fakeStreamer{chunks: [][]byte{delta("a", "one"), done()}}
	c := newTestController(streamer)
	defer c.Close()

	require.NoError(t, c.Send(context.Background(), "1"))
	require.NoError(t, waitTerminal(t, c))

	streamer.chunks = [][]byte{delta("b", "two"), done()}
	require.NoError(t, c.Send(context.Background(), "2"))
	require.NoError(t, waitTerminal(t, c))

	msgs := c.Transcript()
	require.Len(t, msgs, 4)
	assert.Equal(t, "two", msgs[3].Text())
}

func TestTruncatedStreamFails(t *testing.T) {
	// Stream ends cleanly at the transport level but no sentinel arrived.
	streamer := &fakeStreamer{chunks: [][]byte{delta("t", "partial")}}
	c := newTestController(streamer)
	defer c.Close()

	snaps, unsubscribe := c.Subscribe()
	defer unsubscribe()

	require.NoError(t, c.Send(context.Background(), "hi"))
	termErr := waitTerminal(t, c)
	require.Error(t, termErr)

	var ce *openai.ClientError
	require.ErrorAs(t, termErr, &ce)
	assert.Equal(t, openai.ErrTypeTransport, ce.Type)

	select {
	case noticeErr := <-c.Notices():
		assert.Equal(t, termErr, noticeErr)
	case <-time.After(time.Second):
		t.Fatal("no error notice delivered")
	}

	// The partial text still settles so the consumer can render what
	// arrived before the failure.
	_, settled := collectUntilSettled(t, snaps)
	assert.Equal(t, "partial", settled.Segments[0].Content)
}

func TestMalformedFrameFails(t *testing.T) {
	streamer := &fakeStreamer{chunks: [][]byte{
		[]byte("data: {this is not json}\n\n"),
	}}
	c := newTestController(streamer)
	defer c.Close()

	require.NoError(t, c.Send(context.Background(), "hi"))
	termErr := waitTerminal(t, c)
	require.Error(t, termErr)

	var ce *openai.ClientError
	require.ErrorAs(t, termErr, &ce)
	assert.Equal(t, openai.ErrTypeProtocol, ce.Type)
}

func TestBytesAfterDoneIgnored(t *testing.T) {
	streamer := &fakeStreamer{chunks: [][]byte{
		delta("t", "kept"),
		done(),
		delta("t", " dropped"),
	}}
	c := newTestController(streamer)
	defer c.Close()

	require.NoError(t, c.Send(context.Background(), "hi"))
	require.NoError(t, waitTerminal(t, c))

	msgs := c.Transcript()
	require.Len(t, msgs, 2)
	assert.Equal(t, "kept", msgs[1].Text())
}

func TestDeltasCorrelateByTurnID(t *testing.T) {
	streamer := &fakeStreamer{chunks: [][]byte{
		delta("same", "a"),
		delta("same", "b"),
		delta("same", "c"),
		done(),
	}}
	c := newTestController(streamer)
	defer c.Close()

	require.NoError(t, c.Send(context.Background(), "hi"))
	require.NoError(t, waitTerminal(t, c))

	msgs := c.Transcript()
	require.Len(t, msgs, 2, "same-ID deltas must land in one message")
	assert.Equal(t, "abc", msgs[1].Text())
}

func TestSnapshotOrderingMatchesArrival(t *testing.T) {
	streamer := &fakeStreamer{chunks: [][]byte{
		delta("t", "1"),
		delta("t", "2"),
		delta("t", "3"),
		done(),
	}}
	c := newTestController(streamer)
	defer c.Close()

	snaps, unsubscribe := c.Subscribe()
	defer unsubscribe()

	require.NoError(t, c.Send(context.Background(), "hi"))
	all, _ := collectUntilSettled(t, snaps)

	// Each successive snapshot's text extends the previous one.
	prevText := ""
	for _, snap := range all {
		text := ""
		for _, s := range snap.Segments {
			text += s.Content
		}
		assert.True(t, len(text) >= len(prevText), "snapshot text shrank: %q -> %q", prevText, text)
		prevText = text
	}
	assert.Equal(t, "123", prevText)
}

func TestNoTurnNoSnapshots(t *testing.T) {
	c := newTestController(&fakeStreamer{})
	defer c.Close()

	state, err := c.State()
	assert.Equal(t, StateIdle, state)
	assert.NoError(t, err)
	assert.Empty(t, c.Transcript())
}

func TestFailureBeforeAnyDelta(t *testing.T) {
	wantErr := errors.New("connection refused")
	streamer := &fakeStreamer{err: wantErr}
	c := newTestController(streamer)
	defer c.Close()

	snaps, unsubscribe := c.Subscribe()
	defer unsubscribe()

	require.NoError(t, c.Send(context.Background(), "hi"))
	termErr := waitTerminal(t, c)
	assert.ErrorIs(t, termErr, wantErr)

	// No assistant message exists, so nothing settles.
	select {
	case snap := <-snaps:
		t.Fatalf("unexpected snapshot: %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}
