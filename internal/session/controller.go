// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns one in-flight chat exchange.
package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/jeranaias/gptstream/internal/model"
	"github.com/jeranaias/gptstream/internal/openai"
	"github.com/jeranaias/gptstream/internal/segment"
	"github.com/jeranaias/gptstream/internal/tasks"
)

// ErrTurnInFlight is returned by Send while a previous turn is still
// sending or receiving.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// snapshotBuffer is the per-subscriber channel depth. Slow subscribers lose
// intermediate snapshots, never the ordering of the ones they do see.
const snapshotBuffer = 64

// Streamer is the transport collaborator: it delivers raw response body
// chunks to the handler in arrival order. Satisfied by *openai.Client.
type Streamer interface {
	StreamChat(ctx context.Context, messages []openai.ChatMessage, handler openai.ChunkHandler) error
}

// =============================================================================
// TURN
// =============================================================================

// turn bundles the state of one assistant response.
//
// msg is mutated only on the stream-delivery goroutine; segments only on the
// queue worker. The drained callback also runs on the worker, so it may read
// segments without synchronization.
type turn struct {
	msg      *model.Message
	segments []segment.Segment
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the transcript and the single in-flight exchange.
//
// Construct one per conversation with NewController and share it by handle;
// there is no process-wide instance.
type Controller struct {
	client     Streamer
	classifier *segment.Classifier
	queue      *tasks.Queue

	mu             sync.Mutex
	state          State
	termErr        error
	transcript     *model.Transcript
	parser         *openai.StreamParser
	current        *turn
	lastClassified string
	streamDone     bool

	subs    map[int]chan Snapshot
	nextSub int
	notices chan error
}

// NewController creates a controller over the given transport and classifier.
func NewController(client Streamer, classifier *segment.Classifier) *Controller {
	c := &Controller{
		client:     client,
		classifier: classifier,
		state:      StateIdle,
		transcript: model.NewTranscript(),
		subs:       make(map[int]chan Snapshot),
		notices:    make(chan error, 1),
	}
	c.queue = tasks.NewQueue(c.handleDrained)
	return c
}

// State returns the current session state and, in terminal state, the error
// that ended the turn (nil for a clean finish).
func (c *Controller) State() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.termErr
}

// Transcript returns a read-only copy of the message list.
func (c *Controller) Transcript() []*model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.All()
}

// Close shuts down the classification queue. Outstanding work still runs.
func (c *Controller) Close() {
	c.queue.Close()
	c.queue.Wait()
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers a snapshot observer. The returned cancel function must
// be called when the observer is done.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Snapshot, snapshotBuffer)
	c.subs[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
	return ch, cancel
}

// Notices delivers at most one error notice per failed turn. Display and
// auto-dismissal are the consumer's concern.
func (c *Controller) Notices() <-chan error {
	return c.notices
}

// publish fans a snapshot out to all subscribers. Sends never block; a full
// subscriber loses this snapshot.
func (c *Controller) publish(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			log.Printf("WARNING: snapshot subscriber full, dropped update for message %s", snap.MessageID)
		}
	}
}

// =============================================================================
// SENDING A TURN
// =============================================================================

// Send submits a new user turn. The user message is appended to the
// transcript immediately and the request is issued in the background; the
// call returns once the turn is accepted.
//
// Send fails with ErrTurnInFlight while a previous turn is still active.
func (c *Controller) Send(ctx context.Context, prompt string) error {
	c.mu.Lock()
	if c.state == StateSending || c.state == StateReceiving {
		c.mu.Unlock()
		return ErrTurnInFlight
	}

	c.state = StateSending
	c.termErr = nil
	c.streamDone = false
	c.parser = openai.NewStreamParser()
	c.current = nil
	c.lastClassified = ""
	c.transcript.Append(model.NewUserMessage(prompt))
	c.mu.Unlock()

	go c.run(ctx, prompt)
	return nil
}

// run drives one streaming exchange to its terminal state.
func (c *Controller) run(ctx context.Context, prompt string) {
	messages := []openai.ChatMessage{{Role: model.RoleUser.String(), Content: prompt}}

	err := c.client.StreamChat(ctx, messages, c.handleChunk)
	if err != nil {
		c.fail(err)
		return
	}

	// A stream that ends without the sentinel or an error is truncated.
	c.mu.Lock()
	terminal := c.state == StateTerminal
	c.mu.Unlock()
	if !terminal {
		c.fail(&openai.ClientError{Type: openai.ErrTypeTransport, Message: "stream ended without done sentinel"})
	}
}

// =============================================================================
// CHUNK INGESTION
// =============================================================================

// handleChunk runs on the stream-delivery goroutine, one chunk at a time.
// Returning an error aborts the transport read loop.
func (c *Controller) handleChunk(chunk []byte) error {
	c.mu.Lock()
	if c.state == StateSending {
		c.state = StateReceiving
	}
	if c.state != StateReceiving {
		// Terminal turn: later-arriving bytes are ignored.
		c.mu.Unlock()
		return nil
	}
	parser := c.parser
	c.mu.Unlock()

	events, err := parser.Feed(chunk)
	if err != nil {
		return err
	}

	for _, ev := range events {
		switch ev.Type {
		case openai.EventDone:
			c.finish()
			return nil
		case openai.EventDelta:
			c.applyDelta(ev)
		}
	}
	return nil
}

// applyDelta appends a delta fragment to its turn's message and queues a
// reclassification pass over the new cumulative text.
func (c *Controller) applyDelta(ev openai.Event) {
	c.mu.Lock()

	// Correlation rule: the chunk belongs to the transcript's last message
	// iff that message's turn ID matches; otherwise a new assistant
	// message is appended. The single-active-turn invariant is what keeps
	// this unambiguous.
	if c.current == nil || c.current.msg.ID != ev.TurnID {
		t := &turn{msg: model.NewAssistantMessage(ev.TurnID)}
		c.transcript.Append(t.msg)
		c.current = t
	}

	t := c.current
	t.msg.Append(ev.Text)
	text := t.msg.Text()

	if text == c.lastClassified {
		c.mu.Unlock()
		return
	}
	c.lastClassified = text
	c.mu.Unlock()

	// Each delta is reflected in exactly one classification pass, executed
	// in submission order on the queue worker.
	if err := c.queue.Submit(func() {
		t.segments = c.classifier.Classify(t.segments, text)
		c.publish(Snapshot{
			MessageID: t.msg.ID,
			Segments:  copySegments(t.segments),
			Settled:   false,
		})
	}); err != nil {
		log.Printf("WARNING: classification work rejected: %v", err)
	}
}

// =============================================================================
// TERMINAL TRANSITIONS
// =============================================================================

// finish handles the clean Done sentinel.
func (c *Controller) finish() {
	c.terminate(nil)
}

// fail handles any fatal error. The error is surfaced exactly once.
func (c *Controller) fail(err error) {
	c.terminate(err)
}

func (c *Controller) terminate(err error) {
	c.mu.Lock()
	if c.state == StateTerminal {
		c.mu.Unlock()
		return
	}
	c.state = StateTerminal
	c.termErr = err
	c.streamDone = true
	if c.current != nil {
		c.current.msg.Finalize()
	}
	c.mu.Unlock()

	if err != nil {
		select {
		case c.notices <- err:
		default:
			log.Printf("WARNING: notice channel full, dropped error: %v", err)
		}
	}

	// Nudge the queue so the drained callback runs after any backlog,
	// covering the case where the queue was already empty when the stream
	// ended.
	if submitErr := c.queue.Submit(func() {}); submitErr != nil {
		c.handleDrained()
	}
}

// handleDrained runs on the queue worker each time pending work reaches
// zero. The turn settles only when the stream is also terminal.
func (c *Controller) handleDrained() {
	c.mu.Lock()
	done := c.streamDone && c.state == StateTerminal
	t := c.current
	c.mu.Unlock()

	if !done || t == nil {
		return
	}

	c.publish(Snapshot{
		MessageID: t.msg.ID,
		Segments:  copySegments(t.segments),
		Settled:   true,
	})
}

// copySegments returns an immutable snapshot of a segment list.
func copySegments(segs []segment.Segment) []segment.Segment {
	out := make([]segment.Segment, len(segs))
	copy(out, segs)
	return out
}
