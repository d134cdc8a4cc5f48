// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks provides a serialized background work queue.
package tasks

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Submit after Close has been called.
var ErrQueueClosed = errors.New("work queue is closed")

// =============================================================================
// SERIAL QUEUE
// =============================================================================

// Queue executes submitted functions one at a time, in submission order, on a
// single worker goroutine.
//
// The drained callback fires on the worker goroutine each time the pending
// count transitions to zero. It never fires concurrently with a work item.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []func()
	pending int
	closed  bool

	onDrained func()

	done chan struct{}
}

// NewQueue creates a queue and starts its worker. onDrained may be nil.
func NewQueue(onDrained func()) *Queue {
	q := &Queue{
		onDrained: onDrained,
		done:      make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.worker()
	return q
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit enqueues a work item. It never blocks: the item is buffered and the
// worker picks it up in FIFO order. Returns ErrQueueClosed after Close.
func (q *Queue) Submit(fn func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, fn)
	q.pending++
	q.cond.Signal()
	return nil
}

// Pending returns the number of items not yet completed, including the one
// currently executing.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// IsDrained reports whether no work is queued or executing.
func (q *Queue) IsDrained() bool {
	return q.Pending() == 0
}

// =============================================================================
// SHUTDOWN
// =============================================================================

// Close stops accepting new work. Items already queued still run to
// completion; use Wait to block until they have.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Signal()
	q.mu.Unlock()
}

// Wait blocks until the queue is closed and all remaining work has finished.
func (q *Queue) Wait() {
	<-q.done
}

// =============================================================================
// WORKER
// =============================================================================

func (q *Queue) worker() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 && q.closed {
			q.mu.Unlock()
			return
		}

		fn := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		fn()

		q.mu.Lock()
		q.pending--
		drained := q.pending == 0
		q.mu.Unlock()

		if drained && q.onDrained != nil {
			q.onDrained()
		}
	}
}
