// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks provides a serialized background work queue.
//
// The queue runs submitted items on a single dedicated worker goroutine, in
// submission order, with at most one item executing at any instant.
// Submission never blocks the caller. Each time the pending count returns to
// zero the queue fires its drained callback exactly once; that signal is how
// the session controller learns that all queued classification work for a
// turn has completed.
package tasks
