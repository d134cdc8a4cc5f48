// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package segment classifies streamed assistant text into an ordered,
// alternating sequence of plain-text and code spans.
//
// Classification is incremental: every time the cumulative text grows, the
// classifier derives the new segment list from the previous one, reusing all
// segments except the last. Only the last segment is ever replaced or
// extended, which bounds the cost of a reclassification pass regardless of
// how long the response has become.
//
// The code-fence convention is a three-character delimiter (```); see
// FenceMarker. A fence arriving at the tail of the cumulative text closes the
// current span and opens an empty span of the opposite kind.
//
// # Key Types
//
//   - Segment: one classified span with offsets into the cumulative text
//   - Classifier: performs the incremental reclassification
//   - Renderer: collaborator that computes a segment's display form
package segment
