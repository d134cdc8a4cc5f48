// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package segment classifies streamed assistant text into plain and code spans.
package segment

// FenceMarker is the code-fence delimiter. Three backticks, the common
// markdown convention; the length matters because the classifier inspects
// exactly this many bytes at the tail of the cumulative text.
const FenceMarker = "```"

// =============================================================================
// SEGMENT KIND
// =============================================================================

// Kind distinguishes plain prose from fenced code.
type Kind int

const (
	KindPlain Kind = iota
	KindCode
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindCode:
		return "code"
	default:
		return "unknown"
	}
}

// =============================================================================
// SEGMENT TYPE
// =============================================================================

// Segment is one classified span of an assistant turn's text.
//
// Start and End are byte offsets into the cumulative text the segment was
// derived from. Offsets of consecutive segments are contiguous and together
// cover the whole text, fence delimiters included; Content excludes the
// delimiters and, for code, the language tag line.
type Segment struct {
	Kind    Kind
	Content string

	// Lang is the language tag that followed the opening fence, if any.
	// Empty for plain segments.
	Lang string

	// Offsets into the cumulative text.
	Start int
	End   int

	// Display is the rendered form, computed once when the segment is
	// constructed or its content changes.
	Display string
}

// IsEmpty reports whether the segment carries no content.
func (s Segment) IsEmpty() bool {
	return s.Content == ""
}

// =============================================================================
// RENDERER CONTRACT
// =============================================================================

// Renderer computes the display form of a span. Implementations must be pure
// from the classifier's perspective: same input, same output, no side
// effects.
type Renderer interface {
	Render(text string, kind Kind, lang string) string
}

// PlainRenderer is a Renderer that returns the text unchanged. Useful in
// tests and for non-terminal output.
type PlainRenderer struct{}

// Render implements Renderer.
func (PlainRenderer) Render(text string, _ Kind, _ string) string {
	return text
}
