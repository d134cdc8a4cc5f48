// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package segment classifies streamed assistant text into plain and code spans.
package segment

import (
	"strings"
)

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classifier performs the incremental reclassification of a growing text.
//
// Classify has no I/O and no internal state: the previous segment list plus
// the new cumulative text fully determine the result. The configured Renderer
// is invoked once per constructed or changed segment to compute its display
// form; untouched segments keep the display they were built with.
type Classifier struct {
	renderer Renderer
}

// NewClassifier creates a classifier using the given renderer. A nil renderer
// falls back to PlainRenderer.
func NewClassifier(r Renderer) *Classifier {
	if r == nil {
		r = PlainRenderer{}
	}
	return &Classifier{renderer: r}
}

// Classify derives the segment list for the cumulative text from the previous
// list. All segments except the last are reused as-is; the last is extended
// or replaced, and a fence at the tail of the text appends a fresh empty
// segment of the opposite kind.
//
// Guarantees, for any prev produced by this classifier from a prefix of text:
//   - segment offsets tile [0, len(text)) contiguously
//   - kinds strictly alternate
//   - Classify(Classify(prev, text), text) == Classify(prev, text)
func (c *Classifier) Classify(prev []Segment, text string) []Segment {
	if len(prev) == 0 && text == "" {
		return nil
	}

	if strings.HasSuffix(text, FenceMarker) {
		return c.closeSpan(prev, text)
	}
	return c.extendSpan(prev, text)
}

// =============================================================================
// FENCE AT TAIL
// =============================================================================

// closeSpan handles a fence marker at the tail of the text: the current span
// is sealed (its content absorbing everything up to the fence) and an empty
// span of the opposite kind is anchored at the current text length.
func (c *Classifier) closeSpan(prev []Segment, text string) []Segment {
	n := len(text)
	body := n - len(FenceMarker)

	if len(prev) == 0 {
		// A fence as the very first classified content. The placeholder
		// plain span keeps alternation and offset coverage intact even
		// when it is empty; the renderer filters empty spans.
		head := c.newSegment(KindPlain, text[:body], "", 0, n)
		code := c.newSegment(KindCode, "", "", n, n)
		return []Segment{head, code}
	}

	last := prev[len(prev)-1]

	// Replaying the same text must not open another span.
	if last.IsEmpty() && last.Start == n {
		return prev
	}

	// A tail overlapping the span's own opening fence is not a closing
	// fence; the extra backticks are span content.
	if body < last.Start {
		return c.extendSpan(prev, text)
	}

	out := make([]Segment, len(prev)-1, len(prev)+1)
	copy(out, prev[:len(prev)-1])

	next := KindCode
	if last.Kind == KindCode {
		next = KindPlain
	}

	out = append(out, c.sealSegment(last, text, body, n))
	out = append(out, c.newSegment(next, "", "", n, n))
	return out
}

// sealSegment extends a span to the current length, absorbing the text
// between its anchor and the fence into its content. Recomputing from the
// anchor retracts fence backticks a previous pass committed as content when
// the fence arrived split across deltas.
func (c *Classifier) sealSegment(last Segment, text string, body, n int) Segment {
	if last.Kind == KindCode {
		content, lang := codeContent(text[last.Start:body], true)
		return c.rebuild(last, content, lang, n)
	}
	return c.rebuild(last, text[last.Start:body], last.Lang, n)
}

// =============================================================================
// NO FENCE AT TAIL
// =============================================================================

// extendSpan handles the ordinary case: the new suffix of the text belongs to
// the last span.
func (c *Classifier) extendSpan(prev []Segment, text string) []Segment {
	n := len(text)

	if len(prev) == 0 {
		return []Segment{c.newSegment(KindPlain, text, "", 0, n)}
	}

	last := prev[len(prev)-1]
	if last.End == n && last.Kind == KindPlain {
		return prev
	}

	out := make([]Segment, len(prev)-1, len(prev))
	copy(out, prev[:len(prev)-1])

	if last.Kind == KindCode {
		// Code content is recomputed from the span's anchor each pass so
		// that a language tag split across deltas is still recognized.
		content, lang := codeContent(text[last.Start:n], false)
		return append(out, c.rebuild(last, content, lang, n))
	}

	return append(out, c.rebuild(last, last.Content+text[last.End:n], last.Lang, n))
}

// =============================================================================
// HELPERS
// =============================================================================

// codeContent strips the language tag line and leading whitespace from the
// raw text of a code span. The tag is the first line after the opening fence
// when it looks like a language identifier; it must not appear inside the
// rendered code.
//
// While the span is still open (final == false) a tail with no newline that
// could be a partial tag is withheld rather than committed as content; the
// next pass re-derives it from the anchor once more bytes have arrived.
func codeContent(raw string, final bool) (content, lang string) {
	if nl := strings.IndexByte(raw, '\n'); nl >= 0 {
		head := raw[:nl]
		if isLanguageTag(head) {
			lang = head
			raw = raw[nl+1:]
		}
	} else if !final && raw != "" && isLanguageTag(raw) {
		return "", ""
	}
	return strings.TrimLeft(raw, " \t\r\n"), lang
}

// isLanguageTag reports whether a fence header line is a plausible language
// identifier (e.g. "python", "c++", "objective-c").
func isLanguageTag(s string) bool {
	if len(s) > 32 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '+' || r == '-' || r == '_' || r == '.' || r == '#':
		default:
			return false
		}
	}
	return true
}

// newSegment constructs a segment and computes its display form.
func (c *Classifier) newSegment(kind Kind, content, lang string, start, end int) Segment {
	return Segment{
		Kind:    kind,
		Content: content,
		Lang:    lang,
		Start:   start,
		End:     end,
		Display: c.renderer.Render(content, kind, lang),
	}
}

// rebuild re-emits a segment with updated content and end offset, refreshing
// the display only when the content actually changed.
func (c *Classifier) rebuild(old Segment, content, lang string, end int) Segment {
	seg := old
	seg.Content = content
	seg.Lang = lang
	seg.End = end
	if content != old.Content {
		seg.Display = c.renderer.Render(content, seg.Kind, seg.Lang)
	}
	return seg
}
