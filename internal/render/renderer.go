// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render computes terminal display forms for classified segments.
package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/gptstream/internal/segment"
)

// =============================================================================
// RENDERER
// =============================================================================

// Options configures the terminal renderer.
type Options struct {
	// WordWrap is the markdown wrap column (default: 80).
	WordWrap int

	// CodeStyle is the chroma style name (default: "monokai").
	CodeStyle string

	// Color disables all styling when false (e.g. piped output).
	Color bool
}

// DefaultOptions returns the default renderer options.
func DefaultOptions() Options {
	return Options{
		WordWrap:  80,
		CodeStyle: "monokai",
		Color:     true,
	}
}

// Terminal renders segments for terminal display. It implements
// segment.Renderer.
type Terminal struct {
	opts     Options
	markdown *glamour.TermRenderer
	frame    lipgloss.Style
}

// NewTerminal creates a renderer. A markdown renderer initialization failure
// degrades to plain text output rather than failing the session.
func NewTerminal(opts Options) *Terminal {
	if opts.WordWrap <= 0 {
		opts.WordWrap = 80
	}
	if opts.CodeStyle == "" {
		opts.CodeStyle = "monokai"
	}

	t := &Terminal{opts: opts}

	if opts.Color {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(opts.WordWrap),
		)
		if err == nil {
			t.markdown = md
		}

		t.frame = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	}

	return t
}

// Render implements segment.Renderer.
func (t *Terminal) Render(text string, kind segment.Kind, lang string) string {
	if text == "" {
		return ""
	}
	if kind == segment.KindCode {
		return t.renderCode(text, lang)
	}
	return t.renderMarkdown(text)
}

// =============================================================================
// MARKDOWN
// =============================================================================

// renderMarkdown renders a plain segment for terminal display. Returns the
// original content if rendering fails or the renderer is unavailable.
func (t *Terminal) renderMarkdown(content string) string {
	if t.markdown == nil {
		return content
	}
	rendered, err := t.markdown.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// renderCode applies syntax highlighting and a border frame to a code
// segment.
func (t *Terminal) renderCode(code, lang string) string {
	if !t.opts.Color {
		return code
	}

	highlighted := highlightCode(code, lang, t.opts.CodeStyle)

	header := ""
	if lang != "" {
		header = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Bold(true).
			Render(lang) + "\n"
	}

	return t.frame.Render(header + highlighted)
}

// highlightCode applies syntax highlighting to code using the chroma library.
// This provides proper ANSI-safe syntax highlighting for terminal output.
func highlightCode(code, language, styleName string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code // Fallback to plain text
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}

	return buf.String()
}

// =============================================================================
// TERMINAL CAPABILITIES
// =============================================================================

// SupportsColor reports whether the running terminal supports colored
// output.
func SupportsColor() bool {
	return termenv.ColorProfile() != termenv.Ascii
}
