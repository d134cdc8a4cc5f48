// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render computes terminal display forms for classified segments.
//
// Plain segments go through glamour's markdown renderer; code segments are
// syntax-highlighted with chroma and framed with lipgloss. The package
// implements segment.Renderer and is the "syntax-highlighting service"
// collaborator the classifier delegates presentation to: rendering is pure
// per input and computed once per segment construction.
package render
