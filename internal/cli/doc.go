// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the interactive gptstream REPL.
//
// USABILITY: Markdown rendering and history for better CLI experience
//
// The REPL reads prompts with line editing and persistent history, submits
// them as turns on the session controller, echoes the response text as it
// streams, and prints the fully rendered segmentation once the turn settles.
//
// Interactive commands (during chat):
//
//	/help, /h     Show available commands
//	/history      Show conversation history
//	/model        Show the active model
//	/quit, /q     Exit
//	Ctrl+C        Cancel the current turn
//	Ctrl+D        Exit
package cli
