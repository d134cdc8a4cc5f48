// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive REPL for gptstream.
//
// Reads prompts with liner, drives turns on the session controller, and
// renders settled segmentations with the terminal renderer wired into the
// classifier.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/gptstream/internal/model"
	"github.com/jeranaias/gptstream/internal/segment"
	"github.com/jeranaias/gptstream/internal/session"
	"github.com/jeranaias/gptstream/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	// Prompt style
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Bold(true)

	// Welcome banner style
	welcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141")).
			Bold(true)

	// Info style
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	// Command style
	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// Warning style
	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// Error style
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// noticeGrace is how long a failed turn waits for its settled snapshot
// before the REPL returns to the prompt. It doubles as the display lifetime
// of the error notice.
const noticeGrace = 2 * time.Second

// settlePoll is the interval at which a turn that produced no snapshots is
// checked for termination.
const settlePoll = 250 * time.Millisecond

// =============================================================================
// CHAT REPL
// =============================================================================

// Options configures the REPL.
type Options struct {
	// Model is the active model name, shown in the banner and /model.
	Model func() string

	// HistoryFile stores the input history ("" = no persistence).
	HistoryFile string

	// Color disables all styling when false.
	Color bool
}

// Chat is the interactive REPL over one session controller.
type Chat struct {
	ctrl *session.Controller
	opts Options
	line *liner.State

	// echoed is the portion of the current turn already written to the
	// terminal as raw streaming text.
	echoed string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a REPL bound to the given controller. Call Close when done to
// persist input history and restore the terminal.
func New(ctrl *session.Controller, opts Options) *Chat {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &Chat{ctrl: ctrl, opts: opts, line: line}
	c.loadHistory()
	return c
}

// Close saves history and closes the liner.
func (c *Chat) Close() {
	c.saveHistory()
	c.line.Close()
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

func (c *Chat) loadHistory() {
	if c.opts.HistoryFile == "" {
		return
	}
	f, err := os.Open(c.opts.HistoryFile)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.ReadHistory(f)
}

func (c *Chat) saveHistory() {
	if c.opts.HistoryFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.opts.HistoryFile), 0755); err != nil {
		return
	}
	f, err := os.Create(c.opts.HistoryFile)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// =============================================================================
// REPL LOOP
// =============================================================================

// Run executes the REPL until the user exits or ctx is cancelled.
func (c *Chat) Run(ctx context.Context) error {
	c.printWelcome()

	// First Ctrl+C cancels the in-flight turn rather than the process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			c.mu.Lock()
			cancel := c.cancel
			c.cancel = nil
			c.mu.Unlock()
			if cancel != nil {
				cancel()
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		input, err := c.line.Prompt(c.styled(promptStyle, "gptstream> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D, or a closed terminal all
			// exit gracefully.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		c.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if !c.handleCommand(input) {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if err := c.runTurn(ctx, input); err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			fmt.Fprintf(os.Stderr, "%s %v\n", c.styled(errorStyle, "[Error]"), err)
		}
	}
}

// =============================================================================
// TURN EXECUTION
// =============================================================================

// runTurn submits one prompt and consumes the turn's snapshots until it
// settles. Intermediate snapshots are echoed as raw text; the settled
// snapshot is printed in rendered form.
func (c *Chat) runTurn(ctx context.Context, prompt string) error {
	snaps, unsubscribe := c.ctrl.Subscribe()
	defer unsubscribe()

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
	}()

	c.echoed = ""
	if err := c.ctrl.Send(turnCtx, prompt); err != nil {
		return err
	}

	poll := time.NewTicker(settlePoll)
	defer poll.Stop()

	// grace stays nil (blocking) until the turn fails or terminates
	// without a settled snapshot.
	var grace <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case snap := <-snaps:
			if !snap.Settled {
				c.echo(snap.Segments)
				continue
			}
			c.finishEcho()
			c.printSettled(snap)
			return nil

		case err := <-c.ctrl.Notices():
			c.finishEcho()
			fmt.Fprintf(os.Stderr, "%s %v\n", c.styled(errorStyle, "[Error]"), err)
			if grace == nil {
				grace = time.After(noticeGrace)
			}

		case <-poll.C:
			// A turn that terminated without producing an assistant
			// message will never settle; notice that and wind down.
			state, _ := c.ctrl.State()
			if state == session.StateTerminal && grace == nil {
				grace = time.After(noticeGrace)
			}

		case <-grace:
			return nil
		}
	}
}

// =============================================================================
// STREAM ECHO
// =============================================================================

// echo writes the newly arrived portion of the turn's text. When a
// reclassification rewrites already-echoed text (a language tag being
// stripped, say) the delta is skipped; the settled rendering is
// authoritative.
func (c *Chat) echo(segs []segment.Segment) {
	join := joinContent(segs)
	if strings.HasPrefix(join, c.echoed) {
		fmt.Print(join[len(c.echoed):])
	}
	c.echoed = join
}

// finishEcho terminates the raw echo line.
func (c *Chat) finishEcho() {
	if c.echoed != "" {
		fmt.Println()
	}
}

// joinContent flattens a segmentation to its raw text.
func joinContent(segs []segment.Segment) string {
	var b strings.Builder
	for i, s := range segs {
		if s.Content == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s.Content)
	}
	return b.String()
}

// printSettled prints the final rendered form of every non-empty segment.
func (c *Chat) printSettled(snap session.Snapshot) {
	fmt.Println()
	for _, s := range snap.Segments {
		if s.IsEmpty() {
			continue
		}
		out := s.Display
		if out == "" {
			out = s.Content
		}
		fmt.Println(out)
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand executes a slash command. Returns false when the REPL
// should exit.
func (c *Chat) handleCommand(input string) bool {
	cmd := strings.ToLower(strings.Fields(input)[0])
	switch cmd {
	case "/quit", "/q", "/exit":
		return false
	case "/help", "/h":
		c.printHelp()
	case "/history":
		c.printHistory()
	case "/model":
		fmt.Printf("%s %s\n",
			c.styled(infoStyle, "[Model]"),
			c.styled(commandStyle, c.modelName()))
	default:
		fmt.Fprintf(os.Stderr, "%s unknown command %s (try /help)\n",
			c.styled(warningStyle, "[Warning]"), cmd)
	}
	return true
}

func (c *Chat) printHelp() {
	fmt.Println(c.styled(infoStyle, "Commands:"))
	fmt.Println("  /help, /h     Show this help")
	fmt.Println("  /history      Show conversation history")
	fmt.Println("  /model        Show the active model")
	fmt.Println("  /quit, /q     Exit")
	fmt.Println("  Ctrl+C        Cancel the current turn")
	fmt.Println("  Ctrl+D        Exit")
}

func (c *Chat) printHistory() {
	msgs := c.ctrl.Transcript()
	if len(msgs) == 0 {
		fmt.Println(c.styled(infoStyle, "No messages yet."))
		return
	}
	for _, m := range msgs {
		label := m.Role.DisplayName()
		if m.Role == model.RoleUser {
			label = c.styled(promptStyle, label)
		} else {
			label = c.styled(commandStyle, label)
		}
		fmt.Printf("%s  %s\n", label, util.TruncateWidth(m.Preview(200), 120))
	}
}

// =============================================================================
// BANNER
// =============================================================================

func (c *Chat) printWelcome() {
	fmt.Println(c.styled(welcomeStyle, "gptstream interactive chat"))
	fmt.Println(c.styled(infoStyle, strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n",
		c.styled(infoStyle, "Model:"),
		c.styled(commandStyle, c.modelName()))
	fmt.Println(c.styled(infoStyle, "Type /help for commands, Ctrl+D to exit."))
	fmt.Println()
}

func (c *Chat) modelName() string {
	if c.opts.Model == nil {
		return "unknown"
	}
	return c.opts.Model()
}

// styled applies a style only when color output is enabled.
func (c *Chat) styled(s lipgloss.Style, text string) string {
	if !c.opts.Color {
		return text
	}
	return s.Render(text)
}
