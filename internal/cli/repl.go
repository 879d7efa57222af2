// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - interactive REPL front end over a conversation session.
//
// Command: geniotext -repl
//
// Interactive commands (during chat):
//   /help, /h           Show available commands
//   /history            List stored conversations
//   /show N             Print the transcript of conversation N
//   /resume N|id        Switch to conversation N (or a full id)
//   /new                Start a fresh conversation
//   /quit, /q           Exit
//   Ctrl+C, Ctrl+D      Exit
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/JoaoDevFullStack/genio-text/internal/config"
	"github.com/JoaoDevFullStack/genio-text/internal/conversation"
	"github.com/JoaoDevFullStack/genio-text/internal/session"
	"github.com/JoaoDevFullStack/genio-text/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	replyStyle = lipgloss.NewStyle().
			Foreground(styles.Indigo)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)
)

// =============================================================================
// REPL
// =============================================================================

// REPL drives a session from a line-oriented terminal loop.
type REPL struct {
	sess  *session.Session
	input *InputCLI

	// replyTimeout bounds how long one exchange may take before the
	// REPL gives up waiting for events.
	replyTimeout time.Duration

	// paced controls progressive reveal printing. Only sensible on a
	// terminal; piped output gets each reply in one piece.
	paced bool

	// renderer formats completed replies as markdown; nil falls back to
	// plain styled text.
	renderer *glamour.TermRenderer
}

// NewREPL creates a REPL over the given session.
func NewREPL(sess *session.Session, replyTimeout time.Duration) *REPL {
	if replyTimeout <= 0 {
		replyTimeout = 2 * time.Minute
	}
	return &REPL{
		sess:         sess,
		input:        NewInputCLI(),
		replyTimeout: replyTimeout,
		paced:        term.IsTerminal(int(os.Stdout.Fd())),
		renderer:     newReplyRenderer(),
	}
}

// newReplyRenderer builds the markdown renderer, or nil when markdown
// is disabled or the terminal cannot support one. The REPL is not
// wired to a config value, so it consults the global.
func newReplyRenderer() *glamour.TermRenderer {
	ui := config.Global().UI
	if !ui.Markdown {
		return nil
	}
	wrap := ui.WordWrap
	if wrap <= 0 {
		wrap = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil
	}
	return r
}

// Run enters the read-eval-print loop. It returns when the user quits,
// input reaches EOF, or the session redirects.
func (r *REPL) Run(entry session.EntryParams) error {
	defer r.input.Close()

	r.sess.Resolve(entry)
	if entry.Prompt != "" {
		// The entry prompt dispatched a round-trip; show its reply
		// before prompting for more input.
		fmt.Println(promptStyle.Render("you> ") + strings.TrimSpace(entry.Prompt))
		if err := r.awaitReply(); err != nil {
			return err
		}
	} else if entry.ConversationID != "" {
		if err := r.awaitResume(); err != nil {
			return err
		}
		r.printTranscript()
	}

	for {
		input, err := r.input.ReadInput(promptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
				return nil
			}
			// EOF (Ctrl+D) or a real terminal error: either way the
			// loop is over.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			cont, err := r.handleCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !cont {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if err := r.sess.Send(input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			continue
		}
		if err := r.awaitReply(); err != nil {
			return err
		}
	}
}

// errRedirected reports that the session asked the front end to
// navigate back to the entry surface.
var errRedirected = errors.New("session redirected: sign in, then start with -prompt or -resume")

// awaitReply drains session events until the in-flight exchange
// finishes. On a terminal the reveal is printed progressively; piped
// output gets the whole reply at once, rendered as markdown.
func (r *REPL) awaitReply() error {
	var printed int
	var expectID string
	label := false
	deadline := time.After(r.replyTimeout)

	for {
		select {
		case ev, ok := <-r.sess.Events():
			if !ok {
				return nil
			}
			switch ev.Type {
			case session.EventRedirect:
				return errRedirected

			case session.EventMessages:
				// Only the placeholder this exchange appended counts;
				// snapshots queued by history switches or refreshes
				// carry already-resolved messages and are skipped.
				last := lastAssistant(ev.Messages)
				if last == nil {
					continue
				}
				if last.Pending {
					expectID = last.ID
					continue
				}
				if last.ID != expectID {
					continue
				}
				// A resolved placeholder with an error ends the
				// exchange. A successful one ends it too when output
				// is piped; on a terminal the reveal events that
				// follow carry the display.
				if last.ErrorText != "" {
					fmt.Println(errorStyle.Render(last.ErrorText))
					return nil
				}
				if !r.paced {
					fmt.Println(promptStyle.Render("genio> ") + r.renderReply(last.Content))
					return nil
				}

			case session.EventReveal:
				// Reveal events from a superseded exchange can still
				// be queued; match on the message id.
				if ev.RevealMessageID != expectID {
					continue
				}
				if !label {
					fmt.Print(promptStyle.Render("genio> "))
					label = true
				}
				prefix := []rune(ev.RevealPrefix)
				if len(prefix) > printed {
					fmt.Print(replyStyle.Render(string(prefix[printed:])))
					printed = len(prefix)
				}
				if ev.RevealDone {
					fmt.Println()
					return nil
				}
			}

		case <-deadline:
			fmt.Println(errorStyle.Render("[Timed out waiting for a reply]"))
			return nil
		}
	}
}

// renderReply formats a completed reply as markdown, falling back to
// plain styled text.
func (r *REPL) renderReply(content string) string {
	if r.renderer != nil {
		if out, err := r.renderer.Render(content); err == nil {
			return strings.TrimSpace(out)
		}
	}
	return replyStyle.Render(content)
}

// awaitResume waits until the session either adopts the requested
// conversation or redirects.
func (r *REPL) awaitResume() error {
	deadline := time.After(r.replyTimeout)
	for {
		select {
		case ev, ok := <-r.sess.Events():
			if !ok {
				return nil
			}
			switch ev.Type {
			case session.EventRedirect:
				return errRedirected
			case session.EventMessages:
				return nil
			}
		case <-deadline:
			return errors.New("timed out resuming conversation")
		}
	}
}

// printTranscript prints the current conversation's messages.
func (r *REPL) printTranscript() {
	for _, msg := range r.sess.Messages() {
		switch {
		case msg.Pending:
			continue
		case msg.ErrorText != "":
			fmt.Println(errorStyle.Render(msg.ErrorText))
		case msg.Role == conversation.RoleUser:
			fmt.Println(promptStyle.Render("you> ") + msg.Content)
		default:
			fmt.Println(promptStyle.Render("genio> ") + r.renderReply(msg.Content))
		}
	}
}
