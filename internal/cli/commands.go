// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - slash command handling for the geniotext REPL.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JoaoDevFullStack/genio-text/internal/conversation"
	"github.com/JoaoDevFullStack/genio-text/internal/util"
)

// handleCommand dispatches one slash command. The returned bool is
// false when the REPL should exit.
func (r *REPL) handleCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "/help", "/h":
		printHelp()
		return true, nil

	case "/history":
		r.printHistory()
		return true, nil

	case "/show":
		if len(fields) < 2 {
			return true, fmt.Errorf("usage: /show N (see /history)")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return true, fmt.Errorf("usage: /show N (see /history)")
		}
		return true, r.showConversation(n)

	case "/resume":
		if len(fields) < 2 {
			return true, fmt.Errorf("usage: /resume N|id (see /history)")
		}
		return true, r.resumeConversation(fields[1])

	case "/new":
		if err := r.sess.StartNew(); err != nil {
			return true, err
		}
		fmt.Println(infoStyle.Render("Started a new conversation."))
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command %q (try /help)", cmd)
	}
}

func printHelp() {
	fmt.Println(infoStyle.Render(`Commands:
  /help, /h      Show this help
  /history       List stored conversations
  /show N        Print the transcript of conversation N
  /resume N|id   Switch to conversation N (or a full id)
  /new           Start a fresh conversation
  /quit, /q      Exit`))
}

// printHistory lists the stored conversations as a table, newest first.
func (r *REPL) printHistory() {
	history := r.sess.History()
	if len(history) == 0 {
		fmt.Println(infoStyle.Render("No conversations yet."))
		return
	}

	const titleWidth = 40
	fmt.Println(infoStyle.Render(
		"  # " + util.PadWidth("Title", titleWidth) + " " + util.PadWidth("Date", 10) + " Messages"))
	for i, conv := range history {
		marker := " "
		if conv.ID == r.sess.CurrentID() {
			marker = "*"
		}
		fmt.Printf("%s %2d %s %s %8d\n",
			marker,
			i+1,
			util.PadWidth(util.TruncateWidth(conv.Title, titleWidth), titleWidth),
			util.PadWidth(conv.DisplayDate, 10),
			len(conv.Messages),
		)
	}
}

// showConversation prints the transcript of the nth conversation from
// /history (1-based).
func (r *REPL) showConversation(n int) error {
	history := r.sess.History()
	if n < 1 || n > len(history) {
		return fmt.Errorf("no conversation %d (have %d)", n, len(history))
	}

	conv := history[n-1]
	fmt.Println(infoStyle.Render(conv.Title + " (" + conv.DisplayDate + ")"))
	for _, msg := range conv.Messages {
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
	return nil
}

// resumeConversation switches the session to another stored
// conversation, addressed either by its /history index or by id.
func (r *REPL) resumeConversation(target string) error {
	id := target
	if n, err := strconv.Atoi(target); err == nil {
		history := r.sess.History()
		if n < 1 || n > len(history) {
			return fmt.Errorf("no conversation %d (have %d)", n, len(history))
		}
		id = history[n-1].ID
	}

	if err := r.sess.Switch(id); err != nil {
		return err
	}
	r.printTranscript()
	return nil
}

// lastAssistant returns the trailing assistant message, or nil.
func lastAssistant(msgs []conversation.Message) *conversation.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == conversation.RoleAssistant {
			return &msgs[i]
		}
	}
	return nil
}
