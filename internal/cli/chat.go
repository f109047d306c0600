// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/harborlight/moor-tui/internal/agent"
	"github.com/harborlight/moor-tui/internal/config"
	"github.com/harborlight/moor-tui/internal/model"
	"github.com/harborlight/moor-tui/internal/storage"
)

// historyFile is where the readline history lives, under the config dir.
const historyFile = "history"

// ChatREPL is the plain line-based chat fallback for terminals where the
// TUI is unwanted (dumb terminals, scripting, screen readers).
type ChatREPL struct {
	line   *liner.State
	store  *storage.Store
	client agent.Client

	sessionID string
	histPath  string
}

// NewChatREPL creates the REPL around an existing store and client.
func NewChatREPL(store *storage.Store, client agent.Client) *ChatREPL {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &ChatREPL{line: line, store: store, client: client}

	if dir, err := config.ConfigDir(); err == nil {
		r.histPath = filepath.Join(dir, historyFile)
		if f, err := os.Open(r.histPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}

	ses := store.CreateSession("cli chat")
	r.sessionID = ses.ID
	return r
}

// Close saves history and restores the terminal.
func (r *ChatREPL) Close() {
	if r.histPath != "" {
		if f, err := os.Create(r.histPath); err == nil {
			_, _ = r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// Run is the REPL loop: read a line, stream the reply to stdout, repeat.
func (r *ChatREPL) Run() error {
	fmt.Println("moor chat - type a message, ctrl+d to exit")

	for {
		input, err := r.line.Prompt("> ")
		if err != nil {
			if err == liner.ErrPromptAborted {
				continue
			}
			fmt.Println()
			return nil // EOF ends the session
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" {
			return nil
		}
		r.line.AppendHistory(input)

		r.store.AppendMessage(model.NewUserMessage(r.sessionID, input))
		if err := r.client.Prompt(context.Background(), r.sessionID, input); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if err := r.streamReply(); err != nil {
			return err
		}
	}
}

// streamReply prints agent events until the turn completes. Permission
// requests are answered inline on the same prompt.
func (r *ChatREPL) streamReply() error {
	for ev := range r.client.Events() {
		if ev.SessionID != r.sessionID {
			continue
		}
		switch ev.Kind {
		case agent.EventPartDelta:
			if ev.PartKind == model.PartText {
				fmt.Print(ev.Delta)
			}
		case agent.EventToolStatus:
			if ev.ToolStatus == model.ToolRunning {
				fmt.Printf("[%s...]\n", ev.ToolName)
			}
		case agent.EventPermissionRequested:
			answer, err := r.line.Prompt(fmt.Sprintf("allow %s? [y/N] ", ev.ToolName))
			if err == nil && strings.EqualFold(strings.TrimSpace(answer), "y") {
				r.client.Grant(ev.PermissionID)
			} else {
				r.client.Deny(ev.PermissionID)
			}
		case agent.EventMessageCompleted:
			fmt.Println()
			if ev.FinishReason == model.FinishAborted {
				fmt.Println("(interrupted)")
			}
			return nil
		case agent.EventError:
			fmt.Fprintf(os.Stderr, "\nerror: %v\n", ev.Err)
			return nil
		}
	}
	return nil
}

// HandleChat runs the readline chat command.
func HandleChat(args Args, cfg *config.Config) error {
	if !IsTTY() {
		return fmt.Errorf("chat requires a terminal")
	}

	client := agent.NewLoopback(agent.DefaultStreamDelay, true)
	defer client.Close()

	store := storage.NewStore()
	repl := NewChatREPL(store, client)
	defer repl.Close()

	return repl.Run()
}
