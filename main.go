// moor - terminal chat client for a remote coding agent.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harborlight/moor-tui/internal/agent"
	"github.com/harborlight/moor-tui/internal/cli"
	"github.com/harborlight/moor-tui/internal/config"
	"github.com/harborlight/moor-tui/internal/storage"
	"github.com/harborlight/moor-tui/internal/ui/chat"
	"github.com/harborlight/moor-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	cfg, err := loadConfig(args)
	if err != nil {
		fatal(err)
	}

	switch cmd {
	case cli.CmdTUI:
		if err := runTUI(args, cfg); err != nil {
			fatal(err)
		}
	case cli.CmdChat:
		if err := cli.HandleChat(args, cfg); err != nil {
			fatal(err)
		}
	case cli.CmdSessions:
		if err := cli.HandleSessions(args, cfg); err != nil {
			fatal(err)
		}
	case cli.CmdExport:
		if err := cli.HandleExport(args, cfg); err != nil {
			fatal(err)
		}
	case cli.CmdConfig:
		if err := cli.HandleConfig(args, cfg); err != nil {
			fatal(err)
		}
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	}
}

func loadConfig(args cli.Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		return config.LoadFromPath(args.ConfigPath)
	}
	return config.Load()
}

// runTUI starts the chat TUI: persisted store, loopback agent, and the
// bubbletea program with focus reporting for status staleness.
func runTUI(args cli.Args, cfg *config.Config) error {
	if !cli.IsTTY() {
		return fmt.Errorf("the TUI requires a terminal; try 'moor chat' or 'moor help'")
	}

	if err := config.EnsureConfigDir(); err != nil {
		return err
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		return err
	}
	db, err := storage.OpenSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer db.Close()

	store := storage.NewStore()
	if err := db.Load(store); err != nil {
		return err
	}
	detach := db.Attach(store)
	defer detach()

	// Resume the most recent session or start fresh.
	var sessionID string
	if sessions := store.Sessions(); len(sessions) > 0 {
		sessionID = sessions[len(sessions)-1].ID
	} else {
		sessionID = store.CreateSession("chat").ID
	}

	client := agent.NewLoopback(agent.DefaultStreamDelay, true)
	defer client.Close()

	theme := styles.New(cfg.UI.Theme)
	m := chat.New(cfg, theme, store, client, sessionID)

	opts := []tea.ProgramOption{
		tea.WithReportFocus(), // blur/focus drives status staleness
	}
	if cfg.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.UI.Mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}

	p := tea.NewProgram(m, opts...)

	// Live-reload the viewport tuning while the TUI runs.
	if path, err := config.ConfigPath(); err == nil {
		if stop, err := config.Watch(path, func(next *config.Config) {
			p.Send(chat.ConfigReloadedMsg{Config: next})
		}); err == nil {
			defer stop()
		}
	}

	_, err = p.Run()
	return err
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "moor: %v\n", err)
	os.Exit(1)
}
