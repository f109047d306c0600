// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdSessions
	CmdExport
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Quiet      bool

	// Command-specific
	SessionID  string
	OutputPath string
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `moor - terminal chat client for a remote coding agent

Moor keeps long streaming replies readable: when you send a message the
viewport anchors to it and holds position while the answer grows below,
instead of chasing the bottom of the screen.

Usage:
  moor                       Start the TUI (default)
  moor chat                  Plain readline chat (no TUI)
  moor sessions              List stored sessions
  moor export <session-id>   Export a session transcript
  moor config [show|path]    Configuration
  moor version               Show version
  moor help                  Show this help

Flags:
  --config <path>            Use an alternate config file
  -q, --quiet                Suppress non-essential output

Keys (TUI):
  enter       send            esc         interrupt the agent
  pgup/pgdn   scroll          end         jump to latest
  y / n       answer a permission prompt
  ctrl+c      quit

Configuration: ~/.moor/config.toml (MOOR_* env vars override)
`

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses an argument list. Split out from Parse for tests.
func ParseArgs(argv []string) (Command, Args) {
	var args Args
	var rest []string

	for i := 0; i < len(argv); i++ {
		a := argv[i]
		switch {
		case a == "--config":
			if i+1 < len(argv) {
				i++
				args.ConfigPath = argv[i]
			}
		case strings.HasPrefix(a, "--config="):
			args.ConfigPath = strings.TrimPrefix(a, "--config=")
		case a == "-q" || a == "--quiet":
			args.Quiet = true
		default:
			rest = append(rest, a)
		}
	}
	args.Raw = rest

	if len(rest) == 0 {
		return CmdTUI, args
	}

	cmd := rest[0]
	rest = rest[1:]
	args.Raw = rest

	switch cmd {
	case "chat":
		return CmdChat, args
	case "sessions", "session", "ls":
		if len(rest) > 0 {
			args.Subcommand = rest[0]
		}
		return CmdSessions, args
	case "export":
		if len(rest) > 0 {
			args.SessionID = rest[0]
		}
		if len(rest) > 1 {
			args.OutputPath = rest[1]
		}
		return CmdExport, args
	case "config":
		if len(rest) > 0 {
			args.Subcommand = rest[0]
		}
		return CmdConfig, args
	case "version", "-v", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	default:
		fmt.Fprintf(os.Stderr, "moor: unknown command %q\n\n", cmd)
		return CmdHelp, args
	}
}

// PrintUsage writes the usage text.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes version information.
func PrintVersion() {
	fmt.Printf("moor %s (%s, %s, %s/%s)\n",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}
