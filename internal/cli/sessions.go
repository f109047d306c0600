// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harborlight/moor-tui/internal/config"
	"github.com/harborlight/moor-tui/internal/storage"
	"github.com/harborlight/moor-tui/internal/util"
)

// openStore loads the persisted store for the read-only commands.
func openStore(cfg *config.Config) (*storage.Store, *storage.SQLite, error) {
	path, err := cfg.DBPath()
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.OpenSQLite(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	store := storage.NewStore()
	if err := db.Load(store); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// HandleSessions lists stored sessions with a preview of the last
// message.
func HandleSessions(args Args, cfg *config.Config) error {
	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions := store.Sessions()
	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}

	for _, ses := range sessions {
		msgs := store.Messages(ses.ID)
		preview := ""
		if len(msgs) > 0 {
			preview = util.TruncateRunes(msgs[len(msgs)-1].Preview(60), 60)
		}
		fmt.Printf("%s  %-20s  %3d msgs  %s\n",
			ses.ID, util.TruncateRunes(ses.Title, 20), len(msgs), preview)
	}
	return nil
}

// HandleExport writes a session transcript to a JSON file.
func HandleExport(args Args, cfg *config.Config) error {
	if args.SessionID == "" {
		return fmt.Errorf("usage: moor export <session-id> [output-path]")
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	out := args.OutputPath
	if out == "" {
		dir := cfg.Storage.ExportDir
		if dir == "" {
			dir = "."
		}
		out = filepath.Join(dir, args.SessionID+".json")
	}

	if err := store.ExportTranscript(args.SessionID, out); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", args.SessionID, out)
	return nil
}

// HandleConfig implements "moor config [show|path]".
func HandleConfig(args Args, cfg *config.Config) error {
	switch args.Subcommand {
	case "", "show":
		path, _ := config.ConfigPath()
		if _, err := os.Stat(path); err != nil {
			fmt.Println("# no config file; showing defaults")
		}
		return config.Encode(os.Stdout, cfg)
	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	default:
		return fmt.Errorf("unknown config subcommand %q", args.Subcommand)
	}
}
