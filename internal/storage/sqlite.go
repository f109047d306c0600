// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/harborlight/moor-tui/internal/model"
)

// schema for the persistence mirror. Messages store their parts as JSON;
// position preserves insertion order across restarts.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    id            TEXT PRIMARY KEY,
    session_id    TEXT NOT NULL,
    position      INTEGER NOT NULL,
    role          TEXT NOT NULL,
    parts         TEXT NOT NULL,
    created_at    INTEGER NOT NULL,
    completed_at  INTEGER,
    finish_reason TEXT,
    FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, position);

CREATE TABLE IF NOT EXISTS anchors (
    session_id        TEXT PRIMARY KEY,
    anchor_message_id TEXT NOT NULL,
    spacer_height     REAL NOT NULL,
    FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
`

// =============================================================================
// SQLITE MIRROR
// =============================================================================

// SQLite persists store state to disk. It is a mirror, not the source of
// truth: Load hydrates the in-memory store at startup, Attach subscribes
// to it and writes every mutated session back.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database.
func (p *SQLite) Close() error {
	return p.db.Close()
}

// =============================================================================
// LOADING
// =============================================================================

// Load hydrates the store with every persisted session.
func (p *SQLite) Load(store *Store) error {
	rows, err := p.db.Query(`SELECT id, title, created_at, updated_at FROM sessions ORDER BY created_at`)
	if err != nil {
		return fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		var ses model.Session
		var created, updated int64
		if err := rows.Scan(&ses.ID, &ses.Title, &created, &updated); err != nil {
			return fmt.Errorf("failed to scan session: %w", err)
		}
		ses.CreatedAt = time.UnixMilli(created)
		ses.UpdatedAt = time.UnixMilli(updated)
		sessions = append(sessions, &ses)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, ses := range sessions {
		msgs, err := p.loadMessages(ses.ID)
		if err != nil {
			return err
		}
		anchor, err := p.loadAnchor(ses.ID)
		if err != nil {
			return err
		}
		store.RestoreSession(ses, msgs, anchor)
	}
	return nil
}

func (p *SQLite) loadMessages(sessionID string) ([]*model.Message, error) {
	rows, err := p.db.Query(`
		SELECT id, role, parts, created_at, completed_at, finish_reason
		FROM messages WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []*model.Message
	for rows.Next() {
		var m model.Message
		var partsJSON string
		var created int64
		var completed sql.NullInt64
		var finish sql.NullString
		if err := rows.Scan(&m.ID, &m.Role, &partsJSON, &created, &completed, &finish); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.SessionID = sessionID
		m.CreatedAt = time.UnixMilli(created)
		if completed.Valid {
			t := time.UnixMilli(completed.Int64)
			m.CompletedAt = &t
		}
		if finish.Valid {
			m.FinishReason = model.FinishReason(finish.String)
		}
		if err := json.Unmarshal([]byte(partsJSON), &m.Parts); err != nil {
			return nil, fmt.Errorf("failed to decode parts: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func (p *SQLite) loadAnchor(sessionID string) (model.AnchorState, error) {
	var st model.AnchorState
	err := p.db.QueryRow(`
		SELECT anchor_message_id, spacer_height FROM anchors WHERE session_id = ?`,
		sessionID).Scan(&st.AnchorMessageID, &st.SpacerHeight)
	if err == sql.ErrNoRows {
		return model.AnchorState{}, nil
	}
	if err != nil {
		return model.AnchorState{}, fmt.Errorf("failed to load anchor: %w", err)
	}
	return st.Normalize(), nil
}

// =============================================================================
// SAVING
// =============================================================================

// Attach subscribes to the store and persists each mutated session.
// Returns the unsubscribe function. Write failures are swallowed: losing
// a mirror write degrades restart fidelity, never the live client.
func (p *SQLite) Attach(store *Store) func() {
	return store.Subscribe(func(sessionID string) {
		_ = p.SaveSession(store, sessionID)
	})
}

// SaveSession writes one session's full state in a transaction.
func (p *SQLite) SaveSession(store *Store, sessionID string) error {
	ses := store.Session(sessionID)
	if ses == nil {
		return ErrNotFound
	}
	msgs := store.Messages(sessionID)
	anchor := store.AnchorState(sessionID)

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		ses.ID, ses.Title, ses.CreatedAt.UnixMilli(), ses.UpdatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	for i, m := range msgs {
		partsJSON, err := json.Marshal(m.Parts)
		if err != nil {
			return fmt.Errorf("failed to encode parts: %w", err)
		}
		var completed any
		if m.CompletedAt != nil {
			completed = m.CompletedAt.UnixMilli()
		}
		if _, err := tx.Exec(`
			INSERT INTO messages (id, session_id, position, role, parts, created_at, completed_at, finish_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, sessionID, i, string(m.Role), string(partsJSON),
			m.CreatedAt.UnixMilli(), completed, string(m.FinishReason)); err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
	}

	if anchor.Zero() {
		if _, err := tx.Exec(`DELETE FROM anchors WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("failed to clear anchor: %w", err)
		}
	} else {
		if _, err := tx.Exec(`
			INSERT INTO anchors (session_id, anchor_message_id, spacer_height) VALUES (?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET
				anchor_message_id = excluded.anchor_message_id,
				spacer_height = excluded.spacer_height`,
			sessionID, anchor.AnchorMessageID, anchor.SpacerHeight); err != nil {
			return fmt.Errorf("failed to save anchor: %w", err)
		}
	}

	return tx.Commit()
}
