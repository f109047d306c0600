// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harborlight/moor-tui/internal/model"
	"github.com/harborlight/moor-tui/internal/util"
)

// Transcript is the JSON shape written by ExportTranscript.
type Transcript struct {
	Session    *model.Session   `json:"session"`
	Messages   []*model.Message `json:"messages"`
	ExportedAt time.Time        `json:"exported_at"`
}

// ExportTranscript writes a session's conversation to path as JSON.
// The write is atomic so a crash mid-export never leaves a torn file.
func (s *Store) ExportTranscript(sessionID, path string) error {
	ses := s.Session(sessionID)
	if ses == nil {
		return ErrNotFound
	}

	t := Transcript{
		Session:    ses,
		Messages:   s.Messages(sessionID),
		ExportedAt: time.Now(),
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}

	return util.AtomicWriteFile(path, data, 0o644)
}
