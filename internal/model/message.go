// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Agent"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// FINISH REASONS
// =============================================================================

// FinishReason is why an assistant turn ended.
type FinishReason string

const (
	FinishStop    FinishReason = "stop"
	FinishAborted FinishReason = "aborted"
	FinishError   FinishReason = "error"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single conversational turn. Parts arrive and mutate in order
// while the turn streams; CompletedAt is set exactly once when it settles.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Parts     []*Part   `json:"parts"`
	CreatedAt time.Time `json:"created_at"`

	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
}

// NewMessage creates a message with a generated ID.
func NewMessage(sessionID string, role Role) *Message {
	return &Message{
		ID:        "msg_" + uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		CreatedAt: time.Now(),
	}
}

// NewUserMessage creates a completed user message holding a single text part.
func NewUserMessage(sessionID, content string) *Message {
	m := NewMessage(sessionID, RoleUser)
	now := m.CreatedAt
	m.Parts = []*Part{{
		ID:      "prt_" + uuid.NewString(),
		Kind:    PartText,
		Content: content,
		Time:    Interval{Start: now, End: &now},
	}}
	m.CompletedAt = &now
	m.FinishReason = FinishStop
	return m
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Completed reports whether the message carries a completion timestamp.
func (m *Message) Completed() bool {
	return m.CompletedAt != nil
}

// Complete stamps the message as finished. Idempotent.
//
// A stop finish leaves tool parts alone: the stop event can race the
// tool result, and the outstanding part keeps the turn reading as busy
// until the result arrives. An abort or error is terminal, so open tool
// parts are marked errored and closed; nothing will ever finish them.
func (m *Message) Complete(reason FinishReason, at time.Time) {
	if m.CompletedAt != nil {
		return
	}
	end := at
	m.CompletedAt = &end
	m.FinishReason = reason
	for _, p := range m.Parts {
		if p.Kind == PartTool {
			if reason != FinishStop && (p.ToolStatus == ToolPending || p.ToolStatus == ToolRunning) {
				p.ToolStatus = ToolError
				p.Time.Close(at)
			}
			continue
		}
		p.Time.Close(at)
	}
}

// Part returns the part with the given id, or nil.
func (m *Message) Part(id string) *Part {
	for _, p := range m.Parts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// OpenPart returns the most recent open part, scanning last to first.
// Returns nil when every part is closed.
func (m *Message) OpenPart() *Part {
	for i := len(m.Parts) - 1; i >= 0; i-- {
		if m.Parts[i].IsOpen() {
			return m.Parts[i]
		}
	}
	return nil
}

// Synthetic reports whether every part of the message is synthetic.
// Placeholder messages are treated as complete everywhere so bookkeeping
// never registers as agent activity. A message with no parts at all is
// not synthetic; it is a turn that has not produced output yet.
func (m *Message) Synthetic() bool {
	if len(m.Parts) == 0 {
		return false
	}
	for _, p := range m.Parts {
		if !p.Synthetic {
			return false
		}
	}
	return true
}

// TextContent concatenates the content of all text parts.
func (m *Message) TextContent() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Kind == PartText {
			sb.WriteString(p.Content)
		}
	}
	return sb.String()
}

// Preview returns a truncated single-line preview of the message.
// Rune-based truncation keeps multi-byte characters intact.
func (m *Message) Preview(maxRunes int) string {
	content := strings.ReplaceAll(m.TextContent(), "\n", " ")
	runes := []rune(content)
	if len(runes) <= maxRunes {
		return content
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}
