// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SESSION
// =============================================================================

// Session identifies one conversation with the agent.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session with a generated ID.
func NewSession(title string) *Session {
	now := time.Now()
	return &Session{
		ID:        "ses_" + uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// =============================================================================
// ACTIVITY PHASE
// =============================================================================

// ActivityPhase is the coarse per-session turn state. Transitions move
// forward (idle -> busy -> cooldown -> idle) and reset to busy on new
// user input.
type ActivityPhase string

const (
	PhaseIdle     ActivityPhase = "idle"
	PhaseBusy     ActivityPhase = "busy"
	PhaseCooldown ActivityPhase = "cooldown"
)

// =============================================================================
// ABORT RECORD
// =============================================================================

// AbortRecord marks a user-cancelled turn. It stays unacknowledged until
// the UI has shown the aborted result once, then it is consumed.
type AbortRecord struct {
	Acknowledged bool      `json:"acknowledged"`
	At           time.Time `json:"at"`
}

// =============================================================================
// ANCHOR STATE
// =============================================================================

// AnchorState is the persisted per-session anchor bookkeeping.
//
// Invariant: SpacerHeight > 0 only while AnchorMessageID is non-empty.
// Normalize enforces it on every write so a stray spacer can never survive
// a cleared anchor.
type AnchorState struct {
	AnchorMessageID string  `json:"anchor_message_id"`
	SpacerHeight    float64 `json:"spacer_height"`
}

// Zero reports whether no anchor is held.
func (a AnchorState) Zero() bool {
	return a.AnchorMessageID == "" && a.SpacerHeight == 0
}

// Normalize clamps the state to the invariant and returns the result.
func (a AnchorState) Normalize() AnchorState {
	if a.AnchorMessageID == "" {
		a.SpacerHeight = 0
	}
	if a.SpacerHeight < 0 {
		a.SpacerHeight = 0
	}
	return a
}
