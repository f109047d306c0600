// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent defines the narrow contract to the remote coding agent.
// The client emits an ordered event stream per session; the UI folds the
// events into the store and never talks to the transport directly.
package agent

import (
	"context"
	"time"

	"github.com/harborlight/moor-tui/internal/model"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies an agent event variant.
type EventKind string

const (
	EventMessageStarted      EventKind = "message.started"
	EventPartDelta           EventKind = "part.delta"
	EventPartClosed          EventKind = "part.closed"
	EventToolStatus          EventKind = "tool.status"
	EventMessageCompleted    EventKind = "message.completed"
	EventPermissionRequested EventKind = "permission.requested"
	EventPermissionResolved  EventKind = "permission.resolved"
	EventError               EventKind = "error"
)

// Event is one ordered update from the agent. Fields that do not apply
// to the kind are left zero.
type Event struct {
	Kind      EventKind
	SessionID string
	MessageID string
	At        time.Time

	// Part events
	PartID     string
	PartKind   model.PartKind
	Delta      string
	ToolName   string
	ToolStatus model.ToolStatus

	// Completion
	FinishReason model.FinishReason

	// Permissions
	PermissionID string

	// Errors
	Err error
}

// =============================================================================
// CLIENT CONTRACT
// =============================================================================

// Client is the transport to the remote agent. Implementations must
// deliver events for a session in order; cross-session ordering is
// unspecified.
type Client interface {
	// Prompt submits a user turn and starts the assistant reply stream.
	Prompt(ctx context.Context, sessionID, text string) error

	// Abort cancels the in-flight turn for a session, if any.
	Abort(sessionID string)

	// Grant approves a pending permission request.
	Grant(permissionID string)

	// Deny rejects a pending permission request.
	Deny(permissionID string)

	// Events is the stream of updates across all sessions. Closed when
	// the client shuts down.
	Events() <-chan Event

	// Close releases the transport.
	Close() error
}
