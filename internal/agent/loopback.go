// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborlight/moor-tui/internal/model"
)

// =============================================================================
// LOOPBACK CLIENT
// =============================================================================

// DefaultStreamDelay is the playback pause between streamed deltas when
// the caller has no opinion.
const DefaultStreamDelay = 30 * time.Millisecond

// Loopback is an in-process Client that plays back a canned agent turn:
// a reasoning part, a permission-gated tool part, then a streamed text
// reply. It exists so the binary runs (and the end-to-end tests pass)
// without a remote endpoint.
type Loopback struct {
	mu      sync.Mutex
	events  chan Event
	turns   map[string]*loopbackTurn // keyed by session id
	perms   map[string]chan bool     // keyed by permission id
	delay   time.Duration
	askPerm bool
	closed  bool
}

type loopbackTurn struct {
	cancel context.CancelFunc
}

// NewLoopback creates a loopback client. delay is the pause between
// streamed deltas; askPermission gates the tool part behind a permission
// request.
func NewLoopback(delay time.Duration, askPermission bool) *Loopback {
	return &Loopback{
		events:  make(chan Event, 64),
		turns:   make(map[string]*loopbackTurn),
		perms:   make(map[string]chan bool),
		delay:   delay,
		askPerm: askPermission,
	}
}

// Events returns the event stream.
func (l *Loopback) Events() <-chan Event {
	return l.events
}

// Close shuts down the client and its event stream.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	for _, t := range l.turns {
		t.cancel()
	}
	close(l.events)
	return nil
}

// Abort cancels the in-flight turn for the session.
func (l *Loopback) Abort(sessionID string) {
	l.mu.Lock()
	t := l.turns[sessionID]
	l.mu.Unlock()
	if t != nil {
		t.cancel()
	}
}

// Grant approves a pending permission request.
func (l *Loopback) Grant(permissionID string) {
	l.resolvePermission(permissionID, true)
}

// Deny rejects a pending permission request.
func (l *Loopback) Deny(permissionID string) {
	l.resolvePermission(permissionID, false)
}

func (l *Loopback) resolvePermission(permissionID string, granted bool) {
	l.mu.Lock()
	ch := l.perms[permissionID]
	delete(l.perms, permissionID)
	l.mu.Unlock()
	if ch != nil {
		ch <- granted
	}
}

// Prompt starts the canned reply stream for a session.
func (l *Loopback) Prompt(ctx context.Context, sessionID, text string) error {
	ctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		cancel()
		return context.Canceled
	}
	if prev := l.turns[sessionID]; prev != nil {
		prev.cancel()
	}
	l.turns[sessionID] = &loopbackTurn{cancel: cancel}
	l.mu.Unlock()

	go l.runTurn(ctx, sessionID, text)
	return nil
}

// runTurn plays the scripted reply. Every send checks the context so an
// abort lands between any two events.
func (l *Loopback) runTurn(ctx context.Context, sessionID, prompt string) {
	defer func() {
		l.mu.Lock()
		delete(l.turns, sessionID)
		l.mu.Unlock()
	}()

	messageID := "msg_" + uuid.NewString()
	if !l.send(ctx, sessionID, Event{Kind: EventMessageStarted, MessageID: messageID}) {
		return
	}

	// Reasoning part.
	reasoningID := "prt_" + uuid.NewString()
	for _, delta := range []string{"Looking at the request", "... planning the change."} {
		if !l.send(ctx, sessionID, Event{
			Kind: EventPartDelta, MessageID: messageID,
			PartID: reasoningID, PartKind: model.PartReasoning, Delta: delta,
		}) {
			return
		}
		if !l.pause(ctx, sessionID, messageID) {
			return
		}
	}
	if !l.send(ctx, sessionID, Event{
		Kind: EventPartClosed, MessageID: messageID,
		PartID: reasoningID, PartKind: model.PartReasoning,
	}) {
		return
	}

	// Tool part, optionally gated behind a permission request.
	if l.askPerm {
		permID := "perm_" + uuid.NewString()
		granted := make(chan bool, 1)
		l.mu.Lock()
		l.perms[permID] = granted
		l.mu.Unlock()

		if !l.send(ctx, sessionID, Event{
			Kind: EventPermissionRequested, MessageID: messageID,
			PermissionID: permID, ToolName: "bash",
		}) {
			return
		}

		var ok bool
		select {
		case ok = <-granted:
		case <-ctx.Done():
			l.finish(sessionID, messageID, model.FinishAborted)
			return
		}
		if !l.send(ctx, sessionID, Event{
			Kind: EventPermissionResolved, MessageID: messageID, PermissionID: permID,
		}) {
			return
		}
		if !ok {
			l.finish(sessionID, messageID, model.FinishStop)
			return
		}
	}

	toolID := "prt_" + uuid.NewString()
	for _, status := range []model.ToolStatus{model.ToolPending, model.ToolRunning, model.ToolCompleted} {
		if !l.send(ctx, sessionID, Event{
			Kind: EventToolStatus, MessageID: messageID,
			PartID: toolID, PartKind: model.PartTool,
			ToolName: "bash", ToolStatus: status,
		}) {
			return
		}
		if !l.pause(ctx, sessionID, messageID) {
			return
		}
	}

	// Text reply, token by token.
	textID := "prt_" + uuid.NewString()
	reply := "Done. I ran the command for: " + strings.TrimSpace(prompt)
	for _, word := range strings.SplitAfter(reply, " ") {
		if !l.send(ctx, sessionID, Event{
			Kind: EventPartDelta, MessageID: messageID,
			PartID: textID, PartKind: model.PartText, Delta: word,
		}) {
			return
		}
		if !l.pause(ctx, sessionID, messageID) {
			return
		}
	}
	if !l.send(ctx, sessionID, Event{
		Kind: EventPartClosed, MessageID: messageID,
		PartID: textID, PartKind: model.PartText,
	}) {
		return
	}

	l.send(context.Background(), sessionID, Event{
		Kind: EventMessageCompleted, MessageID: messageID, FinishReason: model.FinishStop,
	})
}

// finish emits a completion event outside the turn context so aborts
// still produce a terminal event.
func (l *Loopback) finish(sessionID, messageID string, reason model.FinishReason) {
	l.send(context.Background(), sessionID, Event{
		Kind: EventMessageCompleted, MessageID: messageID, FinishReason: reason,
	})
}

// send delivers an event unless the turn was cancelled. On cancellation
// it emits the aborted completion for the turn and reports false.
func (l *Loopback) send(ctx context.Context, sessionID string, ev Event) bool {
	ev.SessionID = sessionID
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	select {
	case <-ctx.Done():
		if ev.Kind != EventMessageCompleted {
			l.finish(sessionID, ev.MessageID, model.FinishAborted)
		}
		return false
	default:
	}

	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return false
	}

	select {
	case l.events <- ev:
		return true
	case <-ctx.Done():
		if ev.Kind != EventMessageCompleted {
			l.finish(sessionID, ev.MessageID, model.FinishAborted)
		}
		return false
	}
}

// pause sleeps between streamed deltas. An abort usually lands here, not
// mid-send, so cancellation emits the aborted completion just like send
// does; otherwise the turn would end without a terminal event.
func (l *Loopback) pause(ctx context.Context, sessionID, messageID string) bool {
	if l.delay <= 0 {
		return true
	}
	select {
	case <-time.After(l.delay):
		return true
	case <-ctx.Done():
		l.finish(sessionID, messageID, model.FinishAborted)
		return false
	}
}
