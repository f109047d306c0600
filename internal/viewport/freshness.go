// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package viewport

import (
	"sync"
	"time"

	"github.com/harborlight/moor-tui/internal/model"
)

// =============================================================================
// FRESHNESS TRACKER
// =============================================================================

// DefaultFreshnessWindow is how far before the session start a message
// may have been created and still count as fresh. The slack absorbs the
// gap between the user submitting and the session view mounting.
const DefaultFreshnessWindow = 5 * time.Second

// Freshness decides whether an assistant message gets an entrance
// animation. A message animates exactly once, and only when it appeared
// after the user started the current conversation turn; history loaded
// from storage renders statically.
//
// Thread-safe.
type Freshness struct {
	mu sync.Mutex

	window time.Duration
	now    func() time.Time

	// starts maps session id to when the user last started a turn there.
	starts map[string]time.Time

	// seen holds message ids whose animation has already played (or was
	// decided against); membership is permanent for the process lifetime.
	seen map[string]struct{}
}

// NewFreshness creates a tracker with the default window and wall clock.
func NewFreshness() *Freshness {
	return NewFreshnessWith(DefaultFreshnessWindow, time.Now)
}

// NewFreshnessWith creates a tracker with an explicit window and clock.
func NewFreshnessWith(window time.Duration, now func() time.Time) *Freshness {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Freshness{
		window: window,
		now:    now,
		starts: make(map[string]time.Time),
		seen:   make(map[string]struct{}),
	}
}

// RecordSessionStart stamps the moment the user starts a turn in a
// session. Messages created from here on (minus the window's slack)
// count as fresh.
func (f *Freshness) RecordSessionStart(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts[sessionID] = f.now()
}

// ShouldAnimate reports whether the message should play its entrance
// animation now. Only assistant messages ever animate. A message seen
// before never animates again. Without a recorded turn start for the
// session, the message is marked seen and renders statically; this is
// the history-load path.
//
// A fresh verdict does not mark the message seen: the render layer calls
// MarkSeen when the animation actually starts, so a message that misses
// a frame still animates on the next one.
func (f *Freshness) ShouldAnimate(msg *model.Message) bool {
	if msg == nil || msg.Role != model.RoleAssistant {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.seen[msg.ID]; ok {
		return false
	}

	start, ok := f.starts[msg.SessionID]
	if !ok {
		f.seen[msg.ID] = struct{}{}
		return false
	}

	if msg.CreatedAt.After(start.Add(-f.window)) {
		return true
	}
	f.seen[msg.ID] = struct{}{}
	return false
}

// MarkSeen records that the message's animation has played.
func (f *Freshness) MarkSeen(messageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[messageID] = struct{}{}
}

// Clear drops all tracked state. Used on teardown in tests; the maps are
// otherwise allowed to grow for the process lifetime, which is bounded
// by the number of messages a user can produce in one run.
func (f *Freshness) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = make(map[string]time.Time)
	f.seen = make(map[string]struct{})
}
