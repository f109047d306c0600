// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package status

import (
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// WIDGET TIMING
// =============================================================================

const (
	// DeriveInterval caps how often the widget re-derives status. Frame
	// callbacks arrive much faster than status meaningfully changes.
	DeriveInterval = 150 * time.Millisecond

	// MinHold is how long a status line stays up before a different one
	// may replace it. Tool calls that finish in tens of milliseconds
	// would otherwise make the line unreadable.
	MinHold = 2 * time.Second

	// ResultHold is how long the terminal result ("done", "interrupted")
	// stays visible before the widget goes back to idle.
	ResultHold = 1500 * time.Millisecond

	// BlurStaleAfter: a held status older than this when focus returns
	// is stale and gets dropped instead of finishing its hold.
	BlurStaleAfter = 500 * time.Millisecond
)

// Timing bundles the widget's hold and throttle durations. The zero
// value is not usable; start from DefaultTiming.
type Timing struct {
	DeriveInterval time.Duration
	MinHold        time.Duration
	ResultHold     time.Duration
	BlurStaleAfter time.Duration
}

// DefaultTiming returns the tuned defaults.
func DefaultTiming() Timing {
	return Timing{
		DeriveInterval: DeriveInterval,
		MinHold:        MinHold,
		ResultHold:     ResultHold,
		BlurStaleAfter: BlurStaleAfter,
	}
}

// State is the widget's presentation state.
type State int

const (
	StateIdle State = iota
	StateActive
	StateResult
)

// =============================================================================
// WIDGET
// =============================================================================

// Widget turns a stream of derived snapshots into a stable, readable
// status line. Callers poll: ShouldDerive gates the expensive work,
// Observe feeds the result through the state machine, and Line is what
// gets rendered. All methods take an explicit now so the machine is
// deterministic under test.
//
// Not thread-safe; owned by the UI event loop.
type Widget struct {
	timing  Timing
	limiter *rate.Limiter

	state State
	snap  Snapshot

	text    string
	shownAt time.Time

	resultText string
	resultAt   time.Time

	blurredAt   time.Time
	prevAborted bool
}

// NewWidget creates a status widget with the default timing.
func NewWidget() *Widget {
	return NewWidgetWith(DefaultTiming())
}

// NewWidgetWith creates a status widget with explicit timing.
func NewWidgetWith(t Timing) *Widget {
	w := &Widget{}
	w.SetTiming(t)
	return w
}

// SetTiming replaces the widget's timing, typically on a config reload.
// Non-positive durations fall back to the defaults.
func (w *Widget) SetTiming(t Timing) {
	def := DefaultTiming()
	if t.DeriveInterval <= 0 {
		t.DeriveInterval = def.DeriveInterval
	}
	if t.MinHold <= 0 {
		t.MinHold = def.MinHold
	}
	if t.ResultHold <= 0 {
		t.ResultHold = def.ResultHold
	}
	if t.BlurStaleAfter <= 0 {
		t.BlurStaleAfter = def.BlurStaleAfter
	}
	if w.limiter == nil || t.DeriveInterval != w.timing.DeriveInterval {
		w.limiter = rate.NewLimiter(rate.Every(t.DeriveInterval), 1)
	}
	w.timing = t
}

// ShouldDerive reports whether enough time has passed to re-derive
// status. Frame ticks call this first and skip derivation when it says
// no.
func (w *Widget) ShouldDerive(now time.Time) bool {
	return w.limiter.AllowN(now, 1)
}

// Observe advances the state machine with a fresh snapshot.
func (w *Widget) Observe(snap Snapshot, now time.Time) {
	w.snap = snap
	abortEdge := snap.WasAborted && !w.prevAborted
	w.prevAborted = snap.WasAborted

	switch w.state {
	case StateIdle:
		if snap.Activity.Busy() {
			w.state = StateActive
			w.text = snap.Text
			w.shownAt = now
		} else if abortEdge {
			w.showResult("interrupted", now)
		}

	case StateActive:
		if !snap.Activity.Busy() {
			if snap.WasAborted {
				w.showResult("interrupted", now)
			} else {
				w.showResult("done", now)
			}
			return
		}
		// A different status replaces the current one only after the
		// minimum hold; a permission wait replaces it immediately since
		// the user must see that they are being asked.
		if snap.Text != w.text {
			if snap.Activity == ActivityWaiting || now.Sub(w.shownAt) >= w.timing.MinHold {
				w.text = snap.Text
				w.shownAt = now
			}
		}

	case StateResult:
		if snap.Activity.Busy() {
			// A new turn started before the result hold ran out.
			w.state = StateActive
			w.text = snap.Text
			w.shownAt = now
			return
		}
		if now.Sub(w.resultAt) >= w.timing.ResultHold {
			w.state = StateIdle
			w.resultText = ""
		}
	}
}

func (w *Widget) showResult(text string, now time.Time) {
	w.state = StateResult
	w.resultText = text
	w.resultAt = now
}

// =============================================================================
// FOCUS TRACKING
// =============================================================================

// NoteBlur records that the terminal lost focus.
func (w *Widget) NoteBlur(now time.Time) {
	w.blurredAt = now
}

// NoteFocus handles focus returning. After a long blur the held line
// describes something that finished while the user was away, so holds
// are cut short: an active line may be replaced on the next Observe and
// a lingering result is dropped.
func (w *Widget) NoteFocus(now time.Time) {
	if w.blurredAt.IsZero() {
		return
	}
	stale := now.Sub(w.blurredAt) > w.timing.BlurStaleAfter
	w.blurredAt = time.Time{}
	if !stale {
		return
	}

	switch w.state {
	case StateActive:
		w.shownAt = now.Add(-w.timing.MinHold)
	case StateResult:
		w.state = StateIdle
		w.resultText = ""
	}
}

// =============================================================================
// READS
// =============================================================================

// State returns the presentation state.
func (w *Widget) State() State {
	return w.state
}

// Line returns the text to render, empty when idle.
func (w *Widget) Line() string {
	switch w.state {
	case StateActive:
		return w.text
	case StateResult:
		return w.resultText
	default:
		return ""
	}
}

// Snapshot returns the most recently observed snapshot. The view uses
// it for the abort hint and spinner choice.
func (w *Widget) Snapshot() Snapshot {
	return w.snap
}

// Active reports whether a spinner should run.
func (w *Widget) Active() bool {
	return w.state == StateActive
}
