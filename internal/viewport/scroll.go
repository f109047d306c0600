// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package viewport

import (
	"time"
)

// =============================================================================
// SCROLL ENGINE
// =============================================================================

const (
	// DefaultAnimDuration is the fixed length of an animated scroll.
	DefaultAnimDuration = 160 * time.Millisecond

	// snapDistance collapses tiny moves to an instant jump so streaming
	// growth never schedules an endless chain of micro-animations.
	snapDistance = 0.5

	// topThreshold is how close to zero still counts as "at top".
	topThreshold = 1.0
)

// ScrollOptions control a programmatic scroll request.
type ScrollOptions struct {
	// Instant skips the animation and sets the offset synchronously.
	Instant bool

	// FollowBottom recomputes the target on every animation tick as the
	// content's bottom edge, so growth during the animation is absorbed
	// instead of overshot or undershot.
	FollowBottom bool

	// Force marks the scroll as explicitly user-requested (for example
	// the jump-to-bottom button) and clears the manual-scroll override.
	Force bool
}

// Engine owns raw scroll reads and writes for one Surface and provides
// eased animated scrolling, manual-scroll detection, and at-top
// signaling. It knows nothing about messages.
//
// At most one animation runs at a time; starting a new one cancels the
// prior one, with one exception: a FollowBottom animation already in
// flight is never restarted by a second FollowBottom request, which
// avoids animation-thrash under rapid content growth.
//
// The engine is advanced cooperatively: the owner calls Step on every
// frame callback while Animating reports true.
type Engine struct {
	surface Surface

	duration time.Duration
	easing   EasingFunc

	anim           *animation
	manualOverride bool

	atTop   bool
	onAtTop func(bool)
}

// animation is one in-flight eased scroll. start is stamped lazily on
// the first Step so the engine needs no clock of its own.
type animation struct {
	from         float64
	target       float64
	start        time.Time
	followBottom bool
}

// NewEngine creates a scroll engine for the given surface.
func NewEngine(surface Surface) *Engine {
	return &Engine{
		surface:  surface,
		duration: DefaultAnimDuration,
		easing:   EaseOutCubic,
		atTop:    true,
	}
}

// SetDuration overrides the animation duration.
func (e *Engine) SetDuration(d time.Duration) {
	if d > 0 {
		e.duration = d
	}
}

// SetAtTopCallback registers the at-top transition signal. The callback
// fires only on changes, never on repeated recomputation of the same
// value.
func (e *Engine) SetAtTopCallback(fn func(atTop bool)) {
	e.onAtTop = fn
}

// =============================================================================
// PROGRAMMATIC SCROLLING
// =============================================================================

// ScrollTo moves the viewport to target according to opts.
func (e *Engine) ScrollTo(target float64, opts ScrollOptions) {
	if e.surface == nil {
		return
	}
	if opts.Force {
		e.manualOverride = false
	}

	// A follow-bottom animation in flight absorbs repeated follow-bottom
	// requests; the target is recomputed per tick anyway.
	if opts.FollowBottom && e.anim != nil && e.anim.followBottom {
		return
	}

	target = e.clamp(target)
	current := e.surface.Offset()

	if opts.Instant || abs(target-current) < snapDistance {
		e.anim = nil
		e.surface.SetOffset(target)
		e.refreshAtTop()
		return
	}

	e.anim = &animation{
		from:         current,
		target:       target,
		followBottom: opts.FollowBottom,
	}
}

// ScrollToBottom scrolls to the content's bottom edge.
func (e *Engine) ScrollToBottom(opts ScrollOptions) {
	if e.surface == nil {
		return
	}
	e.ScrollTo(e.bottomTarget(), opts)
}

// Step advances the in-flight animation. now is the frame timestamp.
// Returns true while more frames are needed.
func (e *Engine) Step(now time.Time) bool {
	if e.anim == nil {
		return false
	}

	if e.anim.start.IsZero() {
		e.anim.start = now
	}
	if e.anim.followBottom {
		e.anim.target = e.bottomTarget()
	}

	t := float64(now.Sub(e.anim.start)) / float64(e.duration)
	if t >= 1 {
		e.surface.SetOffset(e.clamp(e.anim.target))
		e.anim = nil
		e.refreshAtTop()
		return false
	}
	if t < 0 {
		t = 0
	}

	eased := e.easing(t)
	e.surface.SetOffset(e.clamp(e.anim.from + (e.anim.target-e.anim.from)*eased))
	e.refreshAtTop()
	return true
}

// Animating reports whether an animation is in flight.
func (e *Engine) Animating() bool {
	return e.anim != nil
}

// Cancel drops any in-flight animation. Used on teardown and session
// switches so no stale frame lands on a new viewport.
func (e *Engine) Cancel() {
	e.anim = nil
}

// =============================================================================
// USER SCROLLING
// =============================================================================

// NoteUserInput marks the next scroll events as user-initiated. Called
// on wheel and touch input; cleared by any Force scroll.
func (e *Engine) NoteUserInput() {
	e.manualOverride = true
}

// ManualOverride reports whether the user has taken scroll control.
func (e *Engine) ManualOverride() bool {
	return e.manualOverride
}

// HandleScroll is called on every scroll event. User input always wins:
// if the manual override is set while an animation is in flight, the
// animation is cancelled.
func (e *Engine) HandleScroll() {
	if e.manualOverride && e.anim != nil {
		e.anim = nil
	}
	e.refreshAtTop()
}

// =============================================================================
// AT-TOP SIGNAL
// =============================================================================

// AtTop reports whether the viewport is scrolled to the top.
func (e *Engine) AtTop() bool {
	return e.atTop
}

// refreshAtTop recomputes the at-top flag and fires the transition
// callback on change.
func (e *Engine) refreshAtTop() {
	atTop := e.surface.Offset() <= topThreshold
	if atTop == e.atTop {
		return
	}
	e.atTop = atTop
	if e.onAtTop != nil {
		e.onAtTop(atTop)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// bottomTarget is the offset that pins the viewport to the content's
// bottom edge.
func (e *Engine) bottomTarget() float64 {
	return e.clamp(e.surface.ContentHeight() - e.surface.ViewportHeight())
}

// clamp bounds an offset to the scrollable range.
func (e *Engine) clamp(offset float64) float64 {
	max := e.surface.ContentHeight() - e.surface.ViewportHeight()
	if max < 0 {
		max = 0
	}
	if offset > max {
		offset = max
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
