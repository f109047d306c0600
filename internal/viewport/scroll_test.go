// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package viewport

import (
	"testing"
	"time"
)

// fakeSurface is an in-memory Surface with settable geometry.
type fakeSurface struct {
	offset  float64
	content float64
	view    float64
	rects   map[string]Rect
}

func newFakeSurface(content, view float64) *fakeSurface {
	return &fakeSurface{content: content, view: view, rects: make(map[string]Rect)}
}

func (s *fakeSurface) Offset() float64          { return s.offset }
func (s *fakeSurface) SetOffset(offset float64) { s.offset = offset }
func (s *fakeSurface) ContentHeight() float64   { return s.content }
func (s *fakeSurface) ViewportHeight() float64  { return s.view }
func (s *fakeSurface) MessageRect(id string) (Rect, bool) {
	r, ok := s.rects[id]
	return r, ok
}

func TestScrollToInstant(t *testing.T) {
	s := newFakeSurface(1000, 100)
	e := NewEngine(s)

	e.ScrollTo(400, ScrollOptions{Instant: true})

	if s.offset != 400 {
		t.Fatalf("offset = %v, want 400", s.offset)
	}
	if e.Animating() {
		t.Fatal("instant scroll should not leave an animation in flight")
	}
}

func TestScrollToClampsToRange(t *testing.T) {
	s := newFakeSurface(1000, 100)
	e := NewEngine(s)

	e.ScrollTo(5000, ScrollOptions{Instant: true})
	if s.offset != 900 {
		t.Fatalf("offset = %v, want 900 (content - viewport)", s.offset)
	}

	e.ScrollTo(-50, ScrollOptions{Instant: true})
	if s.offset != 0 {
		t.Fatalf("offset = %v, want 0", s.offset)
	}
}

func TestScrollToSnapsTinyDistance(t *testing.T) {
	s := newFakeSurface(1000, 100)
	s.offset = 500
	e := NewEngine(s)

	e.ScrollTo(500.3, ScrollOptions{})

	if e.Animating() {
		t.Fatal("sub-snap distance should set instantly, not animate")
	}
	if s.offset != 500.3 {
		t.Fatalf("offset = %v, want 500.3", s.offset)
	}
}

func TestAnimatedScrollEasesToTarget(t *testing.T) {
	s := newFakeSurface(1000, 100)
	e := NewEngine(s)

	e.ScrollTo(800, ScrollOptions{})
	if !e.Animating() {
		t.Fatal("expected an animation in flight")
	}

	start := time.Now()
	if !e.Step(start) {
		t.Fatal("first step should report more frames needed")
	}

	// Halfway through the duration the ease-out curve is past the
	// midpoint but not done.
	e.Step(start.Add(DefaultAnimDuration / 2))
	if s.offset <= 400 || s.offset >= 800 {
		t.Fatalf("mid-animation offset = %v, want between 400 and 800", s.offset)
	}

	if e.Step(start.Add(DefaultAnimDuration)) {
		t.Fatal("final step should report animation done")
	}
	if s.offset != 800 {
		t.Fatalf("final offset = %v, want 800", s.offset)
	}
	if e.Animating() {
		t.Fatal("animation should be cleared after completion")
	}
}

func TestFollowBottomAbsorbsGrowth(t *testing.T) {
	s := newFakeSurface(1000, 100)
	e := NewEngine(s)

	e.ScrollToBottom(ScrollOptions{FollowBottom: true})

	start := time.Now()
	e.Step(start)

	// Content grows mid-animation; the target should track it.
	s.content = 1200
	e.Step(start.Add(DefaultAnimDuration / 2))

	e.Step(start.Add(DefaultAnimDuration))
	if s.offset != 1100 {
		t.Fatalf("offset = %v, want 1100 (grown content - viewport)", s.offset)
	}
}

func TestFollowBottomDoesNotRestart(t *testing.T) {
	s := newFakeSurface(1000, 100)
	e := NewEngine(s)

	e.ScrollToBottom(ScrollOptions{FollowBottom: true})
	start := time.Now()
	e.Step(start)

	// A second follow-bottom request mid-flight must not reset progress.
	e.ScrollToBottom(ScrollOptions{FollowBottom: true})

	if e.Step(start.Add(DefaultAnimDuration)) {
		t.Fatal("animation should complete on the original schedule")
	}
	if s.offset != 900 {
		t.Fatalf("offset = %v, want 900", s.offset)
	}
}

func TestManualOverrideCancelsAnimation(t *testing.T) {
	s := newFakeSurface(1000, 100)
	e := NewEngine(s)

	e.ScrollTo(800, ScrollOptions{})
	e.Step(time.Now())

	e.NoteUserInput()
	e.HandleScroll()

	if e.Animating() {
		t.Fatal("user scroll during animation should cancel it")
	}
	if !e.ManualOverride() {
		t.Fatal("manual override should be set")
	}
}

func TestForceClearsManualOverride(t *testing.T) {
	s := newFakeSurface(1000, 100)
	e := NewEngine(s)

	e.NoteUserInput()
	e.ScrollToBottom(ScrollOptions{Instant: true, Force: true})

	if e.ManualOverride() {
		t.Fatal("forced scroll should clear the manual override")
	}
}

func TestAtTopFiresOnTransitionsOnly(t *testing.T) {
	s := newFakeSurface(1000, 100)
	e := NewEngine(s)

	var calls []bool
	e.SetAtTopCallback(func(atTop bool) { calls = append(calls, atTop) })

	e.ScrollTo(500, ScrollOptions{Instant: true})
	e.ScrollTo(600, ScrollOptions{Instant: true}) // still away from top
	e.ScrollTo(0.5, ScrollOptions{Instant: true}) // within threshold
	e.ScrollTo(0, ScrollOptions{Instant: true})   // no transition

	if len(calls) != 2 {
		t.Fatalf("callback fired %d times, want 2 (got %v)", len(calls), calls)
	}
	if calls[0] != false || calls[1] != true {
		t.Fatalf("transitions = %v, want [false true]", calls)
	}
}
