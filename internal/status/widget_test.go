// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package status

import (
	"testing"
	"time"
)

func busy(text string) Snapshot {
	return Snapshot{Activity: ActivityTooling, Text: text, CanAbort: true}
}

var idle = Snapshot{Activity: ActivityIdle}

func TestWidgetActivation(t *testing.T) {
	w := NewWidget()
	now := time.Now()

	w.Observe(idle, now)
	if w.State() != StateIdle || w.Line() != "" {
		t.Fatalf("state = %v line = %q, want idle and empty", w.State(), w.Line())
	}

	w.Observe(busy("running command"), now)
	if w.State() != StateActive {
		t.Fatalf("state = %v, want active", w.State())
	}
	if w.Line() != "running command" {
		t.Fatalf("line = %q", w.Line())
	}
	if !w.Active() {
		t.Fatal("spinner should run while active")
	}
}

func TestWidgetMinimumHold(t *testing.T) {
	w := NewWidget()
	now := time.Now()

	w.Observe(busy("running command"), now)

	// A different status inside the hold window is suppressed.
	w.Observe(busy("reading file"), now.Add(500*time.Millisecond))
	if w.Line() != "running command" {
		t.Fatalf("line = %q, want held %q", w.Line(), "running command")
	}

	// After the hold it lands.
	w.Observe(busy("reading file"), now.Add(MinHold))
	if w.Line() != "reading file" {
		t.Fatalf("line = %q, want %q", w.Line(), "reading file")
	}
}

func TestWidgetPermissionBypassesHold(t *testing.T) {
	w := NewWidget()
	now := time.Now()

	w.Observe(busy("running command"), now)
	w.Observe(Snapshot{Activity: ActivityWaiting, Text: "waiting for permission"}, now.Add(100*time.Millisecond))

	if w.Line() != "waiting for permission" {
		t.Fatalf("line = %q, permission prompt must show immediately", w.Line())
	}
}

func TestWidgetResultHold(t *testing.T) {
	w := NewWidget()
	now := time.Now()

	w.Observe(busy("running command"), now)
	w.Observe(idle, now.Add(3*time.Second))

	if w.State() != StateResult || w.Line() != "done" {
		t.Fatalf("state = %v line = %q, want result/done", w.State(), w.Line())
	}

	// Still inside the result hold.
	w.Observe(idle, now.Add(3*time.Second+ResultHold-time.Millisecond))
	if w.State() != StateResult {
		t.Fatal("result dropped before its hold expired")
	}

	w.Observe(idle, now.Add(3*time.Second+ResultHold))
	if w.State() != StateIdle || w.Line() != "" {
		t.Fatalf("state = %v line = %q, want idle and empty", w.State(), w.Line())
	}
}

func TestWidgetAbortShowsInterrupted(t *testing.T) {
	w := NewWidget()
	now := time.Now()

	w.Observe(busy("running command"), now)
	w.Observe(Snapshot{Activity: ActivityIdle, WasAborted: true}, now.Add(time.Second))

	if w.Line() != "interrupted" {
		t.Fatalf("line = %q, want interrupted", w.Line())
	}

	// The notice shows once: after the hold the widget idles even while
	// the abort flag is still set.
	w.Observe(Snapshot{Activity: ActivityIdle, WasAborted: true}, now.Add(time.Second+ResultHold))
	if w.State() != StateIdle {
		t.Fatalf("state = %v, want idle", w.State())
	}
	w.Observe(Snapshot{Activity: ActivityIdle, WasAborted: true}, now.Add(2*time.Second+ResultHold))
	if w.State() != StateIdle {
		t.Fatal("abort notice must not loop")
	}
}

func TestWidgetNewTurnInterruptsResult(t *testing.T) {
	w := NewWidget()
	now := time.Now()

	w.Observe(busy("running command"), now)
	w.Observe(idle, now.Add(3*time.Second))
	w.Observe(busy("thinking"), now.Add(3*time.Second+200*time.Millisecond))

	if w.State() != StateActive || w.Line() != "thinking" {
		t.Fatalf("state = %v line = %q, want active/thinking", w.State(), w.Line())
	}
}

func TestWidgetBlurStaleness(t *testing.T) {
	w := NewWidget()
	now := time.Now()

	w.Observe(busy("running command"), now)

	// Short blur: the hold survives.
	w.NoteBlur(now.Add(100 * time.Millisecond))
	w.NoteFocus(now.Add(300 * time.Millisecond))
	w.Observe(busy("reading file"), now.Add(400*time.Millisecond))
	if w.Line() != "running command" {
		t.Fatalf("line = %q, short blur must not break the hold", w.Line())
	}

	// Long blur: the held line is stale and replaceable immediately.
	w.NoteBlur(now.Add(500 * time.Millisecond))
	w.NoteFocus(now.Add(1200 * time.Millisecond))
	w.Observe(busy("reading file"), now.Add(1300*time.Millisecond))
	if w.Line() != "reading file" {
		t.Fatalf("line = %q, stale hold should be cut short", w.Line())
	}
}

func TestWidgetBlurDropsStaleResult(t *testing.T) {
	w := NewWidget()
	now := time.Now()

	w.Observe(busy("running command"), now)
	w.Observe(idle, now.Add(3*time.Second))

	w.NoteBlur(now.Add(3*time.Second+100*time.Millisecond))
	w.NoteFocus(now.Add(4 * time.Second))

	if w.State() != StateIdle {
		t.Fatalf("state = %v, stale result should be dropped on refocus", w.State())
	}
}

func TestWidgetCustomTiming(t *testing.T) {
	w := NewWidgetWith(Timing{
		DeriveInterval: 50 * time.Millisecond,
		MinHold:        200 * time.Millisecond,
		ResultHold:     300 * time.Millisecond,
		BlurStaleAfter: 100 * time.Millisecond,
	})
	now := time.Now()

	// The shorter hold lets a replacement land well before the default
	// two seconds.
	w.Observe(busy("running command"), now)
	w.Observe(busy("reading file"), now.Add(250*time.Millisecond))
	if w.Line() != "reading file" {
		t.Fatalf("line = %q, custom minimum hold not applied", w.Line())
	}

	// Same for the result hold.
	w.Observe(idle, now.Add(time.Second))
	if w.State() != StateResult {
		t.Fatalf("state = %v, want result", w.State())
	}
	w.Observe(idle, now.Add(time.Second+300*time.Millisecond))
	if w.State() != StateIdle {
		t.Fatal("custom result hold not applied")
	}
}

func TestWidgetSetTimingRebuildsThrottle(t *testing.T) {
	w := NewWidget()
	now := time.Now()

	if !w.ShouldDerive(now) {
		t.Fatal("first check must pass")
	}

	w.SetTiming(Timing{DeriveInterval: 10 * time.Millisecond})
	if !w.ShouldDerive(now.Add(20 * time.Millisecond)) {
		t.Fatal("shorter derive interval not applied")
	}
}

func TestWidgetDeriveThrottle(t *testing.T) {
	w := NewWidget()
	now := time.Now()

	if !w.ShouldDerive(now) {
		t.Fatal("first check must pass")
	}
	if w.ShouldDerive(now.Add(50 * time.Millisecond)) {
		t.Fatal("check inside the interval must be throttled")
	}
	if !w.ShouldDerive(now.Add(DeriveInterval + 50*time.Millisecond)) {
		t.Fatal("check after the interval must pass")
	}
}
