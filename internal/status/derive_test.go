// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package status

import (
	"testing"
	"time"

	"github.com/harborlight/moor-tui/internal/model"
)

func closedAt(t time.Time) model.Interval {
	end := t
	return model.Interval{Start: t.Add(-time.Second), End: &end}
}

func assistantMsg(parts ...*model.Part) *model.Message {
	return &model.Message{
		ID:        "msg_test",
		SessionID: "ses_test",
		Role:      model.RoleAssistant,
		Parts:     parts,
		CreatedAt: time.Now(),
	}
}

func TestDeriveRunningBashTool(t *testing.T) {
	now := time.Now()
	msg := assistantMsg(
		&model.Part{Kind: model.PartReasoning, Time: closedAt(now)},
		&model.Part{Kind: model.PartTool, ToolName: "bash", ToolStatus: model.ToolRunning},
	)

	snap := NewDeriver().Derive(msg, 0, nil)

	if snap.Activity != ActivityTooling {
		t.Fatalf("activity = %v, want tooling", snap.Activity)
	}
	if snap.Text != "running command" {
		t.Fatalf("text = %q, want %q", snap.Text, "running command")
	}
	if !snap.CanAbort {
		t.Fatal("a running turn must be abortable")
	}
}

func TestDeriveToolVerbs(t *testing.T) {
	cases := []struct {
		tool string
		want string
	}{
		{"edit", "editing file"},
		{"write", "editing file"},
		{"grep", "searching content"},
		{"read", "reading file"},
		{"glob", "finding files"},
		{"webfetch", "fetching page"},
		{"customtool", "using customtool"},
	}
	for _, tc := range cases {
		msg := assistantMsg(&model.Part{Kind: model.PartTool, ToolName: tc.tool, ToolStatus: model.ToolPending})
		snap := NewDeriver().Derive(msg, 0, nil)
		if snap.Text != tc.want {
			t.Errorf("tool %q: text = %q, want %q", tc.tool, snap.Text, tc.want)
		}
	}
}

func TestDeriveOpenPartScanIsLastToFirst(t *testing.T) {
	// Two open parts: the later one wins.
	msg := assistantMsg(
		&model.Part{Kind: model.PartReasoning},
		&model.Part{Kind: model.PartText},
	)

	snap := NewDeriver().Derive(msg, 0, nil)
	if snap.Activity != ActivityComposing {
		t.Fatalf("activity = %v, want composing (latest open part)", snap.Activity)
	}
}

func TestDeriveReasoning(t *testing.T) {
	msg := assistantMsg(&model.Part{Kind: model.PartReasoning})
	snap := NewDeriver().Derive(msg, 0, nil)
	if snap.Activity != ActivityThinking || snap.Text != "thinking" {
		t.Fatalf("snapshot = %+v, want thinking", snap)
	}
}

func TestDerivePermissionOverridesTool(t *testing.T) {
	msg := assistantMsg(&model.Part{Kind: model.PartTool, ToolName: "bash", ToolStatus: model.ToolRunning})

	snap := NewDeriver().Derive(msg, 1, nil)

	if snap.Activity != ActivityWaiting {
		t.Fatalf("activity = %v, want waiting", snap.Activity)
	}
	if snap.Text != "waiting for permission" {
		t.Fatalf("text = %q", snap.Text)
	}
	if snap.CanAbort {
		t.Fatal("abort must be unavailable during a permission prompt")
	}
}

func TestDeriveUnacknowledgedAbort(t *testing.T) {
	msg := assistantMsg(&model.Part{Kind: model.PartText})
	abort := &model.AbortRecord{At: time.Now()}

	snap := NewDeriver().Derive(msg, 0, abort)

	if snap.Activity != ActivityIdle {
		t.Fatalf("activity = %v, want idle after abort", snap.Activity)
	}
	if !snap.WasAborted {
		t.Fatal("WasAborted should be set for an unacknowledged abort")
	}

	// Acknowledged aborts stop influencing status.
	abort.Acknowledged = true
	snap = NewDeriver().Derive(msg, 0, abort)
	if snap.WasAborted {
		t.Fatal("acknowledged abort must not resurface")
	}
}

func TestDeriveCompletedMessageIsIdle(t *testing.T) {
	now := time.Now()
	msg := assistantMsg(&model.Part{Kind: model.PartText, Time: closedAt(now)})
	msg.Complete(model.FinishStop, now)

	snap := NewDeriver().Derive(msg, 0, nil)
	if snap.Activity != ActivityIdle {
		t.Fatalf("activity = %v, want idle for a completed message", snap.Activity)
	}
}

func TestDeriveCompletionRacesToolResult(t *testing.T) {
	// Stop event arrived but a tool is still running: not settled yet.
	now := time.Now()
	msg := assistantMsg(&model.Part{Kind: model.PartTool, ToolName: "bash", ToolStatus: model.ToolRunning})
	msg.Complete(model.FinishStop, now)

	snap := NewDeriver().Derive(msg, 0, nil)
	if snap.Activity != ActivityTooling {
		t.Fatalf("activity = %v, want tooling while the tool result is outstanding", snap.Activity)
	}
}

func TestDeriveAbortedTurnStaysSettled(t *testing.T) {
	// An aborted completion with a tool part left running (the abort cut
	// the tool result off) must stay idle once the abort is acknowledged.
	now := time.Now()
	msg := assistantMsg(&model.Part{Kind: model.PartTool, ToolName: "bash", ToolStatus: model.ToolRunning})
	msg.CompletedAt = &now
	msg.FinishReason = model.FinishAborted

	snap := NewDeriver().Derive(msg, 0, &model.AbortRecord{At: now, Acknowledged: true})

	if snap.Activity != ActivityIdle {
		t.Fatalf("activity = %v, want idle for a settled aborted turn", snap.Activity)
	}
	if snap.CanAbort {
		t.Fatal("nothing is left to abort after the turn settled")
	}
}

func TestDeriveSyntheticMessageIsIdle(t *testing.T) {
	msg := assistantMsg(&model.Part{Kind: model.PartText, Synthetic: true})
	snap := NewDeriver().Derive(msg, 0, nil)
	if snap.Activity != ActivityIdle {
		t.Fatalf("activity = %v, want idle for synthetic messages", snap.Activity)
	}
}

func TestDeriveGenericPhraseHeldPerActivation(t *testing.T) {
	d := NewDeriver()

	// In flight with no open part yet.
	inflight := assistantMsg()

	first := d.Derive(inflight, 0, nil)
	if first.Activity != ActivityWorking || first.Text == "" {
		t.Fatalf("snapshot = %+v, want working with a phrase", first)
	}
	known := false
	for _, p := range genericPhrases {
		if p == first.Text {
			known = true
		}
	}
	if !known {
		t.Fatalf("phrase %q is not one of the generic phrases", first.Text)
	}

	// Same turn: the phrase stays put across polls.
	if again := d.Derive(inflight, 0, nil); again.Text != first.Text {
		t.Fatalf("phrase churned within a turn: %q then %q", first.Text, again.Text)
	}

	// Turn settles, next activation rotates.
	done := assistantMsg(&model.Part{Kind: model.PartText, Time: closedAt(time.Now())})
	done.Complete(model.FinishStop, time.Now())
	d.Derive(done, 0, nil)

	second := d.Derive(inflight, 0, nil)
	if second.Text == first.Text {
		t.Fatalf("phrase did not rotate across activations: %q", second.Text)
	}
}
