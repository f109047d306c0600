// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/harborlight/moor-tui/internal/agent"
	"github.com/harborlight/moor-tui/internal/config"
	"github.com/harborlight/moor-tui/internal/model"
	"github.com/harborlight/moor-tui/internal/status"
	"github.com/harborlight/moor-tui/internal/storage"
	"github.com/harborlight/moor-tui/internal/ui/styles"
)

func newTestChat(t *testing.T, askPermission bool) (*Model, *storage.Store, *agent.Loopback) {
	t.Helper()

	store := storage.NewStore()
	ses := store.CreateSession("test session")
	client := agent.NewLoopback(time.Millisecond, askPermission)
	t.Cleanup(func() { client.Close() })

	m := New(config.Default(), styles.New("dark"), store, client, ses.ID)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, store, client
}

// submitPrompt types text and presses enter, running the resulting
// command synchronously.
func submitPrompt(t *testing.T, m *Model, text string) {
	t.Helper()
	m.input.SetValue(text)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd, "submit should produce a command")
	cmd()
}

// applyUntil feeds agent events into the model until one of the given
// kind has been applied, or fails after a timeout.
func applyUntil(t *testing.T, m *Model, client *agent.Loopback, kind agent.EventKind) agent.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-client.Events():
			require.True(t, ok, "event stream closed before %s", kind)
			m.Update(eventMsg(ev))
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestSubmitAppendsAndAnchors(t *testing.T) {
	m, store, _ := newTestChat(t, false)

	submitPrompt(t, m, "hello agent")

	msgs := store.Messages(m.SessionID())
	require.Len(t, msgs, 1)
	require.Equal(t, model.RoleUser, msgs[0].Role)
	require.Equal(t, "hello agent", msgs[0].TextContent())

	require.Equal(t, msgs[0].ID, m.anchors.PendingAnchorID(),
		"submitting should anchor the new user message")
}

func TestTurnRoundTrip(t *testing.T) {
	m, store, client := newTestChat(t, false)

	submitPrompt(t, m, "run the thing")
	applyUntil(t, m, client, agent.EventMessageCompleted)

	msgs := store.Messages(m.SessionID())
	require.Len(t, msgs, 2)

	reply := msgs[1]
	require.Equal(t, model.RoleAssistant, reply.Role)
	require.True(t, reply.Completed())
	require.Equal(t, model.FinishStop, reply.FinishReason)
	require.Contains(t, reply.TextContent(), "run the thing")

	// The tool part closed out.
	var tool *model.Part
	for _, p := range reply.Parts {
		if p.Kind == model.PartTool {
			tool = p
		}
	}
	require.NotNil(t, tool)
	require.Equal(t, model.ToolCompleted, tool.ToolStatus)
}

func TestStatusDuringTool(t *testing.T) {
	m, _, client := newTestChat(t, false)

	submitPrompt(t, m, "go")
	ev := applyUntil(t, m, client, agent.EventToolStatus)
	require.Equal(t, model.ToolPending, ev.ToolStatus)

	now := time.Now()
	m.onFrame(now)

	snap := m.widget.Snapshot()
	require.Equal(t, "running command", snap.Text)
	require.True(t, snap.CanAbort)
	require.Contains(t, m.View(), "running command")

	// Finish the turn, then let the result hold expire.
	applyUntil(t, m, client, agent.EventMessageCompleted)
	m.onFrame(now.Add(1 * time.Second))
	require.Equal(t, "done", m.widget.Line())
	m.onFrame(now.Add(3 * time.Second))
	require.Equal(t, "", m.widget.Line())
}

func TestEscAbortsTurn(t *testing.T) {
	store := storage.NewStore()
	ses := store.CreateSession("abort test")
	// Slow playback so the abort lands mid-turn.
	client := agent.NewLoopback(50*time.Millisecond, false)
	t.Cleanup(func() { client.Close() })

	m := New(config.Default(), styles.New("dark"), store, client, ses.ID)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	submitPrompt(t, m, "long task")
	applyUntil(t, m, client, agent.EventPartDelta)

	// Derive once so the widget knows the turn is abortable.
	now := time.Now()
	m.onFrame(now)
	require.True(t, m.widget.Snapshot().CanAbort)

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	ev := applyUntil(t, m, client, agent.EventMessageCompleted)
	require.Equal(t, model.FinishAborted, ev.FinishReason)

	// The next derive surfaces the interruption once and retires the
	// abort record.
	m.onFrame(now.Add(500 * time.Millisecond))
	require.Equal(t, "interrupted", m.widget.Line())

	rec := store.AbortRecord(ses.ID)
	require.NotNil(t, rec)
	require.True(t, rec.Acknowledged)
}

func TestPermissionFlow(t *testing.T) {
	m, store, client := newTestChat(t, true)

	submitPrompt(t, m, "careful now")
	applyUntil(t, m, client, agent.EventPermissionRequested)

	require.Equal(t, 1, store.PendingPermissions(m.SessionID()))

	// Status flips to the permission wait with abort disabled.
	now := time.Now()
	m.onFrame(now)
	snap := m.widget.Snapshot()
	require.Equal(t, "waiting for permission", snap.Text)
	require.False(t, snap.CanAbort)
	require.Contains(t, m.View(), "allow bash?")

	// Approve from the keyboard.
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})

	applyUntil(t, m, client, agent.EventPermissionResolved)
	require.Equal(t, 0, store.PendingPermissions(m.SessionID()))

	ev := applyUntil(t, m, client, agent.EventMessageCompleted)
	require.Equal(t, model.FinishStop, ev.FinishReason)
}

func TestScrollSuppressesFollowAndJumpButton(t *testing.T) {
	m, store, _ := newTestChat(t, false)

	// Enough history to make the list scrollable.
	for i := 0; i < 40; i++ {
		msg := model.NewMessage(m.SessionID(), model.RoleAssistant)
		msg.Parts = []*model.Part{{Kind: model.PartText, Content: "line of history"}}
		msg.Complete(model.FinishStop, time.Now())
		store.AppendMessage(msg)
	}
	m.onFrame(time.Now())

	// User scrolls up: follow mode must disengage.
	m.scrollBy(-10)
	require.True(t, m.engine.ManualOverride())

	// No anchor pending, away from bottom: the jump hint shows.
	require.Contains(t, m.View(), "jump to latest")
}

func TestPhaseForResultHoldIsCooldown(t *testing.T) {
	busy := status.Snapshot{Activity: status.ActivityTooling}
	require.Equal(t, model.PhaseBusy, phaseFor(busy, status.StateActive))

	settled := status.Snapshot{Activity: status.ActivityIdle}
	require.Equal(t, model.PhaseCooldown, phaseFor(settled, status.StateResult),
		"the result hold is the cooldown window")
	require.Equal(t, model.PhaseIdle, phaseFor(settled, status.StateIdle))
}

func TestFocusMessagesAreHandled(t *testing.T) {
	m, _, _ := newTestChat(t, false)

	// Terminal focus reporting feeds the status widget's staleness
	// tracking; both messages must be consumed, not passed to the input.
	_, cmd := m.Update(tea.BlurMsg{})
	require.Nil(t, cmd)
	_, cmd = m.Update(tea.FocusMsg{})
	require.Nil(t, cmd)
}

func TestViewRendersChrome(t *testing.T) {
	m, _, _ := newTestChat(t, false)

	view := m.View()
	require.Contains(t, view, "test session")
	require.Contains(t, view, ">")
}
