// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/unicode/norm"

	"github.com/harborlight/moor-tui/internal/agent"
	"github.com/harborlight/moor-tui/internal/config"
	"github.com/harborlight/moor-tui/internal/model"
	"github.com/harborlight/moor-tui/internal/status"
	"github.com/harborlight/moor-tui/internal/storage"
	"github.com/harborlight/moor-tui/internal/ui/components"
	"github.com/harborlight/moor-tui/internal/ui/styles"
	"github.com/harborlight/moor-tui/internal/viewport"
)

// frameInterval is the UI frame cadence. Everything time-driven (scroll
// animation, status derivation, entrance expiry) advances on this tick.
const frameInterval = 33 * time.Millisecond

// wheelLines is how many rows one wheel notch scrolls.
const wheelLines = 3

// =============================================================================
// MESSAGES
// =============================================================================

// frameMsg is the recurring frame tick.
type frameMsg time.Time

// eventMsg wraps one agent event.
type eventMsg agent.Event

// eventsClosedMsg signals the agent event stream ended.
type eventsClosedMsg struct{}

// ConfigReloadedMsg carries a newly loaded configuration, sent by the
// config file watcher.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat screen.
type Model struct {
	cfg    *config.Config
	theme  *styles.Theme
	store  *storage.Store
	client agent.Client

	surface *lineSurface
	engine  *viewport.Engine
	anchors *viewport.Manager
	fresh   *viewport.Freshness

	deriver    *status.Deriver
	widget     *status.Widget
	statusLine components.StatusLine

	input textinput.Model
	keys  keyMap

	sessionID string
	width     int
	height    int

	// permLabels remembers what each pending permission is asking for.
	permLabels map[string]string

	// entranceAt stamps when each fresh message's fade-in started.
	entranceAt map[string]time.Time

	lastContent float64
	lastErr     error
	quitting    bool
}

// New creates the chat screen for one session.
func New(cfg *config.Config, theme *styles.Theme, store *storage.Store, client agent.Client, sessionID string) *Model {
	surface := newLineSurface()

	engine := viewport.NewEngine(surface)
	engine.SetDuration(cfg.ScrollAnimDuration())

	anchors := viewport.NewManager(surface, engine, store, cfg.AnchorConfig())

	input := textinput.New()
	input.Placeholder = "ask anything"
	input.Prompt = theme.InputPrompt.Render("> ")
	input.Focus()

	m := &Model{
		cfg:        cfg,
		theme:      theme,
		store:      store,
		client:     client,
		surface:    surface,
		engine:     engine,
		anchors:    anchors,
		fresh:      viewport.NewFreshnessWith(cfg.FreshnessWindow(), time.Now),
		deriver:    status.NewDeriver(),
		widget:     status.NewWidgetWith(cfg.StatusTiming()),
		statusLine: components.NewStatusLine(theme),
		input:      input,
		keys:       defaultKeyMap(),
		permLabels: make(map[string]string),
		entranceAt: make(map[string]time.Time),
	}

	anchors.SetSpacerChangeCallback(func(h float64) {
		surface.spacerRows = int(math.Ceil(h))
	})

	m.switchSession(sessionID)
	return m
}

// switchSession points the screen at a session, restoring its persisted
// anchor state. Loaded history renders statically.
func (m *Model) switchSession(sessionID string) {
	m.sessionID = sessionID
	m.entranceAt = make(map[string]time.Time)
	m.anchors.SwitchSession(sessionID, m.store.Phase(sessionID))
	m.rebuild()
	m.engine.ScrollToBottom(viewport.ScrollOptions{Instant: true, Force: true})
	m.lastContent = m.surface.ContentHeight()
}

// SessionID returns the active session.
func (m *Model) SessionID() string {
	return m.sessionID
}

// =============================================================================
// BUBBLETEA LIFECYCLE
// =============================================================================

// Init starts the frame loop, the event pump, and the cursor blink.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		frameTick(),
		waitEvent(m.client.Events()),
		m.statusLine.Tick(),
		textinput.Blink,
	)
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func waitEvent(ch <-chan agent.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update is the bubbletea event loop.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4
		m.surface.setViewRows(m.viewRows())
		m.rebuild()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.FocusMsg:
		m.widget.NoteFocus(time.Now())
		return m, nil

	case tea.BlurMsg:
		m.widget.NoteBlur(time.Now())
		return m, nil

	case frameMsg:
		m.onFrame(time.Time(msg))
		return m, frameTick()

	case eventMsg:
		m.applyEvent(agent.Event(msg))
		return m, waitEvent(m.client.Events())

	case eventsClosedMsg:
		return m, nil

	case ConfigReloadedMsg:
		m.cfg = msg.Config
		m.engine.SetDuration(msg.Config.ScrollAnimDuration())
		m.anchors.SetConfig(msg.Config.AnchorConfig())
		m.widget.SetTiming(msg.Config.StatusTiming())
		return m, nil

	default:
		cmd := m.statusLine.Update(msg)
		var inputCmd tea.Cmd
		m.input, inputCmd = m.input.Update(msg)
		return m, tea.Batch(cmd, inputCmd)
	}
}

// =============================================================================
// INPUT HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Abort):
		if m.widget.Snapshot().CanAbort {
			m.client.Abort(m.sessionID)
			m.store.RecordAbort(m.sessionID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m, m.submit()

	case key.Matches(msg, m.keys.PageUp):
		m.scrollBy(-m.surface.ViewportHeight())
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.scrollBy(m.surface.ViewportHeight())
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.scrollBy(-1)
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.scrollBy(1)
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.engine.ScrollTo(0, viewport.ScrollOptions{Force: true})
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.engine.ScrollToBottom(viewport.ScrollOptions{Force: true})
		return m, nil
	}

	// A pending permission captures y/n before the input sees them.
	if m.store.PendingPermissions(m.sessionID) > 0 {
		if permID, ok := m.store.FirstPermission(m.sessionID); ok {
			switch {
			case key.Matches(msg, m.keys.Allow):
				m.client.Grant(permID)
				return m, nil
			case key.Matches(msg, m.keys.Deny):
				m.client.Deny(permID)
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.scrollBy(-wheelLines)
	case tea.MouseButtonWheelDown:
		m.scrollBy(wheelLines)
	}
	return m, nil
}

// scrollBy applies a user-initiated relative scroll. User input always
// wins over a running animation.
func (m *Model) scrollBy(rows float64) {
	m.engine.NoteUserInput()
	m.surface.SetOffset(m.surface.Offset() + rows)
	m.engine.HandleScroll()
	m.anchors.OnScroll()
}

// submit sends the input as a user turn.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	m.input.Reset()

	m.store.AppendMessage(model.NewUserMessage(m.sessionID, text))
	m.fresh.RecordSessionStart(m.sessionID)
	m.rebuild()

	sessionID := m.sessionID
	client := m.client
	return func() tea.Msg {
		// Errors surface through the event stream.
		_ = client.Prompt(context.Background(), sessionID, text)
		return nil
	}
}

// =============================================================================
// FRAME ADVANCEMENT
// =============================================================================

// onFrame advances everything time-driven by one frame.
func (m *Model) onFrame(now time.Time) {
	m.rebuild()

	// Follow streaming growth unless the user scrolled away or an
	// anchor is holding position.
	content := m.surface.ContentHeight()
	if content > m.lastContent &&
		!m.engine.ManualOverride() &&
		m.anchors.PendingAnchorID() == "" {
		m.engine.ScrollToBottom(viewport.ScrollOptions{FollowBottom: true})
	}
	m.lastContent = content

	m.engine.Step(now)

	if m.widget.ShouldDerive(now) {
		snap := m.deriver.Derive(
			m.latestAssistant(),
			m.store.PendingPermissions(m.sessionID),
			m.store.AbortRecord(m.sessionID),
		)
		m.widget.Observe(snap, now)
		m.statusLine.Observe(m.widget)

		phase := phaseFor(snap, m.widget.State())
		m.store.SetPhase(m.sessionID, phase)
		m.anchors.OnPhaseChanged(phase)

		// The widget saw the abort edge; retire the record so the
		// notice shows exactly once.
		if snap.WasAborted {
			m.store.AcknowledgeAbort(m.sessionID)
		}
	}

	// Entrance fades settle after their duration.
	for id, since := range m.entranceAt {
		if now.Sub(since) >= styles.EntranceDuration {
			m.fresh.MarkSeen(id)
			delete(m.entranceAt, id)
		}
	}
}

// phaseFor maps a derived snapshot to the session's activity phase. The
// result hold reads as cooldown: the turn is over but its outcome is
// still on screen.
func phaseFor(snap status.Snapshot, st status.State) model.ActivityPhase {
	switch {
	case snap.Activity.Busy():
		return model.PhaseBusy
	case st == status.StateResult:
		return model.PhaseCooldown
	default:
		return model.PhaseIdle
	}
}

// latestAssistant returns the newest assistant message in the session.
func (m *Model) latestAssistant() *model.Message {
	msgs := m.store.Messages(m.sessionID)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant {
			return msgs[i]
		}
	}
	return nil
}

// rebuild re-renders the message list into the surface and lets the
// anchor manager react to list changes.
func (m *Model) rebuild() {
	msgs := m.store.Messages(m.sessionID)
	width := m.width - 2
	if width < 10 {
		width = 78
	}

	var lines []string
	rects := make(map[string]viewport.Rect)

	for _, msg := range msgs {
		entrance := m.fresh.ShouldAnimate(msg)
		if entrance {
			if _, ok := m.entranceAt[msg.ID]; !ok {
				m.entranceAt[msg.ID] = time.Now()
			}
		}

		block := components.RenderMessage(m.theme, msg, width, components.RenderOptions{
			ShowTimestamp: m.cfg.UI.ShowTimestamps,
			Entrance:      entrance,
		})
		blockLines := strings.Split(strings.TrimSuffix(block, "\n"), "\n")

		rects[msg.ID] = viewport.Rect{
			Top:    float64(len(lines)),
			Height: float64(len(blockLines)),
		}
		lines = append(lines, blockLines...)
	}

	m.surface.setContent(lines, rects, m.surface.spacerRows)
	m.anchors.OnMessagesChanged(msgs)
}

// =============================================================================
// EVENT FOLDING
// =============================================================================

// applyEvent folds one agent event into the store.
func (m *Model) applyEvent(ev agent.Event) {
	switch ev.Kind {

	case agent.EventMessageStarted:
		msg := model.NewMessage(ev.SessionID, model.RoleAssistant)
		if ev.MessageID != "" {
			msg.ID = ev.MessageID
		}
		m.store.AppendMessage(msg)

	case agent.EventPartDelta:
		_ = m.store.Mutate(ev.SessionID, ev.MessageID, func(msg *model.Message) {
			part := msg.Part(ev.PartID)
			if part == nil {
				part = &model.Part{
					ID:         ev.PartID,
					Kind:       ev.PartKind,
					ToolName:   ev.ToolName,
					ToolStatus: ev.ToolStatus,
					Time:       model.Interval{Start: ev.At},
				}
				msg.Parts = append(msg.Parts, part)
			}
			if ev.Delta != "" {
				// Combining marks can split across deltas; renormalize
				// the accumulated text, not the chunk.
				part.AppendContent(ev.Delta)
				part.Content = norm.NFC.String(part.Content)
			}
		})

	case agent.EventPartClosed:
		_ = m.store.Mutate(ev.SessionID, ev.MessageID, func(msg *model.Message) {
			if part := msg.Part(ev.PartID); part != nil {
				part.Time.Close(ev.At)
				if part.Kind == model.PartTool && ev.ToolStatus != "" {
					part.ToolStatus = ev.ToolStatus
				}
			}
		})

	case agent.EventToolStatus:
		_ = m.store.Mutate(ev.SessionID, ev.MessageID, func(msg *model.Message) {
			part := msg.Part(ev.PartID)
			if part == nil {
				// A tool part is born from its first status update.
				part = &model.Part{
					ID:       ev.PartID,
					Kind:     model.PartTool,
					ToolName: ev.ToolName,
					Time:     model.Interval{Start: ev.At},
				}
				msg.Parts = append(msg.Parts, part)
			}
			part.ToolStatus = ev.ToolStatus
			if part.ToolStatus == model.ToolCompleted || part.ToolStatus == model.ToolError {
				part.Time.Close(ev.At)
			}
		})

	case agent.EventMessageCompleted:
		_ = m.store.Mutate(ev.SessionID, ev.MessageID, func(msg *model.Message) {
			msg.Complete(ev.FinishReason, ev.At)
		})

	case agent.EventPermissionRequested:
		m.permLabels[ev.PermissionID] = ev.ToolName
		m.store.AddPermission(ev.SessionID, ev.PermissionID)

	case agent.EventPermissionResolved:
		delete(m.permLabels, ev.PermissionID)
		m.store.ResolvePermission(ev.SessionID, ev.PermissionID)

	case agent.EventError:
		m.lastErr = ev.Err
	}
}

// =============================================================================
// VIEW
// =============================================================================

// viewRows is the message area height after the fixed chrome.
func (m *Model) viewRows() int {
	chrome := 3 // header, status line, input
	if m.permissionPending() {
		chrome++
	}
	rows := m.height - chrome
	if rows < 0 {
		rows = 0
	}
	return rows
}

func (m *Model) permissionPending() bool {
	return m.store.PendingPermissions(m.sessionID) > 0
}

// View renders the chat screen.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "loading..."
	}

	m.surface.setViewRows(m.viewRows())

	var b strings.Builder

	title := "moor"
	if ses := m.store.Session(m.sessionID); ses != nil && ses.Title != "" {
		title = ses.Title
	}
	header := m.theme.HeaderTitle.Render(title)
	if !m.atBottom() && m.anchors.PendingAnchorID() == "" {
		// The jump button hides while an anchor is holding position:
		// offering "scroll to bottom" there would fight the anchor.
		header += "  " + m.theme.ScrollButton.Render("end: jump to latest")
	}
	b.WriteString(m.theme.Header.Width(m.width).Render(header))
	b.WriteString("\n")

	b.WriteString(m.surface.visible())
	b.WriteString("\n")

	b.WriteString(m.statusLine.View(m.width))
	b.WriteString("\n")

	if m.permissionPending() {
		if permID, ok := m.store.FirstPermission(m.sessionID); ok {
			b.WriteString(components.RenderPermissionPrompt(m.theme, m.permLabels[permID], m.width))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.input.View())
	return b.String()
}

// atBottom reports whether the viewport shows the content's end.
func (m *Model) atBottom() bool {
	return m.surface.Offset() >= m.surface.ContentHeight()-m.surface.ViewportHeight()-1
}
