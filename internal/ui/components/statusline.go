// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harborlight/moor-tui/internal/status"
	"github.com/harborlight/moor-tui/internal/ui/styles"
)

// StatusLine renders the one-row agent activity line: spinner, derived
// status text, and the contextual hint (abort or permission keys).
type StatusLine struct {
	theme   *styles.Theme
	spinner spinner.Model

	line       string
	state      status.State
	canAbort   bool
	permission bool
}

// NewStatusLine creates the status line component.
func NewStatusLine(theme *styles.Theme) StatusLine {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: styles.LineSpinner.Frames,
		FPS:    styles.LineSpinner.Duration(),
	}
	s.Style = lipgloss.NewStyle().Foreground(styles.Purple)
	return StatusLine{theme: theme, spinner: s}
}

// Tick starts the spinner animation.
func (sl *StatusLine) Tick() tea.Cmd {
	return sl.spinner.Tick
}

// Update advances the spinner.
func (sl *StatusLine) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	sl.spinner, cmd = sl.spinner.Update(msg)
	return cmd
}

// Observe syncs the rendered state from the status widget.
func (sl *StatusLine) Observe(w *status.Widget) {
	sl.line = w.Line()
	sl.state = w.State()
	snap := w.Snapshot()
	sl.canAbort = snap.CanAbort
	sl.permission = snap.Activity == status.ActivityWaiting
}

// View renders the status line padded to width. Idle renders an empty
// row so the layout does not jump when activity starts.
func (sl *StatusLine) View(width int) string {
	var b strings.Builder

	switch sl.state {
	case status.StateActive:
		if sl.permission {
			b.WriteString(sl.theme.PermissionPrompt.Render(sl.line))
			b.WriteString("  ")
			b.WriteString(sl.theme.StatusHint.Render("y allow / n deny"))
		} else {
			b.WriteString(sl.spinner.View())
			b.WriteString(" ")
			b.WriteString(sl.theme.StatusText.Render(sl.line))
			if sl.canAbort {
				b.WriteString("  ")
				b.WriteString(sl.theme.StatusHint.Render("esc to interrupt"))
			}
		}
	case status.StateResult:
		if sl.line == "interrupted" {
			b.WriteString(sl.theme.AbortNotice.Render("~ " + sl.line))
		} else {
			b.WriteString(sl.theme.StatusResult.Render("* " + sl.line))
		}
	}

	return sl.theme.StatusLine.Width(width).Render(b.String())
}
