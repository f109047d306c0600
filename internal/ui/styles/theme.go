// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. It detects the
// terminal's color capability once at construction.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER AND CHROME
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	Body           lipgloss.Style
	Reasoning      lipgloss.Style
	Timestamp      lipgloss.Style

	// Entrance is the dimmed style a fresh assistant message renders
	// with while its fade-in plays.
	Entrance lipgloss.Style

	// ==========================================================================
	// TOOL LINES
	// ==========================================================================

	ToolPending   lipgloss.Style
	ToolRunning   lipgloss.Style
	ToolCompleted lipgloss.Style
	ToolError     lipgloss.Style

	// ==========================================================================
	// STATUS AND PROMPTS
	// ==========================================================================

	StatusLine       lipgloss.Style
	StatusText       lipgloss.Style
	StatusResult     lipgloss.Style
	StatusHint       lipgloss.Style
	PermissionPrompt lipgloss.Style
	AbortNotice      lipgloss.Style

	// ==========================================================================
	// INPUT AND CONTROLS
	// ==========================================================================

	InputPrompt  lipgloss.Style
	ScrollButton lipgloss.Style
}

// New constructs the theme. name is "dark" or "light"; it overrides the
// terminal's background detection.
func New(name string) *Theme {
	isDark := name != "light"
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.UserLabel = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.SystemLabel = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.Body = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Reasoning = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.Entrance = lipgloss.NewStyle().Foreground(TextMuted)

	t.ToolPending = lipgloss.NewStyle().Foreground(TextMuted)
	t.ToolRunning = lipgloss.NewStyle().Foreground(Amber)
	t.ToolCompleted = lipgloss.NewStyle().Foreground(Emerald)
	t.ToolError = lipgloss.NewStyle().Foreground(Rose)

	t.StatusLine = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusText = lipgloss.NewStyle().Foreground(TextSecondary)
	t.StatusResult = lipgloss.NewStyle().Foreground(Emerald)
	t.StatusHint = lipgloss.NewStyle().Foreground(TextMuted)
	t.PermissionPrompt = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.AbortNotice = lipgloss.NewStyle().Foreground(Rose)

	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.ScrollButton = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(Overlay).
		Padding(0, 1)

	return t
}
