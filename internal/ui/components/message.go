// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/harborlight/moor-tui/internal/model"
	"github.com/harborlight/moor-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// RenderOptions control per-message presentation.
type RenderOptions struct {
	// ShowTimestamp renders the creation time next to the role label.
	ShowTimestamp bool

	// Entrance renders the whole message in the dimmed entrance style.
	Entrance bool
}

// RenderMessage renders one message to a block of lines wrapped to
// width. The block always ends with a blank separator line so message
// heights measured from it stack directly into content heights.
func RenderMessage(theme *styles.Theme, msg *model.Message, width int, opts RenderOptions) string {
	if width < 10 {
		width = 10
	}

	var b strings.Builder
	b.WriteString(renderLabel(theme, msg, opts))
	b.WriteString("\n")

	body := theme.Body
	if opts.Entrance {
		body = theme.Entrance
	}

	for _, part := range msg.Parts {
		switch part.Kind {
		case model.PartText:
			for _, line := range WrapText(part.Content, width) {
				b.WriteString(body.Render(line))
				b.WriteString("\n")
			}
		case model.PartReasoning:
			// Reasoning shows only while it streams; once closed it
			// collapses to a one-line trace.
			if part.IsOpen() {
				for _, line := range WrapText(part.Content, width) {
					b.WriteString(theme.Reasoning.Render(line))
					b.WriteString("\n")
				}
			} else if part.Content != "" {
				b.WriteString(theme.Reasoning.Render("thought for a moment"))
				b.WriteString("\n")
			}
		case model.PartTool:
			b.WriteString(renderToolLine(theme, part))
			b.WriteString("\n")
		}
	}

	if msg.FinishReason == model.FinishAborted {
		b.WriteString(theme.AbortNotice.Render("~ interrupted"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	return b.String()
}

func renderLabel(theme *styles.Theme, msg *model.Message, opts RenderOptions) string {
	var label string
	switch msg.Role {
	case model.RoleUser:
		label = theme.UserLabel.Render(msg.Role.DisplayName())
	case model.RoleAssistant:
		label = theme.AssistantLabel.Render(msg.Role.DisplayName())
	default:
		label = theme.SystemLabel.Render(msg.Role.DisplayName())
	}
	if opts.ShowTimestamp {
		label += "  " + theme.Timestamp.Render(msg.CreatedAt.Format("15:04"))
	}
	return label
}

// renderToolLine renders a tool invocation with its status marker.
func renderToolLine(theme *styles.Theme, part *model.Part) string {
	name := part.ToolName
	if name == "" {
		name = "tool"
	}
	switch part.ToolStatus {
	case model.ToolPending:
		return theme.ToolPending.Render("[..] " + name)
	case model.ToolRunning:
		return theme.ToolRunning.Render("[>>] " + name)
	case model.ToolError:
		return theme.ToolError.Render("[!!] " + name)
	default:
		return theme.ToolCompleted.Render("[ok] " + name)
	}
}

// =============================================================================
// TEXT WRAPPING
// =============================================================================

// WrapText wraps text to maxWidth display cells, splitting on spaces
// where possible and breaking words that exceed the full width. Widths
// are measured with runewidth so CJK and emoji do not overflow the row.
func WrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}

	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		lines = append(lines, wrapLine(raw, maxWidth)...)
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

func wrapLine(line string, maxWidth int) []string {
	if runewidth.StringWidth(line) <= maxWidth {
		return []string{line}
	}

	var out []string
	var cur strings.Builder
	curWidth := 0

	flush := func() {
		out = append(out, strings.TrimRight(cur.String(), " "))
		cur.Reset()
		curWidth = 0
	}

	for _, word := range strings.Split(line, " ") {
		w := runewidth.StringWidth(word)

		if w > maxWidth {
			// A single oversized word breaks mid-word.
			if curWidth > 0 {
				flush()
			}
			for _, r := range word {
				rw := runewidth.RuneWidth(r)
				if curWidth+rw > maxWidth {
					flush()
				}
				cur.WriteRune(r)
				curWidth += rw
			}
			if curWidth > 0 {
				cur.WriteString(" ")
				curWidth++
			}
			continue
		}

		if curWidth > 0 && curWidth+w > maxWidth {
			flush()
		}
		cur.WriteString(word)
		curWidth += w
		if curWidth < maxWidth {
			cur.WriteString(" ")
			curWidth++
		}
	}
	if cur.Len() > 0 {
		out = append(out, strings.TrimRight(cur.String(), " "))
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}
