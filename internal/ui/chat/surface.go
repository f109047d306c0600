// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/harborlight/moor-tui/internal/viewport"
)

// lineSurface is the rendered message list as a viewport.Surface. Units
// are terminal rows; offsets stay float64 so animations move in
// sub-row steps and only the final render truncates.
type lineSurface struct {
	lines      []string
	rects      map[string]viewport.Rect
	spacerRows int
	viewRows   int
	offset     float64
}

func newLineSurface() *lineSurface {
	return &lineSurface{rects: make(map[string]viewport.Rect)}
}

// setContent replaces the rendered lines and per-message rects. blocks
// must be in display order; each block's trailing newline has already
// been accounted for by the renderer.
func (s *lineSurface) setContent(lines []string, rects map[string]viewport.Rect, spacerRows int) {
	s.lines = lines
	s.rects = rects
	s.spacerRows = spacerRows
	s.clampOffset()
}

func (s *lineSurface) setViewRows(rows int) {
	if rows < 0 {
		rows = 0
	}
	s.viewRows = rows
	s.clampOffset()
}

func (s *lineSurface) clampOffset() {
	max := s.ContentHeight() - s.ViewportHeight()
	if max < 0 {
		max = 0
	}
	if s.offset > max {
		s.offset = max
	}
	if s.offset < 0 {
		s.offset = 0
	}
}

// visible renders the rows currently inside the viewport, padding with
// blank rows when content is shorter than the view.
func (s *lineSurface) visible() string {
	total := len(s.lines) + s.spacerRows
	top := int(s.offset)

	rows := make([]string, 0, s.viewRows)
	for i := top; i < top+s.viewRows; i++ {
		if i >= 0 && i < len(s.lines) {
			rows = append(rows, s.lines[i])
		} else if i < total {
			rows = append(rows, "") // spacer row
		} else {
			rows = append(rows, "")
		}
	}
	return strings.Join(rows, "\n")
}

// =============================================================================
// viewport.Surface
// =============================================================================

func (s *lineSurface) Offset() float64 { return s.offset }

func (s *lineSurface) SetOffset(offset float64) {
	s.offset = offset
	s.clampOffset()
}

func (s *lineSurface) ContentHeight() float64 {
	return float64(len(s.lines) + s.spacerRows)
}

func (s *lineSurface) ViewportHeight() float64 {
	return float64(s.viewRows)
}

func (s *lineSurface) MessageRect(messageID string) (viewport.Rect, bool) {
	r, ok := s.rects[messageID]
	return r, ok
}
