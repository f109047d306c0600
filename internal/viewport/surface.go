// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package viewport

// Rect is the measured position of a rendered message inside the
// scrollable content, in the surface's units (terminal rows here,
// but nothing in this package depends on that).
type Rect struct {
	Top    float64
	Height float64
}

// Bottom returns the rect's bottom edge.
func (r Rect) Bottom() float64 {
	return r.Top + r.Height
}

// Surface is the single scrollable viewport the controller operates on.
// It is exclusively owned by the Engine: every other component requests
// movement through the Engine rather than writing the offset directly.
//
// Implementations return live measurements; callers treat each read as
// a snapshot that may be stale by the next event.
type Surface interface {
	// Offset is the current scroll offset from the top of the content.
	Offset() float64

	// SetOffset moves the viewport. Implementations clamp out-of-range
	// values rather than failing.
	SetOffset(offset float64)

	// ContentHeight is the total scrollable height, including any
	// trailing spacer currently rendered.
	ContentHeight() float64

	// ViewportHeight is the visible height.
	ViewportHeight() float64

	// MessageRect locates a rendered message. ok is false when the
	// message is not in the rendered tree, which callers treat as a
	// silent no-op, never an error.
	MessageRect(messageID string) (rect Rect, ok bool)
}
