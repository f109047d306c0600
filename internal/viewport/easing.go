// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package viewport

// EasingFunc maps animation progress (0-1) to output (0-1).
type EasingFunc func(t float64) float64

// EaseLinear - constant speed.
func EaseLinear(t float64) float64 {
	return t
}

// EaseOutCubic - decelerating to zero. The default scroll curve: fast
// start so the move reads as responsive, gentle landing so it does not
// overshoot visually.
func EaseOutCubic(t float64) float64 {
	t--
	return t*t*t + 1
}
