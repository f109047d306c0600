// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"

	"github.com/harborlight/moor-tui/internal/ui/styles"
)

// RenderPermissionPrompt renders the inline permission request row shown
// above the input while the agent is blocked. label describes what is
// being asked for, usually the tool name.
func RenderPermissionPrompt(theme *styles.Theme, label string, width int) string {
	if label == "" {
		label = "this action"
	}
	prompt := theme.PermissionPrompt.Render(fmt.Sprintf("allow %s?", label))
	hint := theme.StatusHint.Render("y allow / n deny")
	return theme.StatusLine.Width(width).Render(prompt + "  " + hint)
}
