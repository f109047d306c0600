// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the reusable UI pieces of the moor TUI:
// message rendering, the status line, and the permission prompt.
//
// Components are pure view helpers or small bubbletea models; none of
// them touch the store directly.
package components
