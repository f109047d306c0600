// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat screen: the bubbletea
// model that folds agent events into the store, drives the viewport
// controller off frame ticks, and renders the message list, status line,
// and input row.
//
// The scroll machinery lives in internal/viewport and is deliberately
// unaware of bubbletea; this package adapts between the two. The
// rendered message list implements viewport.Surface in terminal rows.
package chat
