// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses the moor command line and implements the non-TUI
// commands: the plain readline chat fallback, session listing,
// transcript export, and config inspection.
package cli
