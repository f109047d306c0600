// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package status derives the "what is the agent doing" line from raw
// message state and drives the widget that displays it.
//
// Derivation is a pure read of the latest assistant message plus the
// session's permission and abort bookkeeping; nothing here subscribes to
// anything. The widget layer adds the time-based presentation rules:
// minimum hold so statuses do not flicker, a short terminal result
// display, and staleness handling across focus loss.
package status
