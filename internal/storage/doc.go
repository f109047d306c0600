// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage owns the session and message state the rest of the
// client reads: ordered messages per session, the per-session anchor
// state map, activity phases, abort records, and pending permission
// requests.
//
// The in-memory Store is the source of truth while the client runs;
// a SQLite mirror persists it across restarts. Consumers observe
// mutations through Subscribe rather than polling.
package storage
