// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared between the store,
// the viewport controller, and the UI: sessions, messages, message parts,
// and the small bag of per-session transient state (activity phase,
// abort record, persisted anchor).
//
// Messages are owned by the store. While a message is streaming its parts
// may be appended to and updated in place; once it carries a completion
// timestamp it is immutable and everything downstream treats it as
// read-only.
package model
