// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package viewport implements the streaming viewport controller: the
// scroll animation engine, the anchor/spacer manager that holds the
// just-submitted user message steady while the reply streams in below
// it, and the freshness tracker that decides entrance animations.
//
// The components are framework-free. They read and write scroll state
// through the Surface adapter and are advanced by externally driven
// frame callbacks, so every algorithm tests against a fake surface and
// an explicit clock.
package viewport
