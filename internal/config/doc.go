// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for moor.
//
// Supports TOML configuration with sensible defaults, environment
// variable overrides (MOOR_*), and validation. The viewport and status
// sections expose the UX tuning constants; the shipped defaults are the
// values the behavior was tuned with, so changing them changes feel,
// not correctness.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (MOOR_*)
//   - path passed explicitly on the command line
//   - ~/.moor/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
