// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/harborlight/moor-tui/internal/status"
	"github.com/harborlight/moor-tui/internal/util"
	"github.com/harborlight/moor-tui/internal/viewport"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete moor configuration.
type Config struct {
	Version string `toml:"version"`

	Storage  StorageConfig  `toml:"storage"`
	Viewport ViewportConfig `toml:"viewport"`
	Status   StatusConfig   `toml:"status"`
	UI       UIConfig       `toml:"ui"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	// DBPath is the SQLite database file (empty = ~/.moor/moor.db).
	DBPath string `toml:"db_path"`
	// ExportDir is where transcript exports land (empty = current dir).
	ExportDir string `toml:"export_dir"`
}

// ViewportConfig contains the scroll and anchor tuning values.
type ViewportConfig struct {
	// ContextOffset is how many rows of content above the anchored
	// message stay visible after the jump.
	ContextOffset float64 `toml:"context_offset"`
	// LongMessageRatio: an anchor taller than this fraction of the
	// viewport is treated as long.
	LongMessageRatio float64 `toml:"long_message_ratio"`
	// LongMessageVisibleRatio is the visible tail fraction for long
	// anchors.
	LongMessageVisibleRatio float64 `toml:"long_message_visible_ratio"`
	// ScrollAnimMs is the animated scroll duration in milliseconds.
	ScrollAnimMs int `toml:"scroll_anim_ms"`
	// FreshnessWindowSecs is the slack before a turn start within which
	// a message still counts as fresh.
	FreshnessWindowSecs int `toml:"freshness_window_secs"`
}

// StatusConfig contains the status line timing values.
type StatusConfig struct {
	// MinHoldMs is the minimum time a status line stays visible.
	MinHoldMs int `toml:"min_hold_ms"`
	// ResultHoldMs is how long the terminal result stays visible.
	ResultHoldMs int `toml:"result_hold_ms"`
	// DeriveIntervalMs caps how often status is re-derived.
	DeriveIntervalMs int `toml:"derive_interval_ms"`
	// BlurStaleMs: a status held across a blur longer than this is
	// considered stale on refocus.
	BlurStaleMs int `toml:"blur_stale_ms"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme is "dark" or "light".
	Theme string `toml:"theme"`
	// Mouse enables mouse wheel scrolling.
	Mouse bool `toml:"mouse"`
	// AltScreen runs the TUI on the terminal's alternate screen.
	AltScreen bool `toml:"alt_screen"`
	// ShowTimestamps renders per-message timestamps.
	ShowTimestamps bool `toml:"show_timestamps"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the default configuration. The viewport and status
// numbers are the tuned values, not placeholders.
func Default() *Config {
	return &Config{
		Version: "1",
		Storage: StorageConfig{},
		Viewport: ViewportConfig{
			ContextOffset:           50,
			LongMessageRatio:        0.20,
			LongMessageVisibleRatio: 0.10,
			ScrollAnimMs:            160,
			FreshnessWindowSecs:     5,
		},
		Status: StatusConfig{
			MinHoldMs:        2000,
			ResultHoldMs:     1500,
			DeriveIntervalMs: 150,
			BlurStaleMs:      500,
		},
		UI: UIConfig{
			Theme:     "dark",
			Mouse:     true,
			AltScreen: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the moor configuration directory (~/.moor).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".moor"), nil
}

// ConfigPath returns the default TOML config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the config directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o700)
}

// DBPath resolves the SQLite path, falling back to ~/.moor/moor.db.
func (c *Config) DBPath() (string, error) {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "moor.db"), nil
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// AnchorConfig converts the viewport section into the anchor manager's
// configuration.
func (c *Config) AnchorConfig() viewport.AnchorConfig {
	return viewport.AnchorConfig{
		ContextOffset:           c.Viewport.ContextOffset,
		LongMessageRatio:        c.Viewport.LongMessageRatio,
		LongMessageVisibleRatio: c.Viewport.LongMessageVisibleRatio,
	}
}

// StatusTiming converts the status section into the widget's timing.
func (c *Config) StatusTiming() status.Timing {
	return status.Timing{
		DeriveInterval: time.Duration(c.Status.DeriveIntervalMs) * time.Millisecond,
		MinHold:        time.Duration(c.Status.MinHoldMs) * time.Millisecond,
		ResultHold:     time.Duration(c.Status.ResultHoldMs) * time.Millisecond,
		BlurStaleAfter: time.Duration(c.Status.BlurStaleMs) * time.Millisecond,
	}
}

// ScrollAnimDuration returns the animated scroll duration.
func (c *Config) ScrollAnimDuration() time.Duration {
	return time.Duration(c.Viewport.ScrollAnimMs) * time.Millisecond
}

// FreshnessWindow returns the entrance animation slack window.
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.Viewport.FreshnessWindowSecs) * time.Second
}

// =============================================================================
// LOADING
// =============================================================================

// Load loads configuration from the default location. Missing file is
// not an error: defaults apply. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. A missing file yields defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies MOOR_* environment variables on top of the
// loaded values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MOOR_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("MOOR_EXPORT_DIR"); v != "" {
		c.Storage.ExportDir = v
	}
	if v := os.Getenv("MOOR_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("MOOR_NO_MOUSE"); isTruthy(v) {
		c.UI.Mouse = false
	}
	if v := os.Getenv("MOOR_NO_ALT_SCREEN"); isTruthy(v) {
		c.UI.AltScreen = false
	}
	if v := os.Getenv("MOOR_SCROLL_ANIM_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Viewport.ScrollAnimMs = n
		}
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default TOML file atomically.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// Encode writes the configuration as TOML to w.
func Encode(w io.Writer, cfg *Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// SaveTOML writes the configuration to a TOML file atomically.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# moor configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0o600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors aggregates all validation failures.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Viewport.ContextOffset < 0 {
		errs = append(errs, ValidationError{
			Field:   "viewport.context_offset",
			Message: fmt.Sprintf("cannot be negative, got %v", c.Viewport.ContextOffset),
		})
	}
	if c.Viewport.LongMessageRatio <= 0 || c.Viewport.LongMessageRatio >= 1 {
		errs = append(errs, ValidationError{
			Field:   "viewport.long_message_ratio",
			Message: fmt.Sprintf("must be between 0 and 1 exclusive, got %v", c.Viewport.LongMessageRatio),
		})
	}
	if c.Viewport.LongMessageVisibleRatio <= 0 || c.Viewport.LongMessageVisibleRatio >= 1 {
		errs = append(errs, ValidationError{
			Field:   "viewport.long_message_visible_ratio",
			Message: fmt.Sprintf("must be between 0 and 1 exclusive, got %v", c.Viewport.LongMessageVisibleRatio),
		})
	}
	if c.Viewport.LongMessageVisibleRatio >= c.Viewport.LongMessageRatio {
		errs = append(errs, ValidationError{
			Field:   "viewport.long_message_visible_ratio",
			Message: "must be smaller than long_message_ratio",
		})
	}
	if c.Viewport.ScrollAnimMs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "viewport.scroll_anim_ms",
			Message: fmt.Sprintf("must be positive, got %d", c.Viewport.ScrollAnimMs),
		})
	}
	if c.Viewport.FreshnessWindowSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "viewport.freshness_window_secs",
			Message: fmt.Sprintf("cannot be negative, got %d", c.Viewport.FreshnessWindowSecs),
		})
	}

	if c.Status.MinHoldMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "status.min_hold_ms",
			Message: fmt.Sprintf("cannot be negative, got %d", c.Status.MinHoldMs),
		})
	}
	if c.Status.ResultHoldMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "status.result_hold_ms",
			Message: fmt.Sprintf("cannot be negative, got %d", c.Status.ResultHoldMs),
		})
	}
	if c.Status.DeriveIntervalMs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "status.derive_interval_ms",
			Message: fmt.Sprintf("must be positive, got %d", c.Status.DeriveIntervalMs),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
