// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// PART KINDS
// =============================================================================

// PartKind identifies the variant of a message part.
type PartKind string

const (
	PartText       PartKind = "text"        // Assistant prose or user input
	PartReasoning  PartKind = "reasoning"   // Model thinking output
	PartTool       PartKind = "tool"        // Tool invocation with status
	PartStepStart  PartKind = "step-start"  // Bookkeeping marker, no content
	PartStepFinish PartKind = "step-finish" // Bookkeeping marker with usage info
)

// ToolStatus tracks the lifecycle of a tool part.
type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolRunning   ToolStatus = "running"
	ToolCompleted ToolStatus = "completed"
	ToolError     ToolStatus = "error"
)

// =============================================================================
// INTERVAL
// =============================================================================

// Interval is the open or closed time range a part was active for.
// A nil End means the part is still open (actively streaming or executing).
type Interval struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// Open reports whether the interval has not been closed yet.
func (iv Interval) Open() bool {
	return iv.End == nil
}

// Close sets the end timestamp if it is not already set.
func (iv *Interval) Close(at time.Time) {
	if iv.End == nil {
		end := at
		iv.End = &end
	}
}

// =============================================================================
// PART
// =============================================================================

// Part is one fragment of a message: text, reasoning, a tool invocation,
// or a step marker. Fields that do not apply to the kind are left zero.
type Part struct {
	ID   string   `json:"id"`
	Kind PartKind `json:"kind"`

	// Text and reasoning parts
	Content string `json:"content,omitempty"`

	// Tool parts
	ToolName   string     `json:"tool_name,omitempty"`
	ToolStatus ToolStatus `json:"tool_status,omitempty"`

	// Time tracks when the part was active. Zero Start with nil End is
	// treated as open for parts that stream before their first tick.
	Time Interval `json:"time"`

	// Synthetic marks placeholder parts that do not represent real agent
	// output. They never count as activity and never block completion.
	Synthetic bool `json:"synthetic,omitempty"`
}

// IsOpen reports whether the part is still producing output or executing.
// Tool parts are open while pending or running regardless of their time
// interval; other parts are open until their interval closes.
func (p *Part) IsOpen() bool {
	if p.Synthetic {
		return false
	}
	if p.Kind == PartTool {
		return p.ToolStatus == ToolPending || p.ToolStatus == ToolRunning
	}
	if p.Kind == PartStepStart || p.Kind == PartStepFinish {
		return false
	}
	return p.Time.Open()
}

// AppendContent adds streamed content to a text or reasoning part.
func (p *Part) AppendContent(delta string) {
	if p.Kind == PartText || p.Kind == PartReasoning {
		p.Content += delta
	}
}
