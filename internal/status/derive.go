// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package status

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/harborlight/moor-tui/internal/model"
)

// =============================================================================
// ACTIVITY
// =============================================================================

// Activity is the coarse class of what the agent is doing right now.
type Activity string

const (
	ActivityIdle      Activity = "idle"
	ActivityThinking  Activity = "thinking"  // Open reasoning part
	ActivityComposing Activity = "composing" // Open text part
	ActivityTooling   Activity = "tooling"   // Open tool invocation
	ActivityWorking   Activity = "working"   // In-flight, between parts
	ActivityWaiting   Activity = "waiting"   // Blocked on a permission prompt
)

// Busy reports whether the activity represents an in-flight turn.
func (a Activity) Busy() bool {
	return a != ActivityIdle
}

// Snapshot is one derived status reading.
type Snapshot struct {
	Activity Activity

	// Text is the status line, empty when idle.
	Text string

	// CanAbort is whether Esc should offer to cancel the turn. False
	// while waiting on a permission prompt: the prompt's own deny action
	// is the cancel there, and a second cancel affordance misleads.
	CanAbort bool

	// WasAborted is set while an unacknowledged abort is pending, so the
	// view can show the interruption notice exactly once.
	WasAborted bool
}

// =============================================================================
// TOOL VERBS
// =============================================================================

// toolVerbs maps tool names to human-readable present-progressive
// status text. Unknown tools fall back to "using {name}".
var toolVerbs = map[string]string{
	"edit":     "editing file",
	"write":    "editing file",
	"bash":     "running command",
	"grep":     "searching content",
	"read":     "reading file",
	"glob":     "finding files",
	"webfetch": "fetching page",
}

func toolVerb(name string) string {
	if v, ok := toolVerbs[strings.ToLower(name)]; ok {
		return v
	}
	if name == "" {
		return "using tool"
	}
	return fmt.Sprintf("using %s", name)
}

// genericPhrases cover the gap when a turn is in flight but no part is
// open yet (model latency, or the beat between a closed part and the
// next one starting).
var genericPhrases = []string{
	"working",
	"mulling it over",
	"putting it together",
	"reasoning",
}

// =============================================================================
// DERIVER
// =============================================================================

// Deriver computes status snapshots. The only state it carries is the
// generic phrase selection: a phrase is picked pseudo-randomly once per
// activation (the idle-to-busy edge) and held for the whole turn, so
// the filler text does not churn on every poll.
type Deriver struct {
	rng     *rand.Rand
	phrase  string
	wasBusy bool
}

// NewDeriver creates a status deriver.
func NewDeriver() *Deriver {
	return &Deriver{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Derive computes the status snapshot for a session. msg is the latest
// assistant message (nil when the session has none), pendingPermissions
// the count of unresolved permission prompts, and abort the session's
// abort record (nil when none).
func (d *Deriver) Derive(msg *model.Message, pendingPermissions int, abort *model.AbortRecord) Snapshot {
	snap := d.derive(msg, pendingPermissions, abort)

	if snap.Activity.Busy() && snap.Activity != ActivityWaiting && !d.wasBusy {
		// Activation edge: pick this turn's generic phrase. Never the
		// previous turn's phrase back to back.
		pick := d.phrase
		for pick == d.phrase {
			pick = genericPhrases[d.rng.Intn(len(genericPhrases))]
		}
		d.phrase = pick
	}
	d.wasBusy = snap.Activity.Busy()

	if snap.Activity == ActivityWorking {
		snap.Text = d.phrase
	}
	return snap
}

func (d *Deriver) derive(msg *model.Message, pendingPermissions int, abort *model.AbortRecord) Snapshot {
	// Permission prompts override everything, including an in-flight
	// tool part: the agent is blocked, not working.
	if pendingPermissions > 0 {
		return Snapshot{
			Activity: ActivityWaiting,
			Text:     "waiting for permission",
			CanAbort: false,
		}
	}

	// An unacknowledged abort reads as idle with the interruption flag;
	// the message's own parts are no longer trustworthy activity.
	if abort != nil && !abort.Acknowledged {
		return Snapshot{Activity: ActivityIdle, WasAborted: true}
	}

	// Synthetic messages (injected notices, replayed context) never
	// drive status.
	if msg == nil || msg.Role != model.RoleAssistant || msg.Synthetic() {
		return Snapshot{Activity: ActivityIdle}
	}

	// An aborted or errored turn is terminal no matter what its parts
	// say; a tool part interrupted mid-run must not read as activity.
	if msg.Completed() && msg.FinishReason != model.FinishStop {
		return Snapshot{Activity: ActivityIdle}
	}

	if open := msg.OpenPart(); open != nil {
		switch open.Kind {
		case model.PartTool:
			return Snapshot{Activity: ActivityTooling, Text: toolVerb(open.ToolName), CanAbort: true}
		case model.PartReasoning:
			return Snapshot{Activity: ActivityThinking, Text: "thinking", CanAbort: true}
		default:
			return Snapshot{Activity: ActivityComposing, Text: "composing", CanAbort: true}
		}
	}

	// No open part. The turn is settled only once the message is marked
	// complete; a completion stamp alone is not enough if a tool part is
	// still pending (the stop event can race the tool result).
	if msg.Completed() {
		return Snapshot{Activity: ActivityIdle}
	}

	return Snapshot{Activity: ActivityWorking, CanAbort: true}
}
