// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package viewport

import (
	"github.com/harborlight/moor-tui/internal/model"
)

// =============================================================================
// ANCHOR CONFIGURATION
// =============================================================================

// AnchorConfig holds the empirically tuned layout constants. They are
// configuration, not derivation: the values were settled by feel.
type AnchorConfig struct {
	// ContextOffset is how much content above the anchor stays visible
	// when the viewport jumps to it.
	ContextOffset float64

	// LongMessageRatio: an anchor taller than this fraction of the
	// viewport height is treated as "long".
	LongMessageRatio float64

	// LongMessageVisibleRatio: for a long anchor, only this fraction of
	// the viewport height of its tail is kept visible; the rest is
	// scrolled past.
	LongMessageVisibleRatio float64
}

// DefaultAnchorConfig returns the tuned defaults.
func DefaultAnchorConfig() AnchorConfig {
	return AnchorConfig{
		ContextOffset:           50,
		LongMessageRatio:        0.20,
		LongMessageVisibleRatio: 0.10,
	}
}

// =============================================================================
// PURE TARGET COMPUTATION
// =============================================================================

// AnchorMeasurements is an explicit snapshot of the layout inputs. All
// anchor math runs against it, so the algorithm is testable without a
// live viewport.
type AnchorMeasurements struct {
	// ContentHeight includes the currently rendered spacer.
	ContentHeight float64

	// SpacerHeight is the spacer currently rendered inside ContentHeight.
	SpacerHeight float64

	// ViewportHeight is the visible height.
	ViewportHeight float64

	// AnchorRect is the anchor element's measured position, valid only
	// when HasAnchorRect is true.
	AnchorRect    Rect
	HasAnchorRect bool
}

// contentSansSpacer is the real content height, excluding reserved space.
func (m AnchorMeasurements) contentSansSpacer() float64 {
	h := m.ContentHeight - m.SpacerHeight
	if h < 0 {
		h = 0
	}
	return h
}

// AnchorTarget is the computed scroll position and required spacer.
type AnchorTarget struct {
	ScrollTarget float64
	SpacerHeight float64
}

// ComputeAcquireTarget computes where the viewport should jump when a
// just-appended user message becomes the anchor. The message sits at the
// current content bottom, so its top is estimated as the pre-spacer
// content height; the spacer reserves whatever scrollable height the
// jump still lacks.
func ComputeAcquireTarget(m AnchorMeasurements, cfg AnchorConfig) AnchorTarget {
	content := m.contentSansSpacer()

	target := content - cfg.ContextOffset
	if target < 0 {
		target = 0
	}

	required := target + m.ViewportHeight
	spacer := required - content
	if spacer < 0 {
		spacer = 0
	}

	return AnchorTarget{ScrollTarget: target, SpacerHeight: spacer}
}

// ComputeRefreshTarget recomputes the anchor's required position from a
// fresh measurement of its rendered rect. Long anchors switch policy:
// instead of pinning the top with a context offset, the viewport scrolls
// past most of the element, keeping only a short visible tail, so a very
// long reply cannot push the point of interest permanently off-screen.
//
// ok is false when the anchor element is not measurable; callers treat
// that as a no-op.
func ComputeRefreshTarget(m AnchorMeasurements, cfg AnchorConfig) (AnchorTarget, bool) {
	if !m.HasAnchorRect || m.ViewportHeight <= 0 {
		return AnchorTarget{}, false
	}

	var target float64
	if m.AnchorRect.Height > cfg.LongMessageRatio*m.ViewportHeight {
		target = m.AnchorRect.Bottom() - cfg.LongMessageVisibleRatio*m.ViewportHeight
	} else {
		target = m.AnchorRect.Top - cfg.ContextOffset
	}
	if target < 0 {
		target = 0
	}

	required := target + m.ViewportHeight
	spacer := required - m.contentSansSpacer()
	if spacer < 0 {
		spacer = 0
	}

	return AnchorTarget{ScrollTarget: target, SpacerHeight: spacer}, true
}

// =============================================================================
// ANCHOR STORE CONTRACT
// =============================================================================

// AnchorStore persists anchor state across session switches. Implemented
// by the session store; the manager only reads and writes through it.
type AnchorStore interface {
	AnchorState(sessionID string) model.AnchorState
	SetAnchorState(sessionID string, st model.AnchorState)
}

// =============================================================================
// ANCHOR MANAGER
// =============================================================================

// Manager keeps a chosen message visually stable while the list grows
// beneath it during streaming. It reserves trailing blank space (the
// spacer) instead of repeatedly re-measuring and re-jumping, grows the
// spacer as content streams in, and clears it only once the turn has
// settled and the reserved space has left the viewport.
//
// Everything here is best-effort convergence: a missing measurement
// aborts the current operation silently and the next triggering event
// retries.
type Manager struct {
	surface Surface
	engine  *Engine
	store   AnchorStore
	cfg     AnchorConfig

	sessionID       string
	anchorID        string
	spacer          float64
	hasAnchoredOnce bool
	pendingClear    bool

	// observed is false until the first list snapshot after a session
	// switch; that snapshot is recorded, never classified, so restored
	// history cannot read as an append.
	observed bool

	// Previous snapshot for prepend/append detection.
	prevFirstID string
	prevLastID  string
	prevCount   int

	prevPhase model.ActivityPhase

	onSpacerChange func(height float64)
}

// NewManager creates an anchor manager bound to one surface and engine.
func NewManager(surface Surface, engine *Engine, store AnchorStore, cfg AnchorConfig) *Manager {
	return &Manager{
		surface:   surface,
		engine:    engine,
		store:     store,
		cfg:       cfg,
		prevPhase: model.PhaseIdle,
	}
}

// SetConfig swaps the tuning constants. Takes effect on the next
// acquire or refresh; the current spacer is left alone.
func (am *Manager) SetConfig(cfg AnchorConfig) {
	am.cfg = cfg
}

// SetSpacerChangeCallback registers the render signal. It fires only
// when the spacer value actually changes, so redundant refresh triggers
// (resize observer plus message growth plus manual notifications) never
// cause a visible jump.
func (am *Manager) SetSpacerChangeCallback(fn func(height float64)) {
	am.onSpacerChange = fn
}

// SpacerHeight returns the current reserved trailing space.
func (am *Manager) SpacerHeight() float64 {
	return am.spacer
}

// PendingAnchorID returns the active anchor message id, or empty. The
// view layer suppresses the jump-to-bottom button while it is set.
func (am *Manager) PendingAnchorID() string {
	return am.anchorID
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// SwitchSession restores persisted anchor state for a session and resets
// all per-session bookkeeping. The restored phase is recorded as the
// previous phase so a session that is already idle does not read as a
// non-idle-to-idle transition and clear a restored anchor.
func (am *Manager) SwitchSession(sessionID string, phase model.ActivityPhase) {
	if am.engine != nil {
		am.engine.Cancel()
	}

	am.sessionID = sessionID
	am.pendingClear = false
	am.observed = false
	am.prevFirstID = ""
	am.prevLastID = ""
	am.prevCount = 0
	am.prevPhase = phase

	st := model.AnchorState{}
	if am.store != nil {
		st = am.store.AnchorState(sessionID).Normalize()
	}
	am.anchorID = st.AnchorMessageID
	am.hasAnchoredOnce = st.AnchorMessageID != ""
	am.applySpacer(st.SpacerHeight)
}

// =============================================================================
// MESSAGE LIST CHANGES
// =============================================================================

// OnMessagesChanged compares the previous first/last message ids against
// the new list to classify the change:
//
//   - prepend (first id changed, last unchanged): older history loaded;
//     anchor state fully resets, no animation.
//   - append (last id changed, first unchanged): a batch containing a
//     new user message acquires a fresh anchor; any other growth only
//     refreshes the existing spacer.
//   - in-place growth (same ids): spacer refresh.
func (am *Manager) OnMessagesChanged(msgs []*model.Message) {
	count := len(msgs)
	var firstID, lastID string
	if count > 0 {
		firstID = msgs[0].ID
		lastID = msgs[count-1].ID
	}

	defer func() {
		am.prevFirstID = firstID
		am.prevLastID = lastID
		am.prevCount = count
	}()

	if !am.observed {
		am.observed = true
		return
	}
	if count == 0 {
		return
	}

	prepended := firstID != am.prevFirstID && lastID == am.prevLastID
	appended := lastID != am.prevLastID && (firstID == am.prevFirstID || am.prevCount == 0)

	switch {
	case prepended:
		am.clearAnchor()

	case appended:
		if user := am.newUserMessage(msgs); user != nil {
			am.acquire(user.ID)
		} else {
			am.RefreshSpacer()
		}

	case firstID == am.prevFirstID && lastID == am.prevLastID:
		// Same endpoints: content grew in place.
		am.RefreshSpacer()

	default:
		// Both endpoints changed: the list was replaced wholesale.
		// Treat like a fresh session snapshot.
		am.clearAnchor()
	}
}

// newUserMessage returns the first user message in the appended batch,
// or nil.
func (am *Manager) newUserMessage(msgs []*model.Message) *model.Message {
	if am.prevLastID == "" {
		// The whole list is the batch.
		for _, m := range msgs {
			if m.Role == model.RoleUser {
				return m
			}
		}
		return nil
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].ID == am.prevLastID {
			for _, m := range msgs[i+1:] {
				if m.Role == model.RoleUser {
					return m
				}
			}
			return nil
		}
	}
	return nil
}

// =============================================================================
// ACQUIRE / REFRESH / CLEAR
// =============================================================================

// acquire makes the given message the anchor: compute the jump target
// and deficit spacer from a pre-spacer measurement, persist, and jump
// instantly.
func (am *Manager) acquire(messageID string) {
	m, ok := am.measure()
	if !ok {
		return
	}

	target := ComputeAcquireTarget(m, am.cfg)

	am.anchorID = messageID
	am.hasAnchoredOnce = true
	am.pendingClear = false
	am.applySpacer(target.SpacerHeight)
	am.persist()

	if am.engine != nil {
		am.engine.ScrollTo(target.ScrollTarget, ScrollOptions{Instant: true, Force: true})
	}
}

// RefreshSpacer re-derives the required spacer from the anchor's live
// rect on every content-size change. The spacer only ever grows here;
// shrinking happens on explicit clear so readers never see the reserved
// space snap while content is still streaming.
func (am *Manager) RefreshSpacer() {
	if am.anchorID == "" || am.surface == nil {
		return
	}

	m, ok := am.measure()
	if !ok {
		return
	}
	m.AnchorRect, m.HasAnchorRect = am.surface.MessageRect(am.anchorID)

	target, ok := ComputeRefreshTarget(m, am.cfg)
	if !ok {
		return
	}

	if target.SpacerHeight > am.spacer {
		am.applySpacer(target.SpacerHeight)
		am.persist()
	}
}

// OnPhaseChanged watches for the turn settling. Clearing requires an
// actual non-idle-to-idle transition, and happens immediately only when
// the spacer's start has already left the viewport; otherwise it is
// deferred to the scroll event that pushes it out of view.
func (am *Manager) OnPhaseChanged(phase model.ActivityPhase) {
	settled := am.prevPhase != model.PhaseIdle && phase == model.PhaseIdle
	am.prevPhase = phase

	if !settled || am.anchorID == "" {
		return
	}

	if am.spacerOutOfView() {
		am.clearAnchor()
	} else {
		am.pendingClear = true
	}
}

// OnScroll completes a deferred clear once the user has scrolled the
// reserved space out of view.
func (am *Manager) OnScroll() {
	if am.pendingClear && am.spacerOutOfView() {
		am.clearAnchor()
	}
}

// clearAnchor resets anchor and spacer and persists the cleared state.
func (am *Manager) clearAnchor() {
	am.anchorID = ""
	am.hasAnchoredOnce = false
	am.pendingClear = false
	am.applySpacer(0)
	am.persist()
}

// =============================================================================
// MEASUREMENT HELPERS
// =============================================================================

// measure snapshots the surface. ok is false when the surface is absent
// or degenerate (zero-sized container), which aborts the operation until
// the next trigger.
func (am *Manager) measure() (AnchorMeasurements, bool) {
	if am.surface == nil {
		return AnchorMeasurements{}, false
	}
	m := AnchorMeasurements{
		ContentHeight:  am.surface.ContentHeight(),
		SpacerHeight:   am.spacer,
		ViewportHeight: am.surface.ViewportHeight(),
	}
	if m.ViewportHeight <= 0 {
		return AnchorMeasurements{}, false
	}
	return m, true
}

// spacerOutOfView reports whether the spacer's start sits below the
// viewport's bottom edge.
func (am *Manager) spacerOutOfView() bool {
	if am.spacer <= 0 {
		return true
	}
	if am.surface == nil {
		return false
	}
	spacerTop := am.surface.ContentHeight() - am.spacer
	return spacerTop >= am.surface.Offset()+am.surface.ViewportHeight()
}

// applySpacer writes the spacer value, gated on change so idempotent
// refreshes never emit a second render signal.
func (am *Manager) applySpacer(height float64) {
	if height < 0 {
		height = 0
	}
	if height == am.spacer {
		return
	}
	am.spacer = height
	if am.onSpacerChange != nil {
		am.onSpacerChange(height)
	}
}

// persist writes the current anchor state through the store. The store
// gates on value change, so repeated identical writes are free.
func (am *Manager) persist() {
	if am.store == nil || am.sessionID == "" {
		return
	}
	am.store.SetAnchorState(am.sessionID, model.AnchorState{
		AnchorMessageID: am.anchorID,
		SpacerHeight:    am.spacer,
	})
}
