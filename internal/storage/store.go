// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/harborlight/moor-tui/internal/model"
)

// ErrNotFound is returned when a session or message does not exist.
var ErrNotFound = errors.New("storage: not found")

// =============================================================================
// STORE
// =============================================================================

// Store holds all per-session state in memory. Insertion order of messages
// is creation order; nothing here ever reorders.
//
// Thread-safety: all operations are protected by a mutex. Subscriber
// callbacks run outside the lock.
type Store struct {
	mu sync.RWMutex

	sessions []*model.Session
	messages map[string][]*model.Message

	anchors     map[string]model.AnchorState
	phases      map[string]model.ActivityPhase
	aborts      map[string]*model.AbortRecord
	permissions map[string][]string

	subs    map[int]func(sessionID string)
	nextSub int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		messages:    make(map[string][]*model.Message),
		anchors:     make(map[string]model.AnchorState),
		phases:      make(map[string]model.ActivityPhase),
		aborts:      make(map[string]*model.AbortRecord),
		permissions: make(map[string][]string),
		subs:        make(map[int]func(string)),
	}
}

// Subscribe registers a callback invoked after every mutation with the
// affected session id. The returned function cancels the subscription.
func (s *Store) Subscribe(fn func(sessionID string)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// notify invokes subscribers outside the lock.
func (s *Store) notify(sessionID string) {
	s.mu.RLock()
	fns := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(sessionID)
	}
}

// =============================================================================
// SESSIONS
// =============================================================================

// CreateSession adds a new session and returns it.
func (s *Store) CreateSession(title string) *model.Session {
	ses := model.NewSession(title)

	s.mu.Lock()
	s.sessions = append(s.sessions, ses)
	s.phases[ses.ID] = model.PhaseIdle
	s.mu.Unlock()

	s.notify(ses.ID)
	return ses
}

// RestoreSession inserts a previously persisted session without notifying.
// Used by the SQLite loader at startup.
func (s *Store) RestoreSession(ses *model.Session, msgs []*model.Message, anchor model.AnchorState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = append(s.sessions, ses)
	s.messages[ses.ID] = msgs
	s.anchors[ses.ID] = anchor.Normalize()
	if _, ok := s.phases[ses.ID]; !ok {
		s.phases[ses.ID] = model.PhaseIdle
	}
}

// Sessions returns all sessions in creation order.
func (s *Store) Sessions() []*model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// Session returns the session with the given id, or nil.
func (s *Store) Session(id string) *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ses := range s.sessions {
		if ses.ID == id {
			return ses
		}
	}
	return nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// Messages returns the ordered message list for a session. The slice is a
// copy; the messages themselves are shared and must be treated as read-only
// outside Mutate.
func (s *Store) Messages(sessionID string) []*model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[sessionID]
	out := make([]*model.Message, len(msgs))
	copy(out, msgs)
	return out
}

// AppendMessage adds a message to the end of a session's list.
func (s *Store) AppendMessage(msg *model.Message) {
	s.mu.Lock()
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	if ses := s.sessionLocked(msg.SessionID); ses != nil {
		ses.UpdatedAt = time.Now()
	}
	s.mu.Unlock()

	s.notify(msg.SessionID)
}

// PrependMessages inserts older history at the front of a session's list.
func (s *Store) PrependMessages(sessionID string, msgs []*model.Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	s.messages[sessionID] = append(append([]*model.Message{}, msgs...), s.messages[sessionID]...)
	s.mu.Unlock()

	s.notify(sessionID)
}

// Mutate applies fn to a streaming message under the lock and notifies
// subscribers. Returns ErrNotFound if the message does not exist.
func (s *Store) Mutate(sessionID, messageID string, fn func(*model.Message)) error {
	s.mu.Lock()
	var target *model.Message
	for _, m := range s.messages[sessionID] {
		if m.ID == messageID {
			target = m
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return ErrNotFound
	}
	fn(target)
	s.mu.Unlock()

	s.notify(sessionID)
	return nil
}

func (s *Store) sessionLocked(id string) *model.Session {
	for _, ses := range s.sessions {
		if ses.ID == id {
			return ses
		}
	}
	return nil
}

// =============================================================================
// ANCHOR STATE
// =============================================================================

// AnchorState returns the persisted anchor state for a session.
func (s *Store) AnchorState(sessionID string) model.AnchorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.anchors[sessionID]
}

// SetAnchorState persists anchor state for a session. Writes are gated on
// value change so repeated identical writes never re-notify subscribers.
func (s *Store) SetAnchorState(sessionID string, st model.AnchorState) {
	st = st.Normalize()

	s.mu.Lock()
	if s.anchors[sessionID] == st {
		s.mu.Unlock()
		return
	}
	s.anchors[sessionID] = st
	s.mu.Unlock()

	s.notify(sessionID)
}

// =============================================================================
// ACTIVITY PHASE
// =============================================================================

// Phase returns the activity phase for a session (idle when unknown).
func (s *Store) Phase(sessionID string) model.ActivityPhase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.phases[sessionID]; ok {
		return p
	}
	return model.PhaseIdle
}

// SetPhase updates the activity phase. No-op when unchanged.
func (s *Store) SetPhase(sessionID string, phase model.ActivityPhase) {
	s.mu.Lock()
	if s.phases[sessionID] == phase {
		s.mu.Unlock()
		return
	}
	s.phases[sessionID] = phase
	s.mu.Unlock()

	s.notify(sessionID)
}

// =============================================================================
// ABORT RECORDS
// =============================================================================

// AbortRecord returns a copy of the session's abort record, or nil.
func (s *Store) AbortRecord(sessionID string) *model.AbortRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.aborts[sessionID]; ok {
		cp := *r
		return &cp
	}
	return nil
}

// RecordAbort creates an unacknowledged abort record for the session.
func (s *Store) RecordAbort(sessionID string) {
	s.mu.Lock()
	s.aborts[sessionID] = &model.AbortRecord{At: time.Now()}
	s.mu.Unlock()

	s.notify(sessionID)
}

// AcknowledgeAbort consumes the abort record once the UI has shown the
// aborted result. Idempotent.
func (s *Store) AcknowledgeAbort(sessionID string) {
	s.mu.Lock()
	r, ok := s.aborts[sessionID]
	if !ok || r.Acknowledged {
		s.mu.Unlock()
		return
	}
	r.Acknowledged = true
	s.mu.Unlock()

	s.notify(sessionID)
}

// =============================================================================
// PENDING PERMISSIONS
// =============================================================================

// PendingPermissions returns how many permission requests are waiting.
// Length is all any consumer needs.
func (s *Store) PendingPermissions(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.permissions[sessionID])
}

// FirstPermission returns the oldest pending permission id, if any.
func (s *Store) FirstPermission(sessionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if perms := s.permissions[sessionID]; len(perms) > 0 {
		return perms[0], true
	}
	return "", false
}

// AddPermission queues a pending permission request.
func (s *Store) AddPermission(sessionID, permissionID string) {
	s.mu.Lock()
	s.permissions[sessionID] = append(s.permissions[sessionID], permissionID)
	s.mu.Unlock()

	s.notify(sessionID)
}

// ResolvePermission removes a pending permission request.
func (s *Store) ResolvePermission(sessionID, permissionID string) {
	s.mu.Lock()
	perms := s.permissions[sessionID]
	for i, id := range perms {
		if id == permissionID {
			s.permissions[sessionID] = append(perms[:i:i], perms[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notify(sessionID)
}
