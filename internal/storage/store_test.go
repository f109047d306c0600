// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harborlight/moor-tui/internal/model"
)

// =============================================================================
// STORE TESTS
// =============================================================================

func TestStoreMessageOrder(t *testing.T) {
	s := NewStore()
	ses := s.CreateSession("test")

	for _, content := range []string{"one", "two", "three"} {
		s.AppendMessage(model.NewUserMessage(ses.ID, content))
	}

	msgs := s.Messages(ses.ID)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].TextContent() != "one" || msgs[2].TextContent() != "three" {
		t.Error("messages should keep insertion order")
	}
}

func TestStoreSetAnchorStateGatedOnChange(t *testing.T) {
	s := NewStore()
	ses := s.CreateSession("test")

	var notified int
	cancel := s.Subscribe(func(string) { notified++ })
	defer cancel()

	st := model.AnchorState{AnchorMessageID: "msg_1", SpacerHeight: 80}
	s.SetAnchorState(ses.ID, st)
	s.SetAnchorState(ses.ID, st)
	s.SetAnchorState(ses.ID, st)

	if notified != 1 {
		t.Errorf("identical writes should notify once, got %d", notified)
	}
	if got := s.AnchorState(ses.ID); got != st {
		t.Errorf("expected %+v, got %+v", st, got)
	}
}

func TestStoreAnchorInvariant(t *testing.T) {
	s := NewStore()
	ses := s.CreateSession("test")

	// A spacer without an anchor must not survive the write.
	s.SetAnchorState(ses.ID, model.AnchorState{AnchorMessageID: "", SpacerHeight: 200})

	got := s.AnchorState(ses.ID)
	if got.SpacerHeight != 0 {
		t.Errorf("spacer without anchor should normalize to 0, got %v", got.SpacerHeight)
	}
}

func TestStoreAbortLifecycle(t *testing.T) {
	s := NewStore()
	ses := s.CreateSession("test")

	if s.AbortRecord(ses.ID) != nil {
		t.Fatal("no abort record expected initially")
	}

	s.RecordAbort(ses.ID)
	rec := s.AbortRecord(ses.ID)
	if rec == nil || rec.Acknowledged {
		t.Fatal("expected unacknowledged abort record")
	}

	s.AcknowledgeAbort(ses.ID)
	s.AcknowledgeAbort(ses.ID) // Idempotent
	rec = s.AbortRecord(ses.ID)
	if rec == nil || !rec.Acknowledged {
		t.Fatal("expected acknowledged abort record")
	}
}

func TestStorePermissions(t *testing.T) {
	s := NewStore()
	ses := s.CreateSession("test")

	s.AddPermission(ses.ID, "perm_1")
	s.AddPermission(ses.ID, "perm_2")
	if n := s.PendingPermissions(ses.ID); n != 2 {
		t.Fatalf("expected 2 pending permissions, got %d", n)
	}

	first, ok := s.FirstPermission(ses.ID)
	if !ok || first != "perm_1" {
		t.Fatalf("expected oldest permission first, got %q", first)
	}

	s.ResolvePermission(ses.ID, "perm_1")
	if n := s.PendingPermissions(ses.ID); n != 1 {
		t.Fatalf("expected 1 pending permission after resolve, got %d", n)
	}
}

func TestStoreMutateMissingMessage(t *testing.T) {
	s := NewStore()
	ses := s.CreateSession("test")

	err := s.Mutate(ses.ID, "msg_missing", func(*model.Message) {})
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// =============================================================================
// SQLITE TESTS
// =============================================================================

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moor.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)

	s := NewStore()
	ses := s.CreateSession("persisted")
	s.AppendMessage(model.NewUserMessage(ses.ID, "hello"))

	reply := model.NewMessage(ses.ID, model.RoleAssistant)
	reply.Parts = []*model.Part{{
		ID:         "prt_tool",
		Kind:       model.PartTool,
		ToolName:   "bash",
		ToolStatus: model.ToolCompleted,
		Time:       model.Interval{Start: time.Now()},
	}}
	reply.Complete(model.FinishStop, time.Now())
	s.AppendMessage(reply)

	s.SetAnchorState(ses.ID, model.AnchorState{AnchorMessageID: reply.ID, SpacerHeight: 64})

	require.NoError(t, db.SaveSession(s, ses.ID))
	require.NoError(t, db.Close())

	// Reopen and hydrate a fresh store.
	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	restored := NewStore()
	require.NoError(t, db.Load(restored))

	sessions := restored.Sessions()
	require.Len(t, sessions, 1)
	require.Equal(t, ses.ID, sessions[0].ID)

	msgs := restored.Messages(ses.ID)
	require.Len(t, msgs, 2)
	require.Equal(t, "hello", msgs[0].TextContent())
	require.Equal(t, model.RoleAssistant, msgs[1].Role)
	require.True(t, msgs[1].Completed())
	require.Equal(t, model.ToolCompleted, msgs[1].Parts[0].ToolStatus)

	anchor := restored.AnchorState(ses.ID)
	require.Equal(t, reply.ID, anchor.AnchorMessageID)
	require.Equal(t, 64.0, anchor.SpacerHeight)
}

func TestSQLiteAnchorCleared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moor.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	s := NewStore()
	ses := s.CreateSession("test")
	s.SetAnchorState(ses.ID, model.AnchorState{AnchorMessageID: "msg_1", SpacerHeight: 10})
	require.NoError(t, db.SaveSession(s, ses.ID))

	s.SetAnchorState(ses.ID, model.AnchorState{})
	require.NoError(t, db.SaveSession(s, ses.ID))

	restored := NewStore()
	require.NoError(t, db.Load(restored))
	require.True(t, restored.AnchorState(ses.ID).Zero())
}
