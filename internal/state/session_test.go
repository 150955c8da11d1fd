package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"careerscope/internal/types"
)

func testSession(id string, ttl time.Duration) *types.Session {
	now := time.Now()
	return &types.Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestSessionStoreSetAndRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s := NewSessionStore(path)
	if err := s.Set(testSession("sess-1", time.Hour)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	// A new store simulates the next process invocation.
	fresh := NewSessionStore(path)
	restored := fresh.Restore()
	if restored == nil {
		t.Fatal("Restore() = nil, want persisted session")
	}
	if restored.ID != "sess-1" {
		t.Errorf("restored id = %q, want %q", restored.ID, "sess-1")
	}
	if fresh.ID() != "sess-1" {
		t.Errorf("ID() = %q after restore, want %q", fresh.ID(), "sess-1")
	}
}

func TestSessionStoreRestoreDiscardsExpired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s := NewSessionStore(path)
	if err := s.Set(testSession("sess-old", -time.Minute)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	fresh := NewSessionStore(path)
	if fresh.Restore() != nil {
		t.Error("Restore() should discard an expired session")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expired session file should be removed")
	}
}

func TestSessionStoreRestoreDiscardsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	s := NewSessionStore(path)
	if s.Restore() != nil {
		t.Error("Restore() should discard an unreadable session")
	}
}

func TestSessionStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s := NewSessionStore(path)
	if err := s.Set(testSession("sess-1", time.Hour)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	if s.Current() != nil {
		t.Error("Current() should be nil after Clear")
	}
	if s.ID() != "" {
		t.Error("ID() should be empty after Clear")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("session file should be removed after Clear")
	}

	// Clearing again is a no-op, not an error.
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear() error: %v", err)
	}
}

func TestSessionStoreWithoutPersistence(t *testing.T) {
	s := NewSessionStore("")
	if err := s.Set(testSession("sess-mem", time.Hour)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if s.ID() != "sess-mem" {
		t.Errorf("ID() = %q, want %q", s.ID(), "sess-mem")
	}
	if s.Restore() != nil {
		t.Error("Restore() without a path should return nil")
	}
}
