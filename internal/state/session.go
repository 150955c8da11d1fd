package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"careerscope/internal/types"
)

// SessionStore holds the current backend session and mirrors it to a durable
// slot on disk so subsequent invocations continue to address the same backend
// session. The orchestrator is the only writer; everything else reads.
type SessionStore struct {
	mu      sync.RWMutex
	session *types.Session
	path    string
}

// NewSessionStore creates a session store backed by the given file path.
// An empty path disables persistence (used by tests).
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Current returns the session, or nil if none exists.
func (s *SessionStore) Current() *types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// ID returns the current session id, or "" if no session exists.
func (s *SessionStore) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.ID
}

// Set replaces the session wholesale and persists it. Sessions are never
// patched in place.
func (s *SessionStore) Set(sess *types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = sess
	if s.path == "" || sess == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("cannot create session directory: %w", err)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("cannot encode session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("cannot persist session: %w", err)
	}
	return nil
}

// Clear removes the durable slot and nulls the in-memory session.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove session file: %w", err)
	}
	return nil
}

// Restore loads a previously persisted session from the durable slot.
// Expired or unreadable sessions are discarded silently; the caller creates
// a fresh one in that case.
func (s *SessionStore) Restore() *types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var sess types.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil
	}
	if sess.Expired() {
		_ = os.Remove(s.path)
		return nil
	}
	s.session = &sess
	return &sess
}
