package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"careerscope/internal/config"
	"careerscope/internal/errors"
	"careerscope/internal/state"
	"careerscope/internal/types"
)

func testLogger(t *testing.T) *errors.Logger {
	t.Helper()
	logger, err := errors.New("error")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return logger
}

func testClientConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Backend.BaseURL = baseURL
	cfg.Backend.Timeout = 5 * time.Second
	cfg.App.MaxFileSize = 1 << 20
	return cfg
}

func seededSessions(t *testing.T, id string) *state.SessionStore {
	t.Helper()
	sessions := state.NewSessionStore("")
	if id != "" {
		if err := sessions.Set(&types.Session{
			ID:        id,
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		}); err != nil {
			t.Fatal(err)
		}
	}
	return sessions
}

func TestSessionHeaderInjection(t *testing.T) {
	var gotHeader atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader.Store(r.Header.Get(SessionHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session_id":"sess-1","status":"in_progress","job_matches":[]}`))
	}))
	defer srv.Close()

	t.Run("header carried once a session exists", func(t *testing.T) {
		c := NewClient(testClientConfig(srv.URL), seededSessions(t, "sess-1"), testLogger(t))
		if _, err := c.FetchResults(context.Background(), "sess-1"); err != nil {
			t.Fatalf("FetchResults() error: %v", err)
		}
		if got := gotHeader.Load(); got != "sess-1" {
			t.Errorf("session header = %q, want %q", got, "sess-1")
		}
	})

	t.Run("no header before a session exists", func(t *testing.T) {
		c := NewClient(testClientConfig(srv.URL), seededSessions(t, ""), testLogger(t))
		if _, err := c.FetchResults(context.Background(), "sess-1"); err != nil {
			t.Fatalf("FetchResults() error: %v", err)
		}
		if got := gotHeader.Load(); got != "" {
			t.Errorf("session header = %q, want empty", got)
		}
	})
}

func TestBackendErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"validation_error","message":"resume too short"}`))
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL), seededSessions(t, "sess-1"), testLogger(t))
	_, err := c.UploadJobDescription(context.Background(), "some text")
	if err == nil {
		t.Fatal("expected an error for a 422 response")
	}

	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an AppError", err)
	}
	if appErr.Code != errors.ErrCodeBackendRejected {
		t.Errorf("code = %s, want %s", appErr.Code, errors.ErrCodeBackendRejected)
	}
	if appErr.Context["status"] != http.StatusUnprocessableEntity {
		t.Errorf("status context = %v, want %d", appErr.Context["status"], http.StatusUnprocessableEntity)
	}
	if appErr.Context["detail"] != "resume too short" {
		t.Errorf("detail context = %v, want backend message", appErr.Context["detail"])
	}
}

func TestUploadResume(t *testing.T) {
	t.Run("multipart upload round trip", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("expected multipart form: %v", err)
			}
			file, _, err := r.FormFile("file")
			if err != nil {
				t.Errorf("missing file part: %v", err)
			} else {
				_ = file.Close()
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"resume_id":"r1","status":"parsed","skills":[{"name":"Go"}],"pii_redacted":true}`))
		}))
		defer srv.Close()

		path := filepath.Join(t.TempDir(), "resume.txt")
		if err := os.WriteFile(path, []byte("ten years of Go"), 0600); err != nil {
			t.Fatal(err)
		}

		c := NewClient(testClientConfig(srv.URL), seededSessions(t, "sess-1"), testLogger(t))
		resp, err := c.UploadResume(context.Background(), path)
		if err != nil {
			t.Fatalf("UploadResume() error: %v", err)
		}
		if resp.ResumeID != "r1" || len(resp.Skills) != 1 {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("rejects oversized files locally", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "resume.txt")
		if err := os.WriteFile(path, make([]byte, 2048), 0600); err != nil {
			t.Fatal(err)
		}

		cfg := testClientConfig("http://127.0.0.1:1")
		cfg.App.MaxFileSize = 1024
		c := NewClient(cfg, seededSessions(t, ""), testLogger(t))

		_, err := c.UploadResume(context.Background(), path)
		if err == nil {
			t.Fatal("expected oversized file to be rejected before any request")
		}
		var appErr *errors.AppError
		if !errors.As(err, &appErr) || appErr.Type != errors.ErrorTypeValidation {
			t.Errorf("got %v, want a validation error", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		c := NewClient(testClientConfig("http://127.0.0.1:1"), seededSessions(t, ""), testLogger(t))
		_, err := c.UploadResume(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
		if err == nil {
			t.Fatal("expected error for a missing file")
		}
		var appErr *errors.AppError
		if !errors.As(err, &appErr) || appErr.Code != errors.ErrCodeFileNotFound {
			t.Errorf("got %v, want code %s", err, errors.ErrCodeFileNotFound)
		}
	})
}

func TestPollingBypassesCircuitBreaker(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/api/results/sess-1" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"session_id":"sess-1","status":"in_progress","job_matches":[]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testClientConfig(srv.URL)
	cfg.Backend.CircuitBreaker.Enabled = true
	cfg.Backend.CircuitBreaker.MinRequests = 2
	cfg.Backend.CircuitBreaker.FailureThreshold = 0.5
	cfg.Backend.CircuitBreaker.Timeout = time.Minute

	c := NewClient(cfg, seededSessions(t, "sess-1"), testLogger(t))

	// Trip the breaker on a breaker-routed endpoint.
	for i := 0; i < 3; i++ {
		_, _ = c.UploadJobDescription(context.Background(), "text")
	}
	before := hits.Load()
	if _, err := c.UploadJobDescription(context.Background(), "text"); err == nil {
		t.Fatal("expected the open breaker to refuse the call")
	}
	if hits.Load() != before {
		t.Error("open breaker should fail fast without reaching the backend")
	}

	// Polling still reaches the backend while the breaker is open.
	if _, err := c.FetchResults(context.Background(), "sess-1"); err != nil {
		t.Fatalf("FetchResults() error while breaker open: %v", err)
	}
	if hits.Load() != before+1 {
		t.Error("poll request should have reached the backend")
	}
}
