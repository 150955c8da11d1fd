package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Backend.BaseURL = "http://localhost:8000"
	cfg.Backend.Timeout = 30 * time.Second
	cfg.Channels.Poll.Interval = 2 * time.Second
	cfg.Channels.Poll.FailureBudget = 5
	cfg.Wizard.MaxJobDescriptions = 5
	cfg.App.DefaultFormat = "text"
	cfg.App.SupportedFormats = []string{"json", "text", "markdown"}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.Backend.BaseURL = "" },
			wantErr: "backend base URL is required",
		},
		{
			name:    "non-http base URL",
			mutate:  func(c *Config) { c.Backend.BaseURL = "ftp://example.com" },
			wantErr: "invalid backend base URL",
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Channels.Poll.Interval = 0 },
			wantErr: "poll interval must be positive",
		},
		{
			name:    "zero failure budget",
			mutate:  func(c *Config) { c.Channels.Poll.FailureBudget = 0 },
			wantErr: "poll failure budget must be at least 1",
		},
		{
			name:    "zero job descriptions",
			mutate:  func(c *Config) { c.Wizard.MaxJobDescriptions = 0 },
			wantErr: "wizard max job descriptions must be at least 1",
		},
		{
			name:    "default format not in supported list",
			mutate:  func(c *Config) { c.App.DefaultFormat = "yaml" },
			wantErr: "invalid default format",
		},
		{
			name:    "non-positive timeout",
			mutate:  func(c *Config) { c.Backend.Timeout = 0 },
			wantErr: "backend timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "http becomes ws",
			baseURL: "http://localhost:8000",
			want:    "ws://localhost:8000/ws/progress/sess-1",
		},
		{
			name:    "https becomes wss",
			baseURL: "https://api.example.com",
			want:    "wss://api.example.com/ws/progress/sess-1",
		},
		{
			name:    "base path is replaced",
			baseURL: "http://localhost:8000/v1",
			want:    "ws://localhost:8000/ws/progress/sess-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Backend.BaseURL = tt.baseURL
			if got := cfg.WebsocketURL("sess-1"); got != tt.want {
				t.Errorf("WebsocketURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyFallbacks(t *testing.T) {
	t.Run("session file gets a cache-dir default", func(t *testing.T) {
		cfg := validConfig()
		cfg.applyFallbacks()
		if cfg.App.SessionFile == "" {
			t.Error("session file should default to a cache path")
		}
		if !strings.Contains(cfg.App.SessionFile, "careerscope") {
			t.Errorf("session file %q should live under a careerscope directory", cfg.App.SessionFile)
		}
	})

	t.Run("NO_COLOR disables color", func(t *testing.T) {
		t.Setenv("NO_COLOR", "1")
		cfg := validConfig()
		cfg.applyFallbacks()
		if !cfg.App.NoColor {
			t.Error("NO_COLOR should force NoColor on")
		}
	})
}
