package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: rtprobe-local
  user_id: u1
api:
  origin: https://app.fixitquick.example
  bearer_token: tok
session:
  max_reconnect_attempts: 5
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "rtprobe-local" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "rtprobe-local")
	}
	if cfg.API.Origin != "https://app.fixitquick.example" {
		t.Errorf("API.Origin = %q, want %q", cfg.API.Origin, "https://app.fixitquick.example")
	}
	if cfg.Session.MaxReconnectAttempts != 5 {
		t.Errorf("Session.MaxReconnectAttempts = %d, want 5", cfg.Session.MaxReconnectAttempts)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_RT_TOKEN", "secret123")

	yaml := `
instance:
  id: rtprobe-local
api:
  origin: https://app.fixitquick.example
  bearer_token: ${TEST_RT_TOKEN}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BearerToken != "secret123" {
		t.Errorf("API.BearerToken = %q, want %q", cfg.API.BearerToken, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: rtprobe-local
api:
  origin: https://app.fixitquick.example
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.API.WSPath != DefaultWSPath {
		t.Errorf("API.WSPath = %q, want default %q", cfg.API.WSPath, DefaultWSPath)
	}
	if cfg.Session.ReconnectBaseDelay != DefaultReconnectBaseDelay {
		t.Errorf("Session.ReconnectBaseDelay = %v, want default %v", cfg.Session.ReconnectBaseDelay, DefaultReconnectBaseDelay)
	}
	if cfg.Session.ReconnectMaxDelay != 30*time.Second {
		t.Errorf("Session.ReconnectMaxDelay = %v, want 30s", cfg.Session.ReconnectMaxDelay)
	}
	if cfg.Session.MaxReconnectAttempts != DefaultMaxReconnectAttempts {
		t.Errorf("Session.MaxReconnectAttempts = %d, want default %d", cfg.Session.MaxReconnectAttempts, DefaultMaxReconnectAttempts)
	}
	if cfg.Session.QueueCapacity != DefaultQueueCapacity {
		t.Errorf("Session.QueueCapacity = %d, want default %d", cfg.Session.QueueCapacity, DefaultQueueCapacity)
	}
	if cfg.Session.QueueRetain != DefaultQueueRetain {
		t.Errorf("Session.QueueRetain = %d, want default %d", cfg.Session.QueueRetain, DefaultQueueRetain)
	}
	if cfg.Chat.TypingExpiry != DefaultTypingExpiry {
		t.Errorf("Chat.TypingExpiry = %v, want default %v", cfg.Chat.TypingExpiry, DefaultTypingExpiry)
	}
	if cfg.Archive.Database.Port != DefaultDBPort {
		t.Errorf("Archive.Database.Port = %d, want default %d", cfg.Archive.Database.Port, DefaultDBPort)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Instance: InstanceConfig{ID: "test"},
		API:      APIConfig{Origin: "https://app.fixitquick.example"},
		Session: SessionConfig{
			ReconnectBaseDelay:   time.Second,
			ReconnectMaxDelay:    30 * time.Second,
			MaxReconnectAttempts: 10,
			PongTimeout:          10 * time.Second,
			QueueCapacity:        100,
			QueueRetain:          50,
		},
		Transport: TransportConfig{BufferSize: 256},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *Config) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "missing origin",
			mutate:  func(c *Config) { c.API.Origin = "" },
			wantErr: "api.origin is required",
		},
		{
			name:    "retain exceeds capacity",
			mutate:  func(c *Config) { c.Session.QueueRetain = 200 },
			wantErr: "session.queue_retain (200) cannot exceed queue_capacity (100)",
		},
		{
			name:    "max delay below base delay",
			mutate:  func(c *Config) { c.Session.ReconnectMaxDelay = 500 * time.Millisecond },
			wantErr: "session.reconnect_max_delay (500ms) cannot be below reconnect_base_delay (1s)",
		},
		{
			name: "archive enabled without database host",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.BatchSize = 500
			},
			wantErr: "archive.database.host is required",
		},
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
