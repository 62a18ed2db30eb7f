package config

import "time"

// Config is the root configuration for the real-time client.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	API       APIConfig       `yaml:"api"`
	Session   SessionConfig   `yaml:"session"`
	Transport TransportConfig `yaml:"transport"`
	Chat      ChatConfig      `yaml:"chat"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// InstanceConfig identifies this client instance.
type InstanceConfig struct {
	ID     string `yaml:"id"`
	UserID string `yaml:"user_id"`
}

// APIConfig holds the FixitQuick origin and REST collaborator settings.
type APIConfig struct {
	// Origin is the application origin (e.g. https://app.fixitquick.example).
	// The WebSocket URL is derived from it; hostnames are never special-cased.
	Origin string `yaml:"origin"`
	// WSPath overrides the real-time endpoint path (default /ws).
	WSPath string `yaml:"ws_path"`
	// BearerToken authenticates REST calls (e.g. the ws-token fetch).
	BearerToken string        `yaml:"bearer_token"`
	Timeout     time.Duration `yaml:"timeout"`
}

// SessionConfig holds connection-manager settings.
type SessionConfig struct {
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	HeartbeatGrace       time.Duration `yaml:"heartbeat_grace"`
	PongTimeout          time.Duration `yaml:"pong_timeout"`
	QueueCapacity        int           `yaml:"queue_capacity"`
	QueueRetain          int           `yaml:"queue_retain"`
}

// TransportConfig holds raw WebSocket settings.
type TransportConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
}

// ChatConfig holds chat consumer settings.
type ChatConfig struct {
	TypingExpiry time.Duration `yaml:"typing_expiry"`
	TypingIdle   time.Duration `yaml:"typing_idle"`
}

// ArchiveConfig holds the optional frame-archive settings (diagnostics).
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
