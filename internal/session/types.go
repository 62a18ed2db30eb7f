package session

import (
	"context"
	"errors"
	"time"

	"github.com/fixitquick/realtime/internal/protocol"
)

// Errors
var (
	ErrTransportUnsupported = errors.New("transport unsupported")
	ErrTokenSourceRequired  = errors.New("token source required")
	ErrConnectionFailed     = errors.New("connection failed")
)

// State is the connection lifecycle state. At most one live socket exists
// per Manager; state transitions happen only on socket lifecycle events or
// explicit Disconnect calls.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateClosing
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// Quality is the derived three-state liveness signal, distinct from the raw
// connection state.
type Quality string

const (
	QualityGood         Quality = "good"
	QualityPoor         Quality = "poor"
	QualityDisconnected Quality = "disconnected"
)

// TokenSource supplies the short-lived real-time auth token. Satisfied by
// api.Client.
type TokenSource interface {
	WSToken(ctx context.Context) (string, error)
}

// FrameSink observes every forwarded application frame. Used by the
// diagnostics archiver; nil disables the tap.
type FrameSink interface {
	Record(env protocol.Envelope, receivedAt time.Time)
}

// Config holds Connection Manager settings.
type Config struct {
	// Origin is the application origin the WebSocket URL is derived from.
	Origin string
	// Path overrides the real-time endpoint path (default /ws).
	Path string

	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	MaxReconnectAttempts int

	HeartbeatInterval time.Duration
	HeartbeatGrace    time.Duration
	PongTimeout       time.Duration

	QueueCapacity int
	QueueRetain   int

	// OnConnectionFailed fires exactly once per outage when the reconnect
	// budget is exhausted.
	OnConnectionFailed func(error)

	// FrameSink taps forwarded application frames (nil = disabled).
	FrameSink FrameSink
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconnectBaseDelay:   1 * time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		MaxReconnectAttempts: 10,
		HeartbeatInterval:    30 * time.Second,
		HeartbeatGrace:       5 * time.Second,
		PongTimeout:          10 * time.Second,
		QueueCapacity:        100,
		QueueRetain:          50,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = d.ReconnectBaseDelay
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = d.ReconnectMaxDelay
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = d.MaxReconnectAttempts
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.HeartbeatGrace == 0 {
		c.HeartbeatGrace = d.HeartbeatGrace
	}
	if c.PongTimeout == 0 {
		c.PongTimeout = d.PongTimeout
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = d.QueueCapacity
	}
	if c.QueueRetain == 0 {
		c.QueueRetain = d.QueueRetain
	}
}

// Stats is a snapshot of connection statistics for the UI layer.
type Stats struct {
	ReconnectAttempts int
	LastConnected     time.Time
	ConnectionQuality Quality
	QueuedMessages    int
}
