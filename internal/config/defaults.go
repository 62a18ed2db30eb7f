package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultWSPath               = "/ws"
	DefaultAPITimeout           = 30 * time.Second
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultReconnectMaxDelay    = 30 * time.Second
	DefaultMaxReconnectAttempts = 10
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultHeartbeatGrace       = 5 * time.Second
	DefaultPongTimeout          = 10 * time.Second
	DefaultQueueCapacity        = 100
	DefaultQueueRetain          = 50
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultTransportBufferSize  = 256
	DefaultTypingExpiry         = 10 * time.Second
	DefaultTypingIdle           = 3 * time.Second
	DefaultArchiveBatchSize     = 500
	DefaultArchiveFlushInterval = 1 * time.Second
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.WSPath == "" {
		c.API.WSPath = DefaultWSPath
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}

	// Session defaults
	if c.Session.ReconnectBaseDelay == 0 {
		c.Session.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Session.ReconnectMaxDelay == 0 {
		c.Session.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Session.MaxReconnectAttempts == 0 {
		c.Session.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Session.HeartbeatInterval == 0 {
		c.Session.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Session.HeartbeatGrace == 0 {
		c.Session.HeartbeatGrace = DefaultHeartbeatGrace
	}
	if c.Session.PongTimeout == 0 {
		c.Session.PongTimeout = DefaultPongTimeout
	}
	if c.Session.QueueCapacity == 0 {
		c.Session.QueueCapacity = DefaultQueueCapacity
	}
	if c.Session.QueueRetain == 0 {
		c.Session.QueueRetain = DefaultQueueRetain
	}

	// Transport defaults
	if c.Transport.HandshakeTimeout == 0 {
		c.Transport.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Transport.WriteTimeout == 0 {
		c.Transport.WriteTimeout = DefaultWriteTimeout
	}
	if c.Transport.BufferSize == 0 {
		c.Transport.BufferSize = DefaultTransportBufferSize
	}

	// Chat defaults
	if c.Chat.TypingExpiry == 0 {
		c.Chat.TypingExpiry = DefaultTypingExpiry
	}
	if c.Chat.TypingIdle == 0 {
		c.Chat.TypingIdle = DefaultTypingIdle
	}

	// Archive defaults
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultArchiveBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultArchiveFlushInterval
	}
	applyDBDefaults(&c.Archive.Database)
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
