package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.API.Origin == "" {
		return errors.New("api.origin is required")
	}

	if c.Session.ReconnectBaseDelay <= 0 {
		return errors.New("session.reconnect_base_delay must be > 0")
	}
	if c.Session.ReconnectMaxDelay < c.Session.ReconnectBaseDelay {
		return fmt.Errorf("session.reconnect_max_delay (%v) cannot be below reconnect_base_delay (%v)",
			c.Session.ReconnectMaxDelay, c.Session.ReconnectBaseDelay)
	}
	if c.Session.MaxReconnectAttempts < 1 {
		return errors.New("session.max_reconnect_attempts must be >= 1")
	}
	if c.Session.QueueCapacity < 1 {
		return errors.New("session.queue_capacity must be >= 1")
	}
	if c.Session.QueueRetain < 1 {
		return errors.New("session.queue_retain must be >= 1")
	}
	if c.Session.QueueRetain > c.Session.QueueCapacity {
		return fmt.Errorf("session.queue_retain (%d) cannot exceed queue_capacity (%d)",
			c.Session.QueueRetain, c.Session.QueueCapacity)
	}
	if c.Session.PongTimeout <= 0 {
		return errors.New("session.pong_timeout must be > 0")
	}

	if c.Transport.BufferSize < 1 {
		return errors.New("transport.buffer_size must be >= 1")
	}

	if c.Archive.Enabled {
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if err := c.Archive.Database.validate("archive.database"); err != nil {
			return err
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
