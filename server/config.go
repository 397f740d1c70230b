package server

import (
	"fmt"
	"time"
)

const (
	// DefaultStateTTL is how long a pending authorization state is kept
	DefaultStateTTL = 10 * time.Minute

	// DefaultSessionTTL is how long a session-bound token is kept
	DefaultSessionTTL = 30 * time.Minute

	// BearerOverrideLifetime is the nominal lifetime given to a token
	// supplied directly by the caller
	BearerOverrideLifetime = time.Hour
)

// Config holds server configuration
type Config struct {
	// StateTTL bounds the time between Initiate and the callback.
	// A processed state keeps its remaining TTL.
	// Default: 10 minutes
	StateTTL time.Duration

	// SessionTTL is the TTL applied to tokens stored for a session,
	// matching the session cookie lifetime.
	// Default: 30 minutes
	SessionTTL time.Duration
}

// applyDefaults fills in zero values
func applyDefaults(config *Config) *Config {
	if config.StateTTL == 0 {
		config.StateTTL = DefaultStateTTL
	}
	if config.SessionTTL == 0 {
		config.SessionTTL = DefaultSessionTTL
	}
	return config
}

// validate rejects TTLs the storage backends cannot express
func (c *Config) validate() error {
	if c.StateTTL < time.Second {
		return fmt.Errorf("state TTL must be at least 1s, got %s", c.StateTTL)
	}
	if c.SessionTTL < time.Second {
		return fmt.Errorf("session TTL must be at least 1s, got %s", c.SessionTTL)
	}
	return nil
}
