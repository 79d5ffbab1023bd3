package icmp

import (
	"fmt"
	"time"
)

// Config holds the settings of a probe session.
type Config struct {
	// Timeout is how long each probe waits for its echo reply.
	// Default is 2 seconds.
	Timeout time.Duration

	// FixedSequence sends every probe with sequence number 1 and matches
	// replies by identifier only. When false the sequence starts at 1,
	// increments per probe and must match as well.
	FixedSequence bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout: 2 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}
