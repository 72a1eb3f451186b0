package repository

import "time"

// PostgresOption applies a configuration option to the PostgresStore pool.
type PostgresOption func(*postgresConfig)

type postgresConfig struct {
	maxConns        int32
	minConns        int32
	maxConnLifetime time.Duration
	maxConnIdleTime time.Duration
	migrate         bool
}

func defaultPostgresConfig() postgresConfig {
	return postgresConfig{
		maxConns:        10,
		minConns:        2,
		maxConnLifetime: time.Hour,
		maxConnIdleTime: 30 * time.Minute,
		migrate:         true,
	}
}

// WithMaxConns bounds the pool size.
func WithMaxConns(n int32) PostgresOption {
	return func(c *postgresConfig) {
		if n > 0 {
			c.maxConns = n
		}
	}
}

// WithMinConns keeps n idle connections warm.
func WithMinConns(n int32) PostgresOption {
	return func(c *postgresConfig) {
		if n >= 0 {
			c.minConns = n
		}
	}
}

// WithConnLifetime sets the maximum connection lifetime and idle time.
func WithConnLifetime(lifetime, idle time.Duration) PostgresOption {
	return func(c *postgresConfig) {
		if lifetime > 0 {
			c.maxConnLifetime = lifetime
		}
		if idle > 0 {
			c.maxConnIdleTime = idle
		}
	}
}

// WithMigrate controls whether the schema is created on connect.
func WithMigrate(enabled bool) PostgresOption {
	return func(c *postgresConfig) {
		c.migrate = enabled
	}
}
