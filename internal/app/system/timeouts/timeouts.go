// Package timeouts provides centralized timeout values for I/O against the
// store and the narrative generator.
//
// Each value bounds a single attempt; the retry package multiplies it by at
// most MaxTries. Timeouts can be configured at startup using Configure().
//
// Guidelines for choosing a timeout:
//   - Ping: health checks and connectivity verification
//   - Read: single-document lookups (employer, cached report)
//   - Aggregate: scoped list queries feeding metrics, series and rankings
//   - Write: report upserts and audit inserts
//   - Generate: one call to the narrative generator
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing      = 2 * time.Second
	DefaultRead      = 5 * time.Second
	DefaultAggregate = 15 * time.Second
	DefaultWrite     = 10 * time.Second
	DefaultGenerate  = 60 * time.Second
)

// mu protects all timeout values from concurrent access.
var mu sync.RWMutex

var (
	ping      = DefaultPing
	read      = DefaultRead
	aggregate = DefaultAggregate
	write     = DefaultWrite
	generate  = DefaultGenerate
)

// Ping returns the timeout for health checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Read returns the timeout for single-document reads.
func Read() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return read
}

// Aggregate returns the timeout for scoped list queries.
func Aggregate() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return aggregate
}

// Write returns the timeout for single writes.
func Write() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return write
}

// Generate returns the timeout for one narrative generation attempt.
func Generate() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return generate
}

// Config holds timeout configuration values.
// Zero values are ignored (defaults are kept).
type Config struct {
	Ping      time.Duration
	Read      time.Duration
	Aggregate time.Duration
	Write     time.Duration
	Generate  time.Duration
}

// Configure sets custom timeout values. Zero values in the config are ignored,
// keeping the current (or default) values. Call during startup.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Read > 0 {
		read = cfg.Read
	}
	if cfg.Aggregate > 0 {
		aggregate = cfg.Aggregate
	}
	if cfg.Write > 0 {
		write = cfg.Write
	}
	if cfg.Generate > 0 {
		generate = cfg.Generate
	}
}

// Reset restores all timeouts to their default values.
// Useful for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	read = DefaultRead
	aggregate = DefaultAggregate
	write = DefaultWrite
	generate = DefaultGenerate
}

// ConfigureFromEnv reads timeout configuration from environment variables.
// Environment variables (all optional, defaults used if not set or invalid):
//   - TIMEOUT_PING, TIMEOUT_READ, TIMEOUT_AGGREGATE, TIMEOUT_WRITE,
//     TIMEOUT_GENERATE: Go durations such as "2s" or "500ms"
//
// Returns the number of timeouts successfully configured from environment.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	configured := 0

	for _, e := range []struct {
		key string
		dst *time.Duration
	}{
		{"TIMEOUT_PING", &ping},
		{"TIMEOUT_READ", &read},
		{"TIMEOUT_AGGREGATE", &aggregate},
		{"TIMEOUT_WRITE", &write},
		{"TIMEOUT_GENERATE", &generate},
	} {
		if v := os.Getenv(e.key); v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				*e.dst = d
				configured++
			}
		}
	}
	return configured
}

// Current returns the current timeout configuration as a Config struct.
// Useful for logging or debugging.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{
		Ping:      ping,
		Read:      read,
		Aggregate: aggregate,
		Write:     write,
		Generate:  generate,
	}
}

// WithTimeout creates a context with timeout and returns a cancel function that
// logs a warning if the context was canceled due to deadline exceeded.
//
// Example:
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Aggregate(), h.Log, "rank sites")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
