package statscache

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// config collects the settings shared by every Cache regardless of its
// value type, so options need no type parameter.
type config struct {
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *Metrics
	logger  *slog.Logger
}

// Option configures a Cache.
//
//	c := statscache.New("paper_count", produce,
//		statscache.WithTTL(time.Hour),
//		statscache.WithMetrics(m),
//	)
type Option func(*config)

// WithTTL sets how long a computed value stays fresh. Non-positive values
// keep DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock replaces the wall clock. Tests pass a clockwork.FakeClock to
// step across the expiry boundary.
func WithClock(clock clockwork.Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithMetrics reports requests and refreshes to m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
