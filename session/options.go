package session

import (
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jrsteele09/go-console-session/tokenclock"
	"github.com/rs/zerolog"
)

// Config holds the manager's timing parameters and the backing API location
type Config struct {
	BaseURL           string
	RefreshLeadTime   time.Duration
	ReactiveThreshold time.Duration
	RefreshTimeout    time.Duration
}

const DefaultRefreshTimeout = 10 * time.Second

func (c Config) withDefaults() Config {
	if c.RefreshLeadTime <= 0 {
		c.RefreshLeadTime = tokenclock.DefaultRefreshLeadTime
	}
	if c.ReactiveThreshold <= 0 {
		c.ReactiveThreshold = tokenclock.DefaultReactiveThreshold
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = DefaultRefreshTimeout
	}
	return c
}

type Option func(*Manager)

func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithMetrics(metrics Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}
