// Package throttle gates calls to the upstream generation API behind a single
// process-wide cooldown that widens after failures and narrows after successes.
package throttle

import (
	"log/slog"
	"sync"
	"time"
)

type Config struct {
	Floor     time.Duration
	Ceiling   time.Duration
	Decrement time.Duration
	Step      time.Duration
}

func DefaultConfig() Config {
	return Config{
		Floor:     30 * time.Second,
		Ceiling:   120 * time.Second,
		Decrement: 5 * time.Second,
		Step:      10 * time.Second,
	}
}

// Decision is the outcome of an admission attempt.
type Decision struct {
	Allowed     bool
	Wait        time.Duration
	NextAllowed time.Time
}

// State is a point-in-time copy of the controller's fields.
type State struct {
	MinInterval       time.Duration
	LastRequest       time.Time
	ConsecutiveErrors int
}

type Option func(*Controller)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

type Controller struct {
	mu                sync.Mutex
	cfg               Config
	now               func() time.Time
	minInterval       time.Duration
	lastRequest       time.Time
	consecutiveErrors int
}

func New(cfg Config, opts ...Option) *Controller {
	if cfg.Ceiling < cfg.Floor {
		cfg.Ceiling = cfg.Floor
	}
	cfg.Decrement = max(0, cfg.Decrement)
	cfg.Step = max(0, cfg.Step)

	c := &Controller{
		cfg:         cfg,
		now:         time.Now,
		minInterval: cfg.Floor,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TimeUntilNextAllowed reports how long a caller must wait before Admit can
// succeed. It is zero before the first admission.
func (c *Controller) TimeUntilNextAllowed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waitLocked(c.now())
}

func (c *Controller) waitLocked(now time.Time) time.Duration {
	if c.lastRequest.IsZero() {
		return 0
	}
	elapsed := now.Sub(c.lastRequest)
	if elapsed >= c.minInterval {
		return 0
	}
	return c.minInterval - elapsed
}

// Admit checks the cooldown and, when it has elapsed, records now as the last
// admitted request in the same critical section. A rejected call leaves the
// state untouched.
func (c *Controller) Admit() Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if wait := c.waitLocked(now); wait > 0 {
		return Decision{
			Wait:        wait,
			NextAllowed: c.lastRequest.Add(c.minInterval),
		}
	}

	c.lastRequest = now
	return Decision{Allowed: true, NextAllowed: now.Add(c.minInterval)}
}

func (c *Controller) ReportSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveErrors = 0

	prev := c.minInterval
	c.minInterval = c.clamp(c.minInterval - c.cfg.Decrement)
	if c.minInterval != prev {
		slog.Info("throttle interval decreased", "interval", c.minInterval)
	}
}

func (c *Controller) ReportFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveErrors++

	prev := c.minInterval
	c.minInterval = c.clamp(c.minInterval + c.cfg.Step*time.Duration(c.consecutiveErrors))
	if c.minInterval != prev {
		slog.Warn("throttle interval increased", "interval", c.minInterval, "consecutive_errors", c.consecutiveErrors)
	}
}

// clamp keeps an interval inside [Floor, Ceiling].
func (c *Controller) clamp(d time.Duration) time.Duration {
	return min(c.cfg.Ceiling, max(c.cfg.Floor, d))
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		MinInterval:       c.minInterval,
		LastRequest:       c.lastRequest,
		ConsecutiveErrors: c.consecutiveErrors,
	}
}
