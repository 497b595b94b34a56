// Package pacing spaces publish actions with randomized, position-dependent
// delays so activity does not look mechanical.
package pacing

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mesh-intelligence/pinagent/internal/logger"
	"github.com/mesh-intelligence/pinagent/internal/retry"
)

// Window is a half-open delay range [Min, Max).
type Window struct {
	Min time.Duration `yaml:"min" mapstructure:"min"`
	Max time.Duration `yaml:"max" mapstructure:"max"`
}

// DefaultWindows is the delay table indexed by action position. Positions
// past the end reuse the last window.
var DefaultWindows = []Window{
	{0, 4 * time.Minute},
	{5 * time.Minute, 20 * time.Minute},
	{10 * time.Minute, 30 * time.Minute},
	{15 * time.Minute, 45 * time.Minute},
	{10 * time.Minute, 30 * time.Minute},
	{15 * time.Minute, 40 * time.Minute},
	{20 * time.Minute, 50 * time.Minute},
}

// Scale returns a copy of windows with every bound multiplied by f.
func Scale(windows []Window, f float64) []Window {
	out := make([]Window, len(windows))
	for i, w := range windows {
		out[i] = Window{
			Min: time.Duration(float64(w.Min) * f),
			Max: time.Duration(float64(w.Max) * f),
		}
	}
	return out
}

// Scheduler draws and waits out pacing delays. It is safe for concurrent use.
type Scheduler struct {
	windows  []Window
	sleep    retry.SleepFunc
	log      logger.Logger
	disabled bool

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithoutSleep makes Wait return the drawn delay without blocking.
func WithoutSleep() Option {
	return func(s *Scheduler) { s.disabled = true }
}

// New creates a Scheduler. A nil rng is seeded randomly, a nil sleep uses a
// real timer and an empty windows table falls back to DefaultWindows.
func New(windows []Window, rng *rand.Rand, sleep retry.SleepFunc, log logger.Logger, opts ...Option) *Scheduler {
	if len(windows) == 0 {
		windows = DefaultWindows
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if sleep == nil {
		sleep = retry.Sleep
	}
	if log == nil {
		log = logger.NewNop()
	}
	s := &Scheduler{windows: windows, rng: rng, sleep: sleep, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the window used for position. Negative positions use the
// first window.
func (s *Scheduler) Window(position int) Window {
	if position < 0 {
		position = 0
	}
	if position >= len(s.windows) {
		position = len(s.windows) - 1
	}
	return s.windows[position]
}

// Draw returns a uniformly random delay from the window for position.
func (s *Scheduler) Draw(position int) time.Duration {
	w := s.Window(position)
	span := w.Max - w.Min
	if span <= 0 {
		return w.Min
	}
	s.mu.Lock()
	n := s.rng.Int64N(int64(span))
	s.mu.Unlock()
	return w.Min + time.Duration(n)
}

// Wait draws a delay for position, logs it and blocks for that long or
// until ctx is done. It returns the drawn delay.
func (s *Scheduler) Wait(ctx context.Context, position, total int) (time.Duration, error) {
	d := s.Draw(position)
	s.log.Info("pacing before next action",
		logger.Int("position", position+1),
		logger.Int("total", total),
		logger.Duration("delay", d),
	)
	if s.disabled {
		return d, nil
	}
	return d, s.sleep(ctx, d)
}
