package buttons

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/llmvn/internal/logging"
	"github.com/aretw0/llmvn/pkg/icd"
)

// DefaultInterval samples the lines at 20 Hz.
const DefaultInterval = 50 * time.Millisecond

// Publisher hands a decoded action to the transport.
type Publisher interface {
	Publish(ctx context.Context, action icd.ButtonAction, seq uint8) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, action icd.ButtonAction, seq uint8) error

func (f PublisherFunc) Publish(ctx context.Context, action icd.ButtonAction, seq uint8) error {
	return f(ctx, action, seq)
}

// Hooks observe sampler activity. Nil hooks are skipped.
type Hooks struct {
	OnPublish      func(action icd.ButtonAction)
	OnPublishError func(action icd.ButtonAction, err error)
	OnAnomaly      func(sample InputSample)
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithInterval sets the sampling period.
func WithInterval(d time.Duration) Option {
	return func(s *Sampler) {
		s.interval = d
	}
}

// WithLogger sets the sampler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sampler) {
		s.logger = logger
	}
}

// WithHooks sets the observation hooks.
func WithHooks(hooks Hooks) Option {
	return func(s *Sampler) {
		s.hooks = hooks
	}
}

// WithClock overrides time.Now for reading timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) {
		s.now = now
	}
}

// Sampler polls Pins on a fixed period and publishes one event per change
// that decodes to exactly one pressed button.
type Sampler struct {
	pins      Pins
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger
	hooks     Hooks
	now       func() time.Time

	mu      sync.Mutex
	history History
	seq     uint8
}

// New creates a sampler over pins.
func New(pins Pins, publisher Publisher, opts ...Option) *Sampler {
	s := &Sampler{
		pins:      pins,
		publisher: publisher,
		interval:  DefaultInterval,
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run samples until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sample(ctx, s.pins.Read())
		}
	}
}

// Sample processes one reading. It reports the action published, if any.
// Publishing is bounded by one sampling period so a stalled link cannot slow the loop.
func (s *Sampler) Sample(ctx context.Context, sample InputSample) (icd.ButtonAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.history.Recent(); ok && last.Sample == sample {
		return 0, false
	}
	s.history.Push(Reading{At: s.now(), Sample: sample})

	action, ok := Decode(sample)
	if !ok {
		if sample == Released {
			s.logger.Debug("buttons released")
			return 0, false
		}
		s.logger.Warn("unexpected button press combination", "sample", sample)
		if s.hooks.OnAnomaly != nil {
			s.hooks.OnAnomaly(sample)
		}
		return 0, false
	}

	seq := s.seq
	s.seq++

	pubCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, action, seq); err != nil {
		s.logger.Warn("failed to publish button action", "action", action, "seq", seq, "err", err)
		if s.hooks.OnPublishError != nil {
			s.hooks.OnPublishError(action, err)
		}
		return action, false
	}

	s.logger.Info("button pressed", "action", action, "seq", seq)
	if s.hooks.OnPublish != nil {
		s.hooks.OnPublish(action)
	}
	return action, true
}

// Seq returns the sequence number the next published action will carry.
func (s *Sampler) Seq() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// History returns a copy of the recent readings, oldest first.
func (s *Sampler) History() []Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Readings()
}
