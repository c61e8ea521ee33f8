package display

import (
	"context"
	"log/slog"

	"github.com/aretw0/llmvn/internal/logging"
	"github.com/aretw0/llmvn/pkg/ports"
)

// Hooks observe the render loop. Nil hooks are skipped.
type Hooks struct {
	OnDraw      func()
	OnDrawError func(err error)
}

// Option configures Run.
type Option func(*consumer)

// WithLogger sets the render loop logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *consumer) {
		c.logger = logger
	}
}

// WithHooks sets the render loop hooks.
func WithHooks(hooks Hooks) Option {
	return func(c *consumer) {
		c.hooks = hooks
	}
}

type consumer struct {
	logger *slog.Logger
	hooks  Hooks
}

// Run draws the splash screen, then redraws whenever reader observes a new screen.
// Renderer failures are logged and never end the loop.
func Run(ctx context.Context, reader *Reader, renderer ports.Renderer, opts ...Option) error {
	c := consumer{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}

	if err := renderer.DrawSplash(); err != nil {
		c.failed(err)
	}

	for {
		screen, err := reader.Changed(ctx)
		if err != nil {
			return err
		}

		if err := screen.Validate(); err != nil {
			c.logger.Warn("refusing to draw invalid screen", "err", err)
			continue
		}

		c.logger.Debug("drawing screen", "kind", screen.Kind)
		if err := renderer.Draw(screen); err != nil {
			c.failed(err)
			continue
		}
		if c.hooks.OnDraw != nil {
			c.hooks.OnDraw()
		}
	}
}

func (c *consumer) failed(err error) {
	c.logger.Warn("failed to draw screen", "err", err)
	if c.hooks.OnDrawError != nil {
		c.hooks.OnDrawError(err)
	}
}
