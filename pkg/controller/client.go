// Package controller is the host's handle on the button and display device.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/llmvn/internal/logging"
	"github.com/aretw0/llmvn/pkg/icd"
	"github.com/aretw0/llmvn/pkg/transport"
	"github.com/aretw0/llmvn/pkg/transport/wslink"
)

// Client implements ports.Controller over a transport client.
type Client struct {
	rpc     *transport.Client
	logger  *slog.Logger
	rpcOpts []transport.ClientOption

	mu      sync.Mutex
	last    icd.Screen
	hasLast bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTransportOptions passes options to the transport client created by Dial.
func WithTransportOptions(opts ...transport.ClientOption) Option {
	return func(c *Client) {
		c.rpcOpts = append(c.rpcOpts, opts...)
	}
}

// New wraps an established transport client.
func New(rpc *transport.Client, opts ...Option) *Client {
	c := &Client{rpc: rpc, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to the controller's WebSocket endpoint.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	link, err := wslink.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	c := New(nil, opts...)
	rpcOpts := append([]transport.ClientOption{transport.WithClientLogger(c.logger)}, c.rpcOpts...)
	c.rpc = transport.NewClient(link, rpcOpts...)
	return c, nil
}

// Ping round-trips id and checks the echo.
func (c *Client) Ping(ctx context.Context, id uint32) error {
	got, err := transport.Call(ctx, c.rpc, icd.Ping, id)
	if err != nil {
		return fmt.Errorf("failed to ping controller: %w", err)
	}
	if got != id {
		return fmt.Errorf("controller echoed %d, want %d", got, id)
	}
	return nil
}

// ShowScreen replaces the controller's screen.
func (c *Client) ShowScreen(ctx context.Context, screen icd.Screen) error {
	if _, err := transport.Call(ctx, c.rpc, icd.SetDisplay, screen); err != nil {
		return fmt.Errorf("failed to set display: %w", err)
	}
	c.mu.Lock()
	c.last = screen
	c.hasLast = true
	c.mu.Unlock()
	return nil
}

// WaitForButton subscribes, takes the first action, then unsubscribes.
// Presses made while no wait is in progress are not seen.
func (c *Client) WaitForButton(ctx context.Context) (icd.ButtonAction, error) {
	sub := transport.Subscribe(c.rpc, icd.ButtonActionPerformed, 1)
	defer sub.Close()

	for {
		action, seq, err := sub.Recv(ctx)
		if errors.Is(err, transport.ErrDecode) {
			c.logger.Warn("dropping malformed button event", "seq", seq, "err", err)
			continue
		}
		if err != nil {
			return 0, err
		}
		if !action.Valid() {
			c.logger.Warn("ignoring invalid button action", "action", action, "seq", seq)
			continue
		}
		c.logger.Debug("button action received", "action", action, "seq", seq)
		return action, nil
	}
}

// LastScreen returns the screen most recently accepted by the controller.
func (c *Client) LastScreen() (icd.Screen, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.hasLast
}

// Done is closed when the link to the controller is lost.
func (c *Client) Done() <-chan struct{} {
	return c.rpc.Done()
}

// Close releases the link.
func (c *Client) Close() error {
	return c.rpc.Close()
}
