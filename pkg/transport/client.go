package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/llmvn/internal/logging"
)

// ClientHooks observe client activity. Nil hooks are skipped.
type ClientHooks struct {
	OnDecodeError func(err error)
	OnTopicDrop   func(path string)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClientHooks sets the client observation hooks.
func WithClientHooks(hooks ClientHooks) ClientOption {
	return func(c *Client) {
		c.hooks = hooks
	}
}

// Client issues endpoint calls and receives topic events over a Link.
// A background goroutine owns Recv and routes frames to waiting calls and subscriptions.
type Client struct {
	link   Link
	logger *slog.Logger
	hooks  ClientHooks

	mu      sync.Mutex
	nextSeq uint32
	pending map[uint32]chan Frame
	subs    map[string]map[*subscriber]struct{}
	err     error

	done chan struct{}
}

type subscriber struct {
	ch chan Frame
}

// NewClient starts routing frames from link. Close releases the link.
func NewClient(link Link, opts ...ClientOption) *Client {
	c := &Client{
		link:    link,
		logger:  logging.NewNop(),
		pending: make(map[uint32]chan Frame),
		subs:    make(map[string]map[*subscriber]struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c
}

// Close closes the link and fails every outstanding call and subscription.
func (c *Client) Close() error {
	err := c.link.Close()
	<-c.done
	return err
}

// Done is closed once the link has failed or been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err reports why the client stopped. It is nil while the client is running.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		data, err := c.link.Recv(context.Background())
		if errors.Is(err, ErrDecode) {
			c.dropped(err)
			continue
		}
		if err != nil {
			c.mu.Lock()
			c.err = fmt.Errorf("%w: %v", ErrClosed, err)
			c.mu.Unlock()
			return
		}

		f, err := Decode(data)
		if err != nil {
			c.dropped(err)
			continue
		}

		switch f.Kind {
		case KindResponse, KindError:
			c.deliver(f)
		case KindTopic:
			c.fanOut(f)
		default:
			c.logger.Debug("ignoring unexpected frame", "kind", f.Kind, "path", f.Path)
		}
	}
}

func (c *Client) dropped(err error) {
	c.logger.Warn("dropping malformed frame", "err", err)
	if c.hooks.OnDecodeError != nil {
		c.hooks.OnDecodeError(err)
	}
}

func (c *Client) deliver(f Frame) {
	c.mu.Lock()
	ch, ok := c.pending[f.Seq]
	if ok {
		delete(c.pending, f.Seq)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("response without pending call", "path", f.Path, "seq", f.Seq)
		return
	}
	ch <- f
}

func (c *Client) fanOut(f Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.subs[f.Path]
	if len(subs) == 0 {
		c.logger.Debug("topic event without subscriber", "path", f.Path, "seq", f.Seq)
		return
	}
	for sub := range subs {
		select {
		case sub.ch <- f:
		default:
			c.logger.Warn("subscriber queue full, dropping event", "path", f.Path, "seq", f.Seq)
			if c.hooks.OnTopicDrop != nil {
				c.hooks.OnTopicDrop(f.Path)
			}
		}
	}
}

func (c *Client) register() (uint32, chan Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq := c.nextSeq
	for {
		if _, taken := c.pending[seq]; !taken {
			break
		}
		seq++
	}
	c.nextSeq = seq + 1

	ch := make(chan Frame, 1)
	c.pending[seq] = ch
	return seq, ch
}

func (c *Client) unregister(seq uint32) {
	c.mu.Lock()
	delete(c.pending, seq)
	c.mu.Unlock()
}

// Call sends req to the endpoint and waits for the matching response.
func Call[Req, Resp any](ctx context.Context, c *Client, ep Endpoint[Req, Resp], req Req) (Resp, error) {
	var zero Resp

	seq, ch := c.register()
	defer c.unregister(seq)

	f, err := newFrame(KindRequest, ep.Path, seq, req)
	if err != nil {
		return zero, err
	}
	data, err := Encode(f)
	if err != nil {
		return zero, err
	}
	if err := c.link.Send(ctx, data); err != nil {
		return zero, fmt.Errorf("failed to send request to %q: %w", ep.Path, err)
	}

	select {
	case resp := <-ch:
		if resp.Kind == KindError {
			werr, err := decodeBody[WireError](resp.Body)
			if err != nil {
				return zero, err
			}
			return zero, &RemoteError{Path: ep.Path, Code: werr.Code, Message: werr.Message}
		}
		return decodeBody[Resp](resp.Body)
	case <-c.done:
		return zero, c.Err()
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Subscription receives events for one topic. Events published while no
// subscription exists are never delivered to it.
type Subscription[M any] struct {
	client *Client
	path   string
	sub    *subscriber
	once   sync.Once
}

// Subscribe registers interest in a topic. depth bounds the number of queued events;
// events arriving while the queue is full are dropped.
func Subscribe[M any](c *Client, t Topic[M], depth int) *Subscription[M] {
	if depth < 1 {
		depth = 1
	}
	sub := &subscriber{ch: make(chan Frame, depth)}

	c.mu.Lock()
	if c.subs[t.Path] == nil {
		c.subs[t.Path] = make(map[*subscriber]struct{})
	}
	c.subs[t.Path][sub] = struct{}{}
	c.mu.Unlock()

	return &Subscription[M]{client: c, path: t.Path, sub: sub}
}

// Recv waits for the next event and returns its payload and sequence number.
func (s *Subscription[M]) Recv(ctx context.Context) (M, uint32, error) {
	var zero M
	select {
	case f := <-s.sub.ch:
		msg, err := decodeBody[M](f.Body)
		if err != nil {
			return zero, f.Seq, err
		}
		return msg, f.Seq, nil
	case <-s.client.done:
		return zero, 0, s.client.Err()
	case <-ctx.Done():
		return zero, 0, ctx.Err()
	}
}

// Close stops delivery to the subscription. Queued events are discarded.
func (s *Subscription[M]) Close() {
	s.once.Do(func() {
		s.client.mu.Lock()
		defer s.client.mu.Unlock()
		delete(s.client.subs[s.path], s.sub)
		if len(s.client.subs[s.path]) == 0 {
			delete(s.client.subs, s.path)
		}
	})
}
