package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/llmvn/internal/logging"
)

// HandlerFunc serves one decoded request. The returned value becomes the response body.
type HandlerFunc[C any, Req, Resp any] func(ctx context.Context, state *C, hdr Header, req Req) (Resp, error)

type rawHandler[C any] func(ctx context.Context, state *C, hdr Header, body json.RawMessage) (any, error)

// ServerHooks observe server activity. Nil hooks are skipped.
type ServerHooks struct {
	OnRequest     func(path string)
	OnDecodeError func(err error)
	OnPublish     func(path string)
}

// Server dispatches incoming requests to handlers sharing a state value of type C
// and publishes topics to the attached peer.
type Server[C any] struct {
	state    *C
	logger   *slog.Logger
	hooks    ServerHooks
	handlers map[string]rawHandler[C]

	mu   sync.Mutex
	link Link
}

// ServerOption configures a Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger *slog.Logger
	hooks  ServerHooks
}

// WithServerLogger sets the server logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// WithServerHooks sets the server observation hooks.
func WithServerHooks(hooks ServerHooks) ServerOption {
	return func(o *serverOptions) {
		o.hooks = hooks
	}
}

// NewServer creates a server whose handlers receive state.
func NewServer[C any](state *C, opts ...ServerOption) *Server[C] {
	o := serverOptions{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server[C]{
		state:    state,
		logger:   o.logger,
		hooks:    o.hooks,
		handlers: make(map[string]rawHandler[C]),
	}
}

// Handle registers fn for the endpoint path. Registering a path twice panics.
func Handle[C any, Req, Resp any](s *Server[C], ep Endpoint[Req, Resp], fn HandlerFunc[C, Req, Resp]) {
	if _, exists := s.handlers[ep.Path]; exists {
		panic(fmt.Sprintf("transport: handler for %q already registered", ep.Path))
	}
	s.handlers[ep.Path] = func(ctx context.Context, state *C, hdr Header, body json.RawMessage) (any, error) {
		req, err := decodeBody[Req](body)
		if err != nil {
			return nil, err
		}
		return fn(ctx, state, hdr, req)
	}
}

// Serve attaches link and dispatches its requests until the link fails or ctx ends.
// A malformed frame is logged and skipped; it never ends the loop.
func (s *Server[C]) Serve(ctx context.Context, link Link) error {
	if err := s.attach(link); err != nil {
		return err
	}
	defer s.detach(link)

	stop := context.AfterFunc(ctx, func() { _ = link.Close() })
	defer stop()

	for {
		data, err := link.Recv(ctx)
		if errors.Is(err, ErrDecode) {
			s.dropped(err)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to receive frame: %w", err)
		}

		f, err := Decode(data)
		if err != nil {
			s.dropped(err)
			continue
		}

		if f.Kind != KindRequest {
			s.logger.Debug("ignoring non-request frame", "kind", f.Kind, "path", f.Path)
			continue
		}

		s.dispatch(ctx, link, f)
	}
}

func (s *Server[C]) dropped(err error) {
	s.logger.Warn("dropping malformed frame", "err", err)
	if s.hooks.OnDecodeError != nil {
		s.hooks.OnDecodeError(err)
	}
}

func (s *Server[C]) dispatch(ctx context.Context, link Link, f Frame) {
	if s.hooks.OnRequest != nil {
		s.hooks.OnRequest(f.Path)
	}

	handler, ok := s.handlers[f.Path]
	if !ok {
		s.logger.Warn("request for unknown path", "path", f.Path, "seq", f.Seq)
		s.reply(ctx, link, KindError, f, WireError{Code: CodeUnknownPath, Message: "no handler for " + f.Path})
		return
	}

	resp, err := handler(ctx, s.state, Header{Path: f.Path, Seq: f.Seq}, f.Body)
	if err != nil {
		code := CodeHandler
		if errors.Is(err, ErrDecode) {
			code = CodeBadRequest
			if s.hooks.OnDecodeError != nil {
				s.hooks.OnDecodeError(err)
			}
		}
		s.logger.Warn("request failed", "path", f.Path, "seq", f.Seq, "err", err)
		s.reply(ctx, link, KindError, f, WireError{Code: code, Message: err.Error()})
		return
	}

	s.reply(ctx, link, KindResponse, f, resp)
}

func (s *Server[C]) reply(ctx context.Context, link Link, kind Kind, req Frame, body any) {
	f, err := newFrame(kind, req.Path, req.Seq, body)
	if err != nil {
		s.logger.Error("failed to build reply", "path", req.Path, "err", err)
		return
	}
	if err := s.send(ctx, link, f); err != nil {
		s.logger.Warn("failed to send reply", "path", req.Path, "seq", req.Seq, "err", err)
	}
}

// Publish sends a topic event to the attached peer.
func Publish[C, M any](ctx context.Context, s *Server[C], t Topic[M], seq uint32, msg M) error {
	s.mu.Lock()
	link := s.link
	s.mu.Unlock()
	if link == nil {
		return ErrNotConnected
	}

	f, err := newFrame(KindTopic, t.Path, seq, msg)
	if err != nil {
		return err
	}
	if err := s.send(ctx, link, f); err != nil {
		return err
	}
	if s.hooks.OnPublish != nil {
		s.hooks.OnPublish(t.Path)
	}
	return nil
}

// Connected reports whether a peer link is attached.
func (s *Server[C]) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link != nil
}

func (s *Server[C]) send(ctx context.Context, link Link, f Frame) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}
	if err := link.Send(ctx, data); err != nil {
		return fmt.Errorf("failed to send %s frame for %q: %w", f.Kind, f.Path, err)
	}
	return nil
}

func (s *Server[C]) attach(link Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.link != nil {
		return ErrBusy
	}
	s.link = link
	return nil
}

func (s *Server[C]) detach(link Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.link == link {
		s.link = nil
	}
}
