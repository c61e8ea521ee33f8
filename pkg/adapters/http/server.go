// Package http exposes the kiosk's status surface: health, build info,
// Prometheus metrics, a live event stream and read-only archive access.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/aretw0/llmvn/internal/logging"
	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/icd"
	"github.com/aretw0/llmvn/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server holds the collaborators behind each route. Unset collaborators
// leave their routes unregistered.
type Server struct {
	app     string
	version string
	store   ports.ConversationStore
	screen  func() (icd.Screen, bool)
	metrics http.Handler
	events  *Broadcaster
	mounts  []mount
	logger  *slog.Logger
}

type mount struct {
	pattern string
	handler http.Handler
}

// Option configures the status server.
type Option func(*Server)

// WithInfo sets the application name and version reported by /info.
func WithInfo(app, version string) Option {
	return func(s *Server) {
		s.app = app
		s.version = version
	}
}

// WithStore exposes the conversation archive under /conversations.
func WithStore(store ports.ConversationStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithDisplay exposes the current screen under /display.
func WithDisplay(latest func() (icd.Screen, bool)) Option {
	return func(s *Server) {
		s.screen = latest
	}
}

// WithMetrics serves h under /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithEvents streams b under /events.
func WithEvents(b *Broadcaster) Option {
	return func(s *Server) {
		s.events = b
	}
}

// WithMount adds an extra handler, such as the controller link endpoint.
func WithMount(pattern string, h http.Handler) Option {
	return func(s *Server) {
		s.mounts = append(s.mounts, mount{pattern: pattern, handler: h})
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler builds the router.
func NewHandler(opts ...Option) http.Handler {
	s := &Server{app: "llmvn", version: "dev", logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.events != nil {
		r.Get("/events", s.SubscribeEvents)
	}
	if s.screen != nil {
		r.Get("/display", s.GetDisplay)
	}
	if s.store != nil {
		r.Get("/conversations", s.ListConversations)
		r.Get("/conversations/{key}", s.GetConversation)
	}
	for _, m := range s.mounts {
		r.Handle(m.pattern, m.handler)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     s.app,
		"version": s.version,
		"product": icd.ProductName,
	})
}

// GetDisplay handles GET /display.
func (s *Server) GetDisplay(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screen()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, screen)
}

// ListConversations handles GET /conversations.
func (s *Server) ListConversations(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		s.logger.Error("listing conversations failed", "err", err)
		return
	}
	s.writeJSON(w, http.StatusOK, keys)
}

// GetConversation handles GET /conversations/{key}.
func (s *Server) GetConversation(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		http.Error(w, "Invalid conversation key", http.StatusBadRequest)
		return
	}
	c, err := s.store.Load(r.Context(), key)
	if errors.Is(err, domain.ErrInvalidKey) {
		http.Error(w, "Invalid conversation key", http.StatusBadRequest)
		return
	}
	if errors.Is(err, domain.ErrConversationNotFound) {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Load error: %v", err), http.StatusInternalServerError)
		s.logger.Error("loading conversation failed", "key", key, "err", err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

// SubscribeEvents handles GET /events as a server-sent event stream.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.events.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("event stream client disconnected")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

// Event is one server-sent event.
type Event struct {
	Name string
	Data []byte
}

// Broadcaster fans events out to every connected stream. Slow clients drop events.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Broadcaster{
		subscribers: make(map[chan Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a stream. The returned function unregisters it.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 16)
	b.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, ch)
			close(ch)
		})
	}
}

// Broadcast JSON-encodes data and sends it to every subscriber.
func (b *Broadcaster) Broadcast(name string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		b.logger.Warn("event encode failed", "event", name, "err", err)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- Event{Name: name, Data: payload}:
		default:
			b.logger.Warn("event stream buffer full, dropping event", "event", name)
		}
	}
}

// Subscribers reports the number of connected streams.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
