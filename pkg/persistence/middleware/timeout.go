package middleware

import (
	"context"
	"time"

	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/ports"
)

type timeoutMiddleware struct {
	next    ports.ConversationStore
	timeout time.Duration
}

// NewTimeoutMiddleware bounds every store call so a stalled backend cannot
// hold up the next visitor.
func NewTimeoutMiddleware(d time.Duration) Middleware {
	return func(next ports.ConversationStore) ports.ConversationStore {
		return &timeoutMiddleware{next: next, timeout: d}
	}
}

func (m *timeoutMiddleware) Save(ctx context.Context, c *domain.Conversation) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.next.Save(ctx, c)
}

func (m *timeoutMiddleware) Load(ctx context.Context, key string) (*domain.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.next.Load(ctx, key)
}

func (m *timeoutMiddleware) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.next.List(ctx)
}
