package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "[redacted]"

// DefaultRedactions catch contact details a model may invent.
var DefaultRedactions = []string{
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
	`\+?\d[\d -]{8,}\d`,
}

type redactMiddleware struct {
	next     ports.ConversationStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware masks text matching patterns in the transcript and
// model history before the record is archived. The caller's record is not changed.
func NewRedactMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.ConversationStore) ports.ConversationStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactMiddleware) Save(ctx context.Context, c *domain.Conversation) error {
	cloned := *c
	if c.Transcript != nil {
		cloned.Transcript = make([]domain.TranscriptEntry, len(c.Transcript))
		for i, e := range c.Transcript {
			e.Text = m.mask(e.Text)
			cloned.Transcript[i] = e
		}
	}
	if c.History != nil {
		cloned.History = make([]domain.Message, len(c.History))
		for i, msg := range c.History {
			msg.Content = m.mask(msg.Content)
			cloned.History[i] = msg
		}
	}
	return m.next.Save(ctx, &cloned)
}

func (m *redactMiddleware) Load(ctx context.Context, key string) (*domain.Conversation, error) {
	return m.next.Load(ctx, key)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
