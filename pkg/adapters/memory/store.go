package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/llmvn/pkg/domain"
)

// Store implements ports.ConversationStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Conversation
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Conversation),
	}
}

func clone(c *domain.Conversation) *domain.Conversation {
	copied := *c
	copied.Transcript = slices.Clone(c.Transcript)
	copied.History = slices.Clone(c.History)
	copied.Character.OpeningLines = slices.Clone(c.Character.OpeningLines)
	return &copied
}

// Save archives a copy of the record.
func (s *Store) Save(ctx context.Context, c *domain.Conversation) error {
	key := c.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return domain.ErrConversationExists
	}
	s.data[key] = clone(c)
	return nil
}

// Load returns a copy so callers cannot mutate the archive through the pointer.
func (s *Store) Load(ctx context.Context, key string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[key]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return clone(c), nil
}

// List returns archived keys in order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}
