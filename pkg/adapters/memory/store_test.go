package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/llmvn/pkg/adapters/memory"
	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunConversationStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	c := domain.NewConversation("id", domain.Character{Name: "Ada"}, time.Now())
	c.AddTranscript(domain.SpeakerUser, "hello")
	require.NoError(t, store.Save(ctx, c))

	c.AddTranscript(domain.SpeakerCharacter, "mutated after save")

	loaded, err := store.Load(ctx, c.Key())
	require.NoError(t, err)
	assert.Len(t, loaded.Transcript, 1)
}
