package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunConversationStoreContract runs a suite of tests to verify that a ConversationStore
// implementation adheres to the defined interface contract.
func RunConversationStoreContract(t *testing.T, store ConversationStore) {
	ctx := context.Background()
	started := time.Date(2025, 10, 25, 20, 0, 0, 0, time.UTC)

	newRecord := func(name string, offset time.Duration) *domain.Conversation {
		c := domain.NewConversation("id-"+name, domain.Character{Name: name, ModelName: "model"}, started.Add(offset))
		c.AddTranscript(domain.SpeakerUser, "Hello there")
		c.AddTranscript(domain.SpeakerCharacter, "Well met, traveller.")
		c.History = append(c.History,
			domain.Message{Role: domain.RoleUser, Content: "Hello there"},
			domain.Message{Role: domain.RoleAssistant, Content: `{"response":"Well met, traveller."}`},
		)
		c.EndReason = domain.EndPressed
		return c
	}

	t.Run("Save and Load", func(t *testing.T) {
		record := newRecord("Ada", 0)

		err := store.Save(ctx, record)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, record.Key())
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, record.ID, loaded.ID)
		assert.True(t, record.StartedAt.Equal(loaded.StartedAt))
		assert.Equal(t, record.Character, loaded.Character)
		assert.Equal(t, record.Transcript, loaded.Transcript)
		assert.Equal(t, record.History, loaded.History)
		assert.Equal(t, domain.EndPressed, loaded.EndReason)
	})

	t.Run("Save Twice", func(t *testing.T) {
		record := newRecord("Babbage", time.Minute)
		require.NoError(t, store.Save(ctx, record))

		err := store.Save(ctx, record)
		assert.ErrorIs(t, err, domain.ErrConversationExists)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "1970-01-01T00:00:00Z - Nobody")
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})

	t.Run("List", func(t *testing.T) {
		a := newRecord("Curie", 2*time.Minute)
		b := newRecord("Darwin", 3*time.Minute)
		require.NoError(t, store.Save(ctx, a))
		require.NoError(t, store.Save(ctx, b))

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, a.Key())
		assert.Contains(t, keys, b.Key())
	})
}
