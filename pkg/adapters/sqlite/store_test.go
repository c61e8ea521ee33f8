package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/llmvn/pkg/adapters/sqlite"
	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.ConversationStore = (*sqlite.Store)(nil)

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ports.RunConversationStoreContract(t, store)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive", "conversations.db")
	ctx := context.Background()

	store, err := sqlite.Open(path)
	require.NoError(t, err)
	c := domain.NewConversation("id", domain.Character{Name: "Ada"}, time.Date(2025, 10, 25, 20, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(ctx, c))
	require.NoError(t, store.Close())

	// Migrations are not re-applied on reopen.
	store, err = sqlite.Open(path)
	require.NoError(t, err)
	defer store.Close()

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{c.Key()}, keys)
}

func TestSQLiteStore_CountByCharacter(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()
	base := time.Date(2025, 10, 25, 20, 0, 0, 0, time.UTC)

	for i, name := range []string{"Ada", "Ada", "Brunel"} {
		c := domain.NewConversation("id", domain.Character{Name: name}, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.Save(ctx, c))
	}

	counts, err := store.CountByCharacter(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Ada": 2, "Brunel": 1}, counts)
}
