package file_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/llmvn/pkg/adapters/file"
	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.ConversationStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunConversationStoreContract(t, store)
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)

	c := domain.NewConversation("id", domain.Character{Name: "Ada"}, time.Date(2025, 10, 25, 20, 0, 0, 0, time.UTC))
	c.AddTranscript(domain.SpeakerUser, "Hello")
	require.NoError(t, store.Save(context.Background(), c))

	path := filepath.Join(dir, "2025-10-25T20:00:00Z - Ada.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "started_at")
	assert.Contains(t, doc, "character")
	assert.Contains(t, doc, "transcript")
	assert.Contains(t, doc, "history")
	assert.Contains(t, string(data), "\n  \"id\"", "file should be pretty printed")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_ListMissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "nope"))

	keys, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFileStore_RejectsKeysOutsideArchive(t *testing.T) {
	root := t.TempDir()
	secret := filepath.Join(root, "secret.json")
	require.NoError(t, os.WriteFile(secret, []byte(`{"id":"outside"}`), 0644))
	store := file.New(filepath.Join(root, "archive"))

	for _, key := range []string{"../secret", `..\secret`, "sub/key", "..", ""} {
		_, err := store.Load(context.Background(), key)
		assert.ErrorIs(t, err, domain.ErrInvalidKey, key)
	}

	c := domain.NewConversation("id", domain.Character{Name: "../escape"}, time.Date(2025, 10, 25, 20, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, store.Save(context.Background(), c), domain.ErrInvalidKey)
}
