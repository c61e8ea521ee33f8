package ports

import (
	"context"
	"encoding/json"

	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/icd"
)

// Controller is the host-side handle on the button and display device.
type Controller interface {
	// ShowScreen replaces the device's current screen.
	ShowScreen(ctx context.Context, screen icd.Screen) error

	// WaitForButton returns the next button action pressed after the call is made.
	WaitForButton(ctx context.Context) (icd.ButtonAction, error)
}

// ChatRequest is one model invocation.
type ChatRequest struct {
	Model    string
	Messages []domain.Message

	// Schema, when set, constrains the reply to JSON matching this schema.
	Schema json.RawMessage
}

// ChatResponse is the model's reply.
type ChatResponse struct {
	Content string
}

// ChatModel is a chat-completion backend.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	ListModels(ctx context.Context) ([]string, error)
}

// Printer produces the paper transcript.
type Printer interface {
	PrintReady(characters []domain.Character, models []string) error
	PrintChatHeader(character domain.Character) error
	PrintUserMessage(text string) error
	PrintCharacterMessage(character domain.Character, text string) error
	PrintChatFooter() error
}

// ConversationStore archives finished conversations. Records are written once.
type ConversationStore interface {
	// Save archives the record under c.Key().
	// Returns domain.ErrConversationExists if the key is already archived.
	Save(ctx context.Context, c *domain.Conversation) error

	// Load retrieves a record by key.
	// Returns domain.ErrConversationNotFound if the key does not exist.
	Load(ctx context.Context, key string) (*domain.Conversation, error)

	// List returns every archived key.
	List(ctx context.Context) ([]string, error)
}

// Renderer draws screens on the controller display.
type Renderer interface {
	DrawSplash() error
	Draw(screen icd.Screen) error
}
