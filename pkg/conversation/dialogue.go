// Package conversation drives one chat between the visitor and a character model.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/llmvn/internal/logging"
	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/ports"
	"github.com/google/uuid"
)

// Dialogue accumulates the model history and transcript of one conversation.
type Dialogue struct {
	model  ports.ChatModel
	record *domain.Conversation
	logger *slog.Logger
}

// Option configures a Dialogue.
type Option func(*Dialogue)

// WithLogger sets the dialogue logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dialogue) {
		d.logger = logger
	}
}

// New starts a conversation with character at startedAt.
func New(model ports.ChatModel, character domain.Character, startedAt time.Time, opts ...Option) *Dialogue {
	d := &Dialogue{
		model:  model,
		record: domain.NewConversation(uuid.NewString(), character, startedAt),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Record returns the conversation record built so far.
func (d *Dialogue) Record() *domain.Conversation {
	return d.record
}

// Interact sends the visitor's chosen reply and returns the character's sanitized answer.
// The history only grows when the model answers; the transcript always records the visitor.
func (d *Dialogue) Interact(ctx context.Context, userText string) (domain.Output, error) {
	d.record.AddTranscript(domain.SpeakerUser, userText)

	messages := append(slices.Clone(d.record.History), domain.Message{Role: domain.RoleUser, Content: userText})
	d.logger.Info("sending user message", "character", d.record.Character.Name, "text", userText)

	resp, err := d.model.Chat(ctx, ports.ChatRequest{
		Model:    d.record.Character.ModelName,
		Messages: messages,
		Schema:   OutputSchema,
	})
	if err != nil {
		return domain.Output{}, fmt.Errorf("failed to chat with %s: %w", d.record.Character.ModelName, err)
	}
	d.record.History = append(messages, domain.Message{Role: domain.RoleAssistant, Content: resp.Content})

	out, err := ParseOutput(resp.Content)
	if err != nil {
		return domain.Output{}, err
	}
	d.logger.Debug("original model output", "output", out)

	out = SanitizeOutput(out)
	d.logger.Info("character replied", "character", d.record.Character.Name, "response", out.Response, "replies", out.Replies)

	d.record.AddTranscript(domain.SpeakerCharacter, out.Response)
	return out, nil
}
