// Package openai talks to any OpenAI-compatible chat server, such as Ollama's /v1 API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/aretw0/llmvn/pkg/ports"
	"github.com/sashabaranov/go-openai"
)

// DefaultBaseURL points at a local Ollama server.
const DefaultBaseURL = "http://localhost:11434/v1"

// ErrNoChoices is returned when the server answers without a completion.
var ErrNoChoices = errors.New("model returned no choices")

// Client implements ports.ChatModel.
type Client struct {
	client *openai.Client
}

var _ ports.ChatModel = (*Client)(nil)

// Option configures a Client.
type Option func(*openai.ClientConfig)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *openai.ClientConfig) {
		cfg.HTTPClient = c
	}
}

// New creates a client for baseURL. Ollama ignores the API key but the header must be set.
func New(apiKey, baseURL string, opts ...Option) *Client {
	if apiKey == "" {
		apiKey = "ollama"
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	} else {
		config.BaseURL = DefaultBaseURL
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Client{client: openai.NewClientWithConfig(config)}
}

// Chat sends the conversation. A schema on req asks for JSON output matching it.
func (c *Client) Chat(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	ccr := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: oaMsgs,
	}
	if len(req.Schema) > 0 {
		ccr.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "vn_output",
				Schema: req.Schema,
				Strict: true,
			},
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, ccr)
	if err != nil {
		return ports.ChatResponse{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ports.ChatResponse{}, ErrNoChoices
	}

	return ports.ChatResponse{Content: resp.Choices[0].Message.Content}, nil
}

// ListModels returns the IDs of the models the server has available, sorted.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	slices.Sort(names)
	return names, nil
}
