// Package tests provides in-memory doubles of the kiosk ports for use in tests.
package tests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/icd"
	"github.com/aretw0/llmvn/pkg/ports"
)

// Controller is a ports.Controller fed by Press and recording every screen shown.
type Controller struct {
	mu      sync.Mutex
	screens []icd.Screen
	presses chan icd.ButtonAction
	waits   int

	// ShowErr, when set, is returned by ShowScreen.
	ShowErr error
}

var _ ports.Controller = (*Controller)(nil)

// NewController creates a controller double with room for queued presses.
func NewController() *Controller {
	return &Controller{presses: make(chan icd.ButtonAction, 64)}
}

// Press queues actions for subsequent WaitForButton calls.
func (c *Controller) Press(actions ...icd.ButtonAction) {
	for _, a := range actions {
		c.presses <- a
	}
}

func (c *Controller) ShowScreen(ctx context.Context, screen icd.Screen) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ShowErr != nil {
		return c.ShowErr
	}
	c.screens = append(c.screens, screen)
	return nil
}

func (c *Controller) WaitForButton(ctx context.Context) (icd.ButtonAction, error) {
	c.mu.Lock()
	c.waits++
	c.mu.Unlock()

	select {
	case a := <-c.presses:
		return a, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Screens returns every screen shown so far.
func (c *Controller) Screens() []icd.Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]icd.Screen(nil), c.screens...)
}

// LastScreen returns the most recent screen.
func (c *Controller) LastScreen() icd.Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.screens) == 0 {
		return icd.Screen{}
	}
	return c.screens[len(c.screens)-1]
}

// Waits counts WaitForButton calls.
func (c *Controller) Waits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waits
}

// ErrScriptExhausted is returned by Model when it has no more scripted turns.
var ErrScriptExhausted = errors.New("scripted model has no more turns")

// Model is a ports.ChatModel answering from a script of outputs.
type Model struct {
	mu       sync.Mutex
	script   []string
	requests []ports.ChatRequest

	// Models is returned by ListModels.
	Models []string
	// Err, when set, is returned by Chat.
	Err error
}

var _ ports.ChatModel = (*Model)(nil)

// NewModel scripts a model that answers each Chat call with the next output in order.
func NewModel(outputs ...domain.Output) *Model {
	m := &Model{Models: []string{"scripted"}}
	for _, out := range outputs {
		m.script = append(m.script, EncodeOutput(out))
	}
	return m
}

// NewRawModel scripts raw reply contents, for malformed output cases.
func NewRawModel(contents ...string) *Model {
	return &Model{Models: []string{"scripted"}, script: contents}
}

// EncodeOutput renders out the way a schema-constrained model would.
func EncodeOutput(out domain.Output) string {
	data, _ := json.Marshal(map[string]string{
		"response":     out.Response,
		"user_reply_1": out.Replies[0],
		"user_reply_2": out.Replies[1],
		"user_reply_3": out.Replies[2],
	})
	return string(data)
}

func (m *Model) Chat(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.Err != nil {
		return ports.ChatResponse{}, m.Err
	}
	if len(m.script) == 0 {
		return ports.ChatResponse{}, ErrScriptExhausted
	}
	content := m.script[0]
	m.script = m.script[1:]
	return ports.ChatResponse{Content: content}, nil
}

func (m *Model) ListModels(ctx context.Context) ([]string, error) {
	return m.Models, nil
}

// Requests returns every Chat request received.
func (m *Model) Requests() []ports.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.ChatRequest(nil), m.requests...)
}

// Printer is a ports.Printer recording each call as a short line.
type Printer struct {
	mu    sync.Mutex
	lines []string

	// Err, when set, is returned by every call after recording it.
	Err error
}

var _ ports.Printer = (*Printer)(nil)

func (p *Printer) record(format string, args ...any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, fmt.Sprintf(format, args...))
	return p.Err
}

func (p *Printer) PrintReady(characters []domain.Character, models []string) error {
	return p.record("ready %d characters %d models", len(characters), len(models))
}

func (p *Printer) PrintChatHeader(character domain.Character) error {
	return p.record("header %s", character.Name)
}

func (p *Printer) PrintUserMessage(text string) error {
	return p.record("user %s", text)
}

func (p *Printer) PrintCharacterMessage(character domain.Character, text string) error {
	return p.record("%s %s", character.Name, text)
}

func (p *Printer) PrintChatFooter() error {
	return p.record("footer")
}

// Lines returns the recorded calls.
func (p *Printer) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}
