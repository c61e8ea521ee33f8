package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aretw0/llmvn/internal/logging"
	"github.com/aretw0/llmvn/pkg/character"
	"github.com/aretw0/llmvn/pkg/conversation"
	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/icd"
	"github.com/aretw0/llmvn/pkg/ports"
)

// DefaultReplyTimeout ends a conversation when no reply is picked in time.
const DefaultReplyTimeout = 60 * time.Second

// Hooks observe the session. Nil hooks are skipped.
type Hooks struct {
	OnScreen          func(kind icd.ScreenKind)
	OnButton          func(action icd.ButtonAction)
	OnModelReply      func(elapsed time.Duration, err error)
	OnConversationEnd func(record *domain.Conversation)
	OnCollaboratorErr func(collaborator string, err error)
}

// Machine runs select-then-converse sessions against the controller.
type Machine struct {
	controller ports.Controller
	characters *character.Collection
	model      ports.ChatModel
	printer    ports.Printer
	store      ports.ConversationStore

	replyTimeout time.Duration
	rng          *rand.Rand
	now          func() time.Time
	logger       *slog.Logger
	hooks        Hooks
}

// Option configures a Machine.
type Option func(*Machine)

// WithReplyTimeout bounds each wait for a reply.
func WithReplyTimeout(d time.Duration) Option {
	return func(m *Machine) {
		m.replyTimeout = d
	}
}

// WithRand sets the source used to draw opening lines.
func WithRand(rng *rand.Rand) Option {
	return func(m *Machine) {
		m.rng = rng
	}
}

// WithClock overrides time.Now for conversation start times.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithHooks sets the observation hooks.
func WithHooks(hooks Hooks) Option {
	return func(m *Machine) {
		m.hooks = hooks
	}
}

// New creates a session machine.
func New(
	controller ports.Controller,
	characters *character.Collection,
	model ports.ChatModel,
	printer ports.Printer,
	store ports.ConversationStore,
	opts ...Option,
) *Machine {
	m := &Machine{
		controller:   controller,
		characters:   characters,
		model:        model,
		printer:      printer,
		store:        store,
		replyTimeout: DefaultReplyTimeout,
		rng:          rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:          time.Now,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run repeats sessions until ctx ends or the controller fails.
func (m *Machine) Run(ctx context.Context) error {
	for {
		if err := m.RunOnce(ctx); err != nil {
			return err
		}
	}
}

// RunOnce selects a character, converses and archives the result.
func (m *Machine) RunOnce(ctx context.Context) error {
	_, ch, err := m.SelectCharacter(ctx)
	if err != nil {
		return err
	}

	record, err := m.Converse(ctx, ch)
	if err != nil {
		return err
	}
	m.logger.Info("conversation ended",
		"character", record.Character.Name,
		"reason", record.EndReason,
		"turns", record.Turns(),
	)
	if m.hooks.OnConversationEnd != nil {
		m.hooks.OnConversationEnd(record)
	}

	if err := m.store.Save(ctx, record); err != nil {
		m.collaboratorFailed("archive", fmt.Errorf("failed to save conversation %q: %w", record.Key(), err))
	} else {
		m.logger.Info("conversation saved", "key", record.Key())
	}
	return nil
}

// SelectCharacter runs the carousel from index 0 until Fn2 confirms a character.
func (m *Machine) SelectCharacter(ctx context.Context) (int, domain.Character, error) {
	n := m.characters.Len()
	i := 0

	for {
		m.logger.Debug("browsing characters", "index", i)
		if err := m.show(ctx, m.characters.SelectScreen(i)); err != nil {
			return 0, domain.Character{}, err
		}

		action, err := m.controller.WaitForButton(ctx)
		if err != nil {
			return 0, domain.Character{}, fmt.Errorf("failed to wait for button: %w", err)
		}
		m.pressed(action)

		switch action {
		case icd.Fn1:
			i = character.Prev(i, n)
		case icd.Fn3:
			i = character.Next(i, n)
		case icd.Fn2:
			ch := m.characters.At(i)
			m.logger.Info("character selected", "index", i, "name", ch.Name)
			return i, ch, nil
		case icd.EndConversation:
		}
	}
}

// Converse runs one conversation with ch and returns its record.
// Only controller failures are returned as errors; every other failure ends the chat.
func (m *Machine) Converse(ctx context.Context, ch domain.Character) (*domain.Conversation, error) {
	dialogue := conversation.New(m.model, ch, m.now(), conversation.WithLogger(m.logger))
	record := dialogue.Record()

	if err := m.printer.PrintChatHeader(ch); err != nil {
		m.collaboratorFailed("printer", err)
	}

	out := character.StartingPhrases(ch, m.rng)
	for record.EndReason == "" {
		if err := m.show(ctx, icd.NewChoices(ch.ChoiceScreen(out))); err != nil {
			return record, err
		}

		action, timedOut, err := m.awaitReply(ctx)
		if err != nil {
			return record, err
		}
		if timedOut {
			record.EndReason = domain.EndTimeout
			break
		}

		idx, ok := action.ChoiceIndex()
		if !ok {
			record.EndReason = domain.EndPressed
			break
		}

		text := out.Replies[idx]
		if err := m.printer.PrintUserMessage(text); err != nil {
			m.collaboratorFailed("printer", err)
		}

		start := time.Now()
		out, err = dialogue.Interact(ctx, text)
		if m.hooks.OnModelReply != nil {
			m.hooks.OnModelReply(time.Since(start), err)
		}
		if err != nil {
			if ctx.Err() != nil {
				return record, ctx.Err()
			}
			m.logger.Error("model did not answer, ending conversation", "character", ch.Name, "err", err)
			record.EndReason = domain.EndLLMError
			break
		}

		if err := m.printer.PrintCharacterMessage(ch, out.Response); err != nil {
			m.collaboratorFailed("printer", err)
		}

		if out.IsEndOfConversation() {
			m.logger.Info("model offered fewer than three replies, ending conversation", "replies", out.Replies)
			record.EndReason = domain.EndImplicit
		}
	}

	if err := m.printer.PrintChatFooter(); err != nil {
		m.collaboratorFailed("printer", err)
	}
	return record, nil
}

// awaitReply waits for a button within the reply timeout.
// Running out of time is reported as timedOut, not as an error.
func (m *Machine) awaitReply(ctx context.Context) (action icd.ButtonAction, timedOut bool, err error) {
	waitCtx, cancel := context.WithTimeout(ctx, m.replyTimeout)
	defer cancel()

	action, err = m.controller.WaitForButton(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			m.logger.Info("no reply picked in time, ending conversation", "timeout", m.replyTimeout)
			return 0, true, nil
		}
		return 0, false, fmt.Errorf("failed to wait for button: %w", err)
	}
	m.pressed(action)
	return action, false, nil
}

func (m *Machine) show(ctx context.Context, screen icd.Screen) error {
	if err := m.controller.ShowScreen(ctx, screen); err != nil {
		return err
	}
	if m.hooks.OnScreen != nil {
		m.hooks.OnScreen(screen.Kind)
	}
	return nil
}

func (m *Machine) pressed(action icd.ButtonAction) {
	m.logger.Debug("button pressed", "action", action)
	if m.hooks.OnButton != nil {
		m.hooks.OnButton(action)
	}
}

func (m *Machine) collaboratorFailed(collaborator string, err error) {
	m.logger.Warn("collaborator failed", "collaborator", collaborator, "err", err)
	if m.hooks.OnCollaboratorErr != nil {
		m.hooks.OnCollaboratorErr(collaborator, err)
	}
}
