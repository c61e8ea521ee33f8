package session_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/aretw0/llmvn/pkg/adapters/memory"
	"github.com/aretw0/llmvn/pkg/character"
	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/icd"
	"github.com/aretw0/llmvn/pkg/ports/tests"
	"github.com/aretw0/llmvn/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var openingLines = []string{"Hello.", "Who are you?", "Nice weather."}

func roster(names ...string) *character.Collection {
	c := &character.Collection{}
	for _, name := range names {
		c.Characters = append(c.Characters, domain.Character{
			Name:         name,
			ModelName:    "vn-" + name,
			OpeningLines: openingLines,
		})
	}
	return c
}

type fixture struct {
	controller *tests.Controller
	model      *tests.Model
	printer    *tests.Printer
	store      *memory.Store
	machine    *session.Machine
}

func newFixture(model *tests.Model, opts ...session.Option) *fixture {
	f := &fixture{
		controller: tests.NewController(),
		model:      model,
		printer:    &tests.Printer{},
		store:      memory.NewStore(),
	}
	opts = append([]session.Option{
		session.WithRand(rand.New(rand.NewPCG(7, 7))),
		session.WithClock(func() time.Time { return time.Date(2025, 10, 25, 21, 0, 0, 0, time.UTC) }),
	}, opts...)
	f.machine = session.New(f.controller, roster("Ada", "Brunel", "Curie", "Darwin"), f.model, f.printer, f.store, opts...)
	return f
}

func centre(s icd.Screen) string {
	return s.CharacterSelect.Characters[1].Name
}

func TestSelectCharacter_Carousel(t *testing.T) {
	f := newFixture(tests.NewModel())
	f.controller.Press(icd.Fn3, icd.Fn3, icd.EndConversation, icd.Fn2)

	idx, ch, err := f.machine.SelectCharacter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Equal(t, "Curie", ch.Name)

	screens := f.controller.Screens()
	require.Len(t, screens, 4)
	assert.Equal(t, "Ada", centre(screens[0]))
	assert.Equal(t, "Darwin", screens[0].CharacterSelect.Characters[0].Name)
	assert.Equal(t, "Brunel", centre(screens[1]))
	assert.Equal(t, "Curie", centre(screens[2]))
	// End is ignored while browsing; the same card is shown again.
	assert.Equal(t, "Curie", centre(screens[3]))
}

func TestSelectCharacter_WrapsBackwards(t *testing.T) {
	f := newFixture(tests.NewModel())
	f.controller.Press(icd.Fn1, icd.Fn2)

	idx, ch, err := f.machine.SelectCharacter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
	assert.Equal(t, "Darwin", ch.Name)
}

func TestSelectCharacter_WrapsForwardFromTwo(t *testing.T) {
	f := newFixture(tests.NewModel())
	// Reach index 2, then three more Fn3 presses visit 3, 0 and 1; the fourth is back at 2.
	f.controller.Press(icd.Fn3, icd.Fn3, icd.Fn3, icd.Fn3, icd.Fn3, icd.Fn3, icd.Fn2)

	idx, _, err := f.machine.SelectCharacter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	var visited []string
	for _, s := range f.controller.Screens()[2:] {
		visited = append(visited, centre(s))
	}
	assert.Equal(t, []string{"Curie", "Darwin", "Ada", "Brunel", "Curie"}, visited)
}

func TestConverse_ImplicitEnd(t *testing.T) {
	model := tests.NewModel(
		domain.Output{Response: "Greetings", Replies: [3]string{"a", "b", "c"}},
		domain.Output{Response: "Farewell", Replies: [3]string{"d", "", "f"}},
	)
	f := newFixture(model)
	f.controller.Press(icd.Fn1, icd.Fn2)
	ada := roster("Ada").At(0)

	record, err := f.machine.Converse(context.Background(), ada)
	require.NoError(t, err)
	assert.Equal(t, domain.EndImplicit, record.EndReason)

	// The second choice screen is never sent after the implicit end.
	screens := f.controller.Screens()
	require.Len(t, screens, 2)
	assert.ElementsMatch(t, openingLines, screens[0].Choices.Choices[:])
	assert.Equal(t, [3]string{"a", "b", "c"}, screens[1].Choices.Choices)
	assert.Equal(t, 2, f.controller.Waits())

	lines := f.printer.Lines()
	require.Len(t, lines, 6)
	assert.Equal(t, "header Ada", lines[0])
	assert.Contains(t, []string{"user Hello.", "user Who are you?", "user Nice weather."}, lines[1])
	assert.Equal(t, "Ada Greetings", lines[2])
	assert.Equal(t, "user b", lines[3])
	assert.Equal(t, "Ada Farewell", lines[4])
	assert.Equal(t, "footer", lines[5])

	assert.Equal(t, 2, record.Turns())
	assert.Len(t, record.History, 4)
}

func TestConverse_TimeoutEndsLikeEndButton(t *testing.T) {
	ada := roster("Ada").At(0)

	timedOut := newFixture(tests.NewModel(), session.WithReplyTimeout(20*time.Millisecond))
	rec1, err := timedOut.machine.Converse(context.Background(), ada)
	require.NoError(t, err)
	assert.Equal(t, domain.EndTimeout, rec1.EndReason)

	pressed := newFixture(tests.NewModel())
	pressed.controller.Press(icd.EndConversation)
	rec2, err := pressed.machine.Converse(context.Background(), ada)
	require.NoError(t, err)
	assert.Equal(t, domain.EndPressed, rec2.EndReason)

	assert.Equal(t, []string{"header Ada", "footer"}, timedOut.printer.Lines())
	assert.Equal(t, timedOut.printer.Lines(), pressed.printer.Lines())
	assert.Empty(t, rec1.Transcript)
	assert.Empty(t, rec2.Transcript)
	assert.Empty(t, timedOut.model.Requests())
}

func TestConverse_ModelFailureEndsConversation(t *testing.T) {
	model := tests.NewModel()
	model.Err = errors.New("model server unreachable")
	f := newFixture(model)
	f.controller.Press(icd.Fn3)

	record, err := f.machine.Converse(context.Background(), roster("Ada").At(0))
	require.NoError(t, err)
	assert.Equal(t, domain.EndLLMError, record.EndReason)
	assert.Equal(t, "footer", f.printer.Lines()[len(f.printer.Lines())-1])
}

func TestConverse_PrinterFailuresAreNotFatal(t *testing.T) {
	model := tests.NewModel(domain.Output{Response: "Bye", Replies: [3]string{"", "", ""}})
	f := newFixture(model)
	f.printer.Err = errors.New("out of paper")
	var failures []string
	f.machine = session.New(f.controller, roster("Ada", "Brunel", "Curie"), f.model, f.printer, f.store,
		session.WithHooks(session.Hooks{
			OnCollaboratorErr: func(name string, err error) { failures = append(failures, name) },
		}),
	)
	f.controller.Press(icd.Fn1)

	record, err := f.machine.Converse(context.Background(), roster("Ada").At(0))
	require.NoError(t, err)
	assert.Equal(t, domain.EndImplicit, record.EndReason)
	assert.Equal(t, []string{"printer", "printer", "printer", "printer"}, failures)
}

func TestConverse_ControllerFailureIsFatal(t *testing.T) {
	f := newFixture(tests.NewModel())
	f.controller.ShowErr = errors.New("link lost")

	_, err := f.machine.Converse(context.Background(), roster("Ada").At(0))
	assert.Error(t, err)
}

func TestRunOnce_ArchivesConversation(t *testing.T) {
	f := newFixture(tests.NewModel())
	f.controller.Press(icd.Fn3, icd.Fn2, icd.EndConversation)

	require.NoError(t, f.machine.RunOnce(context.Background()))

	keys, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"2025-10-25T21:00:00Z - Brunel"}, keys)

	saved, err := f.store.Load(context.Background(), keys[0])
	require.NoError(t, err)
	assert.Equal(t, "Brunel", saved.Character.Name)
	assert.Equal(t, domain.EndPressed, saved.EndReason)
}

func TestRunOnce_ArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture(tests.NewModel())
	f.controller.Press(icd.Fn2, icd.EndConversation, icd.Fn2, icd.EndConversation)
	ctx := context.Background()

	// The clock is fixed, so the second record collides with the first.
	require.NoError(t, f.machine.RunOnce(ctx))
	require.NoError(t, f.machine.RunOnce(ctx))

	keys, err := f.store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(tests.NewModel())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.machine.Run(ctx) }()

	require.Eventually(t, func() bool { return f.controller.Waits() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

// MockPrinter records print calls for ordering checks.
type MockPrinter struct {
	mock.Mock
}

func (m *MockPrinter) PrintReady(characters []domain.Character, models []string) error {
	return m.Called(characters, models).Error(0)
}

func (m *MockPrinter) PrintChatHeader(character domain.Character) error {
	return m.Called(character.Name).Error(0)
}

func (m *MockPrinter) PrintUserMessage(text string) error {
	return m.Called(text).Error(0)
}

func (m *MockPrinter) PrintCharacterMessage(character domain.Character, text string) error {
	return m.Called(character.Name, text).Error(0)
}

func (m *MockPrinter) PrintChatFooter() error {
	return m.Called().Error(0)
}

func TestConverse_PrintOrder(t *testing.T) {
	model := tests.NewModel(
		domain.Output{Response: "Hi there", Replies: [3]string{"x", "y", "z"}},
	)
	printer := new(MockPrinter)
	mock.InOrder(
		printer.On("PrintChatHeader", "Ada").Return(nil).Once(),
		printer.On("PrintUserMessage", mock.AnythingOfType("string")).Return(nil).Once(),
		printer.On("PrintCharacterMessage", "Ada", "Hi there").Return(nil).Once(),
		printer.On("PrintChatFooter").Return(errors.New("paper jam")).Once(),
	)

	controller := tests.NewController()
	controller.Press(icd.Fn2, icd.EndConversation)
	m := session.New(controller, roster("Ada", "Brunel", "Curie"), model, printer, memory.NewStore(),
		session.WithRand(rand.New(rand.NewPCG(1, 2))),
	)

	record, err := m.Converse(context.Background(), roster("Ada").At(0))
	require.NoError(t, err)
	assert.Equal(t, domain.EndPressed, record.EndReason)
	printer.AssertExpectations(t)
	printer.AssertNotCalled(t, "PrintReady", mock.Anything, mock.Anything)
}
