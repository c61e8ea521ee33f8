package terminal_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/llmvn/pkg/adapters/terminal"
	"github.com/aretw0/llmvn/pkg/buttons"
	"github.com/aretw0/llmvn/pkg/icd"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer() (*terminal.Renderer, *bytes.Buffer) {
	var buf bytes.Buffer
	return terminal.NewRenderer(&buf, terminal.WithProfile(termenv.Ascii)), &buf
}

func assertRawSafe(t *testing.T, out string) {
	t.Helper()
	assert.Equal(t, strings.Count(out, "\n"), strings.Count(out, "\r\n"), "every newline carries a carriage return")
}

func TestRenderer_Splash(t *testing.T) {
	r, buf := newRenderer()
	require.NoError(t, r.DrawSplash())

	out := buf.String()
	assert.Contains(t, out, icd.ProductName)
	assertRawSafe(t, out)
}

func TestRenderer_CharacterSelect(t *testing.T) {
	r, buf := newRenderer()
	screen := icd.NewCharacterSelect(icd.CharacterSelectScreen{
		Characters: [3]icd.CharacterDetails{
			{Name: "Curie", TextColour: icd.RGB(255, 255, 255)},
			{Name: "Ada", Description: "Mathematician.", TextColour: icd.RGB(255, 255, 255)},
			{Name: "Brunel", TextColour: icd.RGB(255, 255, 255)},
		},
	})
	require.NoError(t, r.Draw(screen))

	out := buf.String()
	assert.Contains(t, out, "Select Character")
	assert.Contains(t, out, "Mathematician.")
	curie := strings.Index(out, "Curie")
	ada := strings.Index(out, "Ada")
	brunel := strings.Index(out, "Brunel")
	require.True(t, curie >= 0 && ada >= 0 && brunel >= 0)
	assert.Less(t, curie, ada, "previous character is drawn above the selection")
	assert.Less(t, ada, brunel, "next character is drawn below the selection")
	assertRawSafe(t, out)
}

func TestRenderer_Choices(t *testing.T) {
	r, buf := newRenderer()
	screen := icd.NewChoices(icd.ChoiceScreen{
		Choices: [3]string{"Hello", "Who are you?", "Goodbye"},
	})
	require.NoError(t, r.Draw(screen))

	out := buf.String()
	assert.Contains(t, out, "[1] Hello")
	assert.Contains(t, out, "[2] Who are you?")
	assert.Contains(t, out, "[3] Goodbye")
	assertRawSafe(t, out)
}

func TestRenderer_RejectsUnknownKind(t *testing.T) {
	r, _ := newRenderer()
	err := r.Draw(icd.Screen{Kind: "bogus"})
	assert.ErrorIs(t, err, icd.ErrInvalidScreen)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newKeyboard() (*terminal.Keyboard, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 10, 25, 21, 0, 0, 0, time.UTC)}
	kb := terminal.NewKeyboard(
		terminal.WithHold(100*time.Millisecond),
		terminal.WithKeyboardClock(clock.Now),
	)
	return kb, clock
}

func TestKeyboard_HoldWindow(t *testing.T) {
	kb, clock := newKeyboard()
	assert.Equal(t, buttons.Released, kb.Read())

	kb.Press(buttons.LineFn2)
	assert.Equal(t, buttons.Pressed(buttons.LineFn2), kb.Read())

	clock.Advance(50 * time.Millisecond)
	assert.Equal(t, buttons.Pressed(buttons.LineFn2), kb.Read())

	clock.Advance(50 * time.Millisecond)
	assert.Equal(t, buttons.Released, kb.Read())
}

func TestKeyboard_ListenMapsKeys(t *testing.T) {
	kb, _ := newKeyboard()

	err := kb.Listen(context.Background(), strings.NewReader("1x3"))
	require.NoError(t, err)

	action, ok := buttons.Decode(kb.Read())
	require.True(t, ok)
	assert.Equal(t, icd.Fn3, action)
}

func TestKeyboard_ListenEndKey(t *testing.T) {
	kb, _ := newKeyboard()
	require.NoError(t, kb.Listen(context.Background(), strings.NewReader("e")))

	action, ok := buttons.Decode(kb.Read())
	require.True(t, ok)
	assert.Equal(t, icd.EndConversation, action)
}

func TestKeyboard_ListenInterrupt(t *testing.T) {
	kb, _ := newKeyboard()

	err := kb.Listen(context.Background(), strings.NewReader("2\x033"))
	assert.ErrorIs(t, err, terminal.ErrInterrupted)
	assert.Equal(t, buttons.Pressed(buttons.LineFn2), kb.Read())
}

func TestKeyboard_ListenCancel(t *testing.T) {
	kb, _ := newKeyboard()
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- kb.Listen(ctx, pr) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after cancel")
	}

	// The parked reader takes one more byte, then exits without pressing.
	written := make(chan struct{})
	go func() {
		_, _ = pw.Write([]byte("1"))
		close(written)
	}()
	select {
	case <-written:
	case <-time.After(time.Second):
		t.Fatal("reader goroutine did not consume the byte after cancel")
	}
	assert.Equal(t, buttons.Released, kb.Read())
}
