package terminal

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/aretw0/llmvn/pkg/buttons"
	"golang.org/x/term"
)

// DefaultHold is how long a key press keeps its line low.
// It must span at least one sample interval or the press is missed.
const DefaultHold = 150 * time.Millisecond

// ErrInterrupted is returned by Listen when Ctrl-C or q is typed.
var ErrInterrupted = errors.New("keyboard interrupt")

// Keys maps typed bytes to button lines.
var Keys = map[byte]buttons.Line{
	'1': buttons.LineFn1,
	'2': buttons.LineFn2,
	'3': buttons.LineFn3,
	'e': buttons.LineEnd,
	'E': buttons.LineEnd,
	'0': buttons.LineEnd,
}

// Keyboard implements buttons.Pins from key presses. A key holds its line
// low for the hold window, then the line reads released again.
type Keyboard struct {
	mu    sync.Mutex
	line  buttons.Line
	until time.Time
	hold  time.Duration
	now   func() time.Time
}

var _ buttons.Pins = (*Keyboard)(nil)

// KeyboardOption configures a Keyboard.
type KeyboardOption func(*Keyboard)

// WithHold sets the hold window.
func WithHold(d time.Duration) KeyboardOption {
	return func(k *Keyboard) {
		if d > 0 {
			k.hold = d
		}
	}
}

// WithKeyboardClock sets the time source.
func WithKeyboardClock(now func() time.Time) KeyboardOption {
	return func(k *Keyboard) {
		k.now = now
	}
}

// NewKeyboard creates a keyboard with every line released.
func NewKeyboard(opts ...KeyboardOption) *Keyboard {
	k := &Keyboard{hold: DefaultHold, now: time.Now}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Press holds line low for the hold window, replacing any key still held.
func (k *Keyboard) Press(line buttons.Line) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.line = line
	k.until = k.now().Add(k.hold)
}

// Read returns the current line levels.
func (k *Keyboard) Read() buttons.InputSample {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.now().Before(k.until) {
		return buttons.Pressed(k.line)
	}
	return buttons.Released
}

// Listen feeds key presses from r until ctx ends, r is exhausted, or an
// interrupt key is typed. Unmapped keys are ignored.
//
// r is never closed. After ctx ends the reading goroutine stays parked in
// ReadByte until r yields one more byte or an error, then exits without
// pressing anything. For stdin that means living until process exit, which
// keeps the descriptor open for restoring the terminal state.
func (k *Keyboard) Listen(ctx context.Context, r io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	keys := make(chan byte)
	errs := make(chan error, 1)

	go func() {
		br := bufio.NewReader(r)
		for {
			b, err := br.ReadByte()
			if err != nil {
				errs <- err
				return
			}
			select {
			case keys <- b:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case b := <-keys:
			if b == 0x03 || b == 'q' {
				return ErrInterrupted
			}
			if line, ok := Keys[b]; ok {
				k.Press(line)
			}
		}
	}
}

// MakeRaw puts f into raw mode when it is a terminal so single key presses
// arrive without Enter. The returned function restores the previous state.
func MakeRaw(f *os.File) (restore func() error, err error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return func() error { return nil }, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() error { return term.Restore(fd, state) }, nil
}
