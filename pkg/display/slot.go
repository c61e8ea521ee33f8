// Package display holds the controller's current screen and drives the renderer from it.
package display

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/llmvn/pkg/icd"
)

// ErrReaderTaken is returned when a second reader is requested from a Slot.
var ErrReaderTaken = errors.New("display: reader already registered")

// Writer replaces the current screen.
type Writer interface {
	Write(screen icd.Screen)
}

// Slot is a single-value latest-wins cell. Writes never block; a reader that
// falls behind only ever observes the newest screen.
type Slot struct {
	mu      sync.Mutex
	screen  icd.Screen
	version uint64
	signal  chan struct{}
	taken   bool
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	return &Slot{signal: make(chan struct{})}
}

// Write stores screen and wakes the reader.
func (s *Slot) Write(screen icd.Screen) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen = screen
	s.version++
	close(s.signal)
	s.signal = make(chan struct{})
}

// Latest returns the stored screen, if any was ever written.
func (s *Slot) Latest() (icd.Screen, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen, s.version > 0
}

// Reader returns the only reader of the slot.
func (s *Slot) Reader() (*Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken {
		return nil, ErrReaderTaken
	}
	s.taken = true
	return &Reader{slot: s}, nil
}

// Reader observes changes to a Slot.
type Reader struct {
	slot *Slot
	seen uint64
}

// Changed waits until a screen newer than the last one observed is written.
func (r *Reader) Changed(ctx context.Context) (icd.Screen, error) {
	for {
		r.slot.mu.Lock()
		if r.slot.version != r.seen {
			r.seen = r.slot.version
			screen := r.slot.screen
			r.slot.mu.Unlock()
			return screen, nil
		}
		signal := r.slot.signal
		r.slot.mu.Unlock()

		select {
		case <-ctx.Done():
			return icd.Screen{}, ctx.Err()
		case <-signal:
		}
	}
}
