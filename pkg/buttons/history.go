package buttons

import "time"

// HistoryCapacity is the number of readings kept by the sampler.
const HistoryCapacity = 4

// Reading is a timestamped sample.
type Reading struct {
	At     time.Time
	Sample InputSample
}

// History is a fixed-capacity ring of readings; pushing past capacity evicts the oldest.
type History struct {
	buf  [HistoryCapacity]Reading
	next int
	n    int
}

// Push records a reading.
func (h *History) Push(r Reading) {
	h.buf[h.next] = r
	h.next = (h.next + 1) % HistoryCapacity
	if h.n < HistoryCapacity {
		h.n++
	}
}

// Len returns the number of readings held.
func (h *History) Len() int { return h.n }

// Recent returns the newest reading.
func (h *History) Recent() (Reading, bool) {
	if h.n == 0 {
		return Reading{}, false
	}
	return h.buf[(h.next+HistoryCapacity-1)%HistoryCapacity], true
}

// Readings returns the held readings, oldest first.
func (h *History) Readings() []Reading {
	out := make([]Reading, 0, h.n)
	start := (h.next + HistoryCapacity - h.n) % HistoryCapacity
	for i := 0; i < h.n; i++ {
		out = append(out, h.buf[(start+i)%HistoryCapacity])
	}
	return out
}
