package escpos

const (
	esc = 0x1b
	gs  = 0x1d
)

type justification byte

const (
	justifyLeft   justification = 0
	justifyCenter justification = 1
	justifyRight  justification = 2
)

// ESC @
func (s *slip) init() {
	s.buf.Write([]byte{esc, '@'})
}

// ESC a n
func (s *slip) justify(j justification) {
	s.buf.Write([]byte{esc, 'a', byte(j)})
}

// ESC E n
func (s *slip) bold(on bool) {
	s.buf.Write([]byte{esc, 'E', flag(on)})
}

// ESC - n, single weight only.
func (s *slip) underline(on bool) {
	s.buf.Write([]byte{esc, '-', flag(on)})
}

// GS ! n. Width and height are multipliers from 1 to 8.
func (s *slip) size(width, height int) {
	w := byte(clamp(width, 1, 8) - 1)
	h := byte(clamp(height, 1, 8) - 1)
	s.buf.Write([]byte{gs, '!', w<<4 | h})
}

// GS V 65 n feeds n lines then performs a partial cut.
func (s *slip) cut() {
	s.buf.Write([]byte{gs, 'V', 0x41, 3})
}

func flag(on bool) byte {
	if on {
		return 1
	}
	return 0
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
