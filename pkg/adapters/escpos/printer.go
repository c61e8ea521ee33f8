// Package escpos prints conversation transcripts on an ESC/POS receipt printer.
//
// Each slip is built in memory and handed to the device in a single write, so a
// failed print never leaves half a command sequence on the wire.
package escpos

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/llmvn/internal/logging"
	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/ports"
)

// DefaultCharsPerLine matches 80 mm paper with font A.
const DefaultCharsPerLine = 42

// Disclaimer is printed at the foot of every transcript.
const Disclaimer = "This chat was with a large language model. It may not accurately represent reality or the views of individuals. Do not blindly believe everything it has told you."

// FooterLinks are printed underlined below the disclaimer.
var FooterLinks = []string{
	"thelateshows.org.uk",
	"makerspace.org.uk",
	"github.com/DanNixon/llm-vn-lateshows25",
}

const (
	userFeedLines      = 1
	characterFeedLines = 6
)

// Printer implements ports.Printer.
type Printer struct {
	mu           sync.Mutex
	w            io.Writer
	closer       io.Closer
	charsPerLine int
	now          func() time.Time
	logger       *slog.Logger
}

var _ ports.Printer = (*Printer)(nil)

// Option configures a Printer.
type Option func(*Printer)

// WithCharsPerLine sets the wrap width.
func WithCharsPerLine(n int) Option {
	return func(p *Printer) {
		if n > 0 {
			p.charsPerLine = n
		}
	}
}

// WithClock sets the time source used for slip timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Printer) {
		p.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Printer) {
		p.logger = logger
	}
}

// New creates a printer writing to w.
func New(w io.Writer, opts ...Option) *Printer {
	p := &Printer{
		w:            w,
		charsPerLine: DefaultCharsPerLine,
		now:          time.Now,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open opens a printer device such as /dev/usb/lp0. "-" writes to stdout.
func Open(path string, opts ...Option) (*Printer, error) {
	if path == "-" {
		return New(os.Stdout, opts...), nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open printer %s: %w", path, err)
	}
	p := New(f, opts...)
	p.closer = f
	return p, nil
}

// Close releases the device.
func (p *Printer) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// Start resets the printer and prints a short boot slip.
func (p *Printer) Start() error {
	s := p.slip()
	s.init()
	s.writeln(p.now().Format(time.RFC3339))
	s.writeln("llm-vn-host starting...")
	s.feed(1)
	return p.flush(s, "start")
}

// PrintReady lists the configured characters and available models, then cuts.
func (p *Printer) PrintReady(characters []domain.Character, models []string) error {
	s := p.slip()
	s.reset()
	s.writeln(p.now().Format(time.RFC3339))
	s.writeln("llm-vn-host")
	s.feed(1)

	s.writeln("Available characters:")
	for _, c := range characters {
		s.writeln(" - name: " + c.Name)
		s.writeln("   model: " + c.ModelName)
	}
	s.feed(1)

	s.writeln("Available models:")
	for _, m := range models {
		s.writeln(" - " + m)
	}
	s.feed(1)

	s.writeln("Ready!")
	s.cut()
	return p.flush(s, "ready")
}

// PrintChatHeader starts a transcript with the time and the character's name.
func (p *Printer) PrintChatHeader(character domain.Character) error {
	s := p.slip()
	s.reset()
	s.justify(justifyCenter)
	s.writeln(p.now().Format("15:04:05"))
	s.feed(1)
	s.writeln("Chat with")
	s.size(2, 2)
	s.bold(true)
	s.underline(true)
	s.writeln(character.Name)
	s.size(1, 1)
	s.bold(false)
	s.underline(false)
	s.feed(1)
	s.writeWrapped(character.Description)
	s.feed(1)
	s.rule()
	s.feed(1)
	return p.flush(s, "header")
}

// PrintUserMessage prints the visitor's chosen line, left aligned.
func (p *Printer) PrintUserMessage(text string) error {
	s := p.slip()
	s.message(justifyLeft, "You", text, userFeedLines)
	return p.flush(s, "user message")
}

// PrintCharacterMessage prints the character's reply, right aligned.
func (p *Printer) PrintCharacterMessage(character domain.Character, text string) error {
	s := p.slip()
	s.message(justifyRight, character.Name, text, characterFeedLines)
	return p.flush(s, "character message")
}

// PrintChatFooter closes the transcript and cuts the paper.
func (p *Printer) PrintChatFooter() error {
	s := p.slip()
	s.reset()
	s.justify(justifyCenter)
	s.rule()
	s.feed(1)
	s.writeWrapped(Disclaimer)
	s.feed(1)
	s.writeWrapped("Feel free to keep this print out.")
	s.feed(1)
	s.underline(true)
	for _, link := range FooterLinks {
		s.writeln(link)
	}
	s.underline(false)
	s.feed(1)
	s.cut()
	return p.flush(s, "footer")
}

func (p *Printer) slip() *slip {
	return &slip{width: p.charsPerLine}
}

func (p *Printer) flush(s *slip, what string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.w.Write(s.buf.Bytes()); err != nil {
		p.logger.Warn("printer write failed", "slip", what, "error", err)
		return fmt.Errorf("failed to print %s: %w", what, err)
	}
	p.logger.Debug("printed", "slip", what, "bytes", s.buf.Len())
	return nil
}

// slip accumulates commands and text for one print job.
type slip struct {
	buf   bytes.Buffer
	width int
}

func (s *slip) message(j justification, name, text string, feeds int) {
	s.justify(j)
	s.bold(true)
	s.underline(true)
	s.writeln(name)
	s.bold(false)
	s.underline(false)
	s.writeWrapped(text)
	s.justify(justifyCenter)
	for range feeds {
		s.writeln(".")
	}
}

func (s *slip) reset() {
	s.justify(justifyLeft)
	s.bold(false)
	s.underline(false)
	s.size(1, 1)
}

func (s *slip) writeln(line string) {
	s.buf.WriteString(line)
	s.buf.WriteByte('\n')
}

func (s *slip) writeWrapped(text string) {
	for _, line := range Wrap(text, s.width) {
		s.writeln(line)
	}
}

func (s *slip) rule() {
	s.writeln(strings.Repeat("-", s.width))
}

func (s *slip) feed(n int) {
	for range n {
		s.buf.WriteByte('\n')
	}
}
