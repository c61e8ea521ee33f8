// Package terminal stands in for the controller hardware on a text terminal:
// the display is drawn with ANSI styling and the buttons are keyboard keys.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aretw0/llmvn/pkg/icd"
	"github.com/aretw0/llmvn/pkg/ports"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// DefaultWidth is the drawn screen width in columns.
const DefaultWidth = 60

var (
	_ ports.Renderer = (*Renderer)(nil)

	headingColour = lipgloss.Color("#ffffff")
	splashColour  = lipgloss.Color("#000000")
	splashFill    = lipgloss.Color("#ffffff")
	hintColour    = lipgloss.Color("#808080")
)

// Renderer draws screens by clearing the terminal and writing a full frame.
type Renderer struct {
	mu    sync.Mutex
	out   *termenv.Output
	re    *lipgloss.Renderer
	width int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithWidth sets the frame width.
func WithWidth(cols int) Option {
	return func(r *Renderer) {
		if cols > 20 {
			r.width = cols
		}
	}
}

// WithProfile forces a colour profile. termenv.Ascii disables styling.
func WithProfile(p termenv.Profile) Option {
	return func(r *Renderer) {
		r.re.SetColorProfile(p)
	}
}

// NewRenderer creates a renderer writing to w.
func NewRenderer(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{
		out:   termenv.NewOutput(w),
		re:    lipgloss.NewRenderer(w),
		width: DefaultWidth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DrawSplash shows the product banner until the host sends a screen.
func (r *Renderer) DrawSplash() error {
	banner := r.re.NewStyle().
		Width(r.width).
		Padding(3, 0).
		Align(lipgloss.Center).
		Foreground(splashColour).
		Background(splashFill).
		Render(icd.ProductName)
	return r.frame(banner)
}

// Draw renders a validated screen.
func (r *Renderer) Draw(screen icd.Screen) error {
	switch screen.Kind {
	case icd.ScreenCharacterSelect:
		if screen.CharacterSelect == nil {
			return fmt.Errorf("%w: missing character select body", icd.ErrInvalidScreen)
		}
		return r.frame(r.characterSelect(*screen.CharacterSelect))
	case icd.ScreenChoices:
		if screen.Choices == nil {
			return fmt.Errorf("%w: missing choices body", icd.ErrInvalidScreen)
		}
		return r.frame(r.choices(*screen.Choices))
	default:
		return fmt.Errorf("%w: unknown kind %q", icd.ErrInvalidScreen, screen.Kind)
	}
}

func (r *Renderer) characterSelect(s icd.CharacterSelectScreen) string {
	heading := r.re.NewStyle().
		Width(r.width).
		Align(lipgloss.Center).
		Bold(true).
		Underline(true).
		Foreground(headingColour).
		Render("Select Character")

	prev, selected, next := s.Characters[0], s.Characters[1], s.Characters[2]
	nameOnly := r.width * 2 / 3

	return lipgloss.JoinVertical(lipgloss.Center,
		heading,
		"",
		r.hint("[1] ▲"),
		r.card(prev, nameOnly).Align(lipgloss.Center).Render(prev.Name),
		r.card(selected, r.width).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				r.re.NewStyle().Width(r.width-4).Align(lipgloss.Center).Bold(true).Render(selected.Name),
				"",
				selected.Description,
			),
		),
		r.card(next, nameOnly).Align(lipgloss.Center).Render(next.Name),
		r.hint("[3] ▼"),
		"",
		r.hint("[2] talk"),
	)
}

func (r *Renderer) choices(s icd.ChoiceScreen) string {
	style := r.re.NewStyle().
		Width(r.width).
		Padding(0, 1).
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(s.MarginColour.Hex())).
		Foreground(lipgloss.Color(s.TextColour.Hex())).
		Background(lipgloss.Color(s.BackgroundColour.Hex()))

	rows := make([]string, 0, len(s.Choices)+1)
	for i, choice := range s.Choices {
		rows = append(rows, style.Render(fmt.Sprintf("[%d] %s", i+1, choice)))
	}
	rows = append(rows, r.hint("[e] end conversation"))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (r *Renderer) card(c icd.CharacterDetails, width int) lipgloss.Style {
	return r.re.NewStyle().
		Width(width).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(c.MarginColour.Hex())).
		Foreground(lipgloss.Color(c.TextColour.Hex())).
		Background(lipgloss.Color(c.BackgroundColour.Hex()))
}

func (r *Renderer) hint(s string) string {
	return r.re.NewStyle().Foreground(hintColour).Render(s)
}

// frame replaces the terminal contents. Lines end in \r\n so the frame
// draws correctly while the keyboard holds the terminal in raw mode.
func (r *Renderer) frame(body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.out.ClearScreen()
	text := strings.ReplaceAll(body, "\n", "\r\n") + "\r\n"
	if _, err := io.WriteString(r.out, text); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
