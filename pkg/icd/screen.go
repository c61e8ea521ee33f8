package icd

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Field limits enforced on every screen that crosses the link.
const (
	MaxNameLen        = 32
	MaxDescriptionLen = 512
	MaxChoiceLen      = 256
)

// ErrInvalidScreen marks a screen that violates a field limit or its tag.
var ErrInvalidScreen = errors.New("invalid screen")

// Colour is a packed 24-bit RGB value.
type Colour uint32

// RGB packs three channels.
func RGB(r, g, b uint8) Colour {
	return Colour(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

func (c Colour) R() uint8 { return uint8(c >> 16) }
func (c Colour) G() uint8 { return uint8(c >> 8) }
func (c Colour) B() uint8 { return uint8(c) }

// Hex formats the colour as #rrggbb.
func (c Colour) Hex() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xffffff)
}

// CharacterDetails is one card of the character carousel.
type CharacterDetails struct {
	TextColour       Colour `json:"text_colour"`
	BackgroundColour Colour `json:"background_colour"`
	MarginColour     Colour `json:"margin_colour"`
	Name             string `json:"name"`
	Description      string `json:"description"`
}

// CharacterSelectScreen shows the previous, current and next characters.
type CharacterSelectScreen struct {
	Characters [3]CharacterDetails `json:"characters"`
}

// ChoiceScreen shows three candidate user replies styled after the character.
type ChoiceScreen struct {
	TextColour       Colour    `json:"text_colour"`
	BackgroundColour Colour    `json:"background_colour"`
	MarginColour     Colour    `json:"margin_colour"`
	Choices          [3]string `json:"choices"`
}

// ScreenKind tags the Screen variant.
type ScreenKind string

const (
	ScreenCharacterSelect ScreenKind = "character_select"
	ScreenChoices         ScreenKind = "choices"
)

// Screen is the full state of the controller display. Exactly one variant is set.
type Screen struct {
	Kind            ScreenKind             `json:"kind"`
	CharacterSelect *CharacterSelectScreen `json:"character_select,omitempty"`
	Choices         *ChoiceScreen          `json:"choices,omitempty"`
}

// NewCharacterSelect wraps a carousel screen.
func NewCharacterSelect(s CharacterSelectScreen) Screen {
	return Screen{Kind: ScreenCharacterSelect, CharacterSelect: &s}
}

// NewChoices wraps a reply choice screen.
func NewChoices(s ChoiceScreen) Screen {
	return Screen{Kind: ScreenChoices, Choices: &s}
}

// Validate checks the variant tag and every field limit.
func (s Screen) Validate() error {
	switch s.Kind {
	case ScreenCharacterSelect:
		if s.CharacterSelect == nil || s.Choices != nil {
			return fmt.Errorf("%w: %s variant mismatch", ErrInvalidScreen, s.Kind)
		}
		for i, c := range s.CharacterSelect.Characters {
			if err := checkLen("name", c.Name, MaxNameLen); err != nil {
				return fmt.Errorf("character %d: %w", i, err)
			}
			if err := checkLen("description", c.Description, MaxDescriptionLen); err != nil {
				return fmt.Errorf("character %d: %w", i, err)
			}
		}
	case ScreenChoices:
		if s.Choices == nil || s.CharacterSelect != nil {
			return fmt.Errorf("%w: %s variant mismatch", ErrInvalidScreen, s.Kind)
		}
		for i, choice := range s.Choices.Choices {
			if err := checkLen("choice", choice, MaxChoiceLen); err != nil {
				return fmt.Errorf("choice %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidScreen, s.Kind)
	}
	return nil
}

func checkLen(field, value string, limit int) error {
	if n := utf8.RuneCountInString(value); n > limit {
		return fmt.Errorf("%w: %s has %d characters, limit is %d", ErrInvalidScreen, field, n, limit)
	}
	return nil
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
