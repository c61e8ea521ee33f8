// Package character loads the character roster and implements the carousel over it.
package character

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/icd"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// MinCharacters is the smallest roster the carousel can show.
const MinCharacters = 3

// MinOpeningLines is the number of opening lines offered at the start of a chat.
const MinOpeningLines = 3

var (
	ErrTooFewCharacters   = errors.New("at least three characters must be defined")
	ErrTooFewOpeningLines = errors.New("at least three opening lines must be defined")
	ErrFieldTooLong       = errors.New("field exceeds display limit")
	ErrMissingField       = errors.New("required field is empty")
)

// Collection is the ordered character roster.
type Collection struct {
	Characters []domain.Character `toml:"characters" yaml:"characters" json:"characters"`
}

// Load reads a roster file. The format follows the extension: .yaml/.yml, .json,
// anything else is parsed as TOML.
func Load(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read character file: %w", err)
	}
	c, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a roster in the format named by ext.
func Parse(data []byte, ext string) (*Collection, error) {
	var c Collection
	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	case ".json":
		err = json.Unmarshal(data, &c)
	default:
		err = toml.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse character file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the roster size and every character against the display limits.
func (c *Collection) Validate() error {
	if len(c.Characters) < MinCharacters {
		return fmt.Errorf("%w (found %d)", ErrTooFewCharacters, len(c.Characters))
	}
	for i, ch := range c.Characters {
		if err := validateCharacter(ch); err != nil {
			return fmt.Errorf("character %d (%q): %w", i, ch.Name, err)
		}
	}
	return nil
}

func validateCharacter(ch domain.Character) error {
	if ch.Name == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	if ch.ModelName == "" {
		return fmt.Errorf("%w: model_name", ErrMissingField)
	}
	if n := utf8.RuneCountInString(ch.Name); n > icd.MaxNameLen {
		return fmt.Errorf("%w: name has %d characters, limit is %d", ErrFieldTooLong, n, icd.MaxNameLen)
	}
	if n := utf8.RuneCountInString(ch.Description); n > icd.MaxDescriptionLen {
		return fmt.Errorf("%w: description has %d characters, limit is %d", ErrFieldTooLong, n, icd.MaxDescriptionLen)
	}
	if len(ch.OpeningLines) < MinOpeningLines {
		return fmt.Errorf("%w (found %d)", ErrTooFewOpeningLines, len(ch.OpeningLines))
	}
	for j, line := range ch.OpeningLines {
		if line == "" {
			return fmt.Errorf("%w: opening line %d", ErrMissingField, j)
		}
		if n := utf8.RuneCountInString(line); n > icd.MaxChoiceLen {
			return fmt.Errorf("%w: opening line %d has %d characters, limit is %d", ErrFieldTooLong, j, n, icd.MaxChoiceLen)
		}
	}
	return nil
}

// Len returns the number of characters.
func (c *Collection) Len() int { return len(c.Characters) }

// At returns the character at index i.
func (c *Collection) At(i int) domain.Character { return c.Characters[i] }

// PickSubset returns the indices shown around i: previous, current and next, wrapping.
func (c *Collection) PickSubset(i int) [3]int {
	n := len(c.Characters)
	return [3]int{Prev(i, n), i, Next(i, n)}
}

// SelectScreen builds the carousel screen centred on i.
func (c *Collection) SelectScreen(i int) icd.Screen {
	var screen icd.CharacterSelectScreen
	for slot, idx := range c.PickSubset(i) {
		screen.Characters[slot] = c.Characters[idx].Details()
	}
	return icd.NewCharacterSelect(screen)
}

// ModelNames lists the distinct models the roster needs, in roster order.
func (c *Collection) ModelNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, ch := range c.Characters {
		if !seen[ch.ModelName] {
			seen[ch.ModelName] = true
			names = append(names, ch.ModelName)
		}
	}
	return names
}

// Prev steps the carousel index back, wrapping from 0 to n-1.
func Prev(i, n int) int { return (i - 1 + n) % n }

// Next steps the carousel index forward, wrapping from n-1 to 0.
func Next(i, n int) int { return (i + 1) % n }

// StartingPhrases draws three distinct opening lines as the first set of replies.
func StartingPhrases(ch domain.Character, rng *rand.Rand) domain.Output {
	var out domain.Output
	for slot, idx := range rng.Perm(len(ch.OpeningLines))[:MinOpeningLines] {
		out.Replies[slot] = ch.OpeningLines[idx]
	}
	return out
}
