package domain

import "github.com/aretw0/llmvn/pkg/icd"

// Colour is an RGB triple as written in character files.
type Colour struct {
	R uint8 `toml:"r" yaml:"r" json:"r"`
	G uint8 `toml:"g" yaml:"g" json:"g"`
	B uint8 `toml:"b" yaml:"b" json:"b"`
}

// Packed converts the colour for the display link.
func (c Colour) Packed() icd.Colour {
	return icd.RGB(c.R, c.G, c.B)
}

// Character is a persona the visitor can chat with.
type Character struct {
	Name        string `toml:"name" yaml:"name" json:"name"`
	Description string `toml:"description" yaml:"description" json:"description"`

	// ModelName selects the language model that plays this character.
	ModelName string `toml:"model_name" yaml:"model_name" json:"model_name"`

	TextColour       Colour `toml:"text_colour" yaml:"text_colour" json:"text_colour"`
	BackgroundColour Colour `toml:"background_colour" yaml:"background_colour" json:"background_colour"`
	BorderColour     Colour `toml:"border_colour" yaml:"border_colour" json:"border_colour"`

	OpeningLines []string `toml:"opening_lines" yaml:"opening_lines" json:"opening_lines"`
}

// Details renders the character as a carousel card.
func (c Character) Details() icd.CharacterDetails {
	return icd.CharacterDetails{
		TextColour:       c.TextColour.Packed(),
		BackgroundColour: c.BackgroundColour.Packed(),
		MarginColour:     c.BorderColour.Packed(),
		Name:             c.Name,
		Description:      c.Description,
	}
}

// ChoiceScreen styles the candidate replies of out in the character's colours.
// Replies longer than icd.MaxChoiceLen are truncated.
func (c Character) ChoiceScreen(out Output) icd.ChoiceScreen {
	screen := icd.ChoiceScreen{
		TextColour:       c.TextColour.Packed(),
		BackgroundColour: c.BackgroundColour.Packed(),
		MarginColour:     c.BorderColour.Packed(),
	}
	for i, reply := range out.Replies {
		screen.Choices[i] = icd.Truncate(reply, icd.MaxChoiceLen)
	}
	return screen
}
