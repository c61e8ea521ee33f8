package icd

import "fmt"

// ButtonAction is a decoded press of one of the four kiosk buttons.
type ButtonAction uint8

const (
	Fn1 ButtonAction = iota + 1
	Fn2
	Fn3
	EndConversation
)

var actionNames = map[ButtonAction]string{
	Fn1:             "fn1",
	Fn2:             "fn2",
	Fn3:             "fn3",
	EndConversation: "end_conversation",
}

func (a ButtonAction) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("ButtonAction(%d)", uint8(a))
}

// Valid reports whether a is one of the four known actions.
func (a ButtonAction) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

// ChoiceIndex maps Fn1..Fn3 to 0..2.
func (a ButtonAction) ChoiceIndex() (int, bool) {
	switch a {
	case Fn1:
		return 0, true
	case Fn2:
		return 1, true
	case Fn3:
		return 2, true
	}
	return 0, false
}

func (a ButtonAction) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid button action %d", uint8(a))
	}
	return []byte(actionNames[a]), nil
}

func (a *ButtonAction) UnmarshalText(text []byte) error {
	for action, name := range actionNames {
		if name == string(text) {
			*a = action
			return nil
		}
	}
	return fmt.Errorf("unknown button action %q", text)
}
