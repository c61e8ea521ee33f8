// Package buttons samples the four kiosk button lines and publishes decoded presses.
package buttons

import "github.com/aretw0/llmvn/pkg/icd"

// Level is the electrical level of an input line. Buttons are active-low.
type Level uint8

const (
	Low Level = iota
	High
)

// Line indexes one of the four button inputs.
type Line int

const (
	LineFn1 Line = iota
	LineFn2
	LineFn3
	LineEnd
	lineCount
)

// InputSample is one simultaneous reading of every line.
type InputSample [lineCount]Level

// Released is the sample with no button held.
var Released = InputSample{High, High, High, High}

// Pressed returns the sample with only line held.
func Pressed(line Line) InputSample {
	s := Released
	s[line] = Low
	return s
}

var lineActions = [lineCount]icd.ButtonAction{
	LineFn1: icd.Fn1,
	LineFn2: icd.Fn2,
	LineFn3: icd.Fn3,
	LineEnd: icd.EndConversation,
}

// Decode maps a sample to an action. Only a sample with exactly one line low decodes.
func Decode(s InputSample) (icd.ButtonAction, bool) {
	pressed := -1
	for i, level := range s {
		if level != Low {
			continue
		}
		if pressed >= 0 {
			return 0, false
		}
		pressed = i
	}
	if pressed < 0 {
		return 0, false
	}
	return lineActions[pressed], true
}

// Pins reads all four lines at once.
type Pins interface {
	Read() InputSample
}

// PinsFunc adapts a function to Pins.
type PinsFunc func() InputSample

func (f PinsFunc) Read() InputSample { return f() }
