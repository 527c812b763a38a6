// Package model contains the judging domain types shared between the
// catalog, the engine and the scorer.
package model

import "fmt"

// Method describes which edges of an action the player must hit.
type Method int

const (
	// Press is a single key press.
	Press Method = iota
	// Release is a single key release.
	Release
	// LongPress is a press held for the whole duration. Holding past the end
	// counts as a perfect release.
	LongPress
	// PressAndHold is a press followed by a release at the end beat.
	PressAndHold
	// ReleaseAndHold is a release followed by a press at the end beat.
	ReleaseAndHold
)

var methodNames = map[Method]string{
	Press:          "press",
	Release:        "release",
	LongPress:      "long_press",
	PressAndHold:   "press_and_hold",
	ReleaseAndHold: "release_and_hold",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// ParseMethod returns the Method with the given snake_case name.
func ParseMethod(name string) (Method, error) {
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// RequiresRelease reports whether the start edge is triggered by a key
// release rather than a press.
func (m Method) RequiresRelease() bool {
	return m == Release || m == ReleaseAndHold
}

// IsTwoStage reports whether the method tracks a separate end edge.
func (m Method) IsTwoStage() bool {
	return m == LongPress || m == PressAndHold || m == ReleaseAndHold
}

// Input is a logical input identifier, independent of physical keys.
type Input string

// Known logical inputs.
const (
	ButtonA       Input = "button_a"
	ButtonB       Input = "button_b"
	DpadUp        Input = "dpad_up"
	DpadDown      Input = "dpad_down"
	DpadLeft      Input = "dpad_left"
	DpadRight     Input = "dpad_right"
	TouchTap      Input = "touch_tap"
	TouchQuickTap Input = "touch_quick_tap"
	TouchRelease  Input = "touch_release"
	TouchFlick    Input = "touch_flick"
	TouchSlide    Input = "touch_slide"
)

var touchInputs = map[Input]struct{}{
	TouchTap:      {},
	TouchQuickTap: {},
	TouchRelease:  {},
	TouchFlick:    {},
	TouchSlide:    {},
}

// IsTouchScreen reports whether the input can only be produced on a
// touchscreen.
func (i Input) IsTouchScreen() bool {
	_, ok := touchInputs[i]
	return ok
}

// InputAction is one scheduled input requirement anchored to a beat.
// Values are immutable once a catalog has assigned their ID.
type InputAction struct {
	ID       int // position in level order; secondary sort key
	Beat     float64
	Duration float64 // 0 for instantaneous actions
	Method   Method
	Input    Input
}

// IsInstantaneous reports whether the action has a single edge.
func (a InputAction) IsInstantaneous() bool {
	return a.Duration == 0
}

// EndBeat is the beat of the end edge.
func (a InputAction) EndBeat() float64 {
	return a.Beat + a.Duration
}

// ExpectedResults is the number of edges judged for the action.
func (a InputAction) ExpectedResults() int {
	if a.IsInstantaneous() {
		return 1
	}
	return 2
}

// Less orders actions by beat, then by ID.
func (a InputAction) Less(o InputAction) bool {
	if a.Beat != o.Beat {
		return a.Beat < o.Beat
	}
	return a.ID < o.ID
}

func (a InputAction) String() string {
	return fmt.Sprintf("#%d %s %s @%g+%g", a.ID, a.Method, a.Input, a.Beat, a.Duration)
}
