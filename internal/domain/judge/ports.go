package judge

import (
	"sort"

	"github.com/okian/playalong/internal/domain/model"
)

// Tempo converts beat positions to playback seconds. Implementations must be
// pure.
type Tempo interface {
	BeatsToSeconds(beat float64) float64
}

// Clock reports the playback position and whether playback is running.
type Clock interface {
	Seconds() float64
	Playing() bool
}

// KeyEvent is one physical key transition stamped with playback seconds.
type KeyEvent struct {
	Code    int
	Down    bool
	Seconds float64
}

// Controls binds each logical input to the physical key codes producing it.
type Controls map[model.Input][]int

// DefaultControls is the standard keyboard layout.
func DefaultControls() Controls {
	return Controls{
		model.ButtonA:   {'J'},
		model.ButtonB:   {'K'},
		model.DpadUp:    {'W'},
		model.DpadDown:  {'S'},
		model.DpadLeft:  {'A'},
		model.DpadRight: {'D'},
	}
}

// KeyMap is the inverted, read-only form of Controls: key code to the set of
// logical inputs it triggers.
type KeyMap map[int]map[model.Input]struct{}

// KeyMap inverts the controls. A key code bound to several inputs triggers
// all of them.
func (c Controls) KeyMap() KeyMap {
	km := make(KeyMap)
	for in, codes := range c {
		for _, code := range codes {
			if km[code] == nil {
				km[code] = make(map[model.Input]struct{})
			}
			km[code][in] = struct{}{}
		}
	}
	return km
}

// Inputs returns the logical inputs bound to code, sorted for determinism.
func (km KeyMap) Inputs(code int) []model.Input {
	set := km[code]
	out := make([]model.Input, 0, len(set))
	for in := range set {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
