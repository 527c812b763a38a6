package replay

import (
	"github.com/okian/playalong/internal/domain/judge"
	"github.com/okian/playalong/internal/domain/model"
)

// tapSeconds is how long autoplay holds or lets go of a key around a
// single-edge action.
const tapSeconds = 0.05

// Autoplay returns the key stream of a perfect run of the level: every edge
// is hit exactly on time with the lowest key code bound to the action's
// input. Actions whose input has no binding are left to time out.
//
// Actions sharing an input must not overlap for the run to stay perfect.
func Autoplay(level Level, controls judge.Controls) []judge.KeyEvent {
	var events []judge.KeyEvent
	for _, a := range level.Actions {
		code, ok := lowestCode(controls[a.Input])
		if !ok {
			continue
		}
		start := level.Tempo.BeatsToSeconds(a.Beat)
		end := level.Tempo.BeatsToSeconds(a.EndBeat())

		down := func(t float64) { events = append(events, judge.KeyEvent{Code: code, Down: true, Seconds: t}) }
		up := func(t float64) { events = append(events, judge.KeyEvent{Code: code, Down: false, Seconds: t}) }

		switch a.Method {
		case model.Press:
			down(start)
			up(start + tapSeconds)
		case model.Release:
			down(start - tapSeconds)
			up(start)
		case model.LongPress, model.PressAndHold:
			down(start)
			up(end)
		case model.ReleaseAndHold:
			down(start - tapSeconds)
			up(start)
			down(end)
			up(end + tapSeconds)
		}
	}
	sortEvents(events)
	return events
}

func lowestCode(codes []int) (int, bool) {
	if len(codes) == 0 {
		return 0, false
	}
	low := codes[0]
	for _, c := range codes[1:] {
		if c < low {
			low = c
		}
	}
	return low, true
}
