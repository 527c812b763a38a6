package judge_test

import (
	"testing"

	"github.com/okian/playalong/internal/domain/catalog"
	"github.com/okian/playalong/internal/domain/judge"
	"github.com/okian/playalong/internal/domain/model"
	"github.com/okian/playalong/internal/domain/scoring"
	"github.com/okian/playalong/internal/domain/tempo"
	. "github.com/smartystreets/goconvey/convey"
)

const keyJ = 'J'

type stubClock struct {
	seconds float64
	playing bool
}

func (c *stubClock) Seconds() float64 { return c.seconds }
func (c *stubClock) Playing() bool    { return c.playing }

type edge struct {
	id     int
	start  bool
	timing model.Timing
}

type recorder struct {
	events []string
	edges  []edge
	scores []float64
	bonus  int
	broken int
	hits   int
}

func (r *recorder) OnInput(a model.InputAction, res model.InputResult, start bool) {
	r.events = append(r.events, "input")
	r.edges = append(r.edges, edge{id: a.ID, start: start, timing: res.Timing})
}

func (r *recorder) OnBonusAchieved() {
	r.events = append(r.events, "bonus")
	r.bonus++
}

func (r *recorder) OnPerfectBroken() {
	r.events = append(r.events, "broken")
	r.broken++
}

func (r *recorder) OnPerfectHit() {
	r.events = append(r.events, "hit")
	r.hits++
}

func (r *recorder) OnScoreChanged(score float64) {
	r.events = append(r.events, "score")
	r.scores = append(r.scores, score)
}

func newEngine(actions []model.InputAction, opts ...judge.Option) (*judge.Engine, *stubClock, *recorder, *catalog.Catalog) {
	return newEngineWith(catalog.FromActions(actions), opts...)
}

func newEngineWith(c *catalog.Catalog, opts ...judge.Option) (*judge.Engine, *stubClock, *recorder, *catalog.Catalog) {
	tm, err := tempo.Constant(60)
	if err != nil {
		panic(err)
	}
	clk := &stubClock{playing: true}
	rec := &recorder{}
	opts = append([]judge.Option{judge.WithObserver(rec)}, opts...)
	e := judge.New(c, tm, clk, judge.DefaultControls().KeyMap(), opts...)
	return e, clk, rec, c
}

func press(beat float64) model.InputAction {
	return model.InputAction{Beat: beat, Method: model.Press, Input: model.ButtonA}
}

func hold(beat, duration float64, m model.Method) model.InputAction {
	return model.InputAction{Beat: beat, Duration: duration, Method: m, Input: model.ButtonA}
}

func down(t float64) judge.KeyEvent { return judge.KeyEvent{Code: keyJ, Down: true, Seconds: t} }
func up(t float64) judge.KeyEvent   { return judge.KeyEvent{Code: keyJ, Down: false, Seconds: t} }

func TestEngineScenarios(t *testing.T) {
	Convey("Given a single press at beat 0", t, func() {
		e, _, rec, c := newEngine([]model.InputAction{press(0)})
		a := c.Actions()[0]

		Convey("When the key is pressed 0.02s late", func() {
			So(e.HandleKey(down(0.02)), ShouldBeTrue)

			Convey("Then the press is an ace and the score is full", func() {
				r, ok := e.Results(a)
				So(ok, ShouldBeTrue)
				So(r.Len(), ShouldEqual, 1)
				So(r.Start().Timing, ShouldEqual, model.Ace)
				So(r.Start().Offset, ShouldAlmostEqual, 0.02, 1e-9)
				So(e.Score(), ShouldAlmostEqual, 100, 1e-9)
				So(e.Aces(), ShouldEqual, 1)
				So(e.Done(), ShouldBeTrue)
			})

			Convey("Then notifications follow aces, score, perfect, input", func() {
				So(rec.events, ShouldResemble, []string{"score", "hit", "input"})
			})
		})

		Convey("When the key is pressed 0.20s late", func() {
			So(e.HandleKey(down(0.20)), ShouldBeFalse)
			e.UpdateAt(0.20)

			Convey("Then the press is missed and the score is zero", func() {
				r, ok := e.Results(a)
				So(ok, ShouldBeTrue)
				So(r.Start().Timing, ShouldEqual, model.Miss)
				So(e.Score(), ShouldEqual, 0)
				So(e.PerfectSoFar(), ShouldBeFalse)
				So(rec.broken, ShouldEqual, 1)
			})
		})

		Convey("When the key is pressed past barely but inside the window", func() {
			So(e.HandleKey(down(0.13)), ShouldBeTrue)

			Convey("Then the press is judged a miss", func() {
				r, _ := e.Results(a)
				So(r.Start().Timing, ShouldEqual, model.Miss)
				So(r.Start().Offset, ShouldAlmostEqual, 0.13, 1e-9)
				So(e.Score(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a long press of two beats at beat 0", t, func() {
		e, _, rec, c := newEngine([]model.InputAction{hold(0, 2, model.LongPress)})
		a := c.Actions()[0]

		Convey("When the key goes down on time and is never released", func() {
			So(e.HandleKey(down(0)), ShouldBeTrue)
			So(e.State(a), ShouldEqual, judge.InProgress)
			So(e.InProgress(), ShouldEqual, 1)

			e.UpdateAt(1.99)
			So(e.State(a), ShouldEqual, judge.InProgress)

			e.UpdateAt(2.01)

			Convey("Then the end resolves as an ace on its own", func() {
				r, ok := e.Results(a)
				So(ok, ShouldBeTrue)
				So(r.Len(), ShouldEqual, 2)
				So(r.Start().Timing, ShouldEqual, model.Ace)
				end, _ := r.End()
				So(end.Timing, ShouldEqual, model.Ace)
				So(end.Offset, ShouldEqual, 0)
				So(e.Score(), ShouldAlmostEqual, 100, 1e-9)
				So(e.InProgress(), ShouldEqual, 0)
				So(rec.edges, ShouldResemble, []edge{{0, true, model.Ace}, {0, false, model.Ace}})
			})
		})

		Convey("When only the start edge has been judged", func() {
			So(e.HandleKey(down(0)), ShouldBeTrue)

			Convey("Then the score waits for the end edge", func() {
				So(e.State(a), ShouldEqual, judge.InProgress)
				So(e.Resolved(), ShouldBeEmpty)
				So(e.Score(), ShouldEqual, 0)
				So(rec.scores, ShouldResemble, []float64{0})
				So(len(e.Judged()), ShouldEqual, 1)
			})
		})

		Convey("When the key is released early", func() {
			e.HandleKey(down(0))
			So(e.HandleKey(up(1.95)), ShouldBeTrue)

			Convey("Then the end is graded by its offset", func() {
				r, _ := e.Results(a)
				end, _ := r.End()
				So(end.Offset, ShouldAlmostEqual, -0.05, 1e-9)
				So(end.Timing, ShouldEqual, model.Good)
			})
		})
	})

	Convey("Given a press at beat 1 that never receives input", t, func() {
		e, _, _, c := newEngine([]model.InputAction{press(1)})
		a := c.Actions()[0]

		Convey("Then it stays unresolved inside the window", func() {
			e.UpdateAt(1.14)
			So(e.State(a), ShouldEqual, judge.Unresolved)
		})

		Convey("Then the sweep misses it once the window elapses", func() {
			e.UpdateAt(1 + model.DefaultMaxOffset + 0.001)
			r, ok := e.Results(a)
			So(ok, ShouldBeTrue)
			So(r.Start().Timing, ShouldEqual, model.Miss)
			So(r.Start().Offset, ShouldBeGreaterThan, model.DefaultMaxOffset)
		})
	})

	Convey("Given a run with a good press and an ace press", t, func() {
		e, _, rec, _ := newEngine([]model.InputAction{press(0), press(1)})
		e.HandleKey(down(0.05))
		e.HandleKey(down(1))
		So(e.Score(), ShouldAlmostEqual, (0.85+1)*100/2, 1e-9)

		Convey("When the scoring mode is switched to offsets", func() {
			before := len(rec.scores)
			e.SetScoringMode(scoring.ByOffset)

			Convey("Then the score is recomputed from the judged offsets", func() {
				So(e.ScoringMode(), ShouldEqual, scoring.ByOffset)
				So(e.Score(), ShouldAlmostEqual, ((1-0.05/model.DefaultMaxOffset)+1)*100/2, 1e-9)
				So(len(rec.scores), ShouldEqual, before+1)
				So(rec.scores[len(rec.scores)-1], ShouldEqual, e.Score())
			})
		})
	})
}

func TestEngineSweep(t *testing.T) {
	Convey("Given an untouched press-and-hold", t, func() {
		e, _, rec, c := newEngine([]model.InputAction{hold(0, 4, model.PressAndHold)})
		a := c.Actions()[0]

		Convey("When the start window elapses", func() {
			e.UpdateAt(0.2)

			Convey("Then both edges are missed together, start first", func() {
				r, ok := e.Results(a)
				So(ok, ShouldBeTrue)
				So(r.Len(), ShouldEqual, 2)
				So(r.Start().Timing, ShouldEqual, model.Miss)
				end, _ := r.End()
				So(end.Timing, ShouldEqual, model.Miss)
				So(end.Offset, ShouldEqual, model.DefaultMaxOffset)
				So(rec.edges, ShouldResemble, []edge{{0, true, model.Miss}, {0, false, model.Miss}})
				So(rec.broken, ShouldEqual, 1)
			})

			Convey("Then sweeping again at the same time changes nothing", func() {
				events := len(rec.events)
				e.UpdateAt(0.2)
				So(len(rec.events), ShouldEqual, events)
				So(len(e.Resolved()), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a press-and-hold held past its end", t, func() {
		e, _, _, c := newEngine([]model.InputAction{hold(0, 1, model.PressAndHold)})
		a := c.Actions()[0]
		e.HandleKey(down(0))

		Convey("Then the end is only missed after the window", func() {
			e.UpdateAt(1.1)
			So(e.State(a), ShouldEqual, judge.InProgress)
			e.UpdateAt(1.2)
			So(e.State(a), ShouldEqual, judge.Resolved)
			r, _ := e.Results(a)
			end, _ := r.End()
			So(end.Timing, ShouldEqual, model.Miss)
		})
	})

	Convey("Given two close presses and a single key event", t, func() {
		e, _, _, _ := newEngine([]model.InputAction{press(0), press(0.05)})
		e.HandleKey(down(0.05))
		e.UpdateAt(1)

		Convey("Then both resolve exactly once in resolution order", func() {
			resolved := e.Resolved()
			So(len(resolved), ShouldEqual, 2)
			So(resolved[0].Action.ID, ShouldEqual, 0)
			So(resolved[1].Action.ID, ShouldEqual, 1)
			So(resolved[1].Start().Timing, ShouldEqual, model.Miss)
			So(len(e.Judged()), ShouldEqual, 2)
		})
	})
}

func TestEngineKeys(t *testing.T) {
	Convey("Given a press at beat 0", t, func() {
		e, clk, rec, _ := newEngine([]model.InputAction{press(0)})

		Convey("When playback is stopped", func() {
			clk.playing = false

			Convey("Then key events are ignored", func() {
				So(e.HandleKey(down(0)), ShouldBeFalse)
				So(rec.events, ShouldBeEmpty)
			})
		})

		Convey("When an unmapped key is pressed", func() {
			Convey("Then nothing matches", func() {
				So(e.HandleKey(judge.KeyEvent{Code: 'Z', Down: true}), ShouldBeFalse)
				So(e.Done(), ShouldBeFalse)
			})
		})

		Convey("When a release arrives for a press action", func() {
			Convey("Then the direction does not match", func() {
				So(e.HandleKey(up(0)), ShouldBeFalse)
			})
		})

		Convey("When the key is pressed through the clock", func() {
			clk.seconds = -0.01

			Convey("Then the press is judged at the clock position", func() {
				So(e.OnKeyDown(keyJ), ShouldBeTrue)
				So(e.Judged()[0].Offset, ShouldAlmostEqual, -0.01, 1e-9)
			})
		})
	})

	Convey("Given two presses on the same beat", t, func() {
		e, _, _, c := newEngine([]model.InputAction{press(0), press(0)})

		Convey("Then each key press takes the first eligible action", func() {
			e.HandleKey(down(0))
			So(e.State(c.Actions()[0]), ShouldEqual, judge.Resolved)
			So(e.State(c.Actions()[1]), ShouldEqual, judge.Unresolved)
			e.HandleKey(down(0.01))
			So(e.State(c.Actions()[1]), ShouldEqual, judge.Resolved)
		})
	})

	Convey("Given a release-and-hold", t, func() {
		e, _, _, c := newEngine([]model.InputAction{hold(0, 1, model.ReleaseAndHold)})
		a := c.Actions()[0]

		Convey("Then a release starts it and a press finishes it", func() {
			So(e.HandleKey(down(0)), ShouldBeFalse)
			So(e.HandleKey(up(0.01)), ShouldBeTrue)
			So(e.State(a), ShouldEqual, judge.InProgress)
			So(e.HandleKey(down(1.05)), ShouldBeTrue)
			r, _ := e.Results(a)
			end, _ := r.End()
			So(end.Timing, ShouldEqual, model.Good)
		})
	})

	Convey("Given a long press held with another key", t, func() {
		controls := judge.Controls{model.ButtonA: {'J', 'L'}}
		c := catalog.FromActions([]model.InputAction{hold(0, 1, model.LongPress)})
		tm, _ := tempo.Constant(60)
		clk := &stubClock{playing: true}
		e := judge.New(c, tm, clk, controls.KeyMap())
		a := c.Actions()[0]

		Convey("Then only the same key code can finish it", func() {
			e.HandleKey(judge.KeyEvent{Code: 'J', Down: true, Seconds: 0})
			So(e.HandleKey(judge.KeyEvent{Code: 'L', Down: false, Seconds: 0.5}), ShouldBeFalse)
			So(e.State(a), ShouldEqual, judge.InProgress)
			So(e.HandleKey(judge.KeyEvent{Code: 'J', Down: false, Seconds: 0.5}), ShouldBeTrue)
			r, _ := e.Results(a)
			end, _ := r.End()
			So(end.Timing, ShouldEqual, model.Miss)
		})
	})
}

func TestEngineObjectives(t *testing.T) {
	Convey("Given a bonus on an instantaneous press", t, func() {
		c := catalog.FromActions([]model.InputAction{press(0), press(1)}, catalog.WithBonusBeat(1))
		e, _, rec, _ := newEngineWith(c)

		Convey("When it is aced", func() {
			e.HandleKey(down(0))
			e.HandleKey(down(1.01))

			Convey("Then the bonus is awarded once, before the score update", func() {
				So(e.BonusAchieved(), ShouldBeTrue)
				So(rec.bonus, ShouldEqual, 1)
				So(rec.events[len(rec.events)-4:], ShouldResemble, []string{"bonus", "score", "hit", "input"})
			})
		})

		Convey("When it is only good", func() {
			e.HandleKey(down(1.05))

			Convey("Then the bonus is not awarded", func() {
				So(e.BonusAchieved(), ShouldBeFalse)
			})
		})
	})

	Convey("Given a bonus on the end of a long press", t, func() {
		c := catalog.FromActions([]model.InputAction{hold(0, 2, model.LongPress)}, catalog.WithBonusBeat(2))
		e, _, rec, _ := newEngineWith(c)
		e.HandleKey(down(0))

		Convey("Then the start ace does not award it", func() {
			So(rec.bonus, ShouldEqual, 0)
		})

		Convey("Then holding through the end awards it", func() {
			e.UpdateAt(2.01)
			So(e.BonusAchieved(), ShouldBeTrue)
		})
	})

	Convey("Given a run that misses after a hit", t, func() {
		e, _, rec, _ := newEngine([]model.InputAction{press(0), press(1), press(2)})
		e.HandleKey(down(0))
		e.UpdateAt(1.5)
		e.HandleKey(down(2))

		Convey("Then perfect is broken once and hits stop being reported", func() {
			So(e.PerfectSoFar(), ShouldBeFalse)
			So(rec.broken, ShouldEqual, 1)
			So(rec.hits, ShouldEqual, 1)
		})

		Convey("Then the score stays inside bounds", func() {
			for _, s := range rec.scores {
				So(s, ShouldBeBetweenOrEqual, 0, 100)
			}
		})
	})

	Convey("Given custom windows", t, func() {
		w := model.Windows{Ace: 0.01, Good: 0.02, Barely: 0.03, Max: 0.04}
		e, _, _, _ := newEngine([]model.InputAction{press(0)}, judge.WithWindows(w))

		Convey("Then presses outside the narrower window do not match", func() {
			So(e.Windows(), ShouldResemble, w)
			So(e.HandleKey(down(0.05)), ShouldBeFalse)
			So(e.HandleKey(down(0.015)), ShouldBeTrue)
			So(e.Judged()[0].Timing, ShouldEqual, model.Good)
		})
	})
}

func TestEngineEdgeCases(t *testing.T) {
	Convey("Given an engine with an empty catalog", t, func() {
		e, _, rec, _ := newEngine(nil)

		Convey("When playback sweeps and keys are pressed", func() {
			e.UpdateAt(0)
			So(e.HandleKey(down(0.5)), ShouldBeFalse)
			So(e.HandleKey(up(0.6)), ShouldBeFalse)
			e.UpdateAt(10)

			Convey("Then nothing is notified and the score stays zero", func() {
				So(rec.events, ShouldBeEmpty)
				So(e.Score(), ShouldEqual, 0)
				So(e.Done(), ShouldBeTrue)
				So(e.Resolved(), ShouldBeEmpty)
				So(e.InProgress(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given offset scoring over a run with misses", t, func() {
		e, _, rec, _ := newEngine([]model.InputAction{
			press(0),
			press(1),
			hold(2, 1, model.PressAndHold),
		})
		e.SetScoringMode(scoring.ByOffset)

		e.HandleKey(down(0.1))
		e.UpdateAt(1.5)
		e.HandleKey(down(2))
		e.HandleKey(up(3.05))
		e.UpdateAt(10)

		Convey("Then every reported score stays inside bounds", func() {
			So(len(rec.scores), ShouldBeGreaterThan, 1)
			for _, s := range rec.scores {
				So(s, ShouldBeBetweenOrEqual, 0, 100)
			}
		})

		Convey("Then misses weigh nothing and hits weigh by offset", func() {
			want := ((1 - 0.1/model.DefaultMaxOffset) + 0 + 1 + (1 - 0.05/model.DefaultMaxOffset)) * 100 / 4
			So(e.Done(), ShouldBeTrue)
			So(e.Score(), ShouldAlmostEqual, want, 1e-9)
		})
	})
}
