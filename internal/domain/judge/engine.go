// Package judge matches live key events and clock-driven timeouts against an
// action catalog, grading every edge and keeping the running score.
//
// The engine is not safe for concurrent use. A host drives it from one loop:
// Update once per frame, then HandleKey for each key transition of that frame.
package judge

import (
	"context"
	"math"
	"sort"

	"github.com/okian/playalong/internal/domain/catalog"
	"github.com/okian/playalong/internal/domain/model"
	"github.com/okian/playalong/internal/domain/scoring"
	"github.com/okian/playalong/pkg/logger"
)

// State is the judging state of one action.
type State int

const (
	Unresolved State = iota
	InProgress
	Resolved
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case InProgress:
		return "in_progress"
	case Resolved:
		return "resolved"
	}
	return "unknown"
}

// pending is a two-stage action waiting for its end edge.
type pending struct {
	code  int
	start model.InputResult
}

// Engine judges one playthrough of a catalog.
type Engine struct {
	catalog *catalog.Catalog
	tempo   Tempo
	clock   Clock
	keys    KeyMap

	windows     model.Windows
	scorer      *scoring.Scorer
	scoringOpts []scoring.Option
	observers   Observers
	logger      logger.Logger

	// Per catalog position.
	startSec []float64
	endSec   []float64
	position map[int]int // action ID -> catalog position

	head       int   // every position before head is resolved
	inProgress []int // catalog positions, ascending
	pending    map[int]pending
	resolved   map[int]model.InputResults
	order      []int               // resolved positions in resolution order
	judged     []model.InputResult // every judged edge in resolution order

	bonus         catalog.Bonus
	hasBonus      bool
	bonusAchieved bool
	perfect       bool
	aces          int
	score         float64
}

// New builds an engine for the catalog. Beat positions are converted to
// seconds once, up front.
func New(c *catalog.Catalog, tempo Tempo, clock Clock, keys KeyMap, opts ...Option) *Engine {
	e := &Engine{
		catalog:  c,
		tempo:    tempo,
		clock:    clock,
		keys:     keys,
		windows:  model.DefaultWindows(),
		logger:   logger.Discard(),
		position: make(map[int]int, c.Len()),
		pending:  make(map[int]pending),
		resolved: make(map[int]model.InputResults, c.Len()),
		perfect:  true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.scorer = scoring.NewScorer(append([]scoring.Option{scoring.WithMaxOffset(e.windows.Max)}, e.scoringOpts...)...)

	actions := c.Actions()
	e.startSec = make([]float64, len(actions))
	e.endSec = make([]float64, len(actions))
	for i, a := range actions {
		e.position[a.ID] = i
		e.startSec[i] = tempo.BeatsToSeconds(a.Beat)
		e.endSec[i] = tempo.BeatsToSeconds(a.EndBeat())
	}
	e.bonus, e.hasBonus = c.Bonus()
	return e
}

// Update runs the timeout sweep at the clock's current seconds.
func (e *Engine) Update() {
	e.UpdateAt(e.clock.Seconds())
}

// UpdateAt resolves every edge whose window has elapsed at t: in-progress
// end edges first, then untouched actions. Calling it again with the same t
// is a no-op.
func (e *Engine) UpdateAt(t float64) {
	actions := e.catalog.Actions()

	for _, pos := range append([]int(nil), e.inProgress...) {
		a := actions[pos]
		end := e.endSec[pos]
		switch {
		case a.Method == model.LongPress && t > end:
			e.completeEnd(pos, model.InputResult{Offset: e.endOffset(a, t-end), Timing: model.Ace}, t)
		case a.Method != model.Press && t > end+e.windows.Max:
			e.completeEnd(pos, model.InputResult{Offset: e.missOffset(t - end), Timing: model.Miss}, t)
		}
	}

	for pos := e.head; pos < len(actions); pos++ {
		if t <= e.startSec[pos]+e.windows.Max {
			// Start seconds are non-decreasing, so nothing later can have
			// timed out either.
			break
		}
		if e.stateAt(pos) != Unresolved {
			continue
		}
		a := actions[pos]
		start := model.InputResult{Offset: e.missOffset(t - e.startSec[pos]), Timing: model.Miss}
		if a.IsInstantaneous() {
			e.resolve(pos, t, true, start)
			continue
		}
		end := model.InputResult{Offset: e.missOffset(t - e.endSec[pos]), Timing: model.Miss}
		e.resolve(pos, t, true, start, end)
	}
}

// OnKeyDown judges a key press at the clock's current seconds.
func (e *Engine) OnKeyDown(code int) bool {
	return e.HandleKey(KeyEvent{Code: code, Down: true, Seconds: e.clock.Seconds()})
}

// OnKeyUp judges a key release at the clock's current seconds.
func (e *Engine) OnKeyUp(code int) bool {
	return e.HandleKey(KeyEvent{Code: code, Down: false, Seconds: e.clock.Seconds()})
}

// HandleKey judges one key transition. It reports whether the event started
// or resolved any edge. Events are ignored while playback is stopped, and
// unmapped key codes never match.
func (e *Engine) HandleKey(ev KeyEvent) bool {
	if !e.clock.Playing() {
		return false
	}
	inputs := e.keys.Inputs(ev.Code)
	if len(inputs) == 0 {
		return false
	}
	return e.HandleInputs(ev.Down, inputs, ev.Code, ev.Seconds)
}

// HandleInputs judges a transition already mapped to logical inputs. code is
// remembered for two-stage actions so only the same key can finish them.
func (e *Engine) HandleInputs(down bool, inputs []model.Input, code int, t float64) bool {
	if !e.clock.Playing() {
		return false
	}
	actions := e.catalog.Actions()
	consumed := false
	started := -1

	if pos, ok := e.search(down, inputs, t); ok {
		a := actions[pos]
		result := e.judge(t - e.startSec[pos])
		consumed = true
		if a.IsInstantaneous() || !a.Method.IsTwoStage() {
			e.resolve(pos, t, false, result)
		} else {
			e.begin(pos, code, result, t)
			started = pos
		}
	}

	for _, pos := range append([]int(nil), e.inProgress...) {
		if pos == started {
			continue
		}
		p := e.pending[pos]
		if p.code != code {
			continue
		}
		a := actions[pos]
		releaseEnds := !down && (a.Method == model.LongPress || a.Method == model.PressAndHold)
		pressEnds := down && a.Method == model.ReleaseAndHold
		if !releaseEnds && !pressEnds {
			continue
		}
		e.completeEnd(pos, e.judgeEnd(a, t-e.endSec[pos]), t)
		consumed = true
	}
	return consumed
}

// search returns the earliest untouched action matching the event whose start
// is within the tolerance window of t.
func (e *Engine) search(down bool, inputs []model.Input, t float64) (int, bool) {
	actions := e.catalog.Actions()
	for pos := e.head; pos < len(actions); pos++ {
		start := e.startSec[pos]
		if start > t+e.windows.Max {
			break
		}
		if math.Abs(t-start) > e.windows.Max || e.stateAt(pos) != Unresolved {
			continue
		}
		a := actions[pos]
		if a.Method.RequiresRelease() == down || !containsInput(inputs, a.Input) {
			continue
		}
		return pos, true
	}
	return 0, false
}

func containsInput(inputs []model.Input, in model.Input) bool {
	for _, i := range inputs {
		if i == in {
			return true
		}
	}
	return false
}

func (e *Engine) judge(offset float64) model.InputResult {
	return model.InputResult{Offset: offset, Timing: e.windows.Classify(offset)}
}

// judgeEnd grades an end edge. Holding a long press past its end is never
// late.
func (e *Engine) judgeEnd(a model.InputAction, offset float64) model.InputResult {
	return e.judge(e.endOffset(a, offset))
}

func (e *Engine) endOffset(a model.InputAction, offset float64) float64 {
	if a.Method == model.LongPress && offset > 0 {
		return 0
	}
	return offset
}

// missOffset is the offset recorded for an edge forced to miss: its real
// lateness, but never inside the tolerance window.
func (e *Engine) missOffset(offset float64) float64 {
	return math.Max(offset, e.windows.Max)
}

func (e *Engine) begin(pos, code int, start model.InputResult, t float64) {
	e.pending[pos] = pending{code: code, start: start}
	i := sort.SearchInts(e.inProgress, pos)
	e.inProgress = append(e.inProgress, 0)
	copy(e.inProgress[i+1:], e.inProgress[i:])
	e.inProgress[i] = pos

	e.judged = append(e.judged, start)
	e.emit(pos, start, true, t)
}

func (e *Engine) completeEnd(pos int, end model.InputResult, t float64) {
	p := e.pending[pos]
	delete(e.pending, pos)
	i := sort.SearchInts(e.inProgress, pos)
	e.inProgress = append(e.inProgress[:i], e.inProgress[i+1:]...)

	e.store(pos, p.start, end)
	e.judged = append(e.judged, end)
	e.emit(pos, end, false, t)
}

// resolve records an untouched action as fully judged. With two results the
// end edge is notified right after the start edge.
func (e *Engine) resolve(pos int, t float64, timedOut bool, results ...model.InputResult) {
	e.store(pos, results...)
	e.judged = append(e.judged, results...)
	if timedOut {
		e.logger.Debug(context.Background(), "action timed out",
			logger.String("action", e.catalog.Actions()[pos].String()),
			logger.Float64("seconds", t),
		)
	}
	for i, r := range results {
		e.emit(pos, r, i == 0, t)
	}
}

func (e *Engine) store(pos int, results ...model.InputResult) {
	e.resolved[pos] = model.NewInputResults(e.catalog.Actions()[pos], results...)
	e.order = append(e.order, pos)
	for e.head < len(e.startSec) {
		if _, ok := e.resolved[e.head]; !ok {
			break
		}
		e.head++
	}
}

func (e *Engine) emit(pos int, r model.InputResult, start bool, t float64) {
	a := e.catalog.Actions()[pos]

	if !e.bonusAchieved && e.hasBonus && e.bonus.Action.ID == a.ID && e.bonus.OnStart == start &&
		r.Timing == model.Ace && t <= e.bonusSecond()+e.windows.Max {
		e.bonusAchieved = true
		e.observers.OnBonusAchieved()
	}

	if r.Timing == model.Ace {
		e.aces++
	}

	e.updateScore()

	if e.perfect {
		if r.Timing == model.Miss {
			e.perfect = false
			e.observers.OnPerfectBroken()
		} else {
			e.observers.OnPerfectHit()
		}
	}

	e.logger.Debug(context.Background(), "edge judged",
		logger.String("action", a.String()),
		logger.Bool("start", start),
		logger.String("timing", r.Timing.String()),
		logger.Float64("offset", r.Offset),
		logger.Float64("score", e.score),
	)
	e.observers.OnInput(a, r, start)
}

func (e *Engine) bonusSecond() float64 {
	pos := e.position[e.bonus.Action.ID]
	if e.bonus.OnStart {
		return e.startSec[pos]
	}
	return e.endSec[pos]
}

// updateScore rescores the fully resolved actions. Start edges of actions
// still in progress do not count until their end edge resolves.
func (e *Engine) updateScore() {
	results := make([]model.InputResult, 0, len(e.judged))
	for _, pos := range e.order {
		results = append(results, e.resolved[pos].Results()...)
	}
	e.score = e.scorer.Score(results, e.catalog.ExpectedResults())
	e.observers.OnScoreChanged(e.score)
}

func (e *Engine) stateAt(pos int) State {
	if _, ok := e.resolved[pos]; ok {
		return Resolved
	}
	if _, ok := e.pending[pos]; ok {
		return InProgress
	}
	return Unresolved
}

// State reports the judging state of an action from this engine's catalog.
func (e *Engine) State(a model.InputAction) State {
	pos, ok := e.position[a.ID]
	if !ok {
		return Unresolved
	}
	return e.stateAt(pos)
}

// Results returns the results of a fully resolved action.
func (e *Engine) Results(a model.InputAction) (model.InputResults, bool) {
	pos, ok := e.position[a.ID]
	if !ok {
		return model.InputResults{}, false
	}
	r, ok := e.resolved[pos]
	return r, ok
}

// Resolved returns every fully resolved action in resolution order.
func (e *Engine) Resolved() []model.InputResults {
	out := make([]model.InputResults, len(e.order))
	for i, pos := range e.order {
		out[i] = e.resolved[pos]
	}
	return out
}

// Judged returns every judged edge in resolution order, including start
// edges of actions still in progress.
func (e *Engine) Judged() []model.InputResult {
	out := make([]model.InputResult, len(e.judged))
	copy(out, e.judged)
	return out
}

// InProgress returns the number of two-stage actions awaiting their end edge.
func (e *Engine) InProgress() int {
	return len(e.inProgress)
}

// Done reports whether every action is resolved.
func (e *Engine) Done() bool {
	return len(e.resolved) == e.catalog.Len()
}

// Score returns the current score in [0,100].
func (e *Engine) Score() float64 {
	return e.score
}

// ScoringMode returns the active weighting mode.
func (e *Engine) ScoringMode() scoring.Mode {
	return e.scorer.Mode()
}

// SetScoringMode switches the weighting mode, recomputes the score from the
// results judged so far and notifies observers.
func (e *Engine) SetScoringMode(mode scoring.Mode) {
	e.scorer.SetMode(mode)
	e.updateScore()
}

// BonusAchieved reports whether the bonus objective was hit.
func (e *Engine) BonusAchieved() bool {
	return e.bonusAchieved
}

// PerfectSoFar reports whether no edge has been missed yet.
func (e *Engine) PerfectSoFar() bool {
	return e.perfect
}

// Aces returns the number of edges graded ace.
func (e *Engine) Aces() int {
	return e.aces
}

// Windows returns the timing thresholds in use.
func (e *Engine) Windows() model.Windows {
	return e.windows
}

// Catalog returns the catalog being judged.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Bonus returns the bonus objective, if any.
func (e *Engine) Bonus() (catalog.Bonus, bool) {
	return e.bonus, e.hasBonus
}
