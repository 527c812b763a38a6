// Package replay loads recorded playthroughs from YAML files and generates
// perfect key streams for any level.
package replay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/playalong/internal/domain/catalog"
	"github.com/okian/playalong/internal/domain/judge"
	"github.com/okian/playalong/internal/domain/model"
	"github.com/okian/playalong/internal/domain/tempo"
	"github.com/okian/playalong/pkg/logger"
)

// ActionSpec is one action as written in a replay file.
type ActionSpec struct {
	Beat     float64 `koanf:"beat"`
	Duration float64 `koanf:"duration"`
	Method   string  `koanf:"method"`
	Input    string  `koanf:"input"`
}

// EventSpec is one recorded key transition.
type EventSpec struct {
	Seconds float64 `koanf:"seconds"`
	Key     int     `koanf:"key"`
	Down    bool    `koanf:"down"`
}

type document struct {
	Name         string         `koanf:"name"`
	BPM          float64        `koanf:"bpm"`
	TempoChanges []tempo.Change `koanf:"tempo_changes"`
	BonusBeat    *float64       `koanf:"bonus_beat"`
	Actions      []ActionSpec   `koanf:"actions"`
	Events       []EventSpec    `koanf:"events"`
}

// Level is the judged content of a chart: its tempo, actions and the
// optional bonus trigger.
type Level struct {
	Name      string
	Tempo     *tempo.Map
	Actions   []model.InputAction
	BonusBeat float64
	HasBonus  bool
}

// Catalog builds the action catalog of the level.
func (l Level) Catalog() *catalog.Catalog {
	var opts []catalog.Option
	if l.HasBonus {
		opts = append(opts, catalog.WithBonusBeat(l.BonusBeat))
	}
	return catalog.FromActions(l.Actions, opts...)
}

// EndSeconds is the second at which the last edge of the level ends.
func (l Level) EndSeconds() float64 {
	end := 0.0
	for _, a := range l.Actions {
		end = math.Max(end, l.Tempo.BeatsToSeconds(a.EndBeat()))
	}
	return end
}

// Replay is a level plus the key events recorded while playing it.
type Replay struct {
	Level
	Events []judge.KeyEvent
}

// EndSeconds is the later of the level end and the last recorded event.
func (r *Replay) EndSeconds() float64 {
	end := r.Level.EndSeconds()
	if n := len(r.Events); n > 0 {
		end = math.Max(end, r.Events[n-1].Seconds)
	}
	return end
}

// Load reads a replay file.
func Load(ctx context.Context, path string) (*Replay, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidReplay, path, err)
	}

	var doc document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidReplay, path, err)
	}

	r, err := build(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logger.Get().Debug(ctx, "replay loaded",
		logger.String("path", path),
		logger.Int("actions", len(r.Actions)),
		logger.Int("events", len(r.Events)),
	)
	return r, nil
}

func build(doc document) (*Replay, error) {
	tm, err := tempo.New(doc.BPM, doc.TempoChanges...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReplay, err)
	}

	r := &Replay{Level: Level{Name: doc.Name, Tempo: tm}}
	if doc.BonusBeat != nil {
		r.BonusBeat = *doc.BonusBeat
		r.HasBonus = true
	}

	r.Actions = make([]model.InputAction, 0, len(doc.Actions))
	for i, spec := range doc.Actions {
		a, err := spec.action()
		if err != nil {
			return nil, fmt.Errorf("%w: action %d: %w", ErrInvalidReplay, i, err)
		}
		r.Actions = append(r.Actions, a)
	}

	r.Events = make([]judge.KeyEvent, 0, len(doc.Events))
	for _, spec := range doc.Events {
		r.Events = append(r.Events, judge.KeyEvent{Code: spec.Key, Down: spec.Down, Seconds: spec.Seconds})
	}
	sortEvents(r.Events)
	return r, nil
}

func (s ActionSpec) action() (model.InputAction, error) {
	method, err := model.ParseMethod(s.Method)
	if err != nil {
		return model.InputAction{}, err
	}
	switch {
	case s.Input == "":
		return model.InputAction{}, errors.New("missing input")
	case s.Beat < 0 || s.Duration < 0:
		return model.InputAction{}, errors.New("negative beat or duration")
	case method.IsTwoStage() && s.Duration == 0:
		return model.InputAction{}, fmt.Errorf("%s needs a duration", method)
	}
	return model.InputAction{
		Beat:     s.Beat,
		Duration: s.Duration,
		Method:   method,
		Input:    model.Input(s.Input),
	}, nil
}

// sortEvents orders events by time. At the same second releases come first,
// so a key can be re-pressed on the instant it is let go.
func sortEvents(events []judge.KeyEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Seconds != events[j].Seconds {
			return events[i].Seconds < events[j].Seconds
		}
		return !events[i].Down && events[j].Down
	})
}
