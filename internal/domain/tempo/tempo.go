// Package tempo converts between beats and playback seconds for a tempo
// track with optional tempo changes.
package tempo

import (
	"fmt"
	"sort"
)

// Change switches the tempo to BPM from Beat onwards.
type Change struct {
	Beat float64 `koanf:"beat"`
	BPM  float64 `koanf:"bpm"`
}

type segment struct {
	beat    float64
	seconds float64
	bpm     float64
}

// Map is an immutable tempo track. The zero value is not usable; build one
// with New or Constant.
type Map struct {
	segments []segment
}

// Constant returns a map with a single tempo.
func Constant(bpm float64) (*Map, error) {
	return New(bpm)
}

// New builds a map starting at bpm with the given changes. Changes at the
// same beat keep the last one.
func New(bpm float64, changes ...Change) (*Map, error) {
	if bpm <= 0 {
		return nil, fmt.Errorf("%w: bpm %g", ErrInvalidTempo, bpm)
	}
	sorted := make([]Change, len(changes))
	copy(sorted, changes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Beat < sorted[j].Beat })

	m := &Map{segments: []segment{{beat: 0, seconds: 0, bpm: bpm}}}
	for _, c := range sorted {
		if c.BPM <= 0 || c.Beat < 0 {
			return nil, fmt.Errorf("%w: change %+v", ErrInvalidTempo, c)
		}
		last := &m.segments[len(m.segments)-1]
		if c.Beat == last.beat {
			last.bpm = c.BPM
			continue
		}
		m.segments = append(m.segments, segment{
			beat:    c.Beat,
			seconds: last.seconds + (c.Beat-last.beat)*60/last.bpm,
			bpm:     c.BPM,
		})
	}
	return m, nil
}

// BeatsToSeconds converts a beat position to playback seconds. Negative
// beats extrapolate with the initial tempo.
func (m *Map) BeatsToSeconds(beat float64) float64 {
	i := sort.Search(len(m.segments), func(i int) bool { return m.segments[i].beat > beat }) - 1
	if i < 0 {
		i = 0
	}
	s := m.segments[i]
	return s.seconds + (beat-s.beat)*60/s.bpm
}

// SecondsToBeats converts playback seconds to a beat position.
func (m *Map) SecondsToBeats(seconds float64) float64 {
	i := sort.Search(len(m.segments), func(i int) bool { return m.segments[i].seconds > seconds }) - 1
	if i < 0 {
		i = 0
	}
	s := m.segments[i]
	return s.beat + (seconds-s.seconds)*s.bpm/60
}

// BPMAt returns the tempo in effect at beat.
func (m *Map) BPMAt(beat float64) float64 {
	i := sort.Search(len(m.segments), func(i int) bool { return m.segments[i].beat > beat }) - 1
	if i < 0 {
		i = 0
	}
	return m.segments[i].bpm
}
