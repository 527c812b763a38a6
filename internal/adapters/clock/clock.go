// Package clock provides playback clocks for the judging engine.
package clock

import (
	"sync"
	"sync/atomic"
)

// Manual is a playback clock moved explicitly by its host, one frame at a
// time. It is safe to read while another goroutine seeks it.
type Manual struct {
	mu      sync.RWMutex
	seconds float64
	playing atomic.Bool
}

// NewManual creates a stopped clock at second 0.
func NewManual() *Manual {
	return &Manual{}
}

// Seconds returns the current playback position.
func (m *Manual) Seconds() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seconds
}

// Playing reports whether playback is running.
func (m *Manual) Playing() bool {
	return m.playing.Load()
}

// Seek moves the playback position. Seeking backwards is allowed.
func (m *Manual) Seek(seconds float64) {
	m.mu.Lock()
	m.seconds = seconds
	m.mu.Unlock()
}

// Advance moves the playback position forward by delta seconds and returns
// the new position. It does nothing while stopped.
func (m *Manual) Advance(delta float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playing.Load() {
		m.seconds += delta
	}
	return m.seconds
}

// Play starts playback.
func (m *Manual) Play() {
	m.playing.Store(true)
}

// Stop halts playback, freezing the position.
func (m *Manual) Stop() {
	m.playing.Store(false)
}
