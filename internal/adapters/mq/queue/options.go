// Package queue buffers key events between input producers and the frame
// loop that feeds the judging engine.
package queue

// Option applies a configuration option to the KeyQueue.
type Option func(*KeyQueue)

// WithCapacity sets the maximum number of buffered events.
func WithCapacity(capacity int) Option {
	return func(q *KeyQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithAutoRepeatFilter drops repeated presses of a key that is already held.
// Enabled by default.
func WithAutoRepeatFilter(enabled bool) Option {
	return func(q *KeyQueue) {
		q.filterRepeat = enabled
	}
}
