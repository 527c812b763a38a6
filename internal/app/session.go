// Package app runs judging sessions: it wires a level's catalog, the
// playback clock, the key queue and the judging engine, and keeps the
// session history up to date.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/playalong/internal/adapters/clock"
	"github.com/okian/playalong/internal/adapters/mq/queue"
	"github.com/okian/playalong/internal/adapters/repository"
	"github.com/okian/playalong/internal/domain/catalog"
	"github.com/okian/playalong/internal/domain/judge"
	"github.com/okian/playalong/internal/domain/model"
	"github.com/okian/playalong/internal/domain/scoring"
	"github.com/okian/playalong/internal/domain/types"
	"github.com/okian/playalong/internal/replay"
	"github.com/okian/playalong/pkg/logger"
	"github.com/okian/playalong/pkg/metrics"
)

const defaultQueueSize = 256

// Session plays one level at a time. Submit may be called from any
// goroutine; every other method belongs to the frame loop.
type Session struct {
	mu sync.RWMutex

	// Configuration
	queueSize int
	mode      scoring.Mode
	windows   model.Windows
	weights   scoring.Weights
	controls  judge.Controls
	store     repository.Store
	observers []judge.Observer

	// Per-run state
	id        string
	catalog   *catalog.Catalog
	clock     *clock.Manual
	queue     *queue.KeyQueue
	engine    *judge.Engine
	startedAt time.Time
	started   bool

	logger logger.Logger
}

// New constructs a Session with default configuration.
func New(opts ...Option) *Session {
	s := &Session{
		queueSize: defaultQueueSize,
		mode:      scoring.ByTiming,
		windows:   model.DefaultWindows(),
		weights:   scoring.DefaultWeights(),
		controls:  judge.DefaultControls(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins judging a level with playback at second 0.
func (s *Session) Start(ctx context.Context, level replay.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.id = uuid.New().String()
	s.catalog = level.Catalog()
	s.clock = clock.NewManual()
	s.queue = queue.NewKeyQueue(queue.WithCapacity(s.queueSize))

	opts := []judge.Option{
		judge.WithLogger(s.logger.Named("judge")),
		judge.WithWindows(s.windows),
		judge.WithWeights(s.weights),
		judge.WithScoringMode(s.mode),
		judge.WithObserver(metricsObserver{}),
		judge.WithObserver(loggingObserver{ctx: ctx, logger: s.logger, sessionID: s.id}),
	}
	for _, o := range s.observers {
		opts = append(opts, judge.WithObserver(o))
	}
	s.engine = judge.New(s.catalog, level.Tempo, s.clock, s.controls.KeyMap(), opts...)

	s.clock.Play()
	s.startedAt = time.Now()
	s.started = true

	metrics.RecordSession("started")
	metrics.UpdateScore(0)
	metrics.UpdateAces(0)
	metrics.UpdateInProgress(0)

	s.logger.Info(ctx, "session started",
		logger.String("session_id", s.id),
		logger.String("level", level.Name),
		logger.Int("actions", s.catalog.Len()),
		logger.String("chart_hash", s.catalog.Fingerprint()),
		logger.String("mode", s.mode.String()),
	)
	if s.catalog.RequiresTouchInput() {
		s.logger.Warn(ctx, "level contains touchscreen inputs", logger.String("session_id", s.id))
	}
	return nil
}

// Submit buffers a key event for the next frame.
func (s *Session) Submit(ctx context.Context, ev judge.KeyEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}
	return s.queue.Enqueue(ctx, ev)
}

// Frame advances playback to second t. Buffered key events are judged in
// time order, each after a sweep at its own second, and a final sweep runs
// at t.
func (s *Session) Frame(ctx context.Context, t float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}

	events := s.queue.Drain(ctx, 0)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Seconds < events[j].Seconds })

	for _, ev := range events {
		s.clock.Seek(ev.Seconds)
		s.sweep(ev.Seconds)
		if s.engine.HandleKey(ev) {
			metrics.RecordKeyEvent("consumed")
		} else {
			metrics.RecordKeyEvent("ignored")
		}
	}

	s.clock.Seek(t)
	s.sweep(t)

	metrics.UpdateAces(s.engine.Aces())
	metrics.UpdateInProgress(s.engine.InProgress())
	return nil
}

func (s *Session) sweep(t float64) {
	start := time.Now()
	s.engine.UpdateAt(t)
	metrics.RecordSweepLatency(float64(time.Since(start).Microseconds()) / 1000)
}

// Run plays a replay to completion at frameRate frames per second, then
// stops the session. Key events are submitted on the first frame at or after
// their second.
func (s *Session) Run(ctx context.Context, r *replay.Replay, frameRate float64) (types.Summary, error) {
	if frameRate <= 0 {
		return types.Summary{}, fmt.Errorf("invalid frame rate %g", frameRate)
	}
	if err := s.Start(ctx, r.Level); err != nil {
		return types.Summary{}, err
	}

	step := 1 / frameRate
	end := r.EndSeconds() + s.windows.Max + step
	next := 0

	for frame := 0; ; frame++ {
		if err := ctx.Err(); err != nil {
			summary, stopErr := s.Stop(context.WithoutCancel(ctx))
			return summary, errors.Join(err, stopErr)
		}

		t := float64(frame) * step
		for ; next < len(r.Events) && r.Events[next].Seconds <= t; next++ {
			if err := s.Submit(ctx, r.Events[next]); err != nil {
				s.logger.Debug(ctx, "key event dropped",
					logger.Int("key", r.Events[next].Code),
					logger.Float64("seconds", r.Events[next].Seconds),
					logger.Error(err),
				)
			}
		}
		if err := s.Frame(ctx, t); err != nil {
			return types.Summary{}, err
		}

		if (s.Done() && next == len(r.Events)) || t > end {
			break
		}
	}

	return s.Stop(ctx)
}

// Stop ends the session, saves it when history is configured and returns its
// summary.
func (s *Session) Stop(ctx context.Context) (types.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return types.Summary{}, ErrNotStarted
	}

	s.clock.Stop()
	_ = s.queue.Close()
	s.started = false

	summary := s.summary()
	metrics.RecordSession("stopped")

	s.logger.Info(ctx, "session stopped",
		logger.String("session_id", summary.SessionID),
		logger.Float64("score", summary.Score),
		logger.Int("aces", summary.Aces),
		logger.Bool("perfect", summary.Perfect),
		logger.Bool("bonus", summary.BonusAchieved),
		logger.Int("resolved", summary.Resolved),
		logger.Int("actions", summary.Actions),
	)

	if s.store == nil {
		return summary, nil
	}
	if _, err := s.store.Save(ctx, summary, s.engine.Resolved()); err != nil {
		return summary, fmt.Errorf("saving session %s: %w", summary.SessionID, err)
	}
	return summary, nil
}

// Summary returns the summary of the current or last session.
func (s *Session) Summary() types.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.engine == nil {
		return types.Summary{}
	}
	return s.summary()
}

func (s *Session) summary() types.Summary {
	timings := make(map[string]int, len(model.Timings))
	for _, r := range s.engine.Judged() {
		timings[r.Timing.String()]++
	}
	return types.Summary{
		SessionID:     s.id,
		ChartHash:     s.catalog.Fingerprint(),
		Mode:          s.engine.ScoringMode().String(),
		Score:         s.engine.Score(),
		Aces:          s.engine.Aces(),
		Perfect:       s.engine.PerfectSoFar() && s.engine.Done(),
		BonusAchieved: s.engine.BonusAchieved(),
		Resolved:      len(s.engine.Resolved()),
		Actions:       s.catalog.Len(),
		Timings:       timings,
		StartedAt:     s.startedAt,
		Duration:      time.Since(s.startedAt),
	}
}

// Done reports whether every action of the running level is resolved.
func (s *Session) Done() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine != nil && s.engine.Done()
}

// Score returns the current score.
func (s *Session) Score() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.engine == nil {
		return 0
	}
	return s.engine.Score()
}

// SetScoringMode switches the weighting mode of the running session and of
// later sessions.
func (s *Session) SetScoringMode(mode scoring.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = mode
	if s.started {
		s.engine.SetScoringMode(mode)
	}
}

// Best returns the best stored session of a chart.
func (s *Session) Best(ctx context.Context, chartHash string) (types.Summary, error) {
	if s.store == nil {
		return types.Summary{}, ErrNoStore
	}
	return s.store.Best(ctx, chartHash)
}

// Stats returns a snapshot of the session state.
func (s *Session) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started": s.started,
		"mode":    s.mode.String(),
	}
	if s.engine == nil {
		return stats
	}
	stats["session_id"] = s.id
	stats["actions"] = s.catalog.Len()
	stats["resolved"] = len(s.engine.Resolved())
	stats["in_progress"] = s.engine.InProgress()
	stats["queued"] = s.queue.Len()
	stats["score"] = s.engine.Score()
	stats["aces"] = s.engine.Aces()
	stats["playback_seconds"] = s.clock.Seconds()
	return stats
}
