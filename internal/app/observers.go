package app

import (
	"context"

	"github.com/okian/playalong/internal/domain/judge"
	"github.com/okian/playalong/internal/domain/model"
	"github.com/okian/playalong/pkg/logger"
	"github.com/okian/playalong/pkg/metrics"
)

// metricsObserver exports engine events as Prometheus metrics.
type metricsObserver struct {
	judge.NopObserver
}

func (metricsObserver) OnInput(_ model.InputAction, result model.InputResult, start bool) {
	metrics.RecordEdgeJudged(result.Timing.String(), start, result.Offset)
}

func (metricsObserver) OnBonusAchieved() {
	metrics.RecordBonusAchieved()
}

func (metricsObserver) OnPerfectBroken() {
	metrics.RecordPerfectBroken()
}

func (metricsObserver) OnScoreChanged(score float64) {
	metrics.UpdateScore(score)
}

// loggingObserver reports run objectives as they change.
type loggingObserver struct {
	judge.NopObserver
	ctx       context.Context //nolint:containedctx // observer callbacks carry no context
	logger    logger.Logger
	sessionID string
}

func (o loggingObserver) OnBonusAchieved() {
	o.logger.Info(o.ctx, "bonus achieved", logger.String("session_id", o.sessionID))
}

func (o loggingObserver) OnPerfectBroken() {
	o.logger.Info(o.ctx, "perfect run broken", logger.String("session_id", o.sessionID))
}

func (o loggingObserver) OnInput(action model.InputAction, result model.InputResult, start bool) {
	if result.Timing != model.Miss {
		return
	}
	o.logger.Debug(o.ctx, "edge missed",
		logger.String("session_id", o.sessionID),
		logger.String("action", action.String()),
		logger.Bool("start", start),
		logger.Float64("offset", result.Offset),
	)
}
