package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/playalong/internal/adapters/repository"
	"github.com/okian/playalong/internal/app"
	"github.com/okian/playalong/internal/config"
	"github.com/okian/playalong/internal/domain/types"
	"github.com/okian/playalong/internal/replay"
	"github.com/okian/playalong/pkg/logger"
	"github.com/okian/playalong/pkg/metrics"
)

var errNoReplay = errors.New("no replay file given")

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	code := 0
	if _, err := run(ctx, cfg, os.Args[1:]); err != nil {
		loggerInstance.Error(ctx, "run failed", logger.Error(err))
		code = 1
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			loggerInstance.Error(ctx, "writing metrics failed", logger.String("path", cfg.MetricsFile), logger.Error(err))
			code = 1
		}
	}

	_ = logger.Sync()
	stop()
	os.Exit(code)
}

// run plays the replay named by args (or the configured one) and reports
// the result against the best stored run of the same chart.
func run(ctx context.Context, cfg *config.Config, args []string) (types.Summary, error) {
	log := logger.Get()

	path := cfg.ReplayFile
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return types.Summary{}, errNoReplay
	}

	rep, err := replay.Load(ctx, path)
	if err != nil {
		return types.Summary{}, err
	}

	weights, err := cfg.Weights()
	if err != nil {
		return types.Summary{}, err
	}
	controls := cfg.Controls()

	if cfg.Autoplay || len(rep.Events) == 0 {
		rep.Events = replay.Autoplay(rep.Level, controls)
		log.Info(ctx, "playing autoplay run", logger.String("level", rep.Name), logger.Int("events", len(rep.Events)))
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithQueueSize(cfg.KeyQueueSize),
		app.WithScoringMode(cfg.Mode()),
		app.WithWindows(cfg.Windows()),
		app.WithWeights(weights),
		app.WithControls(controls),
	}

	if cfg.DatabasePath != "" {
		store, err := repository.NewSQLiteStore(cfg.DatabasePath, repository.WithLogger(log))
		if err != nil {
			return types.Summary{}, fmt.Errorf("opening session history: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn(ctx, "closing session history failed", logger.Error(err))
			}
		}()
		opts = append(opts, app.WithStore(store))
	}

	session := app.New(opts...)

	best, err := session.Best(ctx, rep.Catalog().Fingerprint())
	hasBest := err == nil
	if err != nil && !errors.Is(err, app.ErrNoStore) && !errors.Is(err, repository.ErrNotFound) {
		log.Warn(ctx, "loading best run failed", logger.Error(err))
	}

	summary, err := session.Run(ctx, rep, cfg.FrameRate)
	if err != nil {
		return summary, err
	}

	fields := []logger.Field{
		logger.String("level", rep.Name),
		logger.Float64("score", summary.Score),
		logger.Bool("perfect", summary.Perfect),
		logger.Bool("bonus", summary.BonusAchieved),
	}
	for _, t := range []string{"ace", "good", "barely", "miss"} {
		fields = append(fields, logger.Int(t, summary.Count(t)))
	}
	if hasBest {
		fields = append(fields,
			logger.Float64("best_score", best.Score),
			logger.Bool("new_best", summary.Score > best.Score),
		)
	}
	log.Info(ctx, "run finished", fields...)

	return summary, nil
}
