package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/okian/playalong/internal/domain/model"
	"github.com/okian/playalong/internal/domain/types"
	"github.com/okian/playalong/pkg/logger"
	"github.com/okian/playalong/pkg/metrics"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultMaxOpenConns = 4
	defaultBatchSize    = 500
)

// SessionRecord is one stored session.
type SessionRecord struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	ChartHash     string `gorm:"index:idx_session_chart_score,priority:1"`
	Mode          string
	Score         float64 `gorm:"index:idx_session_chart_score,priority:2"`
	Aces          int
	Goods         int
	Barelies      int
	Misses        int
	Perfect       bool
	BonusAchieved bool
	Resolved      int
	Actions       int
	StartedAt     time.Time
	DurationMs    int64
	CreatedAt     time.Time    `gorm:"index:idx_session_created"`
	Edges         []EdgeRecord `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// EdgeRecord is one judged edge of a stored session.
type EdgeRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"type:varchar(36);index:idx_edge_session"`
	Seq       int
	ActionID  int
	Beat      float64
	Method    string
	Input     string
	Start     bool
	Timing    string
	Offset    float64
}

// SQLiteStore implements Store on a SQLite file through gorm.
type SQLiteStore struct {
	db           *gorm.DB
	maxOpenConns int
	batchSize    int
	logger       logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path and
// migrates the schema.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		maxOpenConns: defaultMaxOpenConns,
		batchSize:    defaultBatchSize,
		logger:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(s.maxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&SessionRecord{}, &EdgeRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	s.db = db
	return s, nil
}

// Save stores a finished session and its judged edges in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, summary types.Summary, resolved []model.InputResults) (string, error) {
	if s.db == nil {
		return "", ErrClosed
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositorySaveLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	rec := fromSummary(summary)
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	edges := edgeRecords(rec.ID, resolved)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Edges").Create(&rec).Error; err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		if len(edges) > 0 {
			if err := tx.CreateInBatches(edges, s.batchSize).Error; err != nil {
				return fmt.Errorf("batch insert edges: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		metrics.RecordRepositoryError("save")
		s.logger.Error(ctx, "failed to save session", logger.String("session_id", rec.ID), logger.Error(err))
		return "", err
	}

	s.logger.Debug(ctx, "session saved",
		logger.String("session_id", rec.ID),
		logger.String("chart_hash", rec.ChartHash),
		logger.Float64("score", rec.Score),
		logger.Int("edges", len(edges)),
	)
	return rec.ID, nil
}

// Sessions returns the most recent sessions of a chart, newest first.
func (s *SQLiteStore) Sessions(ctx context.Context, chartHash string, limit int) ([]types.Summary, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if s.db == nil {
		return nil, ErrClosed
	}

	var rows []SessionRecord
	err := s.db.WithContext(ctx).
		Where("chart_hash = ?", chartHash).
		Order("created_at DESC").
		Order("id").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		metrics.RecordRepositoryError("sessions")
		return nil, fmt.Errorf("querying sessions: %w", err)
	}

	out := make([]types.Summary, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toSummary())
	}
	return out, nil
}

// Best returns the highest scoring session of a chart.
func (s *SQLiteStore) Best(ctx context.Context, chartHash string) (types.Summary, error) {
	if s.db == nil {
		return types.Summary{}, ErrClosed
	}

	var row SessionRecord
	err := s.db.WithContext(ctx).
		Where("chart_hash = ?", chartHash).
		Order("score DESC").
		Order("created_at").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Summary{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordRepositoryError("best")
		return types.Summary{}, fmt.Errorf("querying best session: %w", err)
	}
	return row.toSummary(), nil
}

// Edges returns the judged edges of a session in resolution order.
func (s *SQLiteStore) Edges(ctx context.Context, sessionID string) ([]EdgeRecord, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	var rows []EdgeRecord
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("seq").Find(&rows).Error; err != nil {
		metrics.RecordRepositoryError("edges")
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	return rows, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.db = nil
	return sqlDB.Close()
}

func fromSummary(s types.Summary) SessionRecord {
	return SessionRecord{
		ID:            s.SessionID,
		ChartHash:     s.ChartHash,
		Mode:          s.Mode,
		Score:         s.Score,
		Aces:          s.Aces,
		Goods:         s.Count(model.Good.String()),
		Barelies:      s.Count(model.Barely.String()),
		Misses:        s.Count(model.Miss.String()),
		Perfect:       s.Perfect,
		BonusAchieved: s.BonusAchieved,
		Resolved:      s.Resolved,
		Actions:       s.Actions,
		StartedAt:     s.StartedAt,
		DurationMs:    s.Duration.Milliseconds(),
	}
}

func (r *SessionRecord) toSummary() types.Summary {
	return types.Summary{
		SessionID:     r.ID,
		ChartHash:     r.ChartHash,
		Mode:          r.Mode,
		Score:         r.Score,
		Aces:          r.Aces,
		Perfect:       r.Perfect,
		BonusAchieved: r.BonusAchieved,
		Resolved:      r.Resolved,
		Actions:       r.Actions,
		Timings: map[string]int{
			model.Ace.String():    r.Aces,
			model.Good.String():   r.Goods,
			model.Barely.String(): r.Barelies,
			model.Miss.String():   r.Misses,
		},
		StartedAt: r.StartedAt,
		Duration:  time.Duration(r.DurationMs) * time.Millisecond,
	}
}

func edgeRecords(sessionID string, resolved []model.InputResults) []EdgeRecord {
	out := make([]EdgeRecord, 0, 2*len(resolved))
	for _, r := range resolved {
		for i, res := range r.Results() {
			out = append(out, EdgeRecord{
				SessionID: sessionID,
				Seq:       len(out),
				ActionID:  r.Action.ID,
				Beat:      r.Action.Beat,
				Method:    r.Action.Method.String(),
				Input:     string(r.Action.Input),
				Start:     i == 0,
				Timing:    res.Timing.String(),
				Offset:    res.Offset,
			})
		}
	}
	return out
}
