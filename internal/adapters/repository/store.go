// Package repository persists finished judging sessions and answers
// best-score queries per chart.
package repository

import (
	"context"

	"github.com/okian/playalong/internal/domain/model"
	"github.com/okian/playalong/internal/domain/types"
)

// Store provides read/write access to the session history.
type Store interface {
	// Save stores a finished session and its judged edges. A summary without
	// a session ID gets a new one. Returns the stored session ID.
	Save(ctx context.Context, summary types.Summary, resolved []model.InputResults) (string, error)

	// Sessions returns the most recent sessions of a chart, newest first.
	Sessions(ctx context.Context, chartHash string, limit int) ([]types.Summary, error)

	// Best returns the highest scoring session of a chart. Ties go to the
	// earliest session. Returns ErrNotFound if the chart was never played.
	Best(ctx context.Context, chartHash string) (types.Summary, error)

	// Edges returns the judged edges of a session in resolution order.
	Edges(ctx context.Context, sessionID string) ([]EdgeRecord, error)

	// Close releases the underlying database.
	Close() error
}
