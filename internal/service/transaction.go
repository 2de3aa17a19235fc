package service

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// gradeNotifier receives finalized grades after commit. Publish must not block.
type gradeNotifier interface {
	Publish(ctx context.Context, notification models.GradeNotification)
}

type noopNotifier struct{}

func (noopNotifier) Publish(context.Context, models.GradeNotification) {}
