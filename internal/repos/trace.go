package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/types"
)

type TraceRepo interface {
	UpsertBatch(ctx context.Context, tx *gorm.DB, traces []types.Trace) error
	Count(ctx context.Context) (int64, error)
}

type traceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTraceRepo(db *gorm.DB, baseLog *logger.Logger) TraceRepo {
	return &traceRepo{db: db, log: baseLog.With("repo", "TraceRepo")}
}

func (r *traceRepo) UpsertBatch(ctx context.Context, tx *gorm.DB, traces []types.Trace) error {
	if len(traces) == 0 {
		return nil
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&traces).Error
}

func (r *traceRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&types.Trace{}).Count(&n).Error
	return n, err
}
