package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/types"
)

type SessionRepo interface {
	// UpsertBatch replaces rows by id. Re-running a sync with the same
	// upstream data is a no-op.
	UpsertBatch(ctx context.Context, tx *gorm.DB, sessions []types.Session) error
	Count(ctx context.Context) (int64, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) UpsertBatch(ctx context.Context, tx *gorm.DB, sessions []types.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&sessions).Error
}

func (r *sessionRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&types.Session{}).Count(&n).Error
	return n, err
}
