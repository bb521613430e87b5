package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/types"
)

type DailyMetricRepo interface {
	ReplaceAll(ctx context.Context, metrics []types.DailyMetric) error
	// Recent returns up to limit days, most recent first.
	Recent(ctx context.Context, limit int) ([]types.DailyMetric, error)
}

type dailyMetricRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDailyMetricRepo(db *gorm.DB, baseLog *logger.Logger) DailyMetricRepo {
	return &dailyMetricRepo{db: db, log: baseLog.With("repo", "DailyMetricRepo")}
}

func (r *dailyMetricRepo) ReplaceAll(ctx context.Context, metrics []types.DailyMetric) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&types.DailyMetric{}).Error; err != nil {
			return err
		}
		if len(metrics) == 0 {
			return nil
		}
		return tx.Create(&metrics).Error
	})
}

func (r *dailyMetricRepo) Recent(ctx context.Context, limit int) ([]types.DailyMetric, error) {
	var metrics []types.DailyMetric
	err := r.db.WithContext(ctx).Order("date DESC").Limit(limit).Find(&metrics).Error
	return metrics, err
}
