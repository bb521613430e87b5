package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/types"
)

type AgentStatsRepo interface {
	// ReplaceAll rebuilds the cache table from scratch in one
	// transaction.
	ReplaceAll(ctx context.Context, stats []types.AgentStatsCache) error
	List(ctx context.Context) ([]types.AgentStatsCache, error)
	Get(ctx context.Context, agentName string) (*types.AgentStatsCache, error)
}

type agentStatsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentStatsRepo(db *gorm.DB, baseLog *logger.Logger) AgentStatsRepo {
	return &agentStatsRepo{db: db, log: baseLog.With("repo", "AgentStatsRepo")}
}

func (r *agentStatsRepo) ReplaceAll(ctx context.Context, stats []types.AgentStatsCache) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&types.AgentStatsCache{}).Error; err != nil {
			return err
		}
		if len(stats) == 0 {
			return nil
		}
		return tx.Create(&stats).Error
	})
}

func (r *agentStatsRepo) List(ctx context.Context) ([]types.AgentStatsCache, error) {
	var stats []types.AgentStatsCache
	err := r.db.WithContext(ctx).Order("execution_count DESC").Find(&stats).Error
	return stats, err
}

func (r *agentStatsRepo) Get(ctx context.Context, agentName string) (*types.AgentStatsCache, error) {
	var stat types.AgentStatsCache
	if err := r.db.WithContext(ctx).First(&stat, "agent_name = ?", agentName).Error; err != nil {
		return nil, err
	}
	return &stat, nil
}
