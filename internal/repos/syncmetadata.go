package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/types"
)

type SyncMetadataRepo interface {
	// Get returns the singleton row, creating it in idle state on first
	// access.
	Get(ctx context.Context) (*types.SyncMetadata, error)
	SetStatus(ctx context.Context, status string, errorMessage *string) error
	// SetWatermark persists the trace timestamp high-water mark inside tx
	// so it only sticks when the rows it covers committed.
	SetWatermark(ctx context.Context, tx *gorm.DB, timestamp string) error
	MarkSynced(ctx context.Context, at time.Time) error
}

type syncMetadataRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncMetadataRepo(db *gorm.DB, baseLog *logger.Logger) SyncMetadataRepo {
	return &syncMetadataRepo{db: db, log: baseLog.With("repo", "SyncMetadataRepo")}
}

func (r *syncMetadataRepo) Get(ctx context.Context) (*types.SyncMetadata, error) {
	var meta types.SyncMetadata
	err := r.db.WithContext(ctx).First(&meta, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		meta = types.SyncMetadata{ID: 1, SyncStatus: types.SyncStatusIdle, UpdatedAt: nowString()}
		if err := r.db.WithContext(ctx).Create(&meta).Error; err != nil {
			return nil, err
		}
		return &meta, nil
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (r *syncMetadataRepo) SetStatus(ctx context.Context, status string, errorMessage *string) error {
	updates := map[string]any{
		"sync_status":   status,
		"error_message": errorMessage,
		"updated_at":    nowString(),
	}
	return r.db.WithContext(ctx).Model(&types.SyncMetadata{}).Where("id = ?", 1).Updates(updates).Error
}

func (r *syncMetadataRepo) SetWatermark(ctx context.Context, tx *gorm.DB, timestamp string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	updates := map[string]any{
		"last_trace_timestamp": timestamp,
		"updated_at":           nowString(),
	}
	return transaction.WithContext(ctx).Model(&types.SyncMetadata{}).Where("id = ?", 1).Updates(updates).Error
}

func (r *syncMetadataRepo) MarkSynced(ctx context.Context, at time.Time) error {
	ts := at.UTC().Format(time.RFC3339)
	updates := map[string]any{
		"last_sync_at": &ts,
		"updated_at":   nowString(),
	}
	return r.db.WithContext(ctx).Model(&types.SyncMetadata{}).Where("id = ?", 1).Updates(updates).Error
}

func nowString() string { return time.Now().UTC().Format(time.RFC3339) }
