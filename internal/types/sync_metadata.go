package types

// Sync status values for SyncMetadata.SyncStatus.
const (
	SyncStatusIdle        = "idle"
	SyncStatusRunning     = "running"
	SyncStatusError       = "error"
	SyncStatusRateLimited = "rate_limited"
)

// SyncMetadata is a single-row table (id=1) tracking sync pipeline state.
// LastTraceTimestamp is the incremental-sync watermark: the newest trace
// timestamp whose row is known to be durably upserted.
type SyncMetadata struct {
	ID                 int     `gorm:"primaryKey;check:id = 1" json:"id"`
	LastSyncAt         *string `gorm:"column:last_sync_at" json:"last_sync_at"`
	LastTraceTimestamp *string `gorm:"column:last_trace_timestamp" json:"last_trace_timestamp"`
	SyncStatus         string  `gorm:"column:sync_status;default:idle" json:"sync_status"`
	ErrorMessage       *string `gorm:"column:error_message" json:"error_message"`
	UpdatedAt          string  `gorm:"column:updated_at" json:"updated_at"`
}

func (SyncMetadata) TableName() string { return "sync_metadata" }
