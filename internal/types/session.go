package types

// Session mirrors one remote session plus rolled-up trace stats. The
// rollup columns are recomputed from traces after every sync cycle.
type Session struct {
	ID           string  `gorm:"primaryKey" json:"id"`
	CreatedAt    string  `gorm:"column:created_at;not null;index" json:"created_at"`
	Environment  string  `gorm:"column:environment" json:"environment"`
	TraceCount   int     `gorm:"column:trace_count;default:0" json:"trace_count"`
	TotalCost    float64 `gorm:"column:total_cost;default:0" json:"total_cost"`
	AvgLatency   float64 `gorm:"column:avg_latency;default:0" json:"avg_latency"`
	FirstTraceAt *string `gorm:"column:first_trace_at" json:"first_trace_at"`
	LastTraceAt  *string `gorm:"column:last_trace_at" json:"last_trace_at"`
	MortalName   *string `gorm:"column:mortal_name" json:"mortal_name"`
	MatchName    *string `gorm:"column:match_name" json:"match_name"`
	MaxChapter   int     `gorm:"column:max_chapter;default:-1" json:"max_chapter"`
	IsComplete   bool    `gorm:"column:is_complete;default:false;index" json:"is_complete"`
	SyncedAt     string  `gorm:"column:synced_at" json:"synced_at"`
}

func (Session) TableName() string { return "sessions" }
