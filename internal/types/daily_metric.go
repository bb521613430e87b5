package types

// DailyMetric is a per-calendar-day rollup of the traces table, rebuilt in
// full every sync cycle and trimmed to a recent window.
type DailyMetric struct {
	Date         string  `gorm:"primaryKey" json:"date"`
	SessionCount int     `gorm:"column:session_count;default:0" json:"session_count"`
	TraceCount   int     `gorm:"column:trace_count;default:0" json:"trace_count"`
	TotalCost    float64 `gorm:"column:total_cost;default:0" json:"total_cost"`
	AvgLatency   float64 `gorm:"column:avg_latency;default:0" json:"avg_latency"`
	UpdatedAt    string  `gorm:"column:updated_at" json:"updated_at"`
}

func (DailyMetric) TableName() string { return "daily_metrics" }
