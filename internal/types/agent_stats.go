package types

// AgentStatsCache is a pure materialization, rebuilt in full every sync
// cycle from AGENT observations joined to their child GENERATION rows.
type AgentStatsCache struct {
	AgentName       string   `gorm:"primaryKey;column:agent_name" json:"agent_name"`
	ExecutionCount  int      `gorm:"column:execution_count;default:0" json:"execution_count"`
	TotalLatencyMs  float64  `gorm:"column:total_latency_ms;default:0" json:"total_latency_ms"`
	AvgLatencyMs    float64  `gorm:"column:avg_latency_ms;default:0" json:"avg_latency_ms"`
	TotalCost       float64  `gorm:"column:total_cost;default:0" json:"total_cost"`
	TotalTokens     int      `gorm:"column:total_tokens;default:0" json:"total_tokens"`
	ErrorCount      int      `gorm:"column:error_count;default:0" json:"error_count"`
	SuccessRate     float64  `gorm:"column:success_rate;default:100" json:"success_rate"`
	LastExecutionAt *string  `gorm:"column:last_execution_at" json:"last_execution_at"`
	UpdatedAt       string   `gorm:"column:updated_at" json:"updated_at"`
}

func (AgentStatsCache) TableName() string { return "agent_stats_cache" }
