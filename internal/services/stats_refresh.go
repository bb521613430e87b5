package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/repos"
	"github.com/cupidlabs/cupid-backend/internal/types"
)

// StatsRefreshService recomputes the derived tables after every sync
// cycle: session rollups in place, agent and daily caches by full rebuild.
type StatsRefreshService struct {
	db           *gorm.DB
	agentStats   repos.AgentStatsRepo
	dailyMetrics repos.DailyMetricRepo
	log          *logger.Logger
}

func NewStatsRefreshService(db *gorm.DB, agentStats repos.AgentStatsRepo, dailyMetrics repos.DailyMetricRepo, log *logger.Logger) *StatsRefreshService {
	return &StatsRefreshService{
		db:           db,
		agentStats:   agentStats,
		dailyMetrics: dailyMetrics,
		log:          log.With("service", "StatsRefreshService"),
	}
}

func (s *StatsRefreshService) RefreshAll(ctx context.Context) error {
	if err := s.RefreshSessionStats(ctx); err != nil {
		return err
	}
	if err := s.RefreshAgentStats(ctx); err != nil {
		return err
	}
	return s.RefreshDailyMetrics(ctx)
}

type sessionRollup struct {
	SessionID    string
	TraceCount   int
	TotalCost    float64
	AvgLatency   float64
	FirstTraceAt *string
	LastTraceAt  *string
	MortalName   *string
	MatchName    *string
	MaxChapter   int
}

// RefreshSessionStats rolls trace aggregates up onto their sessions and
// recomputes the completion flag. A session is complete once it reached the
// evaluation chapter or recorded a terminal agent run.
func (s *StatsRefreshService) RefreshSessionStats(ctx context.Context) error {
	var rollups []sessionRollup
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			session_id,
			COUNT(*) AS trace_count,
			COALESCE(SUM(total_cost), 0) AS total_cost,
			COALESCE(AVG(latency), 0) AS avg_latency,
			MIN(timestamp) AS first_trace_at,
			MAX(timestamp) AS last_trace_at,
			MAX(mortal_name) AS mortal_name,
			MAX(match_name) AS match_name,
			COALESCE(MAX(CAST(REPLACE(chapter, 'chapter_', '') AS INTEGER)), -1) AS max_chapter
		FROM traces
		WHERE session_id IS NOT NULL
		GROUP BY session_id
	`).Scan(&rollups).Error
	if err != nil {
		return err
	}

	var endedSessionIDs []string
	err = s.db.WithContext(ctx).Raw(`
		SELECT DISTINCT t.session_id
		FROM observations o
		JOIN traces t ON o.trace_id = t.id
		WHERE o.type = ? AND o.name = ? AND t.session_id IS NOT NULL
	`, types.ObservationTypeAgent, types.TerminalAgentName).Scan(&endedSessionIDs).Error
	if err != nil {
		return err
	}
	ended := make(map[string]bool, len(endedSessionIDs))
	for _, id := range endedSessionIDs {
		ended[id] = true
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range rollups {
			updates := map[string]any{
				"trace_count":    r.TraceCount,
				"total_cost":     r.TotalCost,
				"avg_latency":    r.AvgLatency,
				"first_trace_at": r.FirstTraceAt,
				"last_trace_at":  r.LastTraceAt,
				"mortal_name":    r.MortalName,
				"match_name":     r.MatchName,
				"max_chapter":    r.MaxChapter,
				"is_complete":    r.MaxChapter >= types.ChapterEvaluation || ended[r.SessionID],
			}
			if err := tx.Model(&types.Session{}).Where("id = ?", r.SessionID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

type agentRollup struct {
	Name            string
	ExecutionCount  int
	TotalLatencyMs  float64
	AvgLatencyMs    float64
	TotalCost       float64
	TotalTokens     int
	ErrorCount      int
	LastExecutionAt *string
}

// RefreshAgentStats rebuilds the per-agent cache. Cost and tokens live on
// child GENERATION observations, hence the self left join.
func (s *StatsRefreshService) RefreshAgentStats(ctx context.Context) error {
	var rollups []agentRollup
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			a.name AS name,
			COUNT(DISTINCT a.id) AS execution_count,
			COALESCE(SUM(a.latency_ms), 0) AS total_latency_ms,
			COALESCE(AVG(a.latency_ms), 0) AS avg_latency_ms,
			COALESCE(SUM(g.calculated_total_cost), 0) AS total_cost,
			COALESCE(SUM(g.total_tokens), 0) AS total_tokens,
			SUM(CASE WHEN a.level = 'ERROR' THEN 1 ELSE 0 END) AS error_count,
			MAX(a.start_time) AS last_execution_at
		FROM observations a
		LEFT JOIN observations g ON g.parent_observation_id = a.id AND g.type = ?
		WHERE a.type = ? AND a.name != ? AND a.name IS NOT NULL
		GROUP BY a.name
	`, types.ObservationTypeGeneration, types.ObservationTypeAgent, types.WorkflowAgentName).Scan(&rollups).Error
	if err != nil {
		return err
	}

	now := nowISO()
	stats := make([]types.AgentStatsCache, 0, len(rollups))
	for _, r := range rollups {
		successRate := 100.0
		if r.ExecutionCount > 0 {
			successRate = float64(r.ExecutionCount-r.ErrorCount) / float64(r.ExecutionCount) * 100
		}
		stats = append(stats, types.AgentStatsCache{
			AgentName:       r.Name,
			ExecutionCount:  r.ExecutionCount,
			TotalLatencyMs:  r.TotalLatencyMs,
			AvgLatencyMs:    r.AvgLatencyMs,
			TotalCost:       r.TotalCost,
			TotalTokens:     r.TotalTokens,
			ErrorCount:      r.ErrorCount,
			SuccessRate:     successRate,
			LastExecutionAt: r.LastExecutionAt,
			UpdatedAt:       now,
		})
	}
	return s.agentStats.ReplaceAll(ctx, stats)
}

type dailyRollup struct {
	Date         string
	SessionCount int
	TraceCount   int
	TotalCost    float64
	AvgLatency   float64
}

// RefreshDailyMetrics rebuilds the per-day rollup, keeping the most recent
// 30 days. The date is the first ten characters of the ISO timestamp, which
// keeps the query portable across sqlite and postgres.
func (s *StatsRefreshService) RefreshDailyMetrics(ctx context.Context) error {
	var rollups []dailyRollup
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			SUBSTR(timestamp, 1, 10) AS date,
			COUNT(DISTINCT session_id) AS session_count,
			COUNT(*) AS trace_count,
			COALESCE(SUM(total_cost), 0) AS total_cost,
			COALESCE(AVG(latency), 0) AS avg_latency
		FROM traces
		WHERE timestamp IS NOT NULL AND timestamp != ''
		GROUP BY SUBSTR(timestamp, 1, 10)
		ORDER BY date DESC
		LIMIT 30
	`).Scan(&rollups).Error
	if err != nil {
		return err
	}

	now := nowISO()
	metrics := make([]types.DailyMetric, 0, len(rollups))
	for _, r := range rollups {
		metrics = append(metrics, types.DailyMetric{
			Date:         r.Date,
			SessionCount: r.SessionCount,
			TraceCount:   r.TraceCount,
			TotalCost:    r.TotalCost,
			AvgLatency:   r.AvgLatency,
			UpdatedAt:    now,
		})
	}
	return s.dailyMetrics.ReplaceAll(ctx, metrics)
}
