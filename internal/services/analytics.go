package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/repos"
	"github.com/cupidlabs/cupid-backend/internal/types"
)

// AnalyticsService answers the dashboard's read queries from the synced
// cache tables. It never talks to the upstream API.
type AnalyticsService struct {
	db         *gorm.DB
	agentStats repos.AgentStatsRepo
	daily      repos.DailyMetricRepo
	log        *logger.Logger
}

func NewAnalyticsService(db *gorm.DB, agentStats repos.AgentStatsRepo, daily repos.DailyMetricRepo, log *logger.Logger) *AnalyticsService {
	return &AnalyticsService{
		db:         db,
		agentStats: agentStats,
		daily:      daily,
		log:        log.With("service", "AnalyticsService"),
	}
}

// timeRangeCutoff maps 24h|7d|30d to an ISO cutoff; anything else means no
// filter.
func timeRangeCutoff(timeRange string) string {
	now := time.Now().UTC()
	switch timeRange {
	case "24h":
		return now.Add(-24 * time.Hour).Format(time.RFC3339)
	case "7d":
		return now.AddDate(0, 0, -7).Format(time.RFC3339)
	case "30d":
		return now.AddDate(0, 0, -30).Format(time.RFC3339)
	default:
		return ""
	}
}

type SessionSummary struct {
	ID              string   `json:"id"`
	CreatedAt       string   `json:"created_at"`
	TraceCount      int      `json:"trace_count"`
	TotalCost       float64  `json:"total_cost"`
	AvgLatency      float64  `json:"avg_latency"`
	MortalName      *string  `json:"mortal_name"`
	MatchName       *string  `json:"match_name"`
	MaxChapter      int      `json:"max_chapter"`
	IsComplete      bool     `json:"is_complete"`
	FirstTraceAt    *string  `json:"first_trace_at"`
	LastTraceAt     *string  `json:"last_trace_at"`
	DurationSeconds *float64 `json:"duration_seconds"`
}

type SessionList struct {
	Data []SessionSummary `json:"data"`
	Meta ListMeta         `json:"meta"`
}

type ListMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

func (s *AnalyticsService) sessionQuery(ctx context.Context, timeRange, status, search string) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&types.Session{})
	if cutoff := timeRangeCutoff(timeRange); cutoff != "" {
		q = q.Where("created_at >= ?", cutoff)
	}
	switch status {
	case "complete":
		q = q.Where("is_complete = ?", true)
	case "incomplete":
		q = q.Where("is_complete = ?", false)
	}
	if search != "" {
		pattern := "%" + search + "%"
		q = q.Where("id LIKE ? OR mortal_name LIKE ? OR match_name LIKE ?", pattern, pattern, pattern)
	}
	return q
}

func (s *AnalyticsService) GetSessions(ctx context.Context, timeRange, status, search string, page, limit int) (*SessionList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	var total int64
	if err := s.sessionQuery(ctx, timeRange, status, search).Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []types.Session
	err := s.sessionQuery(ctx, timeRange, status, search).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	data := make([]SessionSummary, 0, len(rows))
	for _, row := range rows {
		data = append(data, SessionSummary{
			ID:              row.ID,
			CreatedAt:       row.CreatedAt,
			TraceCount:      row.TraceCount,
			TotalCost:       row.TotalCost,
			AvgLatency:      row.AvgLatency,
			MortalName:      row.MortalName,
			MatchName:       row.MatchName,
			MaxChapter:      row.MaxChapter,
			IsComplete:      row.IsComplete,
			FirstTraceAt:    row.FirstTraceAt,
			LastTraceAt:     row.LastTraceAt,
			DurationSeconds: durationSeconds(row.FirstTraceAt, row.LastTraceAt),
		})
	}

	return &SessionList{
		Data: data,
		Meta: ListMeta{
			Total: total,
			Page:  page,
			Limit: limit,
			Pages: (total + int64(limit) - 1) / int64(limit),
		},
	}, nil
}

type SessionStats struct {
	TotalSessions      int64   `json:"total_sessions"`
	TotalCost          float64 `json:"total_cost"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
	AvgLatencySeconds  float64 `json:"avg_latency_seconds"`
	CompleteSessions   int64   `json:"complete_sessions"`
	IncompleteSessions int64   `json:"incomplete_sessions"`
}

func (s *AnalyticsService) GetSessionStats(ctx context.Context, timeRange string) (*SessionStats, error) {
	var rows []types.Session
	if err := s.sessionQuery(ctx, timeRange, "all", "").Find(&rows).Error; err != nil {
		return nil, err
	}

	stats := SessionStats{}
	var latencySum, durationSum float64
	var durationCount int64
	for _, row := range rows {
		stats.TotalSessions++
		stats.TotalCost += row.TotalCost
		latencySum += row.AvgLatency
		if row.IsComplete {
			stats.CompleteSessions++
		} else {
			stats.IncompleteSessions++
		}
		if d := durationSeconds(row.FirstTraceAt, row.LastTraceAt); d != nil {
			durationSum += *d
			durationCount++
		}
	}
	if stats.TotalSessions > 0 {
		stats.AvgLatencySeconds = latencySum / float64(stats.TotalSessions)
	}
	if durationCount > 0 {
		stats.AvgDurationSeconds = durationSum / float64(durationCount)
	}
	return &stats, nil
}

type ConversationSession struct {
	ID              string   `json:"id"`
	MortalName      *string  `json:"mortal_name"`
	MatchName       *string  `json:"match_name"`
	MaxChapter      int      `json:"max_chapter"`
	IsComplete      bool     `json:"is_complete"`
	TotalCost       float64  `json:"total_cost"`
	DurationSeconds *float64 `json:"duration_seconds"`
}

type ConversationMessage struct {
	Type      string           `json:"type"` // "user" | "agent"
	Timestamp string           `json:"timestamp"`
	Chapter   *string          `json:"chapter"`
	Agent     *string          `json:"agent"`
	Content   string           `json:"content"`
	Metadata  *MessageMetadata `json:"metadata"`
}

type MessageMetadata struct {
	LatencyMs        float64 `json:"latency_ms"`
	Cost             float64 `json:"cost"`
	TotalTokens      int     `json:"total_tokens"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Model            *string `json:"model"`
}

type Conversation struct {
	Session  *ConversationSession  `json:"session"`
	Messages []ConversationMessage `json:"messages"`
}

// GetConversation rebuilds a session's chat transcript from its GENERATION
// observations. The agent attributed to each message is the nearest
// non-workflow AGENT ancestor in the observation tree.
func (s *AnalyticsService) GetConversation(ctx context.Context, sessionID string) (*Conversation, error) {
	var session types.Session
	err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Conversation{Messages: []ConversationMessage{}}, nil
	}
	if err != nil {
		return nil, err
	}

	conversation := &Conversation{
		Session: &ConversationSession{
			ID:              session.ID,
			MortalName:      session.MortalName,
			MatchName:       session.MatchName,
			MaxChapter:      session.MaxChapter,
			IsComplete:      session.IsComplete,
			TotalCost:       session.TotalCost,
			DurationSeconds: durationSeconds(session.FirstTraceAt, session.LastTraceAt),
		},
		Messages: []ConversationMessage{},
	}

	var traces []types.Trace
	err = s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Find(&traces).Error
	if err != nil {
		return nil, err
	}
	if len(traces) == 0 {
		return conversation, nil
	}

	traceIDs := make([]string, 0, len(traces))
	traceChapters := make(map[string]*string, len(traces))
	for _, t := range traces {
		traceIDs = append(traceIDs, t.ID)
		traceChapters[t.ID] = t.Chapter
	}

	var observations []types.Observation
	err = s.db.WithContext(ctx).
		Where("trace_id IN ?", traceIDs).
		Order("start_time ASC").
		Find(&observations).Error
	if err != nil {
		return nil, err
	}

	obsByID := make(map[string]*types.Observation, len(observations))
	for i := range observations {
		obsByID[observations[i].ID] = &observations[i]
	}

	for i := range observations {
		obs := &observations[i]
		if obs.Type != types.ObservationTypeGeneration {
			continue
		}
		chapter := traceChapters[obs.TraceID]
		agentName := resolveAgentName(obs, obsByID)

		if userInput := extractUserInput(obs.InputJSON); userInput != "" {
			conversation.Messages = append(conversation.Messages, ConversationMessage{
				Type:      "user",
				Timestamp: deref(obs.StartTime),
				Chapter:   chapter,
				Content:   userInput,
			})
		}
		if output := extractAgentOutput(obs.OutputJSON); output != "" {
			ts := deref(obs.EndTime)
			if ts == "" {
				ts = deref(obs.StartTime)
			}
			conversation.Messages = append(conversation.Messages, ConversationMessage{
				Type:      "agent",
				Timestamp: ts,
				Chapter:   chapter,
				Agent:     &agentName,
				Content:   output,
				Metadata: &MessageMetadata{
					LatencyMs:        derefFloat(obs.LatencyMs),
					Cost:             derefFloat(obs.CalculatedTotalCost),
					TotalTokens:      derefInt(obs.TotalTokens),
					PromptTokens:     derefInt(obs.PromptTokens),
					CompletionTokens: derefInt(obs.CompletionTokens),
					Model:            obs.Model,
				},
			})
		}
	}

	sort.SliceStable(conversation.Messages, func(i, j int) bool {
		return conversation.Messages[i].Timestamp < conversation.Messages[j].Timestamp
	})
	return conversation, nil
}

// resolveAgentName walks the parent chain to the nearest AGENT observation
// that is not the workflow wrapper.
func resolveAgentName(obs *types.Observation, obsByID map[string]*types.Observation) string {
	if obs.Type == types.ObservationTypeAgent && deref(obs.Name) != types.WorkflowAgentName {
		return deref(obs.Name)
	}
	current := obs
	for current.ParentObservationID != nil {
		parent, ok := obsByID[*current.ParentObservationID]
		if !ok {
			break
		}
		if parent.Type == types.ObservationTypeAgent && deref(parent.Name) != types.WorkflowAgentName {
			return deref(parent.Name)
		}
		current = parent
	}
	return "Unknown"
}

// extractUserInput pulls the last user message text out of the recorded
// model input, whatever shape the recorder stored it in.
func extractUserInput(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var asList []map[string]any
	if err := json.Unmarshal(raw, &asList); err == nil {
		for i := len(asList) - 1; i >= 0; i-- {
			if role, _ := asList[i]["role"].(string); role != "user" {
				continue
			}
			switch content := asList[i]["content"].(type) {
			case string:
				return content
			case []any:
				var texts []string
				for _, c := range content {
					if part, ok := c.(map[string]any); ok {
						if txt, _ := part["text"].(string); txt != "" {
							texts = append(texts, txt)
						}
					}
				}
				return strings.Join(texts, " ")
			}
			return ""
		}
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err == nil {
		if content, ok := asMap["content"].(string); ok {
			return content
		}
	}
	return ""
}

// extractAgentOutput pulls the generated text out of the recorded model
// output. The Responses API nests it under output[].content[].
func extractAgentOutput(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return ""
	}

	if output, ok := asMap["output"].([]any); ok {
		var texts []string
		for _, item := range output {
			m, ok := item.(map[string]any)
			if !ok || m["type"] != "message" {
				continue
			}
			content, _ := m["content"].([]any)
			for _, c := range content {
				part, ok := c.(map[string]any)
				if !ok || part["type"] != "output_text" {
					continue
				}
				if txt, _ := part["text"].(string); txt != "" {
					texts = append(texts, txt)
				}
			}
		}
		if len(texts) > 0 {
			return strings.Join(texts, "\n\n")
		}
	}
	if txt, ok := asMap["text"].(string); ok && txt != "" {
		return txt
	}
	if content, ok := asMap["content"]; ok {
		if txt, ok := content.(string); ok {
			return txt
		}
		if raw, err := json.Marshal(content); err == nil {
			return string(raw)
		}
	}
	return ""
}

type AgentSummary struct {
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	ExecutionCount int     `json:"execution_count"`
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
	TotalCost      float64 `json:"total_cost"`
	TotalTokens    int     `json:"total_tokens"`
	SuccessRate    float64 `json:"success_rate"`
}

func (s *AnalyticsService) GetAgents(ctx context.Context) ([]AgentSummary, error) {
	stats, err := s.agentStats.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AgentSummary, 0, len(stats))
	for _, stat := range stats {
		out = append(out, AgentSummary{
			Name:           stat.AgentName,
			Category:       AgentCategory(stat.AgentName),
			ExecutionCount: stat.ExecutionCount,
			AvgLatencyMs:   stat.AvgLatencyMs,
			TotalCost:      stat.TotalCost,
			TotalTokens:    stat.TotalTokens,
			SuccessRate:    stat.SuccessRate,
		})
	}
	return out, nil
}

type AgentExecution struct {
	TraceID   string  `json:"trace_id"`
	Timestamp *string `json:"timestamp"`
	LatencyMs float64 `json:"latency_ms"`
	Tokens    int     `json:"tokens"`
	Cost      float64 `json:"cost"`
	Status    string  `json:"status"`
}

type AgentDetail struct {
	Name             string           `json:"name"`
	Category         string           `json:"category"`
	Stats            AgentStats       `json:"stats"`
	RecentExecutions []AgentExecution `json:"recent_executions"`
}

type AgentStats struct {
	ExecutionCount int     `json:"execution_count"`
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
	TotalCost      float64 `json:"total_cost"`
	TotalTokens    int     `json:"total_tokens"`
	SuccessRate    float64 `json:"success_rate"`
}

func (s *AnalyticsService) GetAgentDetail(ctx context.Context, agentName string) (*AgentDetail, error) {
	stat, err := s.agentStats.Get(ctx, agentName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []types.Observation
	err = s.db.WithContext(ctx).
		Where("type = ? AND name = ?", types.ObservationTypeAgent, agentName).
		Order("start_time DESC").
		Limit(20).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	executions := make([]AgentExecution, 0, len(rows))
	for _, row := range rows {
		status := "success"
		if deref(row.Level) == "ERROR" {
			status = "error"
		}
		executions = append(executions, AgentExecution{
			TraceID:   row.TraceID,
			Timestamp: row.StartTime,
			LatencyMs: derefFloat(row.LatencyMs),
			Tokens:    derefInt(row.TotalTokens),
			Cost:      derefFloat(row.CalculatedTotalCost),
			Status:    status,
		})
	}

	return &AgentDetail{
		Name:     stat.AgentName,
		Category: AgentCategory(stat.AgentName),
		Stats: AgentStats{
			ExecutionCount: stat.ExecutionCount,
			AvgLatencyMs:   stat.AvgLatencyMs,
			TotalCost:      stat.TotalCost,
			TotalTokens:    stat.TotalTokens,
			SuccessRate:    stat.SuccessRate,
		},
		RecentExecutions: executions,
	}, nil
}

type LatencyPoint struct {
	Timestamp *string  `json:"timestamp"`
	LatencyMs *float64 `json:"latency_ms"`
}

type HourCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

type AgentCharts struct {
	LatencyOverTime  []LatencyPoint `json:"latency_over_time"`
	ExecutionsByHour []HourCount    `json:"executions_by_hour"`
}

func (s *AnalyticsService) GetAgentCharts(ctx context.Context, agentName string) (*AgentCharts, error) {
	var rows []types.Observation
	err := s.db.WithContext(ctx).
		Where("type = ? AND name = ? AND latency_ms IS NOT NULL", types.ObservationTypeAgent, agentName).
		Order("start_time DESC").
		Limit(20).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// Oldest first for the chart.
	latency := make([]LatencyPoint, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		latency = append(latency, LatencyPoint{Timestamp: rows[i].StartTime, LatencyMs: rows[i].LatencyMs})
	}

	var hourly []struct {
		Hour  string
		Count int64
	}
	err = s.db.WithContext(ctx).Raw(`
		SELECT SUBSTR(start_time, 12, 2) AS hour, COUNT(*) AS count
		FROM observations
		WHERE type = ? AND name = ? AND start_time IS NOT NULL
		GROUP BY SUBSTR(start_time, 12, 2)
	`, types.ObservationTypeAgent, agentName).Scan(&hourly).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int64, len(hourly))
	for _, h := range hourly {
		if n, err := strconv.Atoi(h.Hour); err == nil {
			counts[n] = h.Count
		}
	}
	byHour := make([]HourCount, 24)
	for h := 0; h < 24; h++ {
		byHour[h] = HourCount{Hour: h, Count: counts[h]}
	}

	return &AgentCharts{LatencyOverTime: latency, ExecutionsByHour: byHour}, nil
}

type DashboardKPIs struct {
	UniqueSessions    int64   `json:"unique_sessions"`
	TotalTraces       int64   `json:"total_traces"`
	TotalCost         float64 `json:"total_cost"`
	AvgLatencySeconds float64 `json:"avg_latency_seconds"`
	CostPerSession    float64 `json:"cost_per_session"`
}

type ChapterCost struct {
	Chapter string  `json:"chapter"`
	Cost    float64 `json:"cost"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type DashboardMetrics struct {
	KPIs          DashboardKPIs `json:"kpis"`
	CostByChapter []ChapterCost `json:"cost_by_chapter"`
	TracesPerDay  []DayCount    `json:"traces_per_day"`
}

func (s *AnalyticsService) GetDashboardMetrics(ctx context.Context, timeRange string) (*DashboardMetrics, error) {
	cutoff := timeRangeCutoff(timeRange)

	sessionQ := s.db.WithContext(ctx).Model(&types.Session{})
	traceQ := s.db.WithContext(ctx).Model(&types.Trace{})
	if cutoff != "" {
		sessionQ = sessionQ.Where("created_at >= ?", cutoff)
		traceQ = traceQ.Where("timestamp >= ?", cutoff)
	}

	var sessionAgg struct {
		UniqueSessions int64
		TotalCost      float64
		AvgLatency     float64
	}
	err := sessionQ.Select(
		"COUNT(*) AS unique_sessions, COALESCE(SUM(total_cost), 0) AS total_cost, COALESCE(AVG(avg_latency), 0) AS avg_latency",
	).Scan(&sessionAgg).Error
	if err != nil {
		return nil, err
	}

	var totalTraces int64
	if err := traceQ.Count(&totalTraces).Error; err != nil {
		return nil, err
	}

	kpis := DashboardKPIs{
		UniqueSessions:    sessionAgg.UniqueSessions,
		TotalTraces:       totalTraces,
		TotalCost:         sessionAgg.TotalCost,
		AvgLatencySeconds: sessionAgg.AvgLatency,
	}
	if kpis.UniqueSessions > 0 {
		kpis.CostPerSession = kpis.TotalCost / float64(kpis.UniqueSessions)
	}

	chapterQ := s.db.WithContext(ctx).Model(&types.Trace{}).Where("chapter IS NOT NULL")
	if cutoff != "" {
		chapterQ = chapterQ.Where("timestamp >= ?", cutoff)
	}
	var chapterRows []struct {
		Chapter string
		Cost    float64
	}
	err = chapterQ.Select("chapter, COALESCE(SUM(total_cost), 0) AS cost").
		Group("chapter").
		Order("chapter").
		Scan(&chapterRows).Error
	if err != nil {
		return nil, err
	}

	costByChapter := make([]ChapterCost, 0, len(chapterRows))
	for _, row := range chapterRows {
		costByChapter = append(costByChapter, ChapterCost{Chapter: chapterDisplayName(row.Chapter), Cost: row.Cost})
	}

	daily, err := s.daily.Recent(ctx, 7)
	if err != nil {
		return nil, err
	}
	tracesPerDay := make([]DayCount, 0, len(daily))
	for i := len(daily) - 1; i >= 0; i-- {
		tracesPerDay = append(tracesPerDay, DayCount{Date: daily[i].Date, Count: daily[i].TraceCount})
	}

	return &DashboardMetrics{KPIs: kpis, CostByChapter: costByChapter, TracesPerDay: tracesPerDay}, nil
}

func chapterDisplayName(tag string) string {
	n, err := strconv.Atoi(strings.TrimPrefix(tag, "chapter_"))
	if err != nil {
		return tag
	}
	if name, ok := ChapterNames[n]; ok {
		return name
	}
	return "Chapter " + strconv.Itoa(n)
}

func durationSeconds(first, last *string) *float64 {
	if first == nil || last == nil {
		return nil
	}
	start, err := parseISO(*first)
	if err != nil {
		return nil
	}
	end, err := parseISO(*last)
	if err != nil {
		return nil
	}
	d := end.Sub(start).Seconds()
	return &d
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
