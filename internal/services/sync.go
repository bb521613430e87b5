package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cupidlabs/cupid-backend/internal/clients/langfuse"
	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/repos"
	"github.com/cupidlabs/cupid-backend/internal/types"
)

const (
	syncPageLimit = 100
	// maxPages bounds each listing loop against upstream pagination bugs.
	maxPages      = 10
	pageDelay     = 500 * time.Millisecond
	chapterPrefix = "chapter_"
)

// SyncService pulls sessions, traces and observations from Langfuse into
// the local cache and recomputes the derived stats tables. One cycle at a
// time; overlapping calls are skipped, not queued.
type SyncService struct {
	client       *langfuse.Client
	db           *gorm.DB
	syncMeta     repos.SyncMetadataRepo
	sessions     repos.SessionRepo
	traces       repos.TraceRepo
	observations repos.ObservationRepo
	stats        *StatsRefreshService
	log          *logger.Logger

	mu sync.Mutex
}

func NewSyncService(client *langfuse.Client, db *gorm.DB, syncMeta repos.SyncMetadataRepo, sessions repos.SessionRepo, traces repos.TraceRepo, observations repos.ObservationRepo, stats *StatsRefreshService, log *logger.Logger) *SyncService {
	return &SyncService{
		client:       client,
		db:           db,
		syncMeta:     syncMeta,
		sessions:     sessions,
		traces:       traces,
		observations: observations,
		stats:        stats,
		log:          log.With("service", "SyncService"),
	}
}

// Sync runs one full cycle. A rate-limit abort is a clean outcome (nil
// error, status rate_limited); any other failure records status error and
// returns it.
func (s *SyncService) Sync(ctx context.Context) error {
	if !s.mu.TryLock() {
		s.log.Info("sync already running, skipping")
		return nil
	}
	defer s.mu.Unlock()

	if _, err := s.syncMeta.Get(ctx); err != nil {
		return err
	}
	if err := s.syncMeta.SetStatus(ctx, types.SyncStatusRunning, nil); err != nil {
		return err
	}

	err := s.run(ctx)
	switch {
	case errors.Is(err, langfuse.ErrRateLimited):
		msg := err.Error()
		s.log.Warn("sync aborted by rate limiting, will retry next cycle", "error", msg)
		if statusErr := s.syncMeta.SetStatus(ctx, types.SyncStatusRateLimited, &msg); statusErr != nil {
			return statusErr
		}
		return nil
	case err != nil:
		msg := err.Error()
		s.log.Error("sync failed", "error", msg)
		if statusErr := s.syncMeta.SetStatus(ctx, types.SyncStatusError, &msg); statusErr != nil {
			s.log.Error("failed to record sync error", "error", statusErr)
		}
		return err
	}

	if err := s.syncMeta.SetStatus(ctx, types.SyncStatusIdle, nil); err != nil {
		return err
	}
	return s.syncMeta.MarkSynced(ctx, time.Now())
}

func (s *SyncService) run(ctx context.Context) error {
	sessionCount, err := s.syncSessions(ctx)
	if err != nil {
		return err
	}
	traceCount, err := s.syncTraces(ctx)
	if err != nil {
		return err
	}
	observationCount, err := s.syncObservations(ctx)
	if err != nil {
		return err
	}

	if err := s.stats.RefreshAll(ctx); err != nil {
		return err
	}

	s.selfCheck(ctx, sessionCount, traceCount, observationCount)
	return nil
}

func (s *SyncService) syncSessions(ctx context.Context) (int, error) {
	rows := make([]types.Session, 0, syncPageLimit)
	now := nowISO()

	for page := 1; page <= maxPages; page++ {
		result, err := s.client.GetSessions(ctx, syncPageLimit, page)
		if err != nil {
			return 0, err
		}
		if len(result.Data) == 0 {
			break
		}
		for _, raw := range result.Data {
			rows = append(rows, types.Session{
				ID:          str(raw, "id"),
				CreatedAt:   str(raw, "createdAt"),
				Environment: str(raw, "environment"),
				MaxChapter:  -1,
				SyncedAt:    now,
			})
		}
		if page >= result.Meta.TotalPages {
			break
		}
		sleepCtx(ctx, pageDelay)
	}

	if err := s.sessions.UpsertBatch(ctx, nil, rows); err != nil {
		return 0, err
	}
	s.log.Info("synced sessions", "count", len(rows))
	return len(rows), nil
}

func (s *SyncService) syncTraces(ctx context.Context) (int, error) {
	meta, err := s.syncMeta.Get(ctx)
	if err != nil {
		return 0, err
	}

	query := langfuse.TraceQuery{Limit: syncPageLimit}
	if meta.LastTraceTimestamp != nil && *meta.LastTraceTimestamp != "" {
		// Resuming: oldest-first from the watermark so an interrupted
		// cycle never skips an unseen trace.
		query.FromTimestamp = *meta.LastTraceTimestamp
		query.OrderBy = "timestamp.asc"
	}

	rows := make([]types.Trace, 0, syncPageLimit)
	maxTimestamp := ""
	now := nowISO()

	for page := 1; page <= maxPages; page++ {
		query.Page = page
		result, err := s.client.GetTraces(ctx, query)
		if err != nil {
			return 0, err
		}
		if len(result.Data) == 0 {
			break
		}
		for _, raw := range result.Data {
			row := traceRow(raw, now)
			if row.Timestamp > maxTimestamp {
				maxTimestamp = row.Timestamp
			}
			rows = append(rows, row)
		}
		if page >= result.Meta.TotalPages {
			break
		}
		sleepCtx(ctx, pageDelay)
	}

	// Rows and watermark commit together; the watermark never points past
	// data that is not durably stored.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.traces.UpsertBatch(ctx, tx, rows); err != nil {
			return err
		}
		if maxTimestamp != "" {
			return s.syncMeta.SetWatermark(ctx, tx, maxTimestamp)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("synced traces", "count", len(rows), "watermark", maxTimestamp)
	return len(rows), nil
}

func traceRow(raw map[string]any, syncedAt string) types.Trace {
	metadata, _ := raw["metadata"].(map[string]any)

	var chapter *string
	var tags []string
	if rawTags, ok := raw["tags"].([]any); ok {
		for _, t := range rawTags {
			tag, ok := t.(string)
			if !ok {
				continue
			}
			tags = append(tags, tag)
			if chapter == nil && strings.HasPrefix(tag, chapterPrefix) {
				c := tag
				chapter = &c
			}
		}
	}

	return types.Trace{
		ID:           str(raw, "id"),
		SessionID:    strPtr(raw, "sessionId"),
		UserID:       strPtr(raw, "userId"),
		Name:         strPtr(raw, "name"),
		Timestamp:    str(raw, "timestamp"),
		TotalCost:    num(raw, "totalCost"),
		Latency:      num(raw, "latency"),
		MetadataJSON: toJSON(metadata),
		TagsJSON:     toJSON(tags),
		Chapter:      chapter,
		MortalName:   strPtr(metadata, "mortal"),
		MatchName:    strPtr(metadata, "match"),
		SyncedAt:     syncedAt,
	}
}

func (s *SyncService) syncObservations(ctx context.Context) (int, error) {
	rows := make([]types.Observation, 0, syncPageLimit)
	now := nowISO()

	for page := 1; page <= maxPages; page++ {
		result, err := s.client.GetObservations(ctx, syncPageLimit, page, "")
		if err != nil {
			return 0, err
		}
		if len(result.Data) == 0 {
			break
		}
		for _, raw := range result.Data {
			rows = append(rows, observationRow(raw, now))
		}
		if page >= result.Meta.TotalPages {
			break
		}
		sleepCtx(ctx, pageDelay)
	}

	if err := s.observations.UpsertBatch(ctx, nil, rows); err != nil {
		return 0, err
	}
	s.log.Info("synced observations", "count", len(rows))
	return len(rows), nil
}

func observationRow(raw map[string]any, syncedAt string) types.Observation {
	startTime := strPtr(raw, "startTime")
	endTime := strPtr(raw, "endTime")

	return types.Observation{
		ID:                  str(raw, "id"),
		TraceID:             str(raw, "traceId"),
		ParentObservationID: strPtr(raw, "parentObservationId"),
		Type:                str(raw, "type"),
		Name:                strPtr(raw, "name"),
		StartTime:           startTime,
		EndTime:             endTime,
		LatencyMs:           deriveLatencyMs(startTime, endTime),
		Model:               strPtr(raw, "model"),
		TotalTokens:         intPtr(raw, "totalTokens"),
		PromptTokens:        intPtr(raw, "promptTokens"),
		CompletionTokens:    intPtr(raw, "completionTokens"),
		CalculatedTotalCost: numPtr(raw, "calculatedTotalCost"),
		InputJSON:           toJSON(raw["input"]),
		OutputJSON:          toJSON(raw["output"]),
		MetadataJSON:        toJSON(raw["metadata"]),
		Level:               strPtr(raw, "level"),
		SyncedAt:            syncedAt,
	}
}

// deriveLatencyMs returns end minus start in milliseconds, or nil when
// either timestamp is missing or unparseable.
func deriveLatencyMs(startTime, endTime *string) *float64 {
	if startTime == nil || endTime == nil {
		return nil
	}
	start, err := parseISO(*startTime)
	if err != nil {
		return nil
	}
	end, err := parseISO(*endTime)
	if err != nil {
		return nil
	}
	ms := end.Sub(start).Seconds() * 1000
	return &ms
}

func (s *SyncService) selfCheck(ctx context.Context, sessionCount, traceCount, observationCount int) {
	localSessions, err := s.sessions.Count(ctx)
	if err != nil {
		s.log.Warn("self-check skipped", "error", err)
		return
	}
	localTraces, _ := s.traces.Count(ctx)
	localObservations, _ := s.observations.Count(ctx)
	s.log.Info("sync self-check",
		"fetched_sessions", sessionCount, "local_sessions", localSessions,
		"fetched_traces", traceCount, "local_traces", localTraces,
		"fetched_observations", observationCount, "local_observations", localObservations)
}

// GetStatus returns the sync state for the status endpoint, including the
// projected next run time.
func (s *SyncService) GetStatus(ctx context.Context, interval time.Duration) (map[string]any, error) {
	meta, err := s.syncMeta.Get(ctx)
	if err != nil {
		return nil, err
	}
	var nextSync *string
	if meta.LastSyncAt != nil {
		if last, err := parseISO(*meta.LastSyncAt); err == nil {
			next := last.Add(interval).Format(time.RFC3339)
			nextSync = &next
		}
	}
	return map[string]any{
		"status":        meta.SyncStatus,
		"last_sync_at":  meta.LastSyncAt,
		"next_sync_at":  nextSync,
		"error_message": meta.ErrorMessage,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func nowISO() string { return time.Now().UTC().Format(time.RFC3339) }

func parseISO(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

func strPtr(m map[string]any, key string) *string {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

func num(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	v, _ := m[key].(float64)
	return v
}

func numPtr(m map[string]any, key string) *float64 {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(float64); ok {
		return &v
	}
	return nil
}

func intPtr(m map[string]any, key string) *int {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(float64); ok {
		n := int(v)
		return &n
	}
	return nil
}

func toJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
