package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/cupidlabs/cupid-backend/internal/clients/langfuse"
	"github.com/cupidlabs/cupid-backend/internal/db"
	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/repos"
	"github.com/cupidlabs/cupid-backend/internal/types"
)

// fakeLangfuse serves canned session/trace/observation pages the way the
// public API shapes them, recording incoming query params.
type fakeLangfuse struct {
	mu            sync.Mutex
	sessions      []map[string]any
	traces        []map[string]any
	observations  []map[string]any
	traceRequests []map[string]string
	rateLimit429  map[string]bool
}

func (f *fakeLangfuse) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/public/sessions", func(w http.ResponseWriter, r *http.Request) {
		f.serve(w, r, "sessions", f.sessions)
	})
	mux.HandleFunc("/api/public/traces", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		params := map[string]string{}
		for k := range r.URL.Query() {
			params[k] = r.URL.Query().Get(k)
		}
		f.traceRequests = append(f.traceRequests, params)
		f.mu.Unlock()
		f.serve(w, r, "traces", f.traces)
	})
	mux.HandleFunc("/api/public/observations", func(w http.ResponseWriter, r *http.Request) {
		f.serve(w, r, "observations", f.observations)
	})
	return mux
}

func (f *fakeLangfuse) serve(w http.ResponseWriter, r *http.Request, name string, data []map[string]any) {
	f.mu.Lock()
	limited := f.rateLimit429[name]
	f.mu.Unlock()
	if limited {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	page := r.URL.Query().Get("page")
	if page != "" && page != "1" {
		data = nil
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"data":%s,"meta":{"page":1,"limit":100,"totalItems":%d,"totalPages":1}}`,
		mustJSON(data), len(data))
}

func mustJSON(v any) string {
	if v == nil {
		return "[]"
	}
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(raw)
}

type syncFixture struct {
	svc      *SyncService
	db       *gorm.DB
	syncMeta repos.SyncMetadataRepo
	upstream *fakeLangfuse
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	log := logger.NewNop()

	dbService, err := db.NewSqliteService(filepath.Join(t.TempDir(), "dashboard.db"), log)
	if err != nil {
		t.Fatalf("NewSqliteService: %v", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	theDB := dbService.DB

	upstream := &fakeLangfuse{
		rateLimit429: map[string]bool{},
		sessions: []map[string]any{
			{"id": "sess-1", "createdAt": "2026-08-29T10:00:00Z", "environment": "production"},
			{"id": "sess-2", "createdAt": "2026-08-30T11:00:00Z", "environment": "production"},
		},
		traces: []map[string]any{
			{
				"id": "tr-1", "sessionId": "sess-1", "timestamp": "2026-08-29T10:00:05Z",
				"totalCost": 0.01, "latency": 2.5,
				"tags":     []any{"chapter_0", "env:prod"},
				"metadata": map[string]any{"mortal": "Seraphina Cole", "match": "Ethan Murphy"},
			},
			{
				"id": "tr-2", "sessionId": "sess-1", "timestamp": "2026-08-29T10:03:00Z",
				"totalCost": 0.02, "latency": 3.0,
				"tags": []any{"chapter_1"},
			},
		},
		observations: []map[string]any{
			{
				"id": "obs-1", "traceId": "tr-1", "type": "AGENT", "name": "Introduction",
				"startTime": "2026-08-29T10:00:05Z", "endTime": "2026-08-29T10:00:07.500Z",
			},
			{
				"id": "obs-2", "traceId": "tr-1", "type": "GENERATION", "name": "response",
				"parentObservationId": "obs-1", "model": "gpt-5.1",
				"totalTokens": float64(420), "calculatedTotalCost": 0.01,
				"startTime": "2026-08-29T10:00:05Z", "endTime": "2026-08-29T10:00:07Z",
			},
		},
	}
	srv := httptest.NewServer(upstream.handler())
	t.Cleanup(srv.Close)

	client, err := langfuse.NewClient(langfuse.Config{
		BaseURL:   srv.URL,
		PublicKey: "pk",
		SecretKey: "sk",
	}, log)
	if err != nil {
		t.Fatalf("langfuse.NewClient: %v", err)
	}

	syncMeta := repos.NewSyncMetadataRepo(theDB, log)
	agentStats := repos.NewAgentStatsRepo(theDB, log)
	daily := repos.NewDailyMetricRepo(theDB, log)
	stats := NewStatsRefreshService(theDB, agentStats, daily, log)
	svc := NewSyncService(client, theDB, syncMeta,
		repos.NewSessionRepo(theDB, log),
		repos.NewTraceRepo(theDB, log),
		repos.NewObservationRepo(theDB, log),
		stats, log)

	return &syncFixture{svc: svc, db: theDB, syncMeta: syncMeta, upstream: upstream}
}

func (f *syncFixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestSyncFullCycle(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	if err := f.svc.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if got := f.count(t, &types.Session{}); got != 2 {
		t.Fatalf("sessions: want=2 got=%d", got)
	}
	if got := f.count(t, &types.Trace{}); got != 2 {
		t.Fatalf("traces: want=2 got=%d", got)
	}
	if got := f.count(t, &types.Observation{}); got != 2 {
		t.Fatalf("observations: want=2 got=%d", got)
	}

	var trace types.Trace
	if err := f.db.First(&trace, "id = ?", "tr-1").Error; err != nil {
		t.Fatalf("load tr-1: %v", err)
	}
	if trace.Chapter == nil || *trace.Chapter != "chapter_0" {
		t.Fatalf("chapter tag: got=%v", trace.Chapter)
	}
	if trace.MortalName == nil || *trace.MortalName != "Seraphina Cole" {
		t.Fatalf("mortal name: got=%v", trace.MortalName)
	}

	var obs types.Observation
	if err := f.db.First(&obs, "id = ?", "obs-1").Error; err != nil {
		t.Fatalf("load obs-1: %v", err)
	}
	if obs.LatencyMs == nil || *obs.LatencyMs != 2500 {
		t.Fatalf("derived latency: got=%v", obs.LatencyMs)
	}

	meta, err := f.syncMeta.Get(ctx)
	if err != nil {
		t.Fatalf("sync metadata: %v", err)
	}
	if meta.SyncStatus != types.SyncStatusIdle {
		t.Fatalf("status: want=idle got=%q", meta.SyncStatus)
	}
	if meta.LastSyncAt == nil {
		t.Fatalf("last sync timestamp not recorded")
	}
	if meta.LastTraceTimestamp == nil || *meta.LastTraceTimestamp != "2026-08-29T10:03:00Z" {
		t.Fatalf("watermark: got=%v", meta.LastTraceTimestamp)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	if err := f.svc.Sync(ctx); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	if err := f.svc.Sync(ctx); err != nil {
		t.Fatalf("second Sync: %v", err)
	}

	if got := f.count(t, &types.Session{}); got != 2 {
		t.Fatalf("sessions after resync: want=2 got=%d", got)
	}
	if got := f.count(t, &types.Trace{}); got != 2 {
		t.Fatalf("traces after resync: want=2 got=%d", got)
	}
	if got := f.count(t, &types.Observation{}); got != 2 {
		t.Fatalf("observations after resync: want=2 got=%d", got)
	}

	// The second trace listing resumes oldest-first from the watermark.
	f.upstream.mu.Lock()
	defer f.upstream.mu.Unlock()
	last := f.upstream.traceRequests[len(f.upstream.traceRequests)-1]
	if last["fromTimestamp"] != "2026-08-29T10:03:00Z" {
		t.Fatalf("resume fromTimestamp: got=%q", last["fromTimestamp"])
	}
	if last["orderBy"] != "timestamp.asc" {
		t.Fatalf("resume orderBy: got=%q", last["orderBy"])
	}
	first := f.upstream.traceRequests[0]
	if _, ok := first["fromTimestamp"]; ok {
		t.Fatalf("initial sync must not carry a watermark")
	}
}

func TestSyncRateLimitedAbortsCleanly(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	f.upstream.mu.Lock()
	f.upstream.rateLimit429["sessions"] = true
	f.upstream.mu.Unlock()

	if err := f.svc.Sync(ctx); err != nil {
		t.Fatalf("rate-limited Sync should return nil, got %v", err)
	}

	meta, err := f.syncMeta.Get(ctx)
	if err != nil {
		t.Fatalf("sync metadata: %v", err)
	}
	if meta.SyncStatus != types.SyncStatusRateLimited {
		t.Fatalf("status: want=rate_limited got=%q", meta.SyncStatus)
	}
	if meta.LastSyncAt != nil {
		t.Fatalf("aborted cycle must not mark a completed sync")
	}
	if meta.LastTraceTimestamp != nil {
		t.Fatalf("aborted cycle must not advance the watermark")
	}
}

func TestSyncGetStatus(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	if err := f.svc.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	status, err := f.svc.GetStatus(ctx, 5*time.Minute)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status["status"] != types.SyncStatusIdle {
		t.Fatalf("status field: got=%v", status["status"])
	}
	if status["last_sync_at"] == nil {
		t.Fatalf("last_sync_at missing")
	}
	if status["next_sync_at"] == nil {
		t.Fatalf("next_sync_at missing")
	}
}
