package services

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/cupidlabs/cupid-backend/internal/db"
	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/repos"
	"github.com/cupidlabs/cupid-backend/internal/types"
)

func strp(s string) *string { return &s }

func approx(got, want float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}

func fp(f float64) *float64 { return &f }

func ip(n int) *int { return &n }

type statsFixture struct {
	db         *gorm.DB
	stats      *StatsRefreshService
	agentStats repos.AgentStatsRepo
	daily      repos.DailyMetricRepo
}

func newStatsFixture(t *testing.T) *statsFixture {
	t.Helper()
	log := logger.NewNop()

	dbService, err := db.NewSqliteService(filepath.Join(t.TempDir(), "stats.db"), log)
	if err != nil {
		t.Fatalf("NewSqliteService: %v", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	theDB := dbService.DB

	agentStats := repos.NewAgentStatsRepo(theDB, log)
	daily := repos.NewDailyMetricRepo(theDB, log)
	return &statsFixture{
		db:         theDB,
		stats:      NewStatsRefreshService(theDB, agentStats, daily, log),
		agentStats: agentStats,
		daily:      daily,
	}
}

func (f *statsFixture) seed(t *testing.T, rows ...any) {
	t.Helper()
	for _, row := range rows {
		if err := f.db.Create(row).Error; err != nil {
			t.Fatalf("seed %T: %v", row, err)
		}
	}
}

func seedCompletionData(t *testing.T, f *statsFixture) {
	// sess-deep reached the evaluation chapter, sess-ended recorded a
	// terminal agent run early, sess-open did neither.
	f.seed(t,
		&types.Session{ID: "sess-deep", CreatedAt: "2026-08-29T10:00:00Z"},
		&types.Session{ID: "sess-ended", CreatedAt: "2026-08-29T11:00:00Z"},
		&types.Session{ID: "sess-open", CreatedAt: "2026-08-30T09:00:00Z"},

		&types.Trace{ID: "tr-d1", SessionID: strp("sess-deep"), Timestamp: "2026-08-29T10:00:05Z",
			TotalCost: 0.01, Latency: 2, Chapter: strp("chapter_0"),
			MortalName: strp("Seraphina Cole"), MatchName: strp("Ethan Murphy")},
		&types.Trace{ID: "tr-d2", SessionID: strp("sess-deep"), Timestamp: "2026-08-29T10:05:00Z",
			TotalCost: 0.03, Latency: 4, Chapter: strp("chapter_5")},

		&types.Trace{ID: "tr-e1", SessionID: strp("sess-ended"), Timestamp: "2026-08-29T11:00:05Z",
			TotalCost: 0.02, Latency: 3, Chapter: strp("chapter_3")},

		&types.Trace{ID: "tr-o1", SessionID: strp("sess-open"), Timestamp: "2026-08-30T09:00:05Z",
			TotalCost: 0.01, Latency: 1, Chapter: strp("chapter_1")},

		&types.Observation{ID: "obs-end", TraceID: "tr-e1", Type: types.ObservationTypeAgent,
			Name: strp(types.TerminalAgentName), StartTime: strp("2026-08-29T11:00:06Z")},
	)
}

func TestRefreshSessionStats(t *testing.T) {
	f := newStatsFixture(t)
	seedCompletionData(t, f)

	if err := f.stats.RefreshSessionStats(context.Background()); err != nil {
		t.Fatalf("RefreshSessionStats: %v", err)
	}

	var deep, ended, open types.Session
	for id, dst := range map[string]*types.Session{"sess-deep": &deep, "sess-ended": &ended, "sess-open": &open} {
		if err := f.db.First(dst, "id = ?", id).Error; err != nil {
			t.Fatalf("load %s: %v", id, err)
		}
	}

	if deep.MaxChapter != 5 || !deep.IsComplete {
		t.Fatalf("deep session: max_chapter=%d is_complete=%v", deep.MaxChapter, deep.IsComplete)
	}
	if deep.TraceCount != 2 {
		t.Fatalf("deep trace count: got=%d", deep.TraceCount)
	}
	if !approx(deep.TotalCost, 0.04) {
		t.Fatalf("deep total cost: got=%v", deep.TotalCost)
	}
	if deep.AvgLatency != 3 {
		t.Fatalf("deep avg latency: got=%v", deep.AvgLatency)
	}
	if deep.FirstTraceAt == nil || *deep.FirstTraceAt != "2026-08-29T10:00:05Z" {
		t.Fatalf("deep first trace: got=%v", deep.FirstTraceAt)
	}
	if deep.MortalName == nil || *deep.MortalName != "Seraphina Cole" {
		t.Fatalf("deep mortal: got=%v", deep.MortalName)
	}

	if ended.MaxChapter != 3 {
		t.Fatalf("ended max chapter: got=%d", ended.MaxChapter)
	}
	if !ended.IsComplete {
		t.Fatalf("terminal agent run should mark the session complete")
	}

	if open.IsComplete {
		t.Fatalf("open session should stay incomplete")
	}
}

func TestRefreshAgentStats(t *testing.T) {
	f := newStatsFixture(t)
	f.seed(t,
		&types.Trace{ID: "tr-1", SessionID: strp("sess-1"), Timestamp: "2026-08-29T10:00:00Z"},

		// The wrapper pseudo-agent never shows up in the rollup.
		&types.Observation{ID: "wf-1", TraceID: "tr-1", Type: types.ObservationTypeAgent,
			Name: strp(types.WorkflowAgentName), StartTime: strp("2026-08-29T10:00:01Z")},

		&types.Observation{ID: "intro-1", TraceID: "tr-1", Type: types.ObservationTypeAgent,
			Name: strp("Introduction"), StartTime: strp("2026-08-29T10:00:02Z"), LatencyMs: fp(1200)},
		&types.Observation{ID: "intro-1-gen", TraceID: "tr-1", Type: types.ObservationTypeGeneration,
			ParentObservationID: strp("intro-1"), CalculatedTotalCost: fp(0.004), TotalTokens: ip(300)},

		&types.Observation{ID: "intro-2", TraceID: "tr-1", Type: types.ObservationTypeAgent,
			Name: strp("Introduction"), StartTime: strp("2026-08-29T10:10:00Z"), LatencyMs: fp(800),
			Level: strp("ERROR")},

		&types.Observation{ID: "mortal-1", TraceID: "tr-1", Type: types.ObservationTypeAgent,
			Name: strp("Mortal"), StartTime: strp("2026-08-29T10:01:00Z"), LatencyMs: fp(2000)},
		&types.Observation{ID: "mortal-1-gen", TraceID: "tr-1", Type: types.ObservationTypeGeneration,
			ParentObservationID: strp("mortal-1"), CalculatedTotalCost: fp(0.01), TotalTokens: ip(800)},

		// One run that produced two generations. Cost and tokens accumulate
		// across the children while the execution still counts once.
		&types.Observation{ID: "match-1", TraceID: "tr-1", Type: types.ObservationTypeAgent,
			Name: strp("Match"), StartTime: strp("2026-08-29T10:02:00Z"), LatencyMs: fp(1500)},
		&types.Observation{ID: "match-1-gen-a", TraceID: "tr-1", Type: types.ObservationTypeGeneration,
			ParentObservationID: strp("match-1"), CalculatedTotalCost: fp(0.01), TotalTokens: ip(100)},
		&types.Observation{ID: "match-1-gen-b", TraceID: "tr-1", Type: types.ObservationTypeGeneration,
			ParentObservationID: strp("match-1"), CalculatedTotalCost: fp(0.02), TotalTokens: ip(50)},
	)

	ctx := context.Background()
	if err := f.stats.RefreshAgentStats(ctx); err != nil {
		t.Fatalf("RefreshAgentStats: %v", err)
	}

	stats, err := f.agentStats.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	byName := map[string]types.AgentStatsCache{}
	for _, s := range stats {
		byName[s.AgentName] = s
	}

	if _, ok := byName[types.WorkflowAgentName]; ok {
		t.Fatalf("workflow wrapper leaked into agent stats")
	}

	intro, ok := byName["Introduction"]
	if !ok {
		t.Fatalf("Introduction missing from stats: %v", byName)
	}
	if intro.ExecutionCount != 2 {
		t.Fatalf("Introduction executions: want=2 got=%d", intro.ExecutionCount)
	}
	if intro.ErrorCount != 1 || intro.SuccessRate != 50 {
		t.Fatalf("Introduction errors=%d success=%v", intro.ErrorCount, intro.SuccessRate)
	}
	if !approx(intro.TotalCost, 0.004) || intro.TotalTokens != 300 {
		t.Fatalf("Introduction cost=%v tokens=%d", intro.TotalCost, intro.TotalTokens)
	}
	if intro.AvgLatencyMs != 1000 {
		t.Fatalf("Introduction avg latency: want=1000 got=%v", intro.AvgLatencyMs)
	}

	mortal := byName["Mortal"]
	if mortal.ExecutionCount != 1 || mortal.SuccessRate != 100 {
		t.Fatalf("Mortal executions=%d success=%v", mortal.ExecutionCount, mortal.SuccessRate)
	}
	if !approx(mortal.TotalCost, 0.01) || mortal.TotalTokens != 800 {
		t.Fatalf("Mortal cost=%v tokens=%d", mortal.TotalCost, mortal.TotalTokens)
	}

	match := byName["Match"]
	if match.ExecutionCount != 1 {
		t.Fatalf("Match executions: want=1 got=%d", match.ExecutionCount)
	}
	if !approx(match.TotalCost, 0.03) || match.TotalTokens != 150 {
		t.Fatalf("Match cost=%v tokens=%d", match.TotalCost, match.TotalTokens)
	}
}

func TestRefreshAgentStatsRebuildsFromScratch(t *testing.T) {
	f := newStatsFixture(t)
	ctx := context.Background()

	stale := []types.AgentStatsCache{{AgentName: "Ghost", ExecutionCount: 99, UpdatedAt: "2026-08-01T00:00:00Z"}}
	if err := f.agentStats.ReplaceAll(ctx, stale); err != nil {
		t.Fatalf("seed stale stats: %v", err)
	}

	if err := f.stats.RefreshAgentStats(ctx); err != nil {
		t.Fatalf("RefreshAgentStats: %v", err)
	}
	stats, err := f.agentStats.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("stale agents survived the rebuild: %v", stats)
	}
}

func TestRefreshDailyMetrics(t *testing.T) {
	f := newStatsFixture(t)
	f.seed(t,
		&types.Trace{ID: "tr-1", SessionID: strp("s1"), Timestamp: "2026-08-29T10:00:00Z", TotalCost: 0.01, Latency: 2},
		&types.Trace{ID: "tr-2", SessionID: strp("s1"), Timestamp: "2026-08-29T14:00:00Z", TotalCost: 0.02, Latency: 4},
		&types.Trace{ID: "tr-3", SessionID: strp("s2"), Timestamp: "2026-08-30T09:00:00Z", TotalCost: 0.05, Latency: 6},
	)

	ctx := context.Background()
	if err := f.stats.RefreshDailyMetrics(ctx); err != nil {
		t.Fatalf("RefreshDailyMetrics: %v", err)
	}

	metrics, err := f.daily.Recent(ctx, 30)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(metrics) != 2 {
		t.Fatalf("day count: want=2 got=%d", len(metrics))
	}
	// Recent is newest first.
	if metrics[0].Date != "2026-08-30" || metrics[1].Date != "2026-08-29" {
		t.Fatalf("dates: got=%q, %q", metrics[0].Date, metrics[1].Date)
	}
	if metrics[1].TraceCount != 2 || metrics[1].SessionCount != 1 {
		t.Fatalf("2026-08-29 rollup: traces=%d sessions=%d", metrics[1].TraceCount, metrics[1].SessionCount)
	}
	if !approx(metrics[1].TotalCost, 0.03) || metrics[1].AvgLatency != 3 {
		t.Fatalf("2026-08-29 rollup: cost=%v latency=%v", metrics[1].TotalCost, metrics[1].AvgLatency)
	}
}
