package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	rcron "github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/cupidlabs/cupid-backend/internal/clients/langfuse"
	"github.com/cupidlabs/cupid-backend/internal/db"
	"github.com/cupidlabs/cupid-backend/internal/handlers"
	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/repos"
	"github.com/cupidlabs/cupid-backend/internal/server"
	"github.com/cupidlabs/cupid-backend/internal/services"
)

// DashboardApp is the analytics server: the sync pipeline pulling trace
// data into the local cache plus the read-only query API on top of it.
type DashboardApp struct {
	Log    *logger.Logger
	Cfg    Config
	DB     *gorm.DB
	Router *gin.Engine
	Sync   *services.SyncService

	cron *rcron.Cron
}

func NewDashboardApp() (*DashboardApp, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	dbService, err := db.NewService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := dbService.DB

	lfClient, err := langfuse.NewClient(langfuse.ConfigFromEnv(log), log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init langfuse client: %w", err)
	}

	syncMetaRepo := repos.NewSyncMetadataRepo(theDB, log)
	sessionRepo := repos.NewSessionRepo(theDB, log)
	traceRepo := repos.NewTraceRepo(theDB, log)
	observationRepo := repos.NewObservationRepo(theDB, log)
	agentStatsRepo := repos.NewAgentStatsRepo(theDB, log)
	dailyMetricRepo := repos.NewDailyMetricRepo(theDB, log)

	statsService := services.NewStatsRefreshService(theDB, agentStatsRepo, dailyMetricRepo, log)
	syncService := services.NewSyncService(lfClient, theDB, syncMetaRepo, sessionRepo, traceRepo, observationRepo, statsService, log)
	analyticsService := services.NewAnalyticsService(theDB, agentStatsRepo, dailyMetricRepo, log)

	dashboardHandler := handlers.NewDashboardHandler(analyticsService, syncService, cfg.SyncInterval, log)
	router := server.NewDashboardRouter(server.DashboardRouterConfig{
		DashboardHandler: dashboardHandler,
		AllowOrigins:     cfg.AllowOrigins,
	})

	return &DashboardApp{
		Log:    log,
		Cfg:    cfg,
		DB:     theDB,
		Router: router,
		Sync:   syncService,
	}, nil
}

// Start kicks off an immediate sync cycle and schedules the recurring one.
func (a *DashboardApp) Start() error {
	go func() {
		if err := a.Sync.Sync(context.Background()); err != nil {
			a.Log.Error("Initial sync failed", "error", err)
		}
	}()

	a.cron = rcron.New()
	spec := fmt.Sprintf("@every %s", a.Cfg.SyncInterval)
	_, err := a.cron.AddFunc(spec, func() {
		if err := a.Sync.Sync(context.Background()); err != nil {
			a.Log.Error("Scheduled sync failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sync job: %w", err)
	}
	a.cron.Start()
	a.Log.Info("Sync scheduler started", "interval", a.Cfg.SyncInterval.String())
	return nil
}

func (a *DashboardApp) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Starting dashboard server", "port", a.Cfg.DashboardPort)
	return a.Router.Run(":" + a.Cfg.DashboardPort)
}

func (a *DashboardApp) Close() {
	if a == nil {
		return
	}
	if a.cron != nil {
		a.cron.Stop()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
