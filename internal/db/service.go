package db

import (
	"fmt"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/types"
	"github.com/cupidlabs/cupid-backend/internal/utils"
)

// Service owns the dashboard's relational cache. Sqlite is the default;
// setting POSTGRES_HOST switches to postgres.
type Service struct {
	DB  *gorm.DB
	log *logger.Logger
}

func NewService(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DBService")

	var dialector gorm.Dialector
	if strings.TrimSpace(os.Getenv("POSTGRES_HOST")) != "" {
		postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
		postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
		postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
		postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
		postgresName := utils.GetEnv("POSTGRES_NAME", "cupid_dashboard", log)
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)
		serviceLog.Info("Connecting to Postgres...", "host", postgresHost, "database", postgresName)
		dialector = postgres.Open(dsn)
	} else {
		dbPath := utils.GetEnv("DB_PATH", "cupid_dashboard.db", log)
		serviceLog.Info("Opening sqlite database...", "path", dbPath)
		dialector = sqlite.Open(dbPath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		serviceLog.Error("Failed to open database", "error", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Service{DB: db, log: serviceLog}, nil
}

// NewSqliteService opens a sqlite database at the given path, bypassing env
// configuration. Tests use this with a temp file.
func NewSqliteService(path string, log *logger.Logger) (*Service, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Service{DB: db, log: log.With("service", "DBService")}, nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.DB.AutoMigrate(
		&types.SyncMetadata{},
		&types.Session{},
		&types.Trace{},
		&types.Observation{},
		&types.AgentStatsCache{},
		&types.DailyMetric{},
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	s.log.Info("Auto migration complete")
	return nil
}
