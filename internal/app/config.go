package app

import (
	"strings"
	"time"

	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/utils"
)

type Config struct {
	GamePort      string
	DashboardPort string
	AllowOrigins  []string

	OpenAIModel string
	// MaxScenes caps the story loop when positive; zero leaves the ending
	// to the narrative agent.
	MaxScenes int

	RedisAddr       string
	MatchSessionTTL time.Duration

	SyncInterval time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	origins := strings.Split(utils.GetEnv("ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173", log), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return Config{
		GamePort:        utils.GetEnv("PORT", "8001", log),
		DashboardPort:   utils.GetEnv("DASHBOARD_PORT", "8000", log),
		AllowOrigins:    origins,
		OpenAIModel:     utils.GetEnv("OPENAI_MODEL", "gpt-5.1", log),
		MaxScenes:       utils.GetEnvAsInt("MAX_SCENES", 0, log),
		RedisAddr:       utils.GetEnv("REDIS_ADDR", "", log),
		MatchSessionTTL: time.Duration(utils.GetEnvAsInt("MATCH_SESSION_TTL", 3600, log)) * time.Second,
		SyncInterval:    time.Duration(utils.GetEnvAsInt("SYNC_INTERVAL_SECONDS", 300, log)) * time.Second,
	}
}
