package app

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/cupidlabs/cupid-backend/internal/agents"
	"github.com/cupidlabs/cupid-backend/internal/chatstore"
	"github.com/cupidlabs/cupid-backend/internal/clients/openai"
	"github.com/cupidlabs/cupid-backend/internal/game"
	"github.com/cupidlabs/cupid-backend/internal/handlers"
	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/matchsession"
	"github.com/cupidlabs/cupid-backend/internal/server"
)

// GameApp is the player-facing chat server: the agent pipeline, thread
// store, and match-selection handoff behind the chat endpoint.
type GameApp struct {
	Log    *logger.Logger
	Cfg    Config
	Router *gin.Engine

	sessions matchsession.Store
}

func NewGameApp() (*GameApp, error) {
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

	aiClient, err := openai.NewClient(openai.ConfigFromEnv(log), log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init openai client: %w", err)
	}

	var sessions matchsession.Store
	if cfg.RedisAddr != "" {
		redisSessions, err := matchsession.NewRedisStore(cfg.RedisAddr, cfg.MatchSessionTTL, log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init redis match sessions: %w", err)
		}
		sessions = redisSessions
	} else {
		log.Info("REDIS_ADDR not set, using in-memory match sessions")
		sessions = matchsession.NewMemoryStore()
	}

	threads := chatstore.NewMemoryStore()
	registry := agents.NewRegistry(cfg.OpenAIModel)
	engine := game.NewEngine(threads, sessions, aiClient, registry, cfg.MaxScenes, log)

	chatHandler := handlers.NewChatHandler(engine, threads, sessions, log)
	router := server.NewGameRouter(server.GameRouterConfig{
		ChatHandler:  chatHandler,
		AllowOrigins: cfg.AllowOrigins,
	})

	return &GameApp{
		Log:      log,
		Cfg:      cfg,
		Router:   router,
		sessions: sessions,
	}, nil
}

func (a *GameApp) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Starting game server", "port", a.Cfg.GamePort)
	return a.Router.Run(":" + a.Cfg.GamePort)
}

func (a *GameApp) Close() {
	if a == nil {
		return
	}
	if closer, ok := a.sessions.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.Log.Warn("Failed to close match session store", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
