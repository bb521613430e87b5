package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cupidlabs/cupid-backend/internal/handlers"
)

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "x-match-session-id"},
		AllowCredentials: true,
	})
}

type GameRouterConfig struct {
	ChatHandler  *handlers.ChatHandler
	AllowOrigins []string
}

func NewGameRouter(cfg GameRouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(corsMiddleware(cfg.AllowOrigins))

	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/chatkit", cfg.ChatHandler.Chat)

	api := router.Group("/api")
	{
		api.POST("/match-selection", cfg.ChatHandler.CreateMatchSelection)
		api.GET("/today", cfg.ChatHandler.GetToday)
	}

	return router
}

type DashboardRouterConfig struct {
	DashboardHandler *handlers.DashboardHandler
	AllowOrigins     []string
}

func NewDashboardRouter(cfg DashboardRouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(corsMiddleware(cfg.AllowOrigins))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/sessions", cfg.DashboardHandler.GetSessions)
		api.GET("/sessions/stats", cfg.DashboardHandler.GetSessionStats)
		api.GET("/sessions/:id/conversation", cfg.DashboardHandler.GetConversation)
		api.GET("/agents", cfg.DashboardHandler.GetAgents)
		api.GET("/agents/:name", cfg.DashboardHandler.GetAgentDetail)
		api.GET("/agents/:name/charts", cfg.DashboardHandler.GetAgentCharts)
		api.GET("/metrics/dashboard", cfg.DashboardHandler.GetDashboardMetrics)
		api.GET("/sync/status", cfg.DashboardHandler.GetSyncStatus)
		api.POST("/sync/trigger", cfg.DashboardHandler.TriggerSync)
	}

	return router
}
