package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/services"
)

type DashboardHandler struct {
	analytics    *services.AnalyticsService
	sync         *services.SyncService
	syncInterval time.Duration
	log          *logger.Logger
}

func NewDashboardHandler(analytics *services.AnalyticsService, sync *services.SyncService, syncInterval time.Duration, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		analytics:    analytics,
		sync:         sync,
		syncInterval: syncInterval,
		log:          log.With("handler", "DashboardHandler"),
	}
}

// GET /api/sessions
func (h *DashboardHandler) GetSessions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	list, err := h.analytics.GetSessions(
		c.Request.Context(),
		c.DefaultQuery("time_range", "all"),
		c.DefaultQuery("status", "all"),
		c.Query("search"),
		page,
		limit,
	)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "sessions_query_failed", err)
		return
	}
	RespondOK(c, list)
}

// GET /api/sessions/stats
func (h *DashboardHandler) GetSessionStats(c *gin.Context) {
	stats, err := h.analytics.GetSessionStats(c.Request.Context(), c.DefaultQuery("time_range", "all"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "session_stats_failed", err)
		return
	}
	RespondOK(c, stats)
}

// GET /api/sessions/:id/conversation
func (h *DashboardHandler) GetConversation(c *gin.Context) {
	conversation, err := h.analytics.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "conversation_query_failed", err)
		return
	}
	RespondOK(c, conversation)
}

// GET /api/agents
func (h *DashboardHandler) GetAgents(c *gin.Context) {
	agents, err := h.analytics.GetAgents(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "agents_query_failed", err)
		return
	}
	RespondOK(c, gin.H{"agents": agents})
}

// GET /api/agents/:name
func (h *DashboardHandler) GetAgentDetail(c *gin.Context) {
	detail, err := h.analytics.GetAgentDetail(c.Request.Context(), c.Param("name"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "agent_detail_failed", err)
		return
	}
	if detail == nil {
		RespondError(c, http.StatusNotFound, "agent_not_found", errors.New("agent not found"))
		return
	}
	RespondOK(c, detail)
}

// GET /api/agents/:name/charts
func (h *DashboardHandler) GetAgentCharts(c *gin.Context) {
	charts, err := h.analytics.GetAgentCharts(c.Request.Context(), c.Param("name"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "agent_charts_failed", err)
		return
	}
	RespondOK(c, charts)
}

// GET /api/metrics/dashboard
func (h *DashboardHandler) GetDashboardMetrics(c *gin.Context) {
	metrics, err := h.analytics.GetDashboardMetrics(c.Request.Context(), c.DefaultQuery("time_range", "7d"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "metrics_query_failed", err)
		return
	}
	RespondOK(c, metrics)
}

// GET /api/sync/status
func (h *DashboardHandler) GetSyncStatus(c *gin.Context) {
	status, err := h.sync.GetStatus(c.Request.Context(), h.syncInterval)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "sync_status_failed", err)
		return
	}
	RespondOK(c, status)
}

// POST /api/sync/trigger
//
// Kicks off a sync cycle without waiting for it. An already running cycle
// makes this a no-op.
func (h *DashboardHandler) TriggerSync(c *gin.Context) {
	go func() {
		if err := h.sync.Sync(context.Background()); err != nil {
			h.log.Error("Manual sync failed", "error", err)
		}
	}()
	RespondOK(c, gin.H{"status": "triggered"})
}
