package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cupidlabs/cupid-backend/internal/chatstore"
	"github.com/cupidlabs/cupid-backend/internal/game"
	"github.com/cupidlabs/cupid-backend/internal/game/data"
	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/matchsession"
	"github.com/cupidlabs/cupid-backend/internal/types"
)

const matchSessionHeader = "x-match-session-id"

type ChatHandler struct {
	engine   *game.Engine
	threads  chatstore.Store
	sessions matchsession.Store
	log      *logger.Logger
}

func NewChatHandler(engine *game.Engine, threads chatstore.Store, sessions matchsession.Store, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		engine:   engine,
		threads:  threads,
		sessions: sessions,
		log:      log.With("handler", "ChatHandler"),
	}
}

type chatAction struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type chatRequest struct {
	Type        string      `json:"type"`
	ThreadID    string      `json:"thread_id"`
	Text        string      `json:"text"`
	Action      *chatAction `json:"action"`
	Attachments []any       `json:"attachments"`
}

// POST /chatkit
//
// Runs one player turn and streams the resulting events back over SSE.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Attachments) > 0 {
		RespondError(c, http.StatusBadRequest, "attachments_unsupported", errors.New("file attachments are not supported"))
		return
	}

	var action game.Action
	switch req.Type {
	case "user_message":
		action = game.NormalizeMessage(req.Text)
	case "widget_action":
		if req.Action == nil {
			RespondError(c, http.StatusBadRequest, "missing_action", errors.New("widget_action requires an action"))
			return
		}
		action = game.NormalizeWidgetAction(req.Action.Type, req.Action.Payload)
	default:
		RespondError(c, http.StatusBadRequest, "unknown_message_type", fmt.Errorf("unknown message type %q", req.Type))
		return
	}

	ctx := c.Request.Context()
	threadID := req.ThreadID
	if threadID == "" {
		thread, err := h.threads.CreateThread(ctx, "", nil)
		if err != nil {
			RespondError(c, http.StatusInternalServerError, "thread_create_failed", err)
			return
		}
		threadID = thread.ID
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	emit := func(ev game.Event) {
		payload, err := json.Marshal(ev)
		if err != nil {
			h.log.Warn("Failed to marshal stream event", "error", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		w.Flush()
	}

	err := h.engine.Respond(ctx, threadID, c.GetHeader(matchSessionHeader), action, emit)
	if err != nil {
		h.log.Error("Turn failed", "threadID", threadID, "error", err)
		payload, _ := json.Marshal(gin.H{"type": "error", "message": err.Error()})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		w.Flush()
	}
}

// POST /api/match-selection
func (h *ChatHandler) CreateMatchSelection(c *gin.Context) {
	var selection types.MatchSelection
	if err := c.ShouldBindJSON(&selection); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_selection", err)
		return
	}

	sessionID, err := h.sessions.Store(c.Request.Context(), &selection)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "selection_store_failed", err)
		return
	}

	RespondOK(c, gin.H{"session_id": sessionID})
}

// GET /api/today
func (h *ChatHandler) GetToday(c *gin.Context) {
	today, err := data.Load()
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "today_load_failed", err)
		return
	}

	matches := make([]gin.H, 0, len(today.Matches))
	for _, m := range today.Matches {
		matches = append(matches, gin.H{"id": m.ID, "data": m.Data})
	}
	RespondOK(c, gin.H{
		"mortal":        today.Mortal,
		"matches":       matches,
		"compatibility": today.Compatibility,
	})
}
