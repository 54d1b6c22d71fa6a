package handlers

import (
	"net/http"

	"agenthub/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EngineEventsHandler ingests the engine's asynchronous stream events:
// content deltas, thinking deltas, and finalize. How the engine physically
// delivers them (push, poll, local socket) stays outside the core; this
// endpoint is just the mouth of the pipe.
type EngineEventsHandler struct {
	orchestrator *session.Orchestrator
	logger       *zap.Logger
}

func NewEngineEventsHandler(orchestrator *session.Orchestrator, logger *zap.Logger) *EngineEventsHandler {
	return &EngineEventsHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

type engineEvent struct {
	SessionKey string                 `json:"session_key"`
	Type       string                 `json:"type"`
	Text       string                 `json:"text,omitempty"`
	Usage      map[string]interface{} `json:"usage,omitempty"`
}

// Ingest routes one engine event. Events for unknown streams are accepted
// and dropped: the stream may legitimately have resolved already.
func (h *EngineEventsHandler) Ingest(c *gin.Context) {
	var ev engineEvent
	if err := c.ShouldBindJSON(&ev); err != nil || ev.SessionKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_key and type required"})
		return
	}

	switch ev.Type {
	case "content":
		h.orchestrator.HandleContentDelta(ev.SessionKey, ev.Text)
	case "thinking":
		h.orchestrator.HandleThinkingDelta(ev.SessionKey, ev.Text)
	case "finalize":
		h.orchestrator.HandleFinalize(ev.SessionKey, ev.Text, ev.Usage)
	default:
		h.logger.Warn("Unknown engine event type",
			zap.String("type", ev.Type),
			zap.String("session_key", ev.SessionKey))
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
		return
	}

	c.Status(http.StatusAccepted)
}
