package handlers

import (
	"errors"
	"net/http"
	"sync"

	apperrors "agenthub/errors"
	"agenthub/session"
	"agenthub/web/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler exposes the send/stream/abort surface over the orchestrator.
type ChatHandler struct {
	orchestrator  *session.Orchestrator
	streamService *services.StreamService
	logger        *zap.Logger
}

func NewChatHandler(orchestrator *session.Orchestrator, streamService *services.StreamService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		orchestrator:  orchestrator,
		streamService: streamService,
		logger:        logger,
	}
}

type sendRequest struct {
	Message string `json:"message" form:"message"`
}

// SendMessage fires a send for the active session and blocks until the
// stream resolves. A dropped (stale-agent) finalize returns 204 so the
// client injects nothing into the live view.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.orchestrator.SendMessage(c.Request.Context(), req.Message)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message must not be empty"})
			return
		}
		h.logger.Error("Send failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
		return
	}

	if res.Dropped {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Abort stops the local wait for a session's stream and asks the backend,
// best-effort, to stop generating.
func (h *ChatHandler) Abort(c *gin.Context) {
	var req struct {
		SessionKey string `json:"session_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_key required"})
		return
	}

	if err := h.orchestrator.Abort(req.SessionKey); err != nil {
		if errors.Is(err, apperrors.ErrStreamNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no stream for session"})
			return
		}
		h.logger.Error("Abort failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "abort failed"})
		return
	}
	c.Status(http.StatusAccepted)
}

// StreamDeltas is the SSE feed of content/thinking deltas for the
// currently-displayed session. The connection stays open until the client
// goes away.
func (h *ChatHandler) StreamDeltas(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	id, events := h.orchestrator.Subscribe()
	defer h.orchestrator.Unsubscribe(id)

	var writeMu sync.Mutex
	ctx := c.Request.Context()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data := services.StreamData{
				Type:    ev.Type,
				Session: ev.SessionKey,
				Content: ev.Text,
			}
			if err := h.streamService.WriteSSEData(ctx, c.Writer, data, &writeMu); err != nil {
				h.logger.Debug("SSE write failed, closing delta stream", zap.Error(err))
				return
			}
		}
	}
}
