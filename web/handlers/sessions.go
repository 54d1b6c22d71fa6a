package handlers

import (
	"errors"
	"net/http"

	"agenthub/conversations"
	apperrors "agenthub/errors"
	"agenthub/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionsHandler exposes the conversation index, history, switching, and
// meter surface.
type SessionsHandler struct {
	orchestrator *session.Orchestrator
	logger       *zap.Logger
}

func NewSessionsHandler(orchestrator *session.Orchestrator, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Conversations returns the sorted, filtered conversation index.
func (h *SessionsHandler) Conversations(c *gin.Context) {
	tab := conversations.Tab(c.DefaultQuery("tab", string(conversations.TabAll)))
	query := c.Query("q")

	entries, err := h.orchestrator.Conversations(c.Request.Context(), tab, query)
	if err != nil {
		h.logger.Error("Failed to build conversation index", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not list conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": entries})
}

// ConversationGroups returns direct entries grouped per agent.
func (h *SessionsHandler) ConversationGroups(c *gin.Context) {
	groups, err := h.orchestrator.ConversationGroups(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to group conversations", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not group conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// History returns persisted messages for one session.
func (h *SessionsHandler) History(c *gin.Context) {
	sessionKey := c.Param("sessionKey")
	msgs, err := h.orchestrator.History(c.Request.Context(), sessionKey)
	if err != nil {
		h.logger.Error("Failed to fetch history",
			zap.String("session_key", sessionKey), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not fetch history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SwitchAgent activates another agent and its last-used session.
func (h *SessionsHandler) SwitchAgent(c *gin.Context) {
	var req struct {
		AgentID string `json:"agent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.AgentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent_id required"})
		return
	}

	key, err := h.orchestrator.SwitchAgent(c.Request.Context(), req.AgentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown agent"})
			return
		}
		h.logger.Error("Agent switch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "switch failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"agent_id": req.AgentID, "session_key": key})
}

// SwitchSession changes the displayed session for the current agent.
func (h *SessionsHandler) SwitchSession(c *gin.Context) {
	var req struct {
		SessionKey string `json:"session_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_key required"})
		return
	}

	if err := h.orchestrator.SwitchSession(c.Request.Context(), req.SessionKey); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_key": req.SessionKey})
}

// NewChat starts a fresh session for the current agent.
func (h *SessionsHandler) NewChat(c *gin.Context) {
	key, err := h.orchestrator.NewChat(c.Request.Context())
	if err != nil {
		h.logger.Error("New chat failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start chat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_key": key})
}

// ClearSession resets the meter for the current session.
func (h *SessionsHandler) ClearSession(c *gin.Context) {
	h.orchestrator.ClearSession()
	c.Status(http.StatusNoContent)
}

// CreateGroup records a pending group chat.
func (h *SessionsHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	key, err := h.orchestrator.CreateGroupChat(c.Request.Context(), req.Name, req.Members)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and members required"})
			return
		}
		h.logger.Error("Group creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_key": key})
}

// Meter returns the current token/cost snapshot.
func (h *SessionsHandler) Meter(c *gin.Context) {
	c.JSON(http.StatusOK, h.orchestrator.MeterSnapshot())
}

// DismissCompaction suppresses the compaction warning for this session.
func (h *SessionsHandler) DismissCompaction(c *gin.Context) {
	h.orchestrator.DismissCompaction()
	c.Status(http.StatusNoContent)
}
