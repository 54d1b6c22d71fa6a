package web

import (
	"context"
	"fmt"
	"net/http"

	"agenthub/config"
	"agenthub/session"
	"agenthub/web/handlers"
	"agenthub/web/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router       *gin.Engine
	orchestrator *session.Orchestrator
	logger       *zap.Logger
	config       *config.Config
}

func NewServer(orchestrator *session.Orchestrator, logger *zap.Logger, cfg *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	server := &Server{
		router:       router,
		orchestrator: orchestrator,
		logger:       logger,
		config:       cfg,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	streamService := services.NewStreamService(s.logger)
	chatHandler := handlers.NewChatHandler(s.orchestrator, streamService, s.logger)
	sessionsHandler := handlers.NewSessionsHandler(s.orchestrator, s.logger)
	eventsHandler := handlers.NewEngineEventsHandler(s.orchestrator, s.logger)

	s.router.POST("/chat", chatHandler.SendMessage)
	s.router.GET("/chat/stream", chatHandler.StreamDeltas)
	s.router.POST("/chat/abort", chatHandler.Abort)
	s.router.POST("/chat/new", sessionsHandler.NewChat)

	s.router.GET("/conversations", sessionsHandler.Conversations)
	s.router.GET("/conversations/groups", sessionsHandler.ConversationGroups)
	s.router.GET("/history/:sessionKey", sessionsHandler.History)

	s.router.POST("/agent/switch", sessionsHandler.SwitchAgent)
	s.router.POST("/session/switch", sessionsHandler.SwitchSession)
	s.router.POST("/session/clear", sessionsHandler.ClearSession)
	s.router.POST("/groups", sessionsHandler.CreateGroup)

	s.router.GET("/meter", sessionsHandler.Meter)
	s.router.POST("/meter/dismiss", sessionsHandler.DismissCompaction)

	s.router.POST("/engine/events", eventsHandler.Ingest)
}

func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.WebPort)
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server failed to start", zap.Error(err))
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()

	s.logger.Info("Shutting down web server")
	return srv.Shutdown(context.Background())
}
