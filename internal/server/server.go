package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lex-intake/internal/auth"
	"lex-intake/internal/config"
	"lex-intake/internal/handler"
	"lex-intake/internal/middleware"
	"lex-intake/internal/redis"
	"lex-intake/internal/transport/httpdto"
	"lex-intake/internal/websocket"
	"lex-intake/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Intake *handler.IntakeHandler
	WS     *websocket.Handler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, verifier *auth.Verifier, limiter *redis.RateLimiter) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{
			"status":     "healthy",
			"redis":      redis.IsInitialized(),
			"ws_clients": handlers.WS.ClientCount(),
		}))
	})

	authed := middleware.AuthMiddleware(verifier)

	v1 := s.engine.Group("/v1/intake")
	{
		v1.GET("/limits", authed, handlers.Intake.Limits)
		v1.POST("/sessions", authed, middleware.SessionRateLimitMiddleware(limiter), handlers.Intake.CreateSession)

		// WebSocket clients authenticate via query token inside the handler.
		v1.GET("/sessions/:id/ws", handlers.WS.Connect)

		sessions := v1.Group("/sessions/:id", authed)
		{
			sessions.GET("", handlers.Intake.GetSession)
			sessions.DELETE("", handlers.Intake.AbandonSession)

			sessions.POST("/documents", middleware.UploadRateLimitMiddleware(limiter), handlers.Intake.AddDocuments)
			sessions.DELETE("/documents/:attachmentID", handlers.Intake.RemoveDocument)

			sessions.PUT("/draft", handlers.Intake.UpdateDraft)
			sessions.POST("/advance", handlers.Intake.Advance)
			sessions.POST("/back", handlers.Intake.Back)

			sessions.POST("/camera/start", handlers.Intake.CameraStart)
			sessions.POST("/camera/capture", middleware.UploadRateLimitMiddleware(limiter), handlers.Intake.CameraCapture)
			sessions.POST("/camera/cancel", handlers.Intake.CameraCancel)

			sessions.POST("/voice/start", handlers.Intake.VoiceStart)
			sessions.POST("/voice/chunk", handlers.Intake.VoiceChunk)
			sessions.POST("/voice/pause", handlers.Intake.VoicePause)
			sessions.POST("/voice/resume", handlers.Intake.VoiceResume)
			sessions.POST("/voice/stop", handlers.Intake.VoiceStop)
			sessions.DELETE("/voice", handlers.Intake.VoiceDiscard)
			sessions.POST("/voice/transcribe", middleware.TranscriptionRateLimitMiddleware(limiter), handlers.Intake.Transcribe)

			sessions.POST("/submit", handlers.Intake.Submit)
		}
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
