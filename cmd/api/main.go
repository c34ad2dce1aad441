package main

import (
	"context"
	"log"

	"lex-intake/internal/auth"
	"lex-intake/internal/backend"
	"lex-intake/internal/config"
	"lex-intake/internal/domain/intake"
	"lex-intake/internal/handler"
	"lex-intake/internal/redis"
	"lex-intake/internal/server"
	"lex-intake/internal/services"
	"lex-intake/internal/storage"
	"lex-intake/internal/websocket"
	"lex-intake/pkg/events"
	"lex-intake/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(l)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)

	// Case API client. Portal tokens are forwarded from the request context.
	caseClient := backend.NewCaseClient(cfg.CaseAPI.BaseURL, auth.ContextProvider{}, cfg.CaseAPI.Timeout)
	transcriber := backend.NewTranscriber(cfg.Transcriber.URL, cfg.Transcriber.APIKey, cfg.Transcriber.Timeout)

	var uploader services.DocumentUploader = caseClient
	if cfg.CaseAPI.UploadDriver == "s3" {
		s3Client, err := storage.NewClient(context.Background(), storage.S3Config{
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Endpoint:  cfg.S3.Endpoint,
		})
		if err != nil {
			log.Fatalf("Failed to initialize S3 client: %v", err)
		}
		uploader = backend.NewS3Uploader(s3Client, cfg.S3.KeyPrefix)
	}

	hub := websocket.NewHub()
	var publisher events.Publisher = websocket.NewHubPublisher(hub)

	var limitsCache services.LimitsStore
	var limiter *redis.RateLimiter
	if cfg.Redis.Enabled {
		redis.Initialize(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		client := redis.GetClient()
		limitsCache = redis.NewLimitsCache(client, cfg.Intake.LimitsCacheTTL)
		limiter = redis.NewRateLimiter(client, redis.DefaultRateLimitConfig())

		// Session events go through Redis only. The bridge subscription is
		// the single delivery path to WebSocket clients, local and remote
		// alike, so no instance double-delivers its own events.
		var broker events.Broker = events.NewRedisBroker(client)
		publisher = broker
		bridge := websocket.NewRedisBridge(broker, hub)
		if err := bridge.Run(context.Background(), "intake:session:*"); err != nil {
			log.Fatalf("Failed to subscribe to session events: %v", err)
		}
	}

	defaults := intake.UploadLimits{
		MaxFileSizeBytes:  cfg.Intake.MaxFileSizeBytes,
		MaxFileCount:      cfg.Intake.MaxFileCount,
		AllowedExtensions: cfg.Intake.AllowedExtensions,
	}
	limitsService := services.NewLimitsService(caseClient, limitsCache, defaults, l)
	transcriptionService := services.NewTranscriptionService(transcriber, publisher, l)
	sessionService := services.NewSessionService(limitsService, transcriptionService, publisher, l,
		cfg.Intake.RecorderMaxDuration, cfg.Intake.InlineRecorderMaxDuration)
	submissionService := services.NewSubmissionService(caseClient, uploader, publisher, l)

	intakeHandler := handler.NewIntakeHandler(sessionService, submissionService, limitsService, services.SessionOptions{
		RequireClassification:     cfg.Intake.RequireClassification,
		AutoTranscribe:            cfg.Intake.AutoTranscribe,
		RecorderMaxDuration:       cfg.Intake.RecorderMaxDuration,
		InlineRecorderMaxDuration: cfg.Intake.InlineRecorderMaxDuration,
	})
	wsHandler := websocket.NewHandler(verifier, sessionService, hub)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{Intake: intakeHandler, WS: wsHandler}, verifier, limiter)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
