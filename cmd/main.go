package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/voiceflowhq/collab/adapters"
	"github.com/voiceflowhq/collab/adapters/ai"
	"github.com/voiceflowhq/collab/adapters/mongo"
	"github.com/voiceflowhq/collab/adapters/rediscache"
	"github.com/voiceflowhq/collab/adapters/stt"
	"github.com/voiceflowhq/collab/adapters/tts"
	"github.com/voiceflowhq/collab/domain/repositories"
	"github.com/voiceflowhq/collab/internal/api"
	"github.com/voiceflowhq/collab/internal/voiceauth"
	"github.com/voiceflowhq/collab/internal/websocket"
	"github.com/voiceflowhq/collab/usecase"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Storage: MongoDB when reachable, in-memory otherwise so local
	// development works without infrastructure.
	var (
		users       repositories.UserRepository
		workspaces  repositories.WorkspaceRepository
		sessions    repositories.SessionRepository
		profiles    repositories.VoiceProfileRepository
		mongoClient *mongo.Client
	)
	mongoClient, err := mongo.NewClient(logger)
	if err != nil {
		logger.Warn("MongoDB unavailable, using in-memory storage", zap.Error(err))
		users = adapters.NewMemoryUserRepository()
		workspaces = adapters.NewMemoryWorkspaceRepository()
		sessions = adapters.NewMemorySessionRepository()
		profiles = adapters.NewMemoryVoiceProfileRepository()
	} else {
		users = mongo.NewUserRepository(mongoClient.Database)
		workspaces = mongo.NewWorkspaceRepository(mongoClient.Database)
		sessions = mongo.NewSessionRepository(mongoClient.Database)
		profiles = mongo.NewVoiceProfileRepository(mongoClient.Database)
	}

	// Analytics read models: redis when reachable, in-memory otherwise.
	var analytics repositories.AnalyticsReader
	if cache, err := rediscache.NewAnalyticsCache(logger); err != nil {
		logger.Warn("Redis unavailable, using in-memory analytics cache", zap.Error(err))
		analytics = adapters.NewMemoryAnalyticsCache()
	} else {
		analytics = cache
	}

	// Speech-to-text: Google Cloud Speech when credentials are present.
	var speechToText repositories.SpeechToText
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		speechToText = stt.NewGoogleSpeechToText()
	} else {
		logger.Warn("Google credentials missing, using mock speech-to-text")
		speechToText = stt.NewMockSpeechToText(logger)
	}

	// Audio cues: ElevenLabs when configured; otherwise cues are skipped.
	var cues repositories.AudioCueProvider
	if ttsConfig := tts.NewElevenLabsConfigFromEnv(); tts.ValidateElevenLabsConfig(ttsConfig) == nil {
		provider, err := tts.NewElevenLabsCues(ttsConfig, nil, logger)
		if err != nil {
			logger.Warn("Failed to initialize ElevenLabs cues", zap.Error(err))
		} else {
			cues = provider
		}
	} else {
		logger.Warn("ElevenLabs not configured, audio cues disabled")
	}

	// Command interpretation: Gemini when configured, pattern table with
	// a canned fallback otherwise.
	var interpreter repositories.CommandInterpreter
	if gemini, err := ai.NewGeminiInterpreter(logger); err != nil {
		logger.Warn("Gemini unavailable, using mock interpreter", zap.Error(err))
		interpreter = ai.NewMockInterpreter()
	} else {
		interpreter = gemini
	}

	// Initialize usecase services
	collabOpts := []usecase.CollaborationOption{
		usecase.WithCommandInterpreter(interpreter),
	}
	if cues != nil {
		collabOpts = append(collabOpts, usecase.WithAudioCues(cues))
	}
	collab := usecase.NewCollaborationService(workspaces, sessions, logger, collabOpts...)

	matcher := voiceauth.NewMatcher(logger)

	// Background cleanup of sessions whose last participant left.
	cleanup := websocket.NewSessionCleanupService(collab, logger)
	cleanup.Start()
	defer cleanup.Stop()

	// Initialize API routes
	server := api.NewServer(users, workspaces, profiles, analytics, matcher, collab, speechToText, logger)
	server.InitRoutes(e)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	if mongoClient != nil {
		_ = mongoClient.Close(ctx)
	}

	logger.Info("Server exited")
}
