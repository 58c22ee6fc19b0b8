// BridgeQuest - cooperative cross-cultural puzzle server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/bridgequest/internal/api"
	"github.com/ashureev/bridgequest/internal/chatlog"
	"github.com/ashureev/bridgequest/internal/config"
	"github.com/ashureev/bridgequest/internal/content"
	"github.com/ashureev/bridgequest/internal/game"
	"github.com/ashureev/bridgequest/internal/identity"
	"github.com/ashureev/bridgequest/internal/llm"
	"github.com/ashureev/bridgequest/internal/matchmaking"
	"github.com/ashureev/bridgequest/internal/middleware"
	"github.com/ashureev/bridgequest/internal/partner"
	"github.com/ashureev/bridgequest/internal/schedule"
	"github.com/ashureev/bridgequest/internal/wolfram"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	gameCfg := config.DefaultGame()
	if cfg.GameConfigPath != "" {
		gameCfg, err = config.LoadGame(cfg.GameConfigPath)
		if err != nil {
			slog.Error("Failed to load game configuration", "error", err, "path", cfg.GameConfigPath)
			os.Exit(1)
		}
		slog.Info("Game configuration loaded", "path", cfg.GameConfigPath)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "levels", gameCfg.LevelCount())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Generative model (optional). Without it puzzles come from the local
	// table and the partner speaks in canned lines.
	var puzzleGen content.Generator
	var partnerGen partner.TextGenerator
	features := api.Features{}
	gemini, err := llm.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Timeout)
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		slog.Info("Generative model disabled (GEMINI_API_KEY not set)")
	case err != nil:
		slog.Warn("Failed to initialize generative model, using offline content", "error", err)
	default:
		puzzleGen = gemini
		partnerGen = gemini
		features.GenerativeModel = gemini.Model()
		slog.Info("Generative model initialized", "model", gemini.Model())
	}

	facts := wolfram.New(cfg.Wolfram.AppID,
		wolfram.WithBaseURL(cfg.Wolfram.BaseURL),
		wolfram.WithTimeout(cfg.Wolfram.Timeout))
	features.LiveFacts = facts.Enabled()
	if facts.Enabled() {
		slog.Info("Wolfram|Alpha fact lookup enabled")
	}

	recorder, err := chatlog.New(chatlog.Config{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := recorder.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	// Initialize services.
	puzzles := content.NewProvider(gameCfg, content.Options{
		Generator: puzzleGen,
		Facts:     facts,
		Logger:    logger,
	})
	voice := partner.NewResponder(partnerGen, gameCfg, logger)
	sessions := game.NewManager()
	defer sessions.CloseAll()

	newSession := func(userID, tabID string) *game.Session {
		return game.NewSession(game.Deps{
			Game:      gameCfg,
			Puzzles:   puzzles,
			Voice:     voice,
			Scheduler: schedule.Real{},
			Recorder:  recorder,
			Logger:    logger.With("tab_id", tabID),
		}, userID, "")
	}

	limiter := api.NewRateLimiter(cfg.ChatRateLimit, cfg.ChatRateWindow)
	defer limiter.Stop()

	// Initialize handlers.
	restHandler := api.NewHandler(gameCfg, features)
	playHandler := api.NewPlayHandler(
		sessions,
		matchmaking.NewLobby(gameCfg, schedule.Real{}, nil),
		newSession,
		limiter,
		cfg.FrontendURL,
		cfg.IsDevelopment(),
	)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	restHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/play", playHandler.ServeHTTP)

	// WebSocket connections are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start session reaper.
	game.StartReaper(ctx, sessions, cfg.ReapInterval, cfg.SessionTTL, nil)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
