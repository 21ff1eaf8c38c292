package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matchplay/tournament-engine/config"
	"github.com/matchplay/tournament-engine/db"
	"github.com/matchplay/tournament-engine/handlers"
	"github.com/matchplay/tournament-engine/notifications"
	"github.com/matchplay/tournament-engine/repositories"
	api "github.com/matchplay/tournament-engine/routes"
	"github.com/matchplay/tournament-engine/schedule"
	"github.com/matchplay/tournament-engine/services"
	"github.com/matchplay/tournament-engine/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	var uploader storage.FileUploader
	if cfg.UploadsEnabled() {
		uploader, err = storage.NewCloudflareR2Uploader(cfg.R2)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 settings incomplete, evidence uploads disabled")
	}

	var notifier notifications.Notifier = notifications.NopNotifier{}
	if cfg.TelegramBotToken != "" {
		tg, err := notifications.NewTelegramNotifier(cfg.TelegramBotToken)
		if err != nil {
			logger.Warn("failed to initialize telegram notifier, notifications disabled", slog.Any("error", err))
		} else {
			notifier = tg
			logger.Info("telegram notifier initialized")
		}
	}

	wsHub := schedule.NewHub()
	go wsHub.Run()
	logger.Info("websocket hub started")

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	resultRepo := repositories.NewPostgresMatchResultRepository(dbConn)
	logger.Info("repositories initialized")

	locks := services.NewTournamentLocks()

	authService := services.NewAuthService(userRepo, cfg.JWTSecretKey, logger)
	teamService := services.NewTeamService(dbConn, teamRepo, tournamentRepo, logger)
	bracketService := services.NewBracketService(
		dbConn, matchRepo, tournamentRepo, teamRepo, userRepo, notifier, wsHub, locks)
	matchService := services.NewMatchService(
		dbConn, matchRepo, resultRepo, tournamentRepo, teamRepo, userRepo,
		bracketService, notifier, wsHub, locks)
	tournamentService := services.NewTournamentService(
		dbConn, tournamentRepo, teamRepo, matchRepo, userRepo,
		bracketService, notifier, logger)
	logger.Info("services initialized")

	router := api.InitRoutes(api.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Tournament: handlers.NewTournamentHandler(tournamentService),
		Team:       handlers.NewTeamHandler(teamService),
		Match:      handlers.NewMatchHandler(matchService, uploader),
		Websocket:  handlers.NewWebsocketHandler(wsHub),
	}, cfg.JWTSecretKey)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
