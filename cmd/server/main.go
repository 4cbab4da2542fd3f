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

	"github.com/gin-gonic/gin"

	"collectgame/backend/internal/config"
	"collectgame/backend/internal/db"
	"collectgame/backend/internal/game"
	"collectgame/backend/internal/handler"
	"collectgame/backend/internal/repository"
	"collectgame/backend/internal/router"
	"collectgame/backend/internal/service"
	"collectgame/backend/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(ctx, database, cfg.MigrationsDir); err != nil {
		logger.Error("run migrations", "error", err)
		os.Exit(1)
	}

	store := repository.NewStore(database)
	authService := service.NewAuthService(store, cfg.JWTSecret, cfg.TokenTTL)
	economyService := service.NewEconomyService(store)
	gameService := service.NewGameService(store, game.NewEngine(nil))
	shopService := service.NewShopService(store)
	reportService := service.NewReportService(store)

	sweeper := worker.NewSweeper(gameService, cfg.SweepInterval, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Error("start sweeper", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := sweeper.Stop(); err != nil {
			logger.Error("stop sweeper", "error", err)
		}
	}()

	engine := router.New(authService, router.Handlers{
		Auth:    handler.NewAuthHandler(authService, economyService),
		Game:    handler.NewGameHandler(gameService),
		Shop:    handler.NewShopHandler(shopService),
		Reports: handler.NewReportsHandler(reportService),
	}, router.Options{
		CORSOrigins:   cfg.CORSOrigins,
		RatePerSecond: cfg.RatePerSecond,
		RateBurst:     cfg.RateBurst,
		Logger:        logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("backend listening", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("run server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown server", "error", err)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.Development() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
