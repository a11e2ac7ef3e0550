package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nd-ahl/envive/internal/api"
	"github.com/nd-ahl/envive/internal/config"
	"github.com/nd-ahl/envive/internal/engine"
	"github.com/nd-ahl/envive/internal/handlers"
	"github.com/nd-ahl/envive/internal/metrics"
	"github.com/nd-ahl/envive/internal/repository/postgres"
	"github.com/nd-ahl/envive/internal/screentime"
	"github.com/nd-ahl/envive/internal/telegram"
	"github.com/nd-ahl/envive/pkg/logger"
)

func main() {
	// A local .env is optional; real deployments set the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting envived...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(cfg.MigrationsPath); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Engine
	m := metrics.New()
	repos := postgres.NewRepositories(db.DB)
	txm := postgres.NewTxManager(db.DB)
	granter := screentime.NewLogGranter(l)
	eng := engine.New(repos, txm, granter, m, l)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Telegram bot (optional; parents' review surface)
	if cfg.BotEnabled() {
		bot, err := telegram.NewBot(cfg.TelegramToken, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram bot: %v", err)
		}

		bot.RegisterCommand("start", handlers.NewStartHandler(eng, l))
		bot.RegisterCommand("help", handlers.NewHelpHandler(l))
		bot.RegisterCommand("tasks", handlers.NewTasksHandler(eng, l))
		bot.RegisterCommand("approve", handlers.NewApproveHandler(eng, l))
		bot.RegisterCommand("decline", handlers.NewDeclineHandler(eng, l))
		bot.RegisterCommand("trust", handlers.NewTrustHandler(eng, l))
		bot.RegisterCommand("balance", handlers.NewBalanceHandler(eng, l))

		go func() {
			if err := bot.Start(ctx); err != nil {
				l.Errorf("Bot error: %v", err)
			}
		}()
	} else {
		l.Info("TELEGRAM_TOKEN not set, bot surface disabled")
	}

	// HTTP API for the mobile app
	apiServer := api.NewServer(eng, m, l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("envived started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP server...")
	httpServer.Close()

	l.Info("envived stopped")
}
