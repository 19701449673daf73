package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nightcrane/lotterybot/api/routes"
	"github.com/nightcrane/lotterybot/internal/config"
	"github.com/nightcrane/lotterybot/internal/handlers"
	"github.com/nightcrane/lotterybot/internal/repositories"
	mongorepo "github.com/nightcrane/lotterybot/internal/repositories/mongodb"
	"github.com/nightcrane/lotterybot/internal/services"
	"github.com/nightcrane/lotterybot/internal/telegram"
	"github.com/nightcrane/lotterybot/pkg/drand"
	"github.com/nightcrane/lotterybot/pkg/mongodb"
	"golang.org/x/exp/slog"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogger(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid lottery timezone %q: %v", cfg.Lottery.Timezone, err)
	}

	mongoClient, err := mongodb.NewClient(cfg.MongoDB.URI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			slog.Error("error disconnecting from MongoDB", "error", err)
		}
	}()
	db := mongoClient.Database(cfg.MongoDB.Database)

	var lotteryRepo repositories.LotteryRepository = mongorepo.NewLotteryRepository(db)

	bot, err := telegram.NewBot(cfg.Telegram.Token)
	if err != nil {
		log.Fatalf("Failed to start Telegram bot: %v", err)
	}

	// Join and draw share one lock set so transitions on a single lottery
	// are serialized.
	locks := services.NewKeyedMutex()
	selector := services.NewWinnerSelector(drand.NewClient(cfg.Drand.URL))
	drawService := services.NewDrawService(lotteryRepo, selector, bot, locks)
	joinService := services.NewJoinService(lotteryRepo, drawService, locks)

	scheduler, err := services.NewSchedulerService(drawService, lotteryRepo, loc)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	wizardService := services.NewWizardService(lotteryRepo, bot, scheduler, loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Re-arm pending deadline draws before accepting new work
	if err := scheduler.Recover(ctx); err != nil {
		log.Fatalf("Failed to recover scheduled draws: %v", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			slog.Error("scheduler shutdown failed", "error", err)
		}
	}()

	router := routes.SetupRouter(cfg, routes.HandlerDependencies{
		AuthHandler:    handlers.NewAuthHandler(services.NewAuthService(cfg)),
		LotteryHandler: handlers.NewLotteryHandler(services.NewLotteryService(lotteryRepo)),
	})
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	go func() {
		slog.Info("admin API listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s", err)
		}
	}()

	slog.Info("bot started", "username", bot.BotName())
	telegram.NewRouter(bot, wizardService, joinService, cfg.Telegram.UpdateTimeout, cfg.Telegram.WorkerCount).Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("admin API shutdown failed", "error", err)
	}
	slog.Info("shut down")
}

func setupLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
