// Package main contains the entrypoint for the recommendation-tracking Telegram bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/semaphore"

	"github.com/edgard/callwatch/internal/bot"
	"github.com/edgard/callwatch/internal/bot/handlers"
	"github.com/edgard/callwatch/internal/bot/tasks"
	"github.com/edgard/callwatch/internal/config"
	"github.com/edgard/callwatch/internal/database"
	"github.com/edgard/callwatch/internal/gemini"
	"github.com/edgard/callwatch/internal/logger"
	"github.com/edgard/callwatch/internal/recommend"
	"github.com/edgard/callwatch/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components, blocks until shutdown and returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	// The default handler reads hDeps on every update; the evaluator is attached
	// below once the bot's own identity is known.
	hDeps := &handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Semaphore: semaphore.NewWeighted(cfg.Recommender.MaxConcurrent),
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewRecommendationHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	cfg.Telegram.BotInfo = *me
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	agentName := me.Username
	if agentName == "" {
		agentName = me.FirstName
	}
	composer, err := recommend.NewStoreComposer(store, me.ID, agentName, cfg.Recommender.WindowSize)
	if err != nil {
		log.Error("Failed to create conversation composer", "error", err)
		return 1
	}
	composer.WithTokenBudget(cfg.Recommender.WindowTokens)
	evaluator, err := recommend.NewEvaluator(store, composer, gemClient, recommend.Options{
		AgentID:             me.ID,
		AgentName:           agentName,
		IncompatibleStorage: cfg.Recommender.IncompatibleStorage,
		HistoryLimit:        cfg.Recommender.HistoryLimit,
	}, log)
	if err != nil {
		log.Error("Failed to create recommendation evaluator", "error", err)
		return 1
	}
	hDeps.Evaluator = evaluator

	if _, err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(*hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, store, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
