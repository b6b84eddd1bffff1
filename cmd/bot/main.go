package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/xaenox/readlater-bot/internal/bot"
	"github.com/xaenox/readlater-bot/internal/messenger"
	"github.com/xaenox/readlater-bot/internal/notion"
	"github.com/xaenox/readlater-bot/internal/server"
	"github.com/xaenox/readlater-bot/internal/storage"
	"github.com/xaenox/readlater-bot/pkg/config"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("Failed to load config", zap.Error(err), zap.String("path", *configPath))
	}

	// Initialize logger
	logger, _ := zap.NewProduction()
	if cfg.Log.Development {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	memory := storage.NewMemoryStorage()
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = memory
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(dbConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	var states storage.StateStore = memory
	if cfg.Redis.URL != "" {
		logger.Info("Using Redis for conversation state")
		redisStore, err := storage.OpenRedisStateStore(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisStore.Close()
		states = redisStore
	}

	workspace := notion.NewClient(notion.Options{
		BaseURL:           cfg.Notion.BaseURL,
		APIVersion:        cfg.Notion.APIVersion,
		RequestsPerSecond: cfg.Notion.RequestsPerSecond,
		Properties: notion.Properties{
			Title:     cfg.Notion.TitleProperty,
			URL:       cfg.Notion.URLProperty,
			Read:      cfg.Notion.ReadProperty,
			ReadValue: cfg.Notion.ReadValue,
		},
	})

	tg, err := messenger.NewTelegram(cfg.Telegram.Token, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}
	if cfg.Telegram.WebhookURL != "" {
		if err := tg.RegisterWebhook(cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			logger.Fatal("Failed to register webhook", zap.Error(err))
		}
	}

	dispatcher := bot.NewDispatcher(store, store, states, workspace, bot.DispatcherConfig{
		StateTTL:          cfg.Bot.StateTTL,
		PickerOptions:     cfg.Bot.PickerOptions,
		CleanupOnUnfollow: cfg.Bot.CleanupOnUnfollow,
	}, logger)

	location, err := cfg.Scheduler.Location()
	if err != nil {
		logger.Fatal("Invalid timezone", zap.Error(err))
	}
	scheduler := bot.NewScheduler(store, store, workspace, tg, location, logger)
	if cfg.Scheduler.Interval > 0 {
		go scheduler.Run(ctx, cfg.Scheduler.Interval)
	}

	srv := server.New(server.Config{
		Addr:          cfg.Server.Addr,
		WebhookSecret: cfg.Telegram.WebhookSecret,
		CronSecret:    cfg.Scheduler.CronSecret,
	}, bot.New(dispatcher, tg, logger), scheduler, logger)

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
	logger.Info("Shutting down")
}
