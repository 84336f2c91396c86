package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/abelzeko/danube-cote/internal/api"
	"github.com/abelzeko/danube-cote/internal/config"
	"github.com/abelzeko/danube-cote/internal/integration/openai"
	"github.com/abelzeko/danube-cote/internal/observability"
	"github.com/abelzeko/danube-cote/internal/repository"
	"github.com/abelzeko/danube-cote/internal/stations"
	"github.com/abelzeko/danube-cote/internal/usecases"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()
	logger.Infof("Starting Danube cote bot...")

	if cfg.TelegramBotToken == "" {
		logger.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	repo, err := repository.NewSQLiteCoteRepository(cfg.DBPath, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	opts := []usecases.Option{
		usecases.WithLocation(cfg.Location),
		usecases.WithVariationThreshold(cfg.VariationAlertCM),
	}
	if cfg.OpenAIAPIKey != "" {
		openAIService, err := openai.NewOpenAIService(cfg.OpenAIAPIKey, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize OpenAI service: %v", err)
		}
		opts = append(opts, usecases.WithOpenAI(openAIService))
	} else {
		logger.Warnf("OPENAI_API_KEY is not set, free text questions are disabled")
	}

	useCase := usecases.NewCoteUseCase(repo, stations.Default(), logger, opts...)

	telegramBot, err := api.NewTelegramBot(cfg.TelegramBotToken, useCase, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize Telegram bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramBot.Start(ctx)
}
