package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/abelzeko/danube-cote/internal/api"
	"github.com/abelzeko/danube-cote/internal/config"
	"github.com/abelzeko/danube-cote/internal/export"
	"github.com/abelzeko/danube-cote/internal/integration"
	"github.com/abelzeko/danube-cote/internal/integration/cotesapi"
	"github.com/abelzeko/danube-cote/internal/integration/kafka"
	"github.com/abelzeko/danube-cote/internal/normalizer"
	"github.com/abelzeko/danube-cote/internal/observability"
	"github.com/abelzeko/danube-cote/internal/repository"
	"github.com/abelzeko/danube-cote/internal/stations"
	"github.com/abelzeko/danube-cote/internal/usecases"
	"go.uber.org/zap"
)

const metricsJob = "danube_cote_scraper"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "scraper failed: %v\n", err)
		os.Exit(1)
	}
}

// run performs a single scrape with settings from the environment,
// overridden by command line flags
func run(ctx context.Context, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlags(cfg, args); err != nil {
		return err
	}

	zl, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()
	logger.Infof("Starting Danube cote scraper (source %s)", cfg.SourceMode)

	repo, err := repository.NewSQLiteCoteRepository(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	metrics := observability.NewMetrics()
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	opts := []usecases.Option{
		usecases.WithSources(buildSources(cfg, client, logger)...),
		usecases.WithExporter(export.NewExporter(cfg.OutputDir, cfg.ExportFormats, logger)),
		usecases.WithMetrics(metrics),
		usecases.WithLocation(cfg.Location),
		usecases.WithVariationThreshold(cfg.VariationAlertCM),
	}

	if cfg.APIURL != "" {
		rest := cotesapi.NewClient(cfg.APIURL, cfg.APIKey, client, logger)
		opts = append(opts, usecases.WithRequiredSink(usecases.NewSink("rest", rest.Insert)))
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer publisher.Close()
		opts = append(opts, usecases.WithOptionalSink(usecases.NewSink("kafka", publisher.Publish)))
	}

	if cfg.NotifyEnabled() {
		notifier, err := api.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Warnf("Telegram notifications disabled: %v", err)
		} else {
			opts = append(opts, usecases.WithNotifier(notifier))
		}
	}

	useCase := usecases.NewCoteUseCase(repo, stations.Default(), logger, opts...)
	summary, runErr := useCase.RefreshCoteData(ctx)

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(ctx, cfg.PushgatewayURL, metricsJob); err != nil {
			logger.Warnf("Failed to push metrics: %v", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.Infof("Run %s complete: %d records, %d skipped rows, %d alerts, files %v",
		summary.RunID, len(summary.Records), summary.Skipped, len(summary.Alerts), summary.Files)
	return nil
}

// applyFlags overrides configuration with command line flags
func applyFlags(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("scrapper", flag.ContinueOnError)
	source := fs.String("source", cfg.SourceMode, "source to scrape: html, pdf or all")
	formats := fs.String("export", "", "comma separated export formats: json, csv, excel or all")
	out := fs.String("out", cfg.OutputDir, "directory for exported files")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return errors.New("unexpected arguments: " + fmt.Sprint(fs.Args()))
	}

	if err := config.ValidateSourceMode(*source); err != nil {
		return err
	}
	cfg.SourceMode = *source
	cfg.OutputDir = *out

	if *formats != "" {
		parsed, err := export.ParseFormats(*formats)
		if err != nil {
			return fmt.Errorf("invalid -export: %w", err)
		}
		cfg.ExportFormats = parsed
	}
	return nil
}

// buildSources returns the sources selected by the source mode. The HTML
// page is listed first so its records are preferred when both are scraped.
func buildSources(cfg *config.Config, client *http.Client, logger *zap.SugaredLogger) []usecases.SourceTarget {
	var targets []usecases.SourceTarget
	if cfg.SourceMode == config.SourceHTML || cfg.SourceMode == config.SourceAll {
		targets = append(targets, usecases.SourceTarget{
			Source: integration.NewHTMLSource(client, logger),
			URLs:   cfg.HTMLURLs,
		})
	}
	if cfg.SourceMode == config.SourcePDF || cfg.SourceMode == config.SourceAll {
		targets = append(targets, usecases.SourceTarget{
			Source: integration.NewPDFSource(client, normalizer.NewLayoutDetector(), logger),
			URLs:   []string{cfg.PDFURL},
		})
	}
	return targets
}
