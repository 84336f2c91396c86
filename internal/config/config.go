// Package config loads runtime settings from the environment
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abelzeko/danube-cote/internal/export"
	"github.com/joho/godotenv"
)

// Source modes select which AFDJ publications a run scrapes
const (
	SourceHTML = "html"
	SourcePDF  = "pdf"
	SourceAll  = "all"
)

// DefaultHTMLURLs are the levels page and its mirrors, tried in order
var DefaultHTMLURLs = []string{
	"https://www.afdj.ro/ro/cotele-dunarii",
	"https://www.cotele-dunarii.ro",
	"https://www.edelta.ro/cotele-apelor-dunarii",
}

// Config holds all application settings, populated from environment variables.
type Config struct {
	LogLevel  string
	LogFormat string

	DBPath        string
	OutputDir     string
	ExportFormats []export.Format

	SourceMode  string
	HTMLURLs    []string
	PDFURL      string
	HTTPTimeout time.Duration
	Location    *time.Location

	// Remote REST insert, enabled when APIURL is set.
	APIURL string
	APIKey string

	// Kafka publishing, enabled when brokers are set.
	KafkaBrokers []string
	KafkaTopic   string

	TelegramBotToken string
	TelegramChatID   int64
	OpenAIAPIKey     string
	PushgatewayURL   string

	VariationAlertCM int
}

// Load reads an optional .env file, then configuration from environment
// variables, applying defaults where unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	formats, err := export.ParseFormats(envOrDefault("EXPORT_FORMATS", "all"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXPORT_FORMATS: %w", err)
	}

	timeout, err := time.ParseDuration(envOrDefault("HTTP_TIMEOUT", "30s"))
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid HTTP_TIMEOUT")
	}

	loc, err := time.LoadLocation(envOrDefault("TIMEZONE", "Europe/Bucharest"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	variation, err := strconv.Atoi(envOrDefault("VARIATION_ALERT_CM", "20"))
	if err != nil || variation <= 0 {
		return nil, errors.New("invalid VARIATION_ALERT_CM")
	}

	var chatID int64
	if s := os.Getenv("TELEGRAM_CHAT_ID"); s != "" {
		if chatID, err = strconv.ParseInt(s, 10, 64); err != nil {
			return nil, errors.New("invalid TELEGRAM_CHAT_ID")
		}
	}

	htmlURLs := parseList(os.Getenv("HTML_URLS"))
	if len(htmlURLs) == 0 {
		htmlURLs = append([]string(nil), DefaultHTMLURLs...)
	}

	cfg := &Config{
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		DBPath:           os.Getenv("DB_PATH"),
		OutputDir:        envOrDefault("OUTPUT_DIR", "."),
		ExportFormats:    formats,
		SourceMode:       strings.ToLower(envOrDefault("SOURCE_MODE", SourceAll)),
		HTMLURLs:         htmlURLs,
		PDFURL:           envOrDefault("PDF_URL", "https://www.afdj.ro/sites/default/files/bhcote.pdf"),
		HTTPTimeout:      timeout,
		Location:         loc,
		APIURL:           strings.TrimRight(os.Getenv("API_URL"), "/"),
		APIKey:           os.Getenv("API_KEY"),
		KafkaBrokers:     parseList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:       envOrDefault("KAFKA_TOPIC", "danube-cote"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   chatID,
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		PushgatewayURL:   os.Getenv("PUSHGATEWAY_URL"),
		VariationAlertCM: variation,
	}

	if err := ValidateSourceMode(cfg.SourceMode); err != nil {
		return nil, err
	}
	if cfg.APIURL != "" && cfg.APIKey == "" {
		return nil, errors.New("API_URL is set but API_KEY is not")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// ValidateSourceMode rejects modes other than html, pdf and all
func ValidateSourceMode(mode string) error {
	switch mode {
	case SourceHTML, SourcePDF, SourceAll:
		return nil
	}
	return fmt.Errorf("invalid SOURCE_MODE %q: want html, pdf or all", mode)
}

// NotifyEnabled reports whether alerts can be sent to a Telegram chat
func (c *Config) NotifyEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseList splits a comma separated value, dropping blanks
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
