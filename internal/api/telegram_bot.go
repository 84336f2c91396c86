// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/abelzeko/danube-cote/internal/entities"
	"github.com/abelzeko/danube-cote/internal/usecases"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// CoteService is what the bot needs from the use case layer
type CoteService interface {
	GetLatestByStation(name string) (*entities.MeasurementRecord, error)
	GetLatestAll() ([]entities.MeasurementRecord, error)
	GetLastUpdateTime() (time.Time, error)
	StationHistory(name string, days int) (*entities.Station, []entities.MeasurementRecord, error)
	CurrentAlerts() ([]entities.Alert, error)
	FormatStationInfo(rec entities.MeasurementRecord) string
	FormatStationsList(records []entities.MeasurementRecord, lastUpdate time.Time) string
	FormatHistory(st entities.Station, records []entities.MeasurementRecord) string
	HandleNaturalLanguageQuery(ctx context.Context, query string) (string, error)
}

// historyDays is how far back /history looks
const historyDays = 7

// MessageSender sends a prepared message, as tgbotapi.BotAPI does
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	sender  MessageSender
	service CoteService
	logger  *zap.SugaredLogger
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(botToken string, service CoteService, logger *zap.SugaredLogger) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramBot{
		bot:     bot,
		sender:  bot,
		service: service,
		logger:  logger,
	}, nil
}

// Start begins listening for and handling Telegram messages until ctx is done
func (t *TelegramBot) Start(ctx context.Context) {
	t.logger.Infof("Authorized on Telegram account %s", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	t.logger.Infof("Bot is now listening for messages...")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			t.logger.Infof("Bot stopped")
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			t.logger.Infof("Received message from %s (ID: %d): %s",
				update.Message.From.UserName,
				update.Message.From.ID,
				update.Message.Text)

			t.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage processes a Telegram message
func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	msg := tgbotapi.NewMessage(message.Chat.ID, "")

	if message.IsCommand() {
		t.handleCommand(message, &msg)
	} else {
		t.handleNonCommand(ctx, message, &msg)
	}

	if _, err := t.sender.Send(msg); err != nil {
		t.logger.Warnf("Error sending message: %v", err)
	}
}

// handleCommand processes commands like /start, /help, etc.
func (t *TelegramBot) handleCommand(message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	switch message.Command() {
	case "start":
		msg.Text = "Welcome to the Danube levels bot! Use /stations to see the latest water levels or /help for more information."

	case "help":
		msg.Text = "Available commands:\n" +
			"/start - Start the bot\n" +
			"/stations - Show the latest level at every port\n" +
			"/station [name] - Show details for a port, e.g. /station Galați\n" +
			"/history [name] - Show a port's levels over the last week\n" +
			"/alerts - Show warning, flood and large change alerts\n" +
			"/help - Show this help message\n\n" +
			"You can also just ask, e.g. \"cât e apa la Brăila?\""

	case "stations":
		t.handleStationsCommand(msg)

	case "station":
		t.handleStationCommand(message.CommandArguments(), msg)

	case "history":
		t.handleHistoryCommand(message.CommandArguments(), msg)

	case "alerts":
		t.handleAlertsCommand(msg)

	default:
		t.logger.Infof("Received unknown command /%s from user %s", message.Command(), message.From.UserName)
		msg.Text = "Unknown command. Use /help to see available commands."
	}
}

// handleStationsCommand processes the /stations command
func (t *TelegramBot) handleStationsCommand(msg *tgbotapi.MessageConfig) {
	records, err := t.service.GetLatestAll()
	if err != nil {
		msg.Text = "Error fetching water levels. Please try again later."
		t.logger.Warnf("Error fetching latest records: %v", err)
		return
	}

	lastUpdate, _ := t.service.GetLastUpdateTime()
	msg.Text = t.service.FormatStationsList(records, lastUpdate)
}

// handleStationCommand processes the /station [name] command
func (t *TelegramBot) handleStationCommand(args string, msg *tgbotapi.MessageConfig) {
	if args == "" {
		msg.Text = "Please specify a port name. Example: /station Galați"
		return
	}

	rec, err := t.service.GetLatestByStation(args)
	if err != nil {
		msg.Text = "Error fetching station data. Please try again later."
		t.logger.Warnf("Error fetching station data: %v", err)
		return
	}
	if rec == nil {
		msg.Text = fmt.Sprintf("No information found for '%s'. Use /stations to see the available ports.", args)
		return
	}
	msg.Text = t.service.FormatStationInfo(*rec)
}

// handleHistoryCommand processes the /history [name] command
func (t *TelegramBot) handleHistoryCommand(args string, msg *tgbotapi.MessageConfig) {
	if args == "" {
		msg.Text = "Please specify a port name. Example: /history Brăila"
		return
	}

	st, records, err := t.service.StationHistory(args, historyDays)
	if err != nil {
		msg.Text = "Error fetching station history. Please try again later."
		t.logger.Warnf("Error fetching station history: %v", err)
		return
	}
	if st == nil {
		msg.Text = fmt.Sprintf("No port named '%s'. Use /stations to see the available ports.", args)
		return
	}
	msg.Text = t.service.FormatHistory(*st, records)
}

// handleAlertsCommand processes the /alerts command
func (t *TelegramBot) handleAlertsCommand(msg *tgbotapi.MessageConfig) {
	alerts, err := t.service.CurrentAlerts()
	if err != nil {
		msg.Text = "Error checking alerts. Please try again later."
		t.logger.Warnf("Error evaluating alerts: %v", err)
		return
	}
	msg.Text = usecases.FormatAlerts(alerts)
}

// handleNonCommand passes free text to the query interpreter
func (t *TelegramBot) handleNonCommand(ctx context.Context, message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	reply, err := t.service.HandleNaturalLanguageQuery(ctx, message.Text)
	if err != nil {
		t.logger.Warnf("Error handling query: %v", err)
		msg.Text = "I don't understand. Use /help to see available commands."
		return
	}
	msg.Text = reply
}
