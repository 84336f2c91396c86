package api

import (
	"context"
	"fmt"

	"github.com/abelzeko/danube-cote/internal/entities"
	"github.com/abelzeko/danube-cote/internal/usecases"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramNotifier posts the alerts of a scrape run to one chat
type TelegramNotifier struct {
	sender MessageSender
	chatID int64
	logger *zap.SugaredLogger
}

// NewTelegramNotifier connects to Telegram with botToken
func NewTelegramNotifier(botToken string, chatID int64, logger *zap.SugaredLogger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return NewTelegramNotifierWithSender(bot, chatID, logger), nil
}

// NewTelegramNotifierWithSender builds a notifier on an existing sender
func NewTelegramNotifierWithSender(sender MessageSender, chatID int64, logger *zap.SugaredLogger) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, chatID: chatID, logger: logger}
}

// NotifyAlerts sends all alerts as a single message. Nothing is sent for an empty list.
func (n *TelegramNotifier) NotifyAlerts(ctx context.Context, alerts []entities.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, usecases.FormatAlerts(alerts))
	msg.DisableWebPagePreview = true
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send alerts to chat %d: %w", n.chatID, err)
	}
	n.logger.Infof("Sent %d alerts to chat %d", len(alerts), n.chatID)
	return nil
}
