package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abelzeko/danube-cote/internal/entities"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

type fakeService struct {
	records     []entities.MeasurementRecord
	alerts      []entities.Alert
	err         error
	queries     []string
	historyDays int
}

func (f *fakeService) GetLatestByStation(name string) (*entities.MeasurementRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.records {
		if f.records[i].Station == name {
			return &f.records[i], nil
		}
	}
	return nil, nil
}

func (f *fakeService) GetLatestAll() ([]entities.MeasurementRecord, error) {
	return f.records, f.err
}

func (f *fakeService) GetLastUpdateTime() (time.Time, error) {
	return time.Date(2026, 1, 28, 8, 30, 0, 0, time.UTC), nil
}

func (f *fakeService) StationHistory(name string, days int) (*entities.Station, []entities.MeasurementRecord, error) {
	f.historyDays = days
	if f.err != nil {
		return nil, nil, f.err
	}
	if name != "Brăila" {
		return nil, nil, nil
	}
	return &entities.Station{ID: 5, Name: "Brăila", Km: 170}, f.records, nil
}

func (f *fakeService) FormatHistory(st entities.Station, records []entities.MeasurementRecord) string {
	return "history:" + st.Name + ":" + string(rune('0'+len(records)))
}

func (f *fakeService) CurrentAlerts() ([]entities.Alert, error) {
	return f.alerts, f.err
}

func (f *fakeService) FormatStationInfo(rec entities.MeasurementRecord) string {
	return "info:" + rec.Station
}

func (f *fakeService) FormatStationsList(records []entities.MeasurementRecord, _ time.Time) string {
	return "list:" + string(rune('0'+len(records)))
}

func (f *fakeService) HandleNaturalLanguageQuery(_ context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return "", f.err
	}
	return "answer:" + query, nil
}

func newTestBot(t *testing.T, svc *fakeService) (*TelegramBot, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	return &TelegramBot{sender: sender, service: svc, logger: zaptest.NewLogger(t).Sugar()}, sender
}

func commandMessage(text string) *tgbotapi.Message {
	cmdLen := len(text)
	for i, r := range text {
		if r == ' ' {
			cmdLen = i
			break
		}
	}
	return &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: 42},
		From: &tgbotapi.User{UserName: "tester"},
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: cmdLen},
		},
	}
}

func textMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: 42}, From: &tgbotapi.User{UserName: "tester"}}
}

func TestHandleCommands(t *testing.T) {
	svc := &fakeService{
		records: []entities.MeasurementRecord{{Station: "Galați"}, {Station: "Tulcea"}},
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"start", "/start", "Welcome to the Danube levels bot"},
		{"help", "/help", "/station [name]"},
		{"stations", "/stations", "list:2"},
		{"station found", "/station Galați", "info:Galați"},
		{"station missing", "/station Viena", "No information found for 'Viena'"},
		{"station without name", "/station", "Please specify a port name"},
		{"history", "/history Brăila", "history:Brăila:2"},
		{"history unknown", "/history Viena", "No port named 'Viena'"},
		{"history without name", "/history", "Please specify a port name"},
		{"alerts", "/alerts", "No alerts"},
		{"unknown", "/weather", "Unknown command"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bot, sender := newTestBot(t, svc)
			bot.handleMessage(context.Background(), commandMessage(tc.text))

			require.Len(t, sender.sent, 1)
			assert.Equal(t, int64(42), sender.sent[0].ChatID)
			assert.Contains(t, sender.sent[0].Text, tc.want)
		})
	}
}

func TestHandleAlertsCommandListsAlerts(t *testing.T) {
	svc := &fakeService{alerts: []entities.Alert{
		{Level: entities.AlertCritical, Station: "Tulcea", Current: 610, Threshold: 600},
	}}
	bot, sender := newTestBot(t, svc)

	bot.handleMessage(context.Background(), commandMessage("/alerts"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "FLOOD: Tulcea at 610 cm")
}

func TestHandleCommandsServiceError(t *testing.T) {
	svc := &fakeService{err: errors.New("db locked")}

	for _, text := range []string{"/stations", "/station Galați", "/history Brăila", "/alerts"} {
		bot, sender := newTestBot(t, svc)
		bot.handleMessage(context.Background(), commandMessage(text))

		require.Len(t, sender.sent, 1)
		assert.Contains(t, sender.sent[0].Text, "Please try again later", text)
	}
}

func TestHandleHistoryCommandLooksBackOneWeek(t *testing.T) {
	svc := &fakeService{}
	bot, _ := newTestBot(t, svc)

	bot.handleMessage(context.Background(), commandMessage("/history Brăila"))

	assert.Equal(t, 7, svc.historyDays)
}

func TestHandleFreeText(t *testing.T) {
	svc := &fakeService{}
	bot, sender := newTestBot(t, svc)

	bot.handleMessage(context.Background(), textMessage("cât e apa la Brăila?"))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "answer:cât e apa la Brăila?", sender.sent[0].Text)
	assert.Equal(t, []string{"cât e apa la Brăila?"}, svc.queries)
}

func TestHandleFreeTextError(t *testing.T) {
	bot, sender := newTestBot(t, &fakeService{err: errors.New("model unavailable")})

	bot.handleMessage(context.Background(), textMessage("hello"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "I don't understand")
}
