// Package notifier доставляет сообщения опекунам.
package notifier

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Notifier отправляет текст по адресу получателя
type Notifier interface {
	Send(ctx context.Context, destination, body string) error
}

// messageSender часть API бота, нужная для отправки
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Telegram отправляет сообщения в чат Telegram. Адрес - tg:<chat id>.
type Telegram struct {
	sender messageSender
	logger *zap.Logger
}

// NewTelegram создаёт бота по токену
func NewTelegram(token string, logger *zap.Logger) (*Telegram, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{sender: b, logger: logger}, nil
}

func (t *Telegram) Send(ctx context.Context, destination, body string) error {
	chatID, err := parseChatID(destination)
	if err != nil {
		return err
	}

	_, err = t.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   body,
	})
	if err != nil {
		return model.Transient("send telegram message", err)
	}

	t.logger.Debug("Telegram message sent", zap.Int64("chat_id", chatID))
	return nil
}

// parseChatID разбирает tg:<chat id>. Телефон или адрес без схемы
// не превращается в chat id, даже если состоит из цифр.
func parseChatID(destination string) (int64, error) {
	raw, ok := strings.CutPrefix(destination, model.SchemeTelegram)
	if !ok || raw == "" || raw[0] == '+' {
		return 0, fmt.Errorf("%w: destination %q is not a telegram chat id", model.ErrInvalidInput, destination)
	}
	// групповые чаты имеют отрицательный id
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || chatID == 0 {
		return 0, fmt.Errorf("%w: destination %q is not a telegram chat id", model.ErrInvalidInput, destination)
	}
	return chatID, nil
}

// Log пишет сообщения в лог вместо реальной отправки
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Send(ctx context.Context, destination, body string) error {
	if err := ctx.Err(); err != nil {
		return model.Transient("send log message", err)
	}
	l.logger.Info("Notification",
		zap.String("destination", destination),
		zap.String("body", body),
	)
	return nil
}
