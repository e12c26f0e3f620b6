package telegram

import (
	"context"
	"errors"

	"github.com/NasaVasa/aptwatch/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Bot struct {
	api         *tgbotapi.BotAPI
	handlers    *Handlers
	pollTimeout int
}

func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPI(token)
}

func NewBot(api *tgbotapi.BotAPI, handlers *Handlers, pollTimeout int) *Bot {
	return &Bot{api: api, handlers: handlers, pollTimeout: pollTimeout}
}

func (b *Bot) Start(ctx context.Context) error {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(config)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handlers.HandleUpdate(ctx, b.api, update)
		}
	}
}

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// PushDispatcher delivers the push channel as a telegram message to the user's account.
type PushDispatcher struct {
	api    messageSender
	users  domain.UserRepository
	logger *zap.Logger
}

func NewPushDispatcher(api messageSender, users domain.UserRepository, logger *zap.Logger) *PushDispatcher {
	return &PushDispatcher{api: api, users: users, logger: logger}
}

func (d *PushDispatcher) Send(ctx context.Context, notification domain.Notification, channel domain.Channel) error {
	if channel != domain.ChannelPush {
		return &domain.DispatchError{Channel: channel, Reason: "telegram only delivers push", Permanent: true}
	}

	user, err := d.users.GetByID(ctx, notification.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.DispatchError{Channel: channel, Reason: "user not found", Permanent: true}
		}
		return &domain.DispatchError{Channel: channel, Reason: err.Error()}
	}
	if user.TelegramUserID == 0 {
		return &domain.DispatchError{Channel: channel, Reason: "user has no telegram account", Permanent: true}
	}

	text := notification.Title + "\n" + notification.Message
	d.logger.Info("telegram push send",
		zap.Int64("telegram_user_id", user.TelegramUserID),
		zap.String("notification_id", notification.ID),
	)
	if _, err := d.api.Send(tgbotapi.NewMessage(user.TelegramUserID, text)); err != nil {
		d.logger.Warn("failed to push", zap.String("notification_id", notification.ID), zap.Error(err))
		return &domain.DispatchError{Channel: channel, Reason: err.Error()}
	}
	return nil
}
