package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/NasaVasa/aptwatch/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	s.sent = append(s.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

type fakeUsers struct {
	users map[uint]domain.User
	err   error
}

func (r *fakeUsers) GetByTelegramID(context.Context, int64) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (r *fakeUsers) GetByID(_ context.Context, userID uint) (*domain.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	user, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

func (r *fakeUsers) Create(context.Context, *domain.User) error { return nil }

func (r *fakeUsers) UpdateUsername(context.Context, uint, string) error { return nil }

func TestPushDispatcherSend(t *testing.T) {
	sender := &fakeSender{}
	users := &fakeUsers{users: map[uint]domain.User{1: {ID: 1, TelegramUserID: 555}, 2: {ID: 2}}}
	d := NewPushDispatcher(sender, users, zap.NewNop())

	n := domain.Notification{ID: "n1", UserID: 1, Title: "title", Message: "body"}
	require.NoError(t, d.Send(context.Background(), n, domain.ChannelPush))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(555), sender.sent[0].ChatID)
	assert.Equal(t, "title\nbody", sender.sent[0].Text)
}

func TestPushDispatcherPermanentFailures(t *testing.T) {
	d := NewPushDispatcher(&fakeSender{}, &fakeUsers{users: map[uint]domain.User{2: {ID: 2}}}, zap.NewNop())

	cases := map[string]struct {
		userID  uint
		channel domain.Channel
	}{
		"wrong channel":    {userID: 2, channel: domain.ChannelEmail},
		"unknown user":     {userID: 9, channel: domain.ChannelPush},
		"no telegram link": {userID: 2, channel: domain.ChannelPush},
	}
	for name, tc := range cases {
		err := d.Send(context.Background(), domain.Notification{ID: "n", UserID: tc.userID}, tc.channel)
		var dispatchErr *domain.DispatchError
		require.ErrorAs(t, err, &dispatchErr, name)
		assert.True(t, dispatchErr.Permanent, name)
	}
}

func TestPushDispatcherTransientFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram unavailable")}
	d := NewPushDispatcher(sender, &fakeUsers{users: map[uint]domain.User{1: {ID: 1, TelegramUserID: 555}}}, zap.NewNop())

	err := d.Send(context.Background(), domain.Notification{ID: "n", UserID: 1}, domain.ChannelPush)
	var dispatchErr *domain.DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.False(t, dispatchErr.Permanent)
	assert.Equal(t, domain.ChannelPush, dispatchErr.Channel)
}
