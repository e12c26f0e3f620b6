package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
)

const (
	defaultNotificationPageSize = 50
	maxNotificationPageSize     = 200
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotificationArchived = errors.New("notification is archived")
	ErrInvalidChannel       = errors.New("invalid channel")
	ErrInvalidStatus        = errors.New("invalid status")
)

// NotificationUsecase serves the notification query and read/archive surface and records
// channel callbacks.
type NotificationUsecase struct {
	notifications domain.NotificationStore
	settings      domain.NotificationSettingStore
	clock         func() time.Time
}

func NewNotificationUsecase(notifications domain.NotificationStore, settings domain.NotificationSettingStore, clock func() time.Time) *NotificationUsecase {
	if clock == nil {
		clock = time.Now
	}
	return &NotificationUsecase{notifications: notifications, settings: settings, clock: clock}
}

// List pages through a user's unexpired notifications, newest first.
func (u *NotificationUsecase) List(ctx context.Context, userID uint, status domain.NotificationStatus, pageSize int, pageToken string) (domain.NotificationPage, error) {
	if status != "" && !status.Valid() {
		return domain.NotificationPage{}, ErrInvalidStatus
	}
	switch {
	case pageSize <= 0:
		pageSize = defaultNotificationPageSize
	case pageSize > maxNotificationPageSize:
		pageSize = maxNotificationPageSize
	}
	return u.notifications.List(ctx, domain.NotificationFilter{
		UserID:    userID,
		Status:    status,
		PageSize:  pageSize,
		PageToken: pageToken,
		Now:       u.clock().UTC(),
	})
}

func (u *NotificationUsecase) Get(ctx context.Context, userID uint, notificationID string) (*domain.Notification, error) {
	n, err := u.notifications.Get(ctx, userID, notificationID)
	if err != nil {
		return nil, mapNotificationErr(err)
	}
	return n, nil
}

// MarkRead moves an unread notification to read and records the in-app view.
func (u *NotificationUsecase) MarkRead(ctx context.Context, userID uint, notificationID string) (*domain.Notification, error) {
	current, err := u.Get(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	switch current.Status {
	case domain.StatusArchived:
		return nil, ErrNotificationArchived
	case domain.StatusRead:
		return current, nil
	}

	now := u.clock().UTC()
	if err := u.notifications.MarkChannelEngaged(ctx, userID, notificationID, domain.ChannelInApp, now); err != nil {
		return nil, mapNotificationErr(err)
	}
	updated, err := u.notifications.UpdateStatus(ctx, userID, notificationID, domain.StatusRead, now)
	if err != nil {
		return nil, mapNotificationErr(err)
	}
	return updated, nil
}

func (u *NotificationUsecase) Archive(ctx context.Context, userID uint, notificationID string) (*domain.Notification, error) {
	current, err := u.Get(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.StatusArchived {
		return current, nil
	}
	updated, err := u.notifications.UpdateStatus(ctx, userID, notificationID, domain.StatusArchived, u.clock().UTC())
	if err != nil {
		return nil, mapNotificationErr(err)
	}
	return updated, nil
}

// MarkChannelSent records a successful delivery reported by a channel dispatcher.
func (u *NotificationUsecase) MarkChannelSent(ctx context.Context, notificationID string, channel domain.Channel) error {
	if !channel.Valid() {
		return ErrInvalidChannel
	}
	return mapNotificationErr(u.notifications.MarkChannelSent(ctx, notificationID, channel, u.clock().UTC()))
}

// MarkChannelEngaged records an open, click or view for the channel.
func (u *NotificationUsecase) MarkChannelEngaged(ctx context.Context, userID uint, notificationID string, channel domain.Channel) error {
	if !channel.Valid() {
		return ErrInvalidChannel
	}
	return mapNotificationErr(u.notifications.MarkChannelEngaged(ctx, userID, notificationID, channel, u.clock().UTC()))
}

// Settings returns the user's notification settings, falling back to defaults.
func (u *NotificationUsecase) Settings(ctx context.Context, userID uint) (domain.NotificationSetting, error) {
	return loadSetting(ctx, u.settings, userID)
}

func (u *NotificationUsecase) SaveSettings(ctx context.Context, setting domain.NotificationSetting) error {
	if err := setting.Validate(); err != nil {
		return err
	}
	return u.settings.Save(ctx, setting)
}

func loadSetting(ctx context.Context, store domain.NotificationSettingStore, userID uint) (domain.NotificationSetting, error) {
	setting, err := store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DefaultNotificationSetting(userID), nil
		}
		return domain.NotificationSetting{}, err
	}
	return *setting, nil
}

func mapNotificationErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}
