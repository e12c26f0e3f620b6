package db

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, notification domain.Notification) error {
	model := mapNotificationToModel(notification)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *NotificationRepository) Get(ctx context.Context, userID uint, notificationID string) (*domain.Notification, error) {
	var model notificationModel
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", notificationID, userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	notification := mapNotificationToDomain(model)
	return &notification, nil
}

// List returns unexpired notifications newest first, paging with an opaque keyset token.
func (r *NotificationRepository) List(ctx context.Context, filter domain.NotificationFilter) (domain.NotificationPage, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", filter.UserID).
		Where("expires_at IS NULL OR expires_at > ?", filter.Now.UTC())
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.PageToken != "" {
		createdAt, id, err := decodePageToken(filter.PageToken)
		if err != nil {
			return domain.NotificationPage{}, err
		}
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
	}

	var models []notificationModel
	if err := query.Order("created_at DESC").Order("id DESC").Limit(filter.PageSize + 1).Find(&models).Error; err != nil {
		return domain.NotificationPage{}, err
	}

	page := domain.NotificationPage{Notifications: make([]domain.Notification, 0, len(models))}
	if len(models) > filter.PageSize {
		models = models[:filter.PageSize]
		last := models[len(models)-1]
		page.NextPageToken = encodePageToken(last.CreatedAt, last.ID)
	}
	for _, model := range models {
		page.Notifications = append(page.Notifications, mapNotificationToDomain(model))
	}
	return page, nil
}

func (r *NotificationRepository) UpdateStatus(ctx context.Context, userID uint, notificationID string, status domain.NotificationStatus, at time.Time) (*domain.Notification, error) {
	result := r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]any{
			"status":      string(status),
			"is_archived": status == domain.StatusArchived,
			"updated_at":  at.UTC(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.Get(ctx, userID, notificationID)
}

func (r *NotificationRepository) MarkChannelSent(ctx context.Context, notificationID string, channel domain.Channel, at time.Time) error {
	return r.updateChannel(ctx, notificationID, nil, channel, func(d *domain.ChannelDelivery) {
		if d.Sent {
			return
		}
		t := at.UTC()
		d.Sent = true
		d.SentAt = &t
	})
}

func (r *NotificationRepository) MarkChannelEngaged(ctx context.Context, userID uint, notificationID string, channel domain.Channel, at time.Time) error {
	return r.updateChannel(ctx, notificationID, &userID, channel, func(d *domain.ChannelDelivery) {
		if d.Engaged {
			return
		}
		t := at.UTC()
		d.Engaged = true
		d.EngagedAt = &t
	})
}

func (r *NotificationRepository) updateChannel(ctx context.Context, notificationID string, userID *uint, channel domain.Channel, apply func(*domain.ChannelDelivery)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", notificationID)
		if userID != nil {
			query = query.Where("user_id = ?", *userID)
		}
		var model notificationModel
		err := query.First(&model).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		channels := model.Channels.Data()
		delivery := channels.Get(channel)
		if delivery == nil {
			return fmt.Errorf("unknown channel %q", channel)
		}
		apply(delivery)
		return tx.Model(&notificationModel{}).
			Where("id = ?", model.ID).
			Update("channels", datatypes.NewJSONType(channels)).Error
	})
}

func encodePageToken(createdAt time.Time, id string) string {
	raw := strconv.FormatInt(createdAt.UTC().UnixNano(), 10) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodePageToken(token string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", domain.ErrInvalidPageToken
	}
	nanos, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return time.Time{}, "", domain.ErrInvalidPageToken
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return time.Time{}, "", domain.ErrInvalidPageToken
	}
	return time.Unix(0, n).UTC(), id, nil
}

func mapNotificationToDomain(model notificationModel) domain.Notification {
	var expiresAt *time.Time
	if model.ExpiresAt != nil {
		t := model.ExpiresAt.UTC()
		expiresAt = &t
	}
	return domain.Notification{
		ID:          model.ID,
		UserID:      model.UserID,
		Type:        domain.NotificationType(model.Type),
		Priority:    domain.NotificationPriority(model.Priority),
		Status:      domain.NotificationStatus(model.Status),
		Title:       model.Title,
		Message:     model.Message,
		ActionType:  domain.ActionType(model.ActionType),
		ActionURL:   model.ActionURL,
		RelatedID:   model.RelatedID,
		RelatedType: domain.RelatedType(model.RelatedType),
		Channels:    model.Channels.Data(),
		ExpiresAt:   expiresAt,
		IsArchived:  model.IsArchived,
		CreatedAt:   model.CreatedAt.UTC(),
		UpdatedAt:   model.UpdatedAt.UTC(),
	}
}

func mapNotificationToModel(n domain.Notification) notificationModel {
	return notificationModel{
		ID:          n.ID,
		UserID:      n.UserID,
		Type:        string(n.Type),
		Priority:    string(n.Priority),
		Status:      string(n.Status),
		Title:       n.Title,
		Message:     n.Message,
		ActionType:  string(n.ActionType),
		ActionURL:   n.ActionURL,
		RelatedID:   n.RelatedID,
		RelatedType: string(n.RelatedType),
		Channels:    datatypes.NewJSONType(n.Channels),
		ExpiresAt:   n.ExpiresAt,
		IsArchived:  n.IsArchived,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}
