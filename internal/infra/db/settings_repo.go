package db

import (
	"context"
	"errors"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationSettingRepository struct {
	db *gorm.DB
}

func NewNotificationSettingRepository(db *gorm.DB) *NotificationSettingRepository {
	return &NotificationSettingRepository{db: db}
}

func (r *NotificationSettingRepository) Get(ctx context.Context, userID uint) (*domain.NotificationSetting, error) {
	var model notificationSettingModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.NotificationSetting{
		UserID:         model.UserID,
		EmailEnabled:   model.EmailEnabled,
		PushEnabled:    model.PushEnabled,
		PriceAlert:     model.PriceAlert.Data(),
		NewTransaction: model.NewTransaction.Data(),
	}, nil
}

func (r *NotificationSettingRepository) Save(ctx context.Context, setting domain.NotificationSetting) error {
	model := notificationSettingModel{
		UserID:         setting.UserID,
		EmailEnabled:   setting.EmailEnabled,
		PushEnabled:    setting.PushEnabled,
		PriceAlert:     datatypes.NewJSONType(setting.PriceAlert),
		NewTransaction: datatypes.NewJSONType(setting.NewTransaction),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email_enabled", "push_enabled", "price_alert", "new_transaction", "updated_at"}),
		}).
		Create(&model).Error
}
