package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramUserID int64) (*domain.User, error) {
	return r.first(ctx, "telegram_user_id = ?", telegramUserID)
}

func (r *UserRepository) GetByID(ctx context.Context, userID uint) (*domain.User, error) {
	return r.first(ctx, "id = ?", userID)
}

// Create inserts user. A telegram account that is already registered yields ErrConflict
// instead of a driver-specific unique violation.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	model := userModel{
		TelegramUserID: user.TelegramUserID,
		Username:       strings.TrimSpace(user.Username),
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "telegram_user_id"}}, DoNothing: true}).
		Create(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	*user = mapUserToDomain(model)
	return nil
}

func (r *UserRepository) UpdateUsername(ctx context.Context, userID uint, username string) error {
	result := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", userID).
		Update("username", strings.TrimSpace(username))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var model userModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	user := mapUserToDomain(model)
	return &user, nil
}

func mapUserToDomain(model userModel) domain.User {
	var deleted *time.Time
	if model.DeletedAt.Valid {
		t := model.DeletedAt.Time
		deleted = &t
	}
	return domain.User{
		ID:             model.ID,
		TelegramUserID: model.TelegramUserID,
		Username:       model.Username,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
		DeletedAt:      deleted,
	}
}
