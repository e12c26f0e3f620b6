package db

import (
	"context"
	"errors"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const activeRuleBatchSize = 500

type AlertRuleRepository struct {
	db *gorm.DB
}

func NewAlertRuleRepository(db *gorm.DB) *AlertRuleRepository {
	return &AlertRuleRepository{db: db}
}

func (r *AlertRuleRepository) Create(ctx context.Context, condition *domain.PriceAlertCondition) error {
	model := mapConditionToModel(*condition)
	if model.Version == 0 {
		model.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	condition.ID = model.ID
	condition.Version = model.Version
	condition.CreatedAt = model.CreatedAt
	condition.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *AlertRuleRepository) Get(ctx context.Context, conditionID uint) (*domain.PriceAlertCondition, error) {
	var model alertConditionModel
	if err := r.db.WithContext(ctx).First(&model, conditionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	condition := mapConditionToDomain(model)
	return &condition, nil
}

func (r *AlertRuleRepository) ListByUser(ctx context.Context, userID uint) ([]domain.PriceAlertCondition, error) {
	var models []alertConditionModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	conditions := make([]domain.PriceAlertCondition, 0, len(models))
	for _, model := range models {
		conditions = append(conditions, mapConditionToDomain(model))
	}
	return conditions, nil
}

func (r *AlertRuleRepository) ListActive(ctx context.Context, fn func(domain.PriceAlertCondition) error) error {
	var batch []alertConditionModel
	result := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		FindInBatches(&batch, activeRuleBatchSize, func(tx *gorm.DB, _ int) error {
			for _, model := range batch {
				if err := fn(mapConditionToDomain(model)); err != nil {
					return err
				}
			}
			return nil
		})
	return result.Error
}

func (r *AlertRuleRepository) SetActive(ctx context.Context, userID uint, conditionID uint, active bool) (uint64, error) {
	var version uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&alertConditionModel{}).
			Where("id = ? AND user_id = ?", conditionID, userID).
			Updates(map[string]any{
				"is_active": active,
				"version":   gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return tx.Model(&alertConditionModel{}).Where("id = ?", conditionID).Pluck("version", &version).Error
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (r *AlertRuleRepository) Delete(ctx context.Context, userID uint, conditionID uint) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", conditionID, userID).Delete(&alertConditionModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordTrigger bumps the trigger count and advances last_triggered in one statement.
func (r *AlertRuleRepository) RecordTrigger(ctx context.Context, conditionID uint, at time.Time) error {
	at = at.UTC()
	result := r.db.WithContext(ctx).
		Model(&alertConditionModel{}).
		Where("id = ?", conditionID).
		Updates(map[string]any{
			"trigger_count":  gorm.Expr("trigger_count + 1"),
			"last_triggered": gorm.Expr("CASE WHEN last_triggered IS NULL OR last_triggered < ? THEN ? ELSE last_triggered END", at, at),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapConditionToDomain(model alertConditionModel) domain.PriceAlertCondition {
	var lastTriggered *time.Time
	if model.LastTriggered != nil {
		t := model.LastTriggered.UTC()
		lastTriggered = &t
	}
	return domain.PriceAlertCondition{
		ID:              model.ID,
		UserID:          model.UserID,
		Name:            model.Name,
		IsActive:        model.IsActive,
		Version:         model.Version,
		Criteria:        model.Criteria.Data(),
		AlertConditions: model.AlertConditions.Data(),
		LastTriggered:   lastTriggered,
		TriggerCount:    model.TriggerCount,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func mapConditionToModel(condition domain.PriceAlertCondition) alertConditionModel {
	return alertConditionModel{
		ID:              condition.ID,
		UserID:          condition.UserID,
		Name:            condition.Name,
		IsActive:        condition.IsActive,
		Version:         condition.Version,
		Criteria:        datatypes.NewJSONType(condition.Criteria),
		AlertConditions: datatypes.NewJSONType(condition.AlertConditions),
		LastTriggered:   condition.LastTriggered,
		TriggerCount:    condition.TriggerCount,
		CreatedAt:       condition.CreatedAt,
		UpdatedAt:       condition.UpdatedAt,
	}
}
