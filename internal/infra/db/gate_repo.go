package db

import (
	"context"
	"errors"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GateStateRepository struct {
	db *gorm.DB
}

func NewGateStateRepository(db *gorm.DB) *GateStateRepository {
	return &GateStateRepository{db: db}
}

func (r *GateStateRepository) Get(ctx context.Context, key domain.GateKey) (*domain.GateState, error) {
	var model gateStateModel
	err := r.db.WithContext(ctx).
		Where("condition_id = ? AND category = ?", key.ConditionID, string(key.Category)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	state := mapGateStateToDomain(model)
	return &state, nil
}

func (r *GateStateRepository) Save(ctx context.Context, state domain.GateState) error {
	model := mapGateStateToModel(state)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "condition_id"}, {Name: "category"}},
			UpdateAll: true,
		}).
		Create(&model).Error
}

// ListDue returns the keys of fired or batching states whose flush time has passed.
func (r *GateStateRepository) ListDue(ctx context.Context, now time.Time) ([]domain.GateKey, error) {
	var models []gateStateModel
	err := r.db.WithContext(ctx).
		Select("condition_id", "category").
		Where("phase <> ? AND flush_at IS NOT NULL AND flush_at <= ?", string(domain.GateIdle), now.UTC()).
		Order("flush_at").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	keys := make([]domain.GateKey, 0, len(models))
	for _, model := range models {
		keys = append(keys, domain.GateKey{ConditionID: model.ConditionID, Category: domain.NotificationType(model.Category)})
	}
	return keys, nil
}

func mapGateStateToDomain(model gateStateModel) domain.GateState {
	state := domain.GateState{
		Key:         domain.GateKey{ConditionID: model.ConditionID, Category: domain.NotificationType(model.Category)},
		UserID:      model.UserID,
		Phase:       domain.GatePhase(model.Phase),
		Frequency:   domain.Frequency(model.Frequency),
		Pending:     model.Pending.Data(),
		LastEmitted: model.LastEmitted.Data(),
		UpdatedAt:   model.UpdatedAt,
	}
	if model.FlushAt != nil {
		state.FlushAt = model.FlushAt.UTC()
	}
	if state.LastEmitted == nil {
		state.LastEmitted = map[domain.ReasonKind]time.Time{}
	}
	return state
}

func mapGateStateToModel(state domain.GateState) gateStateModel {
	model := gateStateModel{
		ConditionID: state.Key.ConditionID,
		Category:    string(state.Key.Category),
		UserID:      state.UserID,
		Phase:       string(state.Phase),
		Frequency:   string(state.Frequency),
		Pending:     datatypes.NewJSONType(state.Pending),
		LastEmitted: datatypes.NewJSONType(state.LastEmitted),
		UpdatedAt:   state.UpdatedAt,
	}
	if !state.FlushAt.IsZero() {
		flushAt := state.FlushAt.UTC()
		model.FlushAt = &flushAt
	}
	return model
}
