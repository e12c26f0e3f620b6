package db

import (
	"context"
	"errors"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SheetRepository struct {
	db *gorm.DB
}

func NewSheetRepository(db *gorm.DB) *SheetRepository {
	return &SheetRepository{db: db}
}

func (r *SheetRepository) CreateSheet(ctx context.Context, sheet *domain.UserSheet) error {
	model := sheetModel{
		UserID:      sheet.UserID,
		Name:        sheet.Name,
		Description: sheet.Description,
		IsDefault:   sheet.IsDefault,
		Revision:    sheet.Revision,
		Statistics:  datatypes.NewJSONType(sheet.Statistics),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	sheet.ID = model.ID
	sheet.CreatedAt = model.CreatedAt
	sheet.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *SheetRepository) GetSheet(ctx context.Context, sheetID uint) (*domain.UserSheet, error) {
	var model sheetModel
	if err := r.db.WithContext(ctx).First(&model, sheetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	sheet := mapSheetToDomain(model)
	return &sheet, nil
}

func (r *SheetRepository) ListProperties(ctx context.Context, sheetID uint) ([]domain.SheetProperty, error) {
	return listSheetProperties(r.db.WithContext(ctx), sheetID)
}

// WithinSheetTx locks the sheet row for the duration of fn. Returning an error from fn
// rolls back every write made through the SheetTx.
func (r *SheetRepository) WithinSheetTx(ctx context.Context, sheetID uint, fn func(tx domain.SheetTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model sheetModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&model, sheetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		return fn(&sheetTx{db: tx, sheetID: sheetID})
	})
}

type sheetTx struct {
	db      *gorm.DB
	sheetID uint
}

func (t *sheetTx) Revision(ctx context.Context) (uint64, error) {
	var revision uint64
	if err := t.db.WithContext(ctx).Model(&sheetModel{}).Where("id = ?", t.sheetID).Pluck("revision", &revision).Error; err != nil {
		return 0, err
	}
	return revision, nil
}

func (t *sheetTx) ListProperties(ctx context.Context) ([]domain.SheetProperty, error) {
	return listSheetProperties(t.db.WithContext(ctx), t.sheetID)
}

func (t *sheetTx) AddProperty(ctx context.Context, property *domain.SheetProperty) error {
	db := t.db.WithContext(ctx)
	if property.PropertyID != "" {
		var count int64
		if err := db.Model(&sheetPropertyModel{}).
			Where("sheet_id = ? AND property_id = ?", t.sheetID, property.PropertyID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrConflict
		}
	}
	if property.Position == 0 {
		var maxPosition int
		if err := db.Model(&sheetPropertyModel{}).
			Where("sheet_id = ?", t.sheetID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPosition).Error; err != nil {
			return err
		}
		property.Position = maxPosition + 1
	}

	property.SheetID = t.sheetID
	model := mapSheetPropertyToModel(*property)
	model.ID = 0
	if err := db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	*property = mapSheetPropertyToDomain(model)
	return t.bumpRevision(db)
}

func (t *sheetTx) UpdateProperty(ctx context.Context, property domain.SheetProperty) error {
	db := t.db.WithContext(ctx)
	var existing sheetPropertyModel
	if err := db.Where("id = ? AND sheet_id = ?", property.ID, t.sheetID).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}

	property.SheetID = t.sheetID
	if property.Position == 0 {
		property.Position = existing.Position
	}
	model := mapSheetPropertyToModel(property)
	model.CreatedAt = existing.CreatedAt
	if err := db.Save(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	return t.bumpRevision(db)
}

func (t *sheetTx) RemoveProperty(ctx context.Context, propertyID uint) error {
	db := t.db.WithContext(ctx)
	result := db.Where("id = ? AND sheet_id = ?", propertyID, t.sheetID).Delete(&sheetPropertyModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return t.bumpRevision(db)
}

func (t *sheetTx) SaveStatistics(ctx context.Context, stats domain.SheetStatistics) error {
	return t.db.WithContext(ctx).
		Model(&sheetModel{}).
		Where("id = ?", t.sheetID).
		Updates(map[string]any{
			"statistics": datatypes.NewJSONType(stats),
			"updated_at": stats.LastUpdated,
		}).Error
}

func (t *sheetTx) bumpRevision(db *gorm.DB) error {
	return db.Model(&sheetModel{}).
		Where("id = ?", t.sheetID).
		UpdateColumn("revision", gorm.Expr("revision + 1")).Error
}

func listSheetProperties(db *gorm.DB, sheetID uint) ([]domain.SheetProperty, error) {
	var models []sheetPropertyModel
	if err := db.Where("sheet_id = ?", sheetID).Order("position").Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	props := make([]domain.SheetProperty, 0, len(models))
	for _, model := range models {
		props = append(props, mapSheetPropertyToDomain(model))
	}
	return props, nil
}

func mapSheetToDomain(model sheetModel) domain.UserSheet {
	stats := model.Statistics.Data()
	if stats.TransactionTypes == nil {
		stats = domain.EmptySheetStatistics(model.CreatedAt)
	}
	return domain.UserSheet{
		ID:          model.ID,
		UserID:      model.UserID,
		Name:        model.Name,
		Description: model.Description,
		IsDefault:   model.IsDefault,
		Revision:    model.Revision,
		Statistics:  stats,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func mapSheetPropertyToDomain(model sheetPropertyModel) domain.SheetProperty {
	property := domain.SheetProperty{
		ID:              model.ID,
		SheetID:         model.SheetID,
		UserID:          model.UserID,
		ComplexID:       model.ComplexID,
		ComplexName:     model.ComplexName,
		Dong:            model.Dong,
		Ho:              model.Ho,
		ExclusiveArea:   model.ExclusiveArea,
		Floor:           model.Floor,
		TransactionType: domain.TransactionType(model.TransactionType),
		Price:           model.Price,
		Deposit:         model.Deposit,
		MonthlyRent:     model.MonthlyRent,
		TransactionDate: model.TransactionDate,
		Address:         model.Address,
		BuildYear:       model.BuildYear,
		Tags:            model.Tags.Data(),
		Memo:            model.Memo,
		IsBookmarked:    model.IsBookmarked,
		Priority:        domain.SheetPriority(model.Priority),
		Status:          domain.SheetPropertyStatus(model.Status),
		Rating:          model.Rating,
		Position:        model.Position,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
	if model.PropertyID != nil {
		property.PropertyID = *model.PropertyID
	}
	if property.Tags == nil {
		property.Tags = []string{}
	}
	return property
}

func mapSheetPropertyToModel(property domain.SheetProperty) sheetPropertyModel {
	model := sheetPropertyModel{
		ID:              property.ID,
		SheetID:         property.SheetID,
		UserID:          property.UserID,
		ComplexID:       property.ComplexID,
		ComplexName:     property.ComplexName,
		Dong:            property.Dong,
		Ho:              property.Ho,
		ExclusiveArea:   property.ExclusiveArea,
		Floor:           property.Floor,
		TransactionType: string(property.TransactionType),
		Price:           property.Price,
		Deposit:         property.Deposit,
		MonthlyRent:     property.MonthlyRent,
		TransactionDate: property.TransactionDate,
		Address:         property.Address,
		BuildYear:       property.BuildYear,
		Tags:            datatypes.NewJSONType(property.Tags),
		Memo:            property.Memo,
		IsBookmarked:    property.IsBookmarked,
		Priority:        string(property.Priority),
		Status:          string(property.Status),
		Rating:          property.Rating,
		Position:        property.Position,
		CreatedAt:       property.CreatedAt,
		UpdatedAt:       property.UpdatedAt,
	}
	if property.PropertyID != "" {
		id := property.PropertyID
		model.PropertyID = &id
	}
	return model
}
