package db

import (
	"context"
	"errors"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SnapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) LatestBefore(ctx context.Context, complexID int64, areaBucket int, cutoff time.Time) (*domain.PriceSnapshot, error) {
	var model priceSnapshotModel
	err := r.db.WithContext(ctx).
		Where("complex_id = ? AND area_bucket = ? AND snapshot_date <= ?", complexID, areaBucket, cutoff.UTC()).
		Order("snapshot_date DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.PriceSnapshot{
		ComplexID:        model.ComplexID,
		AreaBucket:       model.AreaBucket,
		SnapshotDate:     model.SnapshotDate.UTC(),
		AvgSalePrice:     model.AvgSalePrice,
		AvgLeasePrice:    model.AvgLeasePrice,
		TransactionCount: model.TransactionCount,
	}, nil
}

// Put stores the snapshot unless one already exists for its key.
func (r *SnapshotRepository) Put(ctx context.Context, snapshot domain.PriceSnapshot) error {
	model := priceSnapshotModel{
		ComplexID:        snapshot.ComplexID,
		AreaBucket:       snapshot.AreaBucket,
		SnapshotDate:     snapshot.SnapshotDate.UTC(),
		AvgSalePrice:     snapshot.AvgSalePrice,
		AvgLeasePrice:    snapshot.AvgLeasePrice,
		TransactionCount: snapshot.TransactionCount,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
}
