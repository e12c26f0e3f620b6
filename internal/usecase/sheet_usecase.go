package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/NasaVasa/aptwatch/internal/keylock"
	"go.uber.org/zap"
)

var (
	ErrSheetNotFound     = errors.New("sheet not found")
	ErrPropertyNotFound  = errors.New("property not found")
	ErrDuplicateProperty = errors.New("property already in sheet")
)

// SheetUsecase applies property mutations and keeps each sheet's statistics equal to the
// fold of its current properties.
type SheetUsecase struct {
	sheets  domain.SheetStore
	locks   *keylock.Locker[uint]
	retries int
	clock   func() time.Time
	logger  *zap.Logger
}

func NewSheetUsecase(sheets domain.SheetStore, retries int, clock func() time.Time, logger *zap.Logger) *SheetUsecase {
	if retries < 1 {
		retries = 1
	}
	if clock == nil {
		clock = time.Now
	}
	return &SheetUsecase{
		sheets:  sheets,
		locks:   keylock.New[uint](),
		retries: retries,
		clock:   clock,
		logger:  logger,
	}
}

func (u *SheetUsecase) CreateSheet(ctx context.Context, userID uint, name, description string, isDefault bool) (*domain.UserSheet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "is required"}
	}
	now := u.clock().UTC()
	sheet := &domain.UserSheet{
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(description),
		IsDefault:   isDefault,
		Statistics:  domain.EmptySheetStatistics(now),
	}
	if err := u.sheets.CreateSheet(ctx, sheet); err != nil {
		return nil, err
	}
	return sheet, nil
}

func (u *SheetUsecase) GetSheet(ctx context.Context, sheetID uint) (*domain.UserSheet, error) {
	sheet, err := u.sheets.GetSheet(ctx, sheetID)
	if err != nil {
		return nil, mapSheetErr(err)
	}
	return sheet, nil
}

func (u *SheetUsecase) ListProperties(ctx context.Context, sheetID uint) ([]domain.SheetProperty, error) {
	if _, err := u.GetSheet(ctx, sheetID); err != nil {
		return nil, err
	}
	return u.sheets.ListProperties(ctx, sheetID)
}

// AddProperty inserts property into the sheet and returns the stored property together
// with the refreshed statistics.
func (u *SheetUsecase) AddProperty(ctx context.Context, sheetID uint, property domain.SheetProperty) (*domain.SheetProperty, domain.SheetStatistics, error) {
	sheet, err := u.GetSheet(ctx, sheetID)
	if err != nil {
		return nil, domain.SheetStatistics{}, err
	}
	property.ID = 0
	property.SheetID = sheet.ID
	property.UserID = sheet.UserID
	property.Normalize()
	if err := property.Validate(); err != nil {
		return nil, domain.SheetStatistics{}, err
	}

	stats, err := u.mutate(ctx, sheetID, "add", func(ctx context.Context, tx domain.SheetTx) error {
		return tx.AddProperty(ctx, &property)
	})
	if err != nil {
		return nil, domain.SheetStatistics{}, err
	}
	return &property, stats, nil
}

func (u *SheetUsecase) UpdateProperty(ctx context.Context, sheetID uint, property domain.SheetProperty) (domain.SheetStatistics, error) {
	if property.ID == 0 {
		return domain.SheetStatistics{}, &domain.ValidationError{Field: "id", Reason: "is required"}
	}
	sheet, err := u.GetSheet(ctx, sheetID)
	if err != nil {
		return domain.SheetStatistics{}, err
	}
	property.SheetID = sheet.ID
	property.UserID = sheet.UserID
	property.Normalize()
	if err := property.Validate(); err != nil {
		return domain.SheetStatistics{}, err
	}

	return u.mutate(ctx, sheetID, "update", func(ctx context.Context, tx domain.SheetTx) error {
		return propertyErr(tx.UpdateProperty(ctx, property))
	})
}

func (u *SheetUsecase) RemoveProperty(ctx context.Context, sheetID uint, propertyID uint) (domain.SheetStatistics, error) {
	return u.mutate(ctx, sheetID, "remove", func(ctx context.Context, tx domain.SheetTx) error {
		return propertyErr(tx.RemoveProperty(ctx, propertyID))
	})
}

// mutate runs apply and the statistics fold in one sheet transaction under the sheet's
// lock. A failed fold rolls the mutation back and leaves the prior statistics in place.
func (u *SheetUsecase) mutate(ctx context.Context, sheetID uint, op string, apply func(ctx context.Context, tx domain.SheetTx) error) (domain.SheetStatistics, error) {
	unlock := u.locks.Lock(sheetID)
	defer unlock()

	var stats domain.SheetStatistics
	err := u.sheets.WithinSheetTx(ctx, sheetID, func(tx domain.SheetTx) error {
		if err := apply(ctx, tx); err != nil {
			return err
		}
		props, err := u.consistentRead(ctx, sheetID, tx)
		if err != nil {
			return err
		}
		stats = domain.ComputeSheetStatistics(props, u.clock())
		return tx.SaveStatistics(ctx, stats)
	})
	if err != nil {
		if errors.Is(err, domain.ErrConsistency) {
			u.logger.Error("sheet statistics recomputation failed", zap.Uint("sheet_id", sheetID), zap.String("op", op), zap.Error(err))
		}
		return domain.SheetStatistics{}, mapSheetErr(err)
	}

	u.logger.Debug("sheet statistics recomputed",
		zap.Uint("sheet_id", sheetID),
		zap.String("op", op),
		zap.Int("total_properties", stats.TotalProperties),
	)
	return stats, nil
}

// consistentRead lists the sheet's properties, retrying while the revision moves under
// the read.
func (u *SheetUsecase) consistentRead(ctx context.Context, sheetID uint, tx domain.SheetTx) ([]domain.SheetProperty, error) {
	for attempt := 1; attempt <= u.retries; attempt++ {
		before, err := tx.Revision(ctx)
		if err != nil {
			return nil, err
		}
		props, err := tx.ListProperties(ctx)
		if err != nil {
			return nil, err
		}
		after, err := tx.Revision(ctx)
		if err != nil {
			return nil, err
		}
		if before == after {
			return props, nil
		}
		u.logger.Warn("torn read of sheet properties",
			zap.Uint("sheet_id", sheetID),
			zap.Int("attempt", attempt),
			zap.Uint64("revision_before", before),
			zap.Uint64("revision_after", after),
		)
	}
	return nil, fmt.Errorf("%w: %w after %d attempts", domain.ErrConsistency, domain.ErrTornRead, u.retries)
}

func propertyErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return ErrPropertyNotFound
	}
	return err
}

func mapSheetErr(err error) error {
	switch {
	case errors.Is(err, ErrPropertyNotFound):
		return err
	case errors.Is(err, domain.ErrNotFound):
		return ErrSheetNotFound
	case errors.Is(err, domain.ErrConflict):
		return ErrDuplicateProperty
	}
	return err
}
