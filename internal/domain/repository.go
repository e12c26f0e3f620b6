package domain

import (
	"context"
	"time"
)

type UserRepository interface {
	GetByTelegramID(ctx context.Context, telegramUserID int64) (*User, error)
	GetByID(ctx context.Context, userID uint) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdateUsername(ctx context.Context, userID uint, username string) error
}

// AlertRuleStore persists price alert conditions.
type AlertRuleStore interface {
	Create(ctx context.Context, condition *PriceAlertCondition) error
	Get(ctx context.Context, conditionID uint) (*PriceAlertCondition, error)
	ListByUser(ctx context.Context, userID uint) ([]PriceAlertCondition, error)
	// ListActive streams every active condition to fn without materializing the full set.
	ListActive(ctx context.Context, fn func(PriceAlertCondition) error) error
	// SetActive flips the activity flag and returns the new version.
	SetActive(ctx context.Context, userID uint, conditionID uint, active bool) (uint64, error)
	Delete(ctx context.Context, userID uint, conditionID uint) error
	// RecordTrigger increments the trigger count. lastTriggered only moves forward.
	RecordTrigger(ctx context.Context, conditionID uint, at time.Time) error
}

type SnapshotStore interface {
	// LatestBefore returns the newest snapshot dated on or before cutoff, or ErrNotFound.
	LatestBefore(ctx context.Context, complexID int64, areaBucket int, cutoff time.Time) (*PriceSnapshot, error)
	// Put writes a snapshot once; a second write for the same key is ignored.
	Put(ctx context.Context, snapshot PriceSnapshot) error
}

type GateStore interface {
	Get(ctx context.Context, key GateKey) (*GateState, error)
	Save(ctx context.Context, state GateState) error
	ListDue(ctx context.Context, now time.Time) ([]GateKey, error)
}

type NotificationStore interface {
	Create(ctx context.Context, notification Notification) error
	Get(ctx context.Context, userID uint, notificationID string) (*Notification, error)
	List(ctx context.Context, filter NotificationFilter) (NotificationPage, error)
	UpdateStatus(ctx context.Context, userID uint, notificationID string, status NotificationStatus, at time.Time) (*Notification, error)
	MarkChannelSent(ctx context.Context, notificationID string, channel Channel, at time.Time) error
	MarkChannelEngaged(ctx context.Context, userID uint, notificationID string, channel Channel, at time.Time) error
}

type NotificationSettingStore interface {
	Get(ctx context.Context, userID uint) (*NotificationSetting, error)
	Save(ctx context.Context, setting NotificationSetting) error
}

type SheetStore interface {
	CreateSheet(ctx context.Context, sheet *UserSheet) error
	GetSheet(ctx context.Context, sheetID uint) (*UserSheet, error)
	ListProperties(ctx context.Context, sheetID uint) ([]SheetProperty, error)
	// WithinSheetTx runs fn in one transaction scoped to sheetID. Returning an error rolls
	// back every write made through the SheetTx.
	WithinSheetTx(ctx context.Context, sheetID uint, fn func(tx SheetTx) error) error
}

// SheetTx is the write surface of one sheet inside a transaction. Every property write
// bumps the sheet revision.
type SheetTx interface {
	Revision(ctx context.Context) (uint64, error)
	ListProperties(ctx context.Context) ([]SheetProperty, error)
	AddProperty(ctx context.Context, property *SheetProperty) error
	UpdateProperty(ctx context.Context, property SheetProperty) error
	RemoveProperty(ctx context.Context, propertyID uint) error
	SaveStatistics(ctx context.Context, stats SheetStatistics) error
}
