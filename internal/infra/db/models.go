package db

import (
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type userModel struct {
	ID             uint   `gorm:"primaryKey"`
	TelegramUserID int64  `gorm:"uniqueIndex;not null"`
	Username       string `gorm:""`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (userModel) TableName() string { return "users" }

type alertConditionModel struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          uint   `gorm:"index:idx_conditions_user_active,priority:1;not null"`
	Name            string `gorm:"size:200"`
	IsActive        bool   `gorm:"index:idx_conditions_user_active,priority:2;index"`
	Version         uint64 `gorm:"not null;default:1"`
	Criteria        datatypes.JSONType[domain.Criteria]
	AlertConditions datatypes.JSONType[domain.AlertConditions]
	LastTriggered   *time.Time
	TriggerCount    int64 `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (alertConditionModel) TableName() string { return "price_alert_conditions" }

type priceSnapshotModel struct {
	ComplexID        int64     `gorm:"primaryKey;autoIncrement:false"`
	AreaBucket       int       `gorm:"primaryKey;autoIncrement:false"`
	SnapshotDate     time.Time `gorm:"primaryKey"`
	AvgSalePrice     int64
	AvgLeasePrice    int64
	TransactionCount int
	CreatedAt        time.Time
}

func (priceSnapshotModel) TableName() string { return "price_snapshots" }

type gateStateModel struct {
	ConditionID uint   `gorm:"primaryKey;autoIncrement:false"`
	Category    string `gorm:"primaryKey;size:32"`
	UserID      uint   `gorm:"index;not null"`
	Phase       string `gorm:"size:16;index:idx_gate_due,priority:1;not null"`
	Frequency   string `gorm:"size:16"`
	Pending     datatypes.JSONType[[]domain.Outcome]
	FlushAt     *time.Time `gorm:"index:idx_gate_due,priority:2"`
	LastEmitted datatypes.JSONType[map[domain.ReasonKind]time.Time]
	UpdatedAt   time.Time
}

func (gateStateModel) TableName() string { return "trigger_gate_states" }

type notificationModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	UserID      uint   `gorm:"index:idx_notifications_user_created,priority:1;not null"`
	Type        string `gorm:"size:32;not null"`
	Priority    string `gorm:"size:16;not null"`
	Status      string `gorm:"size:16;index;not null"`
	Title       string `gorm:"size:255"`
	Message     string `gorm:"type:text"`
	ActionType  string `gorm:"size:32"`
	ActionURL   string `gorm:"size:512"`
	RelatedID   string `gorm:"size:64"`
	RelatedType string `gorm:"size:32"`
	Channels    datatypes.JSONType[domain.NotificationChannels]
	ExpiresAt   *time.Time `gorm:"index"`
	IsArchived  bool
	CreatedAt   time.Time `gorm:"index:idx_notifications_user_created,priority:2"`
	UpdatedAt   time.Time
}

func (notificationModel) TableName() string { return "notifications" }

type notificationSettingModel struct {
	UserID         uint `gorm:"primaryKey;autoIncrement:false"`
	EmailEnabled   bool
	PushEnabled    bool
	PriceAlert     datatypes.JSONType[domain.TypeSetting]
	NewTransaction datatypes.JSONType[domain.TypeSetting]
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (notificationSettingModel) TableName() string { return "notification_settings" }

type sheetModel struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"index;not null"`
	Name        string `gorm:"size:200;not null"`
	Description string `gorm:"type:text"`
	IsDefault   bool
	Revision    uint64 `gorm:"not null;default:0"`
	Statistics  datatypes.JSONType[domain.SheetStatistics]
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (sheetModel) TableName() string { return "user_sheets" }

type sheetPropertyModel struct {
	ID              uint    `gorm:"primaryKey"`
	SheetID         uint    `gorm:"index:idx_sheet_property_position,priority:1;uniqueIndex:idx_sheet_property_ref,priority:1;not null"`
	UserID          uint    `gorm:"index;not null"`
	PropertyID      *string `gorm:"size:64;uniqueIndex:idx_sheet_property_ref,priority:2"`
	ComplexID       int64
	ComplexName     string  `gorm:"size:200;not null"`
	Dong            string  `gorm:"size:32"`
	Ho              string  `gorm:"size:32"`
	ExclusiveArea   float64
	Floor           int
	TransactionType string `gorm:"size:16;not null"`
	Price           int64
	Deposit         int64
	MonthlyRent     int64
	TransactionDate *time.Time
	Address         string `gorm:"size:255"`
	BuildYear       int
	Tags            datatypes.JSONType[[]string]
	Memo            string `gorm:"type:text"`
	IsBookmarked    bool
	Priority        string `gorm:"size:16"`
	Status          string `gorm:"size:16"`
	Rating          int
	Position        int `gorm:"index:idx_sheet_property_position,priority:2"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (sheetPropertyModel) TableName() string { return "sheet_properties" }
