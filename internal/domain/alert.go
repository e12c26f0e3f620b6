package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionSale  TransactionType = "sale"
	TransactionLease TransactionType = "lease"
	TransactionRent  TransactionType = "rent"
)

var AllTransactionTypes = []TransactionType{TransactionSale, TransactionLease, TransactionRent}

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionSale, TransactionLease, TransactionRent:
		return true
	}
	return false
}

type ThresholdOperator string

const (
	ThresholdBelow ThresholdOperator = "below"
	ThresholdAbove ThresholdOperator = "above"
)

type ChangeOperator string

const (
	ChangeIncrease ChangeOperator = "increase"
	ChangeDecrease ChangeOperator = "decrease"
)

type AreaRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether area lies within the range. Both bounds are inclusive.
func (r AreaRange) Contains(area float64) bool {
	if r.Min != nil && area < *r.Min {
		return false
	}
	if r.Max != nil && area > *r.Max {
		return false
	}
	return true
}

type Criteria struct {
	ComplexID        *int64            `json:"complex_id,omitempty"`
	ComplexName      string            `json:"complex_name,omitempty"`
	RegionCodes      []string          `json:"region_codes,omitempty"`
	Area             *AreaRange        `json:"area,omitempty"`
	TransactionTypes []TransactionType `json:"transaction_types,omitempty"`
}

type ThresholdRule struct {
	Operator ThresholdOperator `json:"operator"`
	Value    int64             `json:"value"`
}

type ChangeRule struct {
	Operator   ChangeOperator  `json:"operator"`
	Percentage decimal.Decimal `json:"percentage"`
	Period     Period          `json:"period"`
}

type AlertConditions struct {
	PriceThreshold *ThresholdRule `json:"price_threshold,omitempty"`
	PriceChange    *ChangeRule    `json:"price_change,omitempty"`
	NewListing     bool           `json:"new_listing"`
}

type PriceAlertCondition struct {
	ID              uint            `json:"id"`
	UserID          uint            `json:"user_id"`
	Name            string          `json:"name"`
	IsActive        bool            `json:"is_active"`
	Version         uint64          `json:"version"`
	Criteria        Criteria        `json:"criteria"`
	AlertConditions AlertConditions `json:"alert_conditions"`
	LastTriggered   *time.Time      `json:"last_triggered,omitempty"`
	TriggerCount    int64           `json:"trigger_count"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// AllRegions reports whether the condition is not scoped to any region.
func (c PriceAlertCondition) AllRegions() bool {
	return len(c.Criteria.RegionCodes) == 0
}

func (c PriceAlertCondition) Validate() error {
	if err := c.Criteria.Validate(); err != nil {
		return err
	}
	return c.AlertConditions.Validate()
}

func (c Criteria) Validate() error {
	if c.ComplexID != nil && *c.ComplexID <= 0 {
		return invalid("criteria.complex_id", "must be positive")
	}
	for _, code := range c.RegionCodes {
		if !isRegionCode(code) {
			return invalid("criteria.region_codes", "region code must be a non-empty digit string")
		}
	}
	if c.Area != nil {
		if c.Area.Min != nil && *c.Area.Min < 0 {
			return invalid("criteria.area", "min must not be negative")
		}
		if c.Area.Max != nil && *c.Area.Max < 0 {
			return invalid("criteria.area", "max must not be negative")
		}
		if c.Area.Min != nil && c.Area.Max != nil && *c.Area.Min > *c.Area.Max {
			return invalid("criteria.area", "min greater than max")
		}
	}
	for _, t := range c.TransactionTypes {
		if !t.Valid() {
			return invalid("criteria.transaction_types", "unknown transaction type "+string(t))
		}
	}
	return nil
}

func (a AlertConditions) Validate() error {
	if a.PriceThreshold == nil && a.PriceChange == nil && !a.NewListing {
		return invalid("alert_conditions", "no alert condition configured")
	}
	if t := a.PriceThreshold; t != nil {
		if t.Operator != ThresholdBelow && t.Operator != ThresholdAbove {
			return invalid("alert_conditions.price_threshold.operator", "must be below or above")
		}
		if t.Value <= 0 {
			return invalid("alert_conditions.price_threshold.value", "must be positive")
		}
	}
	if ch := a.PriceChange; ch != nil {
		if ch.Operator != ChangeIncrease && ch.Operator != ChangeDecrease {
			return invalid("alert_conditions.price_change.operator", "must be increase or decrease")
		}
		if ch.Percentage.IsNegative() {
			return invalid("alert_conditions.price_change.percentage", "must not be negative")
		}
		if !ch.Period.Valid() {
			return invalid("alert_conditions.price_change.period", "must be daily, weekly or monthly")
		}
	}
	return nil
}

func isRegionCode(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
