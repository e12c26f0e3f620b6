package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ReasonKind string

const (
	ReasonThreshold  ReasonKind = "threshold"
	ReasonChange     ReasonKind = "change"
	ReasonNewListing ReasonKind = "new_listing"
)

// Reason is a satisfied alert sub-condition. The set of implementations is closed:
// ThresholdReason, ChangeReason and NewListingReason.
type Reason interface {
	Kind() ReasonKind
	// Magnitude is the won distance past the threshold, the signed percentage change,
	// or zero for a new listing.
	Magnitude() decimal.Decimal
	isReason()
}

type ThresholdReason struct {
	Operator  ThresholdOperator
	Threshold int64
	Price     int64
}

func (ThresholdReason) Kind() ReasonKind { return ReasonThreshold }
func (ThresholdReason) isReason()        {}

func (r ThresholdReason) Magnitude() decimal.Decimal {
	return decimal.NewFromInt(r.Price - r.Threshold).Abs()
}

type ChangeReason struct {
	Operator     ChangeOperator
	Period       Period
	Percentage   decimal.Decimal
	Change       decimal.Decimal
	Baseline     int64
	BaselineDate time.Time
	Price        int64
}

func (ChangeReason) Kind() ReasonKind { return ReasonChange }
func (ChangeReason) isReason()        {}

func (r ChangeReason) Magnitude() decimal.Decimal { return r.Change }

type NewListingReason struct {
	ComplexID  int64
	AreaBucket int
	Price      int64
}

func (NewListingReason) Kind() ReasonKind { return ReasonNewListing }
func (NewListingReason) isReason()        {}

func (NewListingReason) Magnitude() decimal.Decimal { return decimal.Zero }

// CategoryOf maps a reason to the notification type, which is also the gate's channel category.
func CategoryOf(r Reason) NotificationType {
	switch r.(type) {
	case ThresholdReason, ChangeReason:
		return NotificationPriceAlert
	case NewListingReason:
		return NotificationNewTransaction
	default:
		panic(fmt.Sprintf("unknown reason %T", r))
	}
}

// CooldownPeriod is the granularity a reason is rate limited at after being emitted.
func CooldownPeriod(r Reason, fallback Period) Period {
	switch v := r.(type) {
	case ChangeReason:
		return v.Period
	case ThresholdReason, NewListingReason:
		return fallback
	default:
		panic(fmt.Sprintf("unknown reason %T", r))
	}
}

// Outcome is a fired condition: the reasons satisfied by one transaction.
type Outcome struct {
	ConditionID uint
	UserID      uint
	Transaction PropertyTransaction
	Reasons     []Reason
	EvaluatedAt time.Time
}

type reasonRecord struct {
	Kind         ReasonKind         `json:"kind"`
	Threshold    *ThresholdOperator `json:"threshold_operator,omitempty"`
	Change       *ChangeOperator    `json:"change_operator,omitempty"`
	Period       Period             `json:"period,omitempty"`
	Limit        int64              `json:"limit,omitempty"`
	Percentage   *decimal.Decimal   `json:"percentage,omitempty"`
	Observed     *decimal.Decimal   `json:"observed,omitempty"`
	Baseline     int64              `json:"baseline,omitempty"`
	BaselineDate *time.Time         `json:"baseline_date,omitempty"`
	ComplexID    int64              `json:"complex_id,omitempty"`
	AreaBucket   int                `json:"area_bucket,omitempty"`
	Price        int64              `json:"price"`
}

func encodeReason(r Reason) reasonRecord {
	switch v := r.(type) {
	case ThresholdReason:
		op := v.Operator
		return reasonRecord{Kind: ReasonThreshold, Threshold: &op, Limit: v.Threshold, Price: v.Price}
	case ChangeReason:
		op := v.Operator
		pct, obs, date := v.Percentage, v.Change, v.BaselineDate
		return reasonRecord{
			Kind:         ReasonChange,
			Change:       &op,
			Period:       v.Period,
			Percentage:   &pct,
			Observed:     &obs,
			Baseline:     v.Baseline,
			BaselineDate: &date,
			Price:        v.Price,
		}
	case NewListingReason:
		return reasonRecord{Kind: ReasonNewListing, ComplexID: v.ComplexID, AreaBucket: v.AreaBucket, Price: v.Price}
	default:
		panic(fmt.Sprintf("unknown reason %T", r))
	}
}

func (rr reasonRecord) decode() (Reason, error) {
	switch rr.Kind {
	case ReasonThreshold:
		if rr.Threshold == nil {
			return nil, fmt.Errorf("threshold reason without operator")
		}
		return ThresholdReason{Operator: *rr.Threshold, Threshold: rr.Limit, Price: rr.Price}, nil
	case ReasonChange:
		if rr.Change == nil || rr.Percentage == nil || rr.Observed == nil {
			return nil, fmt.Errorf("change reason is incomplete")
		}
		reason := ChangeReason{
			Operator:   *rr.Change,
			Period:     rr.Period,
			Percentage: *rr.Percentage,
			Change:     *rr.Observed,
			Baseline:   rr.Baseline,
			Price:      rr.Price,
		}
		if rr.BaselineDate != nil {
			reason.BaselineDate = *rr.BaselineDate
		}
		return reason, nil
	case ReasonNewListing:
		return NewListingReason{ComplexID: rr.ComplexID, AreaBucket: rr.AreaBucket, Price: rr.Price}, nil
	default:
		return nil, fmt.Errorf("unknown reason kind %q", rr.Kind)
	}
}

type outcomeRecord struct {
	ConditionID uint                `json:"condition_id"`
	UserID      uint                `json:"user_id"`
	Transaction PropertyTransaction `json:"transaction"`
	Reasons     []reasonRecord      `json:"reasons"`
	EvaluatedAt time.Time           `json:"evaluated_at"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	record := outcomeRecord{
		ConditionID: o.ConditionID,
		UserID:      o.UserID,
		Transaction: o.Transaction,
		Reasons:     make([]reasonRecord, 0, len(o.Reasons)),
		EvaluatedAt: o.EvaluatedAt,
	}
	for _, r := range o.Reasons {
		record.Reasons = append(record.Reasons, encodeReason(r))
	}
	return json.Marshal(record)
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var record outcomeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}
	reasons := make([]Reason, 0, len(record.Reasons))
	for _, rr := range record.Reasons {
		r, err := rr.decode()
		if err != nil {
			return err
		}
		reasons = append(reasons, r)
	}
	*o = Outcome{
		ConditionID: record.ConditionID,
		UserID:      record.UserID,
		Transaction: record.Transaction,
		Reasons:     reasons,
		EvaluatedAt: record.EvaluatedAt,
	}
	return nil
}

// Satisfied reports whether any sub-condition fired.
func (o Outcome) Satisfied() bool {
	return len(o.Reasons) > 0
}

// ByCategory splits the outcome's reasons by notification category.
func (o Outcome) ByCategory() map[NotificationType]Outcome {
	out := make(map[NotificationType]Outcome)
	for _, r := range o.Reasons {
		category := CategoryOf(r)
		part, ok := out[category]
		if !ok {
			part = Outcome{ConditionID: o.ConditionID, UserID: o.UserID, Transaction: o.Transaction, EvaluatedAt: o.EvaluatedAt}
		}
		part.Reasons = append(part.Reasons, r)
		out[category] = part
	}
	return out
}
