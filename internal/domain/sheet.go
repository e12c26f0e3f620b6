package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type SheetPriority string

const (
	SheetPriorityLow    SheetPriority = "low"
	SheetPriorityMedium SheetPriority = "medium"
	SheetPriorityHigh   SheetPriority = "high"
)

type SheetPropertyStatus string

const (
	SheetStatusInterested  SheetPropertyStatus = "interested"
	SheetStatusVisited     SheetPropertyStatus = "visited"
	SheetStatusNegotiating SheetPropertyStatus = "negotiating"
	SheetStatusCompleted   SheetPropertyStatus = "completed"
	SheetStatusCanceled    SheetPropertyStatus = "canceled"
)

type SheetProperty struct {
	ID              uint                `json:"id"`
	SheetID         uint                `json:"sheet_id"`
	UserID          uint                `json:"user_id"`
	PropertyID      string              `json:"property_id,omitempty"`
	ComplexID       int64               `json:"complex_id,omitempty"`
	ComplexName     string              `json:"complex_name"`
	Dong            string              `json:"dong,omitempty"`
	Ho              string              `json:"ho,omitempty"`
	ExclusiveArea   float64             `json:"exclusive_area"`
	Floor           int                 `json:"floor,omitempty"`
	TransactionType TransactionType     `json:"transaction_type"`
	Price           int64               `json:"price"`
	Deposit         int64               `json:"deposit,omitempty"`
	MonthlyRent     int64               `json:"monthly_rent,omitempty"`
	TransactionDate *time.Time          `json:"transaction_date,omitempty"`
	Address         string              `json:"address"`
	BuildYear       int                 `json:"build_year,omitempty"`
	Tags            []string            `json:"tags"`
	Memo            string              `json:"memo,omitempty"`
	IsBookmarked    bool                `json:"is_bookmarked"`
	Priority        SheetPriority       `json:"priority"`
	Status          SheetPropertyStatus `json:"status"`
	Rating          int                 `json:"rating,omitempty"`
	Position        int                 `json:"position"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func (p *SheetProperty) Normalize() {
	p.ComplexName = strings.TrimSpace(p.ComplexName)
	p.PropertyID = strings.TrimSpace(p.PropertyID)
	if p.Priority == "" {
		p.Priority = SheetPriorityMedium
	}
	if p.Status == "" {
		p.Status = SheetStatusInterested
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
}

func (p SheetProperty) Validate() error {
	if p.ComplexName == "" {
		return invalid("complex_name", "is required")
	}
	if !p.TransactionType.Valid() {
		return invalid("transaction_type", "must be sale, lease or rent")
	}
	if p.Price < 0 {
		return invalid("price", "must not be negative")
	}
	if p.ExclusiveArea < 0 {
		return invalid("exclusive_area", "must not be negative")
	}
	if p.Rating < 0 || p.Rating > 5 {
		return invalid("rating", "must be between 0 and 5")
	}
	switch p.Priority {
	case SheetPriorityLow, SheetPriorityMedium, SheetPriorityHigh:
	default:
		return invalid("priority", "must be low, medium or high")
	}
	switch p.Status {
	case SheetStatusInterested, SheetStatusVisited, SheetStatusNegotiating, SheetStatusCompleted, SheetStatusCanceled:
	default:
		return invalid("status", "unknown status "+string(p.Status))
	}
	return nil
}

type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

type SheetStatistics struct {
	TotalProperties  int                     `json:"total_properties"`
	AveragePrice     float64                 `json:"average_price"`
	PriceRange       PriceRange              `json:"price_range"`
	TransactionTypes map[TransactionType]int `json:"transaction_types"`
	LastUpdated      time.Time               `json:"last_updated"`
}

type UserSheet struct {
	ID          uint            `json:"id"`
	UserID      uint            `json:"user_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	IsDefault   bool            `json:"is_default"`
	Revision    uint64          `json:"revision"`
	Statistics  SheetStatistics `json:"statistics"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ComputeSheetStatistics folds the full property collection into its aggregate.
// It never patches a previous aggregate, so the result depends only on props.
func ComputeSheetStatistics(props []SheetProperty, now time.Time) SheetStatistics {
	stats := SheetStatistics{
		TransactionTypes: make(map[TransactionType]int, len(AllTransactionTypes)),
		LastUpdated:      now.UTC(),
	}
	for _, t := range AllTransactionTypes {
		stats.TransactionTypes[t] = 0
	}
	if len(props) == 0 {
		return stats
	}

	sum := decimal.Zero
	stats.PriceRange.Min = props[0].Price
	stats.PriceRange.Max = props[0].Price
	for _, p := range props {
		sum = sum.Add(decimal.NewFromInt(p.Price))
		if p.Price < stats.PriceRange.Min {
			stats.PriceRange.Min = p.Price
		}
		if p.Price > stats.PriceRange.Max {
			stats.PriceRange.Max = p.Price
		}
		stats.TransactionTypes[p.TransactionType]++
	}
	stats.TotalProperties = len(props)
	stats.AveragePrice = sum.Div(decimal.NewFromInt(int64(len(props)))).InexactFloat64()
	return stats
}

func EmptySheetStatistics(now time.Time) SheetStatistics {
	return ComputeSheetStatistics(nil, now)
}
