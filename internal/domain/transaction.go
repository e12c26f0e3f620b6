package domain

import (
	"math"
	"time"
)

// PropertyTransaction is one market event. Price carries the sale price for sales
// and the deposit for lease/rent contracts, in won.
type PropertyTransaction struct {
	ID              string          `json:"id"`
	ComplexID       int64           `json:"complex_id"`
	ComplexName     string          `json:"complex_name"`
	RegionCode      string          `json:"region_code"`
	ExclusiveArea   float64         `json:"exclusive_area"`
	Floor           int             `json:"floor,omitempty"`
	TransactionType TransactionType `json:"transaction_type"`
	Price           int64           `json:"price"`
	MonthlyRent     int64           `json:"monthly_rent,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
}

// AreaBucket groups exclusive areas to the nearest square meter.
func AreaBucket(area float64) int {
	return int(math.Round(area))
}

func (t PropertyTransaction) AreaBucket() int {
	return AreaBucket(t.ExclusiveArea)
}

const shardPrefixLen = 2

// ShardPrefix returns the province-level prefix of a region code used for shard routing.
func ShardPrefix(regionCode string) string {
	if len(regionCode) <= shardPrefixLen {
		return regionCode
	}
	return regionCode[:shardPrefixLen]
}

// SpansShards reports whether a criteria region code is shorter than a shard prefix,
// so the transactions it matches may be routed to any shard.
func SpansShards(regionCode string) bool {
	return len(regionCode) < shardPrefixLen
}

type PriceSnapshot struct {
	ComplexID        int64     `json:"complex_id"`
	AreaBucket       int       `json:"area_bucket"`
	SnapshotDate     time.Time `json:"snapshot_date"`
	AvgSalePrice     int64     `json:"avg_sale_price"`
	AvgLeasePrice    int64     `json:"avg_lease_price"`
	TransactionCount int       `json:"transaction_count"`
}

// BaselineFor returns the average price comparable to a transaction of type t.
func (s PriceSnapshot) BaselineFor(t TransactionType) int64 {
	if t == TransactionSale {
		return s.AvgSalePrice
	}
	return s.AvgLeasePrice
}

type TransactionMessage struct {
	EventType    string
	Transactions []PropertyTransaction
}
