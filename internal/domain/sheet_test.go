package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeSheetStatistics(t *testing.T) {
	now := time.Date(2026, 10, 10, 9, 0, 0, 0, time.UTC)

	empty := ComputeSheetStatistics(nil, now)
	assert.Zero(t, empty.TotalProperties)
	assert.Zero(t, empty.AveragePrice)
	assert.Equal(t, PriceRange{}, empty.PriceRange)
	assert.Equal(t, map[TransactionType]int{TransactionSale: 0, TransactionLease: 0, TransactionRent: 0}, empty.TransactionTypes)
	assert.Equal(t, now, empty.LastUpdated)

	props := []SheetProperty{
		{TransactionType: TransactionSale, Price: 1_500_000_000},
		{TransactionType: TransactionSale, Price: 900_000_000},
		{TransactionType: TransactionRent, Price: 100_000_000},
	}
	stats := ComputeSheetStatistics(props, now)
	assert.Equal(t, 3, stats.TotalProperties)
	assert.InDelta(t, 833_333_333.33, stats.AveragePrice, 0.01)
	assert.Equal(t, PriceRange{Min: 100_000_000, Max: 1_500_000_000}, stats.PriceRange)
	assert.Equal(t, 2, stats.TransactionTypes[TransactionSale])
	assert.Equal(t, 0, stats.TransactionTypes[TransactionLease])
	assert.Equal(t, 1, stats.TransactionTypes[TransactionRent])

	reversed := []SheetProperty{props[2], props[1], props[0]}
	assert.Equal(t, stats, ComputeSheetStatistics(reversed, now))
}

func TestComputeSheetStatisticsLargePrices(t *testing.T) {
	props := []SheetProperty{
		{TransactionType: TransactionSale, Price: math.MaxInt64},
		{TransactionType: TransactionSale, Price: math.MaxInt64 - 1},
	}
	stats := ComputeSheetStatistics(props, time.Now())
	assert.Positive(t, stats.AveragePrice)
	assert.InEpsilon(t, float64(math.MaxInt64), stats.AveragePrice, 1e-9)
	assert.Equal(t, PriceRange{Min: math.MaxInt64 - 1, Max: math.MaxInt64}, stats.PriceRange)
}

func TestSheetPropertyValidate(t *testing.T) {
	valid := SheetProperty{ComplexName: " 래미안 ", TransactionType: TransactionSale, Price: 1}
	valid.Normalize()
	assert.Equal(t, "래미안", valid.ComplexName)
	assert.Equal(t, []string{}, valid.Tags)
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		mod   func(p *SheetProperty)
		field string
	}{
		{"missing name", func(p *SheetProperty) { p.ComplexName = "" }, "complex_name"},
		{"bad type", func(p *SheetProperty) { p.TransactionType = "auction" }, "transaction_type"},
		{"negative price", func(p *SheetProperty) { p.Price = -1 }, "price"},
		{"rating", func(p *SheetProperty) { p.Rating = 6 }, "rating"},
		{"status", func(p *SheetProperty) { p.Status = "sold" }, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mod(&p)
			var validation *ValidationError
			if assert.ErrorAs(t, p.Validate(), &validation) {
				assert.Equal(t, tt.field, validation.Field)
			}
		})
	}
}
