package format

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWon(t *testing.T) {
	cases := map[int64]string{
		0:          "0원",
		9_999:      "9,999원",
		12_345:     "1만 2,345원",
		480000000:  "4억 8,000만원",
		500000000:  "5억원",
		1234567890: "12억 3,456만 7,890원",
		-50_000:    "-5만원",
	}
	for amount, want := range cases {
		assert.Equal(t, want, Won(amount), "amount %d", amount)
	}
}

func TestPyeong(t *testing.T) {
	assert.Equal(t, 25.7, Pyeong(84.96))
	assert.Equal(t, 0.0, Pyeong(-1))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "+5.25%", Percent(decimal.RequireFromString("5.254")))
	assert.Equal(t, "-10.00%", Percent(decimal.NewFromInt(-10)))
	assert.Equal(t, "0.00%", Percent(decimal.Zero))
}

func TestParseWon(t *testing.T) {
	cases := map[string]int64{
		"500000000":   500_000_000,
		"5억":          500_000_000,
		"4억8000만":     480_000_000,
		"4억 8,000만원": 480_000_000,
		"48000만":      480_000_000,
		"1억2345":      100_002_345,
		"3만":          30_000,
	}
	for in, want := range cases {
		got, err := ParseWon(in)
		if assert.NoError(t, err, in) {
			assert.Equal(t, want, got, in)
		}
	}

	for _, in := range []string{"", "억", "abc", "5천만", "-5억", "1.5억"} {
		_, err := ParseWon(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}
