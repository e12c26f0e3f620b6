// Package format renders won amounts, areas and percentages for notification text.
package format

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	eok          = 100_000_000
	man          = 10_000
	sqmPerPyeong = 3.3058
)

var printer = message.NewPrinter(language.Korean)

// Won formats an amount with 억/만 units, e.g. 480000000 -> "4억 8,000만원".
func Won(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	e := amount / eok
	m := (amount % eok) / man
	rest := amount % man

	parts := make([]string, 0, 3)
	if e > 0 {
		parts = append(parts, printer.Sprintf("%d억", e))
	}
	if m > 0 {
		parts = append(parts, printer.Sprintf("%d만", m))
	}
	if rest > 0 || (e == 0 && m == 0) {
		parts = append(parts, printer.Sprintf("%d", rest))
	}
	return sign + strings.Join(parts, " ") + "원"
}

// Pyeong converts square meters to 평, rounded to two decimals.
func Pyeong(sqm float64) float64 {
	if sqm <= 0 {
		return 0
	}
	return math.Round(sqm/sqmPerPyeong*100) / 100
}

func Area(sqm float64) string {
	return printer.Sprintf("%.2f㎡(%.1f평)", sqm, Pyeong(sqm))
}

// Percent renders a signed percentage with two decimals, e.g. "+5.25%".
func Percent(p decimal.Decimal) string {
	s := p.Round(2).StringFixed(2)
	if p.IsPositive() {
		s = "+" + s
	}
	return s + "%"
}

var ErrInvalidAmount = errors.New("invalid amount")

// ParseWon reads an amount written with optional 억/만 units, e.g. "4억8000만", "5억", "48,000만"
// or a plain number of won.
func ParseWon(s string) (int64, error) {
	s = strings.TrimSuffix(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), "원")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}

	var total int64
	for _, unit := range []struct {
		suffix string
		scale  int64
	}{{"억", eok}, {"만", man}} {
		head, tail, found := strings.Cut(s, unit.suffix)
		if !found {
			continue
		}
		n, err := strconv.ParseInt(head, 10, 64)
		if err != nil || n < 0 {
			return 0, ErrInvalidAmount
		}
		total += n * unit.scale
		s = tail
	}
	if s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 0 {
			return 0, ErrInvalidAmount
		}
		total += n
	}
	return total, nil
}
