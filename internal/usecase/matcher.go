package usecase

import (
	"strings"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"go.uber.org/zap"
)

// CriteriaMatcher selects the conditions whose static criteria a transaction satisfies.
type CriteriaMatcher struct {
	logger *zap.Logger
}

func NewCriteriaMatcher(logger *zap.Logger) *CriteriaMatcher {
	return &CriteriaMatcher{logger: logger}
}

// Match returns the matching subset of conditions. Conditions with malformed criteria
// never match and are logged.
func (m *CriteriaMatcher) Match(tx domain.PropertyTransaction, conditions []domain.PriceAlertCondition) []domain.PriceAlertCondition {
	var matched []domain.PriceAlertCondition
	for _, condition := range conditions {
		if err := condition.Criteria.Validate(); err != nil {
			m.logger.Warn("rule skipped: invalid criteria", zap.Uint("condition_id", condition.ID), zap.Error(err))
			continue
		}
		if criteriaMatch(condition.Criteria, tx) {
			matched = append(matched, condition)
		}
	}
	return matched
}

func criteriaMatch(c domain.Criteria, tx domain.PropertyTransaction) bool {
	if c.ComplexID != nil && *c.ComplexID != tx.ComplexID {
		return false
	}
	if name := normalizeName(c.ComplexName); name != "" && name != normalizeName(tx.ComplexName) {
		return false
	}
	if len(c.RegionCodes) > 0 {
		found := false
		for _, code := range c.RegionCodes {
			if strings.HasPrefix(tx.RegionCode, strings.TrimSpace(code)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.Area != nil && !c.Area.Contains(tx.ExclusiveArea) {
		return false
	}
	if len(c.TransactionTypes) > 0 {
		found := false
		for _, t := range c.TransactionTypes {
			if t == tx.TransactionType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}
