package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

type listingKey struct {
	complexID  int64
	areaBucket int
}

// PriceChangeEvaluator decides which alert sub-conditions a transaction satisfies.
type PriceChangeEvaluator struct {
	snapshots domain.SnapshotStore
	lookback  time.Duration
	logger    *zap.Logger

	mu   sync.Mutex
	seen map[listingKey]time.Time
}

func NewPriceChangeEvaluator(snapshots domain.SnapshotStore, lookback time.Duration, logger *zap.Logger) *PriceChangeEvaluator {
	return &PriceChangeEvaluator{
		snapshots: snapshots,
		lookback:  lookback,
		logger:    logger,
		seen:      make(map[listingKey]time.Time),
	}
}

// Evaluate observes tx once and evaluates every candidate against it. Only fired
// conditions are returned.
func (e *PriceChangeEvaluator) Evaluate(ctx context.Context, tx domain.PropertyTransaction, candidates []domain.PriceAlertCondition, now time.Time) []domain.Outcome {
	isNew := e.observe(tx)
	if len(candidates) == 0 {
		return nil
	}

	baselines := make(map[domain.Period]*domain.PriceSnapshot)
	var fired []domain.Outcome
	for _, condition := range candidates {
		outcome := e.evaluateCondition(ctx, tx, condition, isNew, baselines)
		outcome.EvaluatedAt = now
		if outcome.Satisfied() {
			fired = append(fired, outcome)
		}
	}
	return fired
}

func (e *PriceChangeEvaluator) evaluateCondition(ctx context.Context, tx domain.PropertyTransaction, condition domain.PriceAlertCondition, isNew bool, baselines map[domain.Period]*domain.PriceSnapshot) domain.Outcome {
	outcome := domain.Outcome{ConditionID: condition.ID, UserID: condition.UserID, Transaction: tx}
	rules := condition.AlertConditions

	if rules.PriceThreshold != nil {
		if reason, ok := CheckThreshold(*rules.PriceThreshold, tx.Price); ok {
			outcome.Reasons = append(outcome.Reasons, reason)
		}
	}

	if rules.PriceChange != nil {
		baseline, cached := baselines[rules.PriceChange.Period]
		if !cached {
			baseline = e.baseline(ctx, tx, rules.PriceChange.Period)
			baselines[rules.PriceChange.Period] = baseline
		}
		if baseline != nil {
			if reason, ok := CheckChange(*rules.PriceChange, baseline.BaselineFor(tx.TransactionType), tx.Price); ok {
				reason.BaselineDate = baseline.SnapshotDate
				outcome.Reasons = append(outcome.Reasons, reason)
			}
		}
	}

	if rules.NewListing && isNew {
		outcome.Reasons = append(outcome.Reasons, domain.NewListingReason{
			ComplexID:  tx.ComplexID,
			AreaBucket: tx.AreaBucket(),
			Price:      tx.Price,
		})
	}
	return outcome
}

func (e *PriceChangeEvaluator) baseline(ctx context.Context, tx domain.PropertyTransaction, period domain.Period) *domain.PriceSnapshot {
	cutoff := period.Ago(tx.TransactionDate)
	snapshot, err := e.snapshots.LatestBefore(ctx, tx.ComplexID, tx.AreaBucket(), cutoff)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			e.logger.Warn("baseline lookup failed",
				zap.Int64("complex_id", tx.ComplexID),
				zap.Int("area_bucket", tx.AreaBucket()),
				zap.String("period", string(period)),
				zap.Error(err),
			)
		}
		return nil
	}
	return snapshot
}

// observe records tx and reports whether it is the first one for its complex and area
// bucket within the lookback window. Late arrivals never count as new.
func (e *PriceChangeEvaluator) observe(tx domain.PropertyTransaction) bool {
	key := listingKey{complexID: tx.ComplexID, areaBucket: tx.AreaBucket()}
	e.mu.Lock()
	defer e.mu.Unlock()

	prior, ok := e.seen[key]
	if !ok {
		e.seen[key] = tx.TransactionDate
		return true
	}
	if tx.TransactionDate.After(prior) {
		e.seen[key] = tx.TransactionDate
	}
	return tx.TransactionDate.Sub(prior) > e.lookback
}

// Prune forgets pairs not seen within the lookback window ending at now.
func (e *PriceChangeEvaluator) Prune(now time.Time) int {
	cutoff := now.Add(-e.lookback)
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := 0
	for key, last := range e.seen {
		if last.Before(cutoff) {
			delete(e.seen, key)
			removed++
		}
	}
	return removed
}

// CheckThreshold compares price with the rule. Equality satisfies neither operator.
func CheckThreshold(rule domain.ThresholdRule, price int64) (domain.ThresholdReason, bool) {
	reason := domain.ThresholdReason{Operator: rule.Operator, Threshold: rule.Value, Price: price}
	switch rule.Operator {
	case domain.ThresholdBelow:
		return reason, price < rule.Value
	case domain.ThresholdAbove:
		return reason, price > rule.Value
	}
	return reason, false
}

// CheckChange compares the percentage change from baseline to current against the rule.
// A zero baseline only satisfies an increase rule, and only when current is positive.
func CheckChange(rule domain.ChangeRule, baseline, current int64) (domain.ChangeReason, bool) {
	reason := domain.ChangeReason{
		Operator:   rule.Operator,
		Period:     rule.Period,
		Percentage: rule.Percentage,
		Change:     decimal.Zero,
		Baseline:   baseline,
		Price:      current,
	}
	if baseline == 0 {
		return reason, rule.Operator == domain.ChangeIncrease && current > 0
	}

	base := decimal.NewFromInt(baseline)
	change := decimal.NewFromInt(current).Sub(base).Div(base.Abs()).Mul(hundred)
	reason.Change = change
	switch rule.Operator {
	case domain.ChangeIncrease:
		return reason, change.GreaterThanOrEqual(rule.Percentage)
	case domain.ChangeDecrease:
		return reason, change.LessThanOrEqual(rule.Percentage.Neg())
	}
	return reason, false
}
