package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/NasaVasa/aptwatch/internal/keylock"
	"go.uber.org/zap"
)

type GateDecision int

const (
	DecisionSuppressed GateDecision = iota
	DecisionDeferred
	DecisionEmitted
)

func (d GateDecision) String() string {
	switch d {
	case DecisionDeferred:
		return "deferred"
	case DecisionEmitted:
		return "emitted"
	default:
		return "suppressed"
	}
}

// Fire is one fired outcome for a single category, offered to the gate.
type Fire struct {
	Category  domain.NotificationType
	Frequency domain.Frequency
	Outcome   domain.Outcome
}

func (f Fire) Key() domain.GateKey {
	return domain.GateKey{ConditionID: f.Outcome.ConditionID, Category: f.Category}
}

// Emission is handed downstream when a gate state leaves Fired or Batching.
type Emission struct {
	Key       domain.GateKey
	UserID    uint
	Outcomes  []domain.Outcome
	Batched   bool
	EmittedAt time.Time
}

// EmitFunc composes and persists an emission. It runs inside the key's critical
// section and must not block on external delivery.
type EmitFunc func(ctx context.Context, emission Emission) error

// TriggerGate deduplicates and schedules fired outcomes per (condition, category).
type TriggerGate struct {
	store    domain.GateStore
	locks    *keylock.Locker[domain.GateKey]
	cooldown domain.Period
	clock    func() time.Time
	logger   *zap.Logger
}

func NewTriggerGate(store domain.GateStore, cooldown domain.Period, clock func() time.Time, logger *zap.Logger) *TriggerGate {
	if clock == nil {
		clock = time.Now
	}
	if !cooldown.Valid() {
		cooldown = domain.PeriodDaily
	}
	return &TriggerGate{
		store:    store,
		locks:    keylock.New[domain.GateKey](),
		cooldown: cooldown,
		clock:    clock,
		logger:   logger,
	}
}

// Offer feeds a fired outcome through the state machine. An immediate fire is emitted
// before Offer returns; daily and weekly fires join the pending batch.
func (g *TriggerGate) Offer(ctx context.Context, fire Fire, emit EmitFunc) (GateDecision, error) {
	key := fire.Key()
	unlock := g.locks.Lock(key)
	defer unlock()

	now := g.now()
	state, err := g.load(ctx, key, fire.Outcome.UserID)
	if err != nil {
		return DecisionSuppressed, err
	}

	outcome := fire.Outcome
	outcome.Reasons = g.outsideCooldown(state, outcome.Reasons, now)
	if len(outcome.Reasons) == 0 {
		g.logger.Debug("fire suppressed by cooldown", zap.Uint("condition_id", key.ConditionID), zap.String("category", string(key.Category)))
		return DecisionSuppressed, nil
	}

	switch state.Phase {
	case domain.GateBatching:
		state.Pending = append(state.Pending, outcome)
		state.UpdatedAt = now
		if err := g.store.Save(ctx, state); err != nil {
			return DecisionSuppressed, fmt.Errorf("append to batch: %w", err)
		}
		return DecisionDeferred, nil

	case domain.GateFired:
		// A previous emission did not complete; retry it together with this outcome.
		state.Pending = append(state.Pending, outcome)

	default:
		state.Pending = []domain.Outcome{outcome}
		state.Frequency = fire.Frequency
		if fire.Frequency == domain.FrequencyDaily || fire.Frequency == domain.FrequencyWeekly {
			state.Phase = domain.GateBatching
			state.FlushAt = fire.Frequency.FlushBoundary(now)
			state.UpdatedAt = now
			if err := g.store.Save(ctx, state); err != nil {
				return DecisionSuppressed, fmt.Errorf("open batch: %w", err)
			}
			return DecisionDeferred, nil
		}
		state.Phase = domain.GateFired
	}

	state.FlushAt = now
	state.UpdatedAt = now
	if err := g.store.Save(ctx, state); err != nil {
		return DecisionSuppressed, fmt.Errorf("persist fired state: %w", err)
	}
	return g.emitLocked(ctx, state, now, emit)
}

// Flush emits every fired or batching state whose flush boundary has passed. It is both
// the batch drain and the reconciliation sweep for emissions that failed downstream.
func (g *TriggerGate) Flush(ctx context.Context, emit EmitFunc) (int, error) {
	now := g.now()
	keys, err := g.store.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}

	emitted := 0
	var errs []error
	for _, key := range keys {
		decision, err := g.flushKey(ctx, key, now, emit)
		if err != nil {
			errs = append(errs, fmt.Errorf("flush condition %d %s: %w", key.ConditionID, key.Category, err))
			continue
		}
		if decision == DecisionEmitted {
			emitted++
		}
	}
	return emitted, errors.Join(errs...)
}

func (g *TriggerGate) flushKey(ctx context.Context, key domain.GateKey, now time.Time, emit EmitFunc) (GateDecision, error) {
	unlock := g.locks.Lock(key)
	defer unlock()

	state, err := g.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return DecisionSuppressed, nil
		}
		return DecisionSuppressed, err
	}
	if !state.Due(now) {
		return DecisionSuppressed, nil
	}
	return g.emitLocked(ctx, *state, now, emit)
}

func (g *TriggerGate) emitLocked(ctx context.Context, state domain.GateState, now time.Time, emit EmitFunc) (GateDecision, error) {
	emission := Emission{
		Key:       state.Key,
		UserID:    state.UserID,
		Outcomes:  state.Pending,
		Batched:   state.Phase == domain.GateBatching,
		EmittedAt: now,
	}
	if err := emit(ctx, emission); err != nil {
		g.logger.Warn("emission failed, left for reconciliation",
			zap.Uint("condition_id", state.Key.ConditionID),
			zap.String("category", string(state.Key.Category)),
			zap.Error(err),
		)
		return DecisionDeferred, err
	}

	if state.LastEmitted == nil {
		state.LastEmitted = map[domain.ReasonKind]time.Time{}
	}
	emittedAt := now
	if emission.Batched && !state.FlushAt.IsZero() && !state.FlushAt.After(now) {
		// A batch counts as emitted within its own window, not at the flush that drained it.
		emittedAt = state.FlushAt.Add(-time.Nanosecond)
	}
	for _, outcome := range state.Pending {
		for _, reason := range outcome.Reasons {
			state.LastEmitted[reason.Kind()] = emittedAt
		}
	}
	state.Phase = domain.GateIdle
	state.Pending = nil
	state.FlushAt = time.Time{}
	state.UpdatedAt = now
	if err := g.store.Save(ctx, state); err != nil {
		// The emission went out; the sweep may deliver it again.
		g.logger.Error("failed to persist idle gate state",
			zap.Uint("condition_id", state.Key.ConditionID),
			zap.String("category", string(state.Key.Category)),
			zap.Error(err),
		)
	}
	return DecisionEmitted, nil
}

func (g *TriggerGate) outsideCooldown(state domain.GateState, reasons []domain.Reason, now time.Time) []domain.Reason {
	kept := make([]domain.Reason, 0, len(reasons))
	for _, reason := range reasons {
		last, ok := state.LastEmitted[reason.Kind()]
		if ok && !domain.CooldownPeriod(reason, g.cooldown).Start(now).After(last) {
			continue
		}
		kept = append(kept, reason)
	}
	return kept
}

func (g *TriggerGate) load(ctx context.Context, key domain.GateKey, userID uint) (domain.GateState, error) {
	state, err := g.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewGateState(key, userID), nil
		}
		return domain.GateState{}, fmt.Errorf("load gate state: %w", err)
	}
	return *state, nil
}

func (g *TriggerGate) now() time.Time {
	return g.clock().UTC()
}
