package domain

import "time"

type GatePhase string

const (
	GateIdle     GatePhase = "idle"
	GateFired    GatePhase = "fired"
	GateBatching GatePhase = "batching"
)

type GateKey struct {
	ConditionID uint
	Category    NotificationType
}

// GateState is the persisted trigger state for one (condition, category) pair.
// Pending holds outcomes not yet emitted; a fired or batching state with FlushAt in the
// past is due for emission.
type GateState struct {
	Key         GateKey
	UserID      uint
	Phase       GatePhase
	Frequency   Frequency
	Pending     []Outcome
	FlushAt     time.Time
	LastEmitted map[ReasonKind]time.Time
	UpdatedAt   time.Time
}

func NewGateState(key GateKey, userID uint) GateState {
	return GateState{Key: key, UserID: userID, Phase: GateIdle, LastEmitted: map[ReasonKind]time.Time{}}
}

func (s GateState) Due(now time.Time) bool {
	return s.Phase != GateIdle && len(s.Pending) > 0 && !s.FlushAt.After(now)
}
