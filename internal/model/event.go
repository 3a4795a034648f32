package model

import "time"

// EventKind names a state transition observed by indexers.
type EventKind string

const (
	EventDeposited          EventKind = "DEPOSITED"
	EventUnstakeRequested   EventKind = "UNSTAKE_REQUESTED"
	EventWithdrawn          EventKind = "WITHDRAWN"
	EventYieldClaimed       EventKind = "YIELD_CLAIMED"
	EventYieldRestaked      EventKind = "YIELD_RESTAKED"
	EventRateUpdated        EventKind = "RATE_UPDATED"
	EventPoolToppedUp       EventKind = "POOL_TOPPED_UP"
	EventEmergencyWithdrawn EventKind = "EMERGENCY_WITHDRAWN"
	EventParamsUpdated      EventKind = "PARAMS_UPDATED"
)

// Event is emitted once per committed state transition.
// Fields not relevant to a kind are left zero.
//
// Seq is assigned by the event recorder in recording order; it is zero until
// the event has been recorded.
type Event struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq,omitempty"`
	Kind        EventKind `json:"kind"`
	Account     string    `json:"account,omitempty"`
	Amount      uint64    `json:"amount,omitempty"`
	PeriodIndex int       `json:"period_index,omitempty"`
	RateBps     uint64    `json:"rate_bps,omitempty"`
	PeriodStart int64     `json:"period_start,omitempty"`
	Note        string    `json:"note,omitempty"`
	At          time.Time `json:"at"`
}
