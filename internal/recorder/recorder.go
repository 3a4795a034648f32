package recorder

import "StakeVault/internal/model"

// PoolSnapshot is a periodic sample of the pool and its outstanding liabilities.
type PoolSnapshot struct {
	Pool        model.PoolState
	Liabilities uint64
	Accounts    int
	PeriodIndex int
	RateBps     uint64
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordEvent(evt *model.Event) error
	RecordPoolSnapshot(snap *PoolSnapshot) error
	RecentEvents(limit int) ([]model.Event, error)
	// EventsSince returns up to limit events recorded after seq, in recording order.
	EventsSince(seq int64, limit int) ([]model.Event, error)
	// LatestSeq is the sequence number of the last recorded event, or 0.
	LatestSeq() (int64, error)
	Close() error
}
