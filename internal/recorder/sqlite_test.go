package recorder

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StakeVault/internal/model"
)

func openRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_Events(t *testing.T) {
	r := openRecorder(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, r.RecordEvent(&model.Event{
		ID: "e1", Kind: model.EventDeposited, Account: "alice", Amount: math.MaxUint64, At: base,
	}))
	require.NoError(t, r.RecordEvent(&model.Event{
		ID: "e2", Kind: model.EventRateUpdated, PeriodIndex: 3, RateBps: 1200, PeriodStart: 42, At: base.Add(time.Hour),
	}))

	evts, err := r.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, "e2", evts[0].ID)
	assert.Equal(t, 3, evts[0].PeriodIndex)
	assert.Equal(t, uint64(1200), evts[0].RateBps)
	assert.Equal(t, model.EventDeposited, evts[1].Kind)
	assert.Equal(t, uint64(math.MaxUint64), evts[1].Amount)
	assert.Equal(t, base, evts[1].At)

	// Event IDs are unique.
	require.Error(t, r.RecordEvent(&model.Event{ID: "e1", Kind: model.EventWithdrawn, At: base}))
}

func TestSQLiteRecorder_Observe(t *testing.T) {
	r := openRecorder(t)
	r.Observe(model.Event{ID: "x", Kind: model.EventPoolToppedUp, Amount: 7, At: time.Now()})

	evts, err := r.RecentEvents(1)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, uint64(7), evts[0].Amount)
}

func TestSQLiteRecorder_PoolSnapshot(t *testing.T) {
	r := openRecorder(t)
	require.NoError(t, r.RecordPoolSnapshot(&PoolSnapshot{
		Pool:        model.PoolState{TotalDeposited: 100, AvailableYield: 5},
		Liabilities: 7,
		Accounts:    2,
		PeriodIndex: 1,
		RateBps:     900,
	}))

	var liabilities string
	require.NoError(t, r.db.QueryRow(`SELECT liabilities FROM pool_snapshots`).Scan(&liabilities))
	assert.Equal(t, "7", liabilities)
}

func TestSQLiteRecorder_EventsSinceFollowsRecordingOrder(t *testing.T) {
	r := openRecorder(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	seq, err := r.LatestSeq()
	require.NoError(t, err)
	assert.Zero(t, seq)

	require.NoError(t, r.RecordEvent(&model.Event{ID: "late", Kind: model.EventDeposited, At: base.Add(10 * 24 * time.Hour)}))
	seq, err = r.LatestSeq()
	require.NoError(t, err)

	// Backdated operation recorded afterwards.
	require.NoError(t, r.RecordEvent(&model.Event{ID: "early", Kind: model.EventYieldClaimed, Amount: 3, At: base.Add(24 * time.Hour)}))

	evts, err := r.EventsSince(seq, 10)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, "early", evts[0].ID)
	assert.Equal(t, uint64(3), evts[0].Amount)
	assert.Greater(t, evts[0].Seq, seq)

	all, err := r.EventsSince(0, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []string{"late", "early"}, []string{all[0].ID, all[1].ID})

	latest, err := r.LatestSeq()
	require.NoError(t, err)
	assert.Equal(t, evts[0].Seq, latest)
}
