package staking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StakeVault/internal/ledger"
	"StakeVault/internal/model"
)

const day = 24 * time.Hour

var start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type harness struct {
	eng    *Engine
	tok    *ledger.Memory
	events []model.Event
}

func newHarness(t *testing.T, cooldown, delay time.Duration, balances map[string]uint64) *harness {
	t.Helper()
	st, err := NewState(Config{
		Admin:           "admin",
		Vault:           "vault",
		ProgramStart:    start,
		InitialRateBps:  1000,
		Cooldown:        cooldown,
		YieldStartDelay: delay,
	})
	require.NoError(t, err)
	h := &harness{tok: ledger.NewMemory("vault", balances)}
	h.eng, err = New(st, h.tok, WithObserver(func(evt model.Event) { h.events = append(h.events, evt) }))
	require.NoError(t, err)
	return h
}

func (h *harness) kinds() []model.EventKind {
	out := make([]model.EventKind, len(h.events))
	for i, e := range h.events {
		out[i] = e.Kind
	}
	return out
}

func requireInvariant(t *testing.T, e *Engine) {
	t.Helper()
	for acct, st := range e.Snapshot().Accounts {
		require.NotZero(t, st.Amount, "account %s kept with zero amount", acct)
	}
	for _, acct := range []string{"alice", "bob", "carol", "nobody"} {
		st := e.Stake(acct)
		if st.Amount == 0 {
			require.Zero(t, st.UnstakeRequestTime, "account %s", acct)
			require.False(t, st.EmergencyArmed, "account %s", acct)
		}
	}
}

func TestNewState_Validation(t *testing.T) {
	_, err := NewState(Config{Vault: "vault", ProgramStart: start, InitialRateBps: 1})
	require.Error(t, err)

	_, err = NewState(Config{Admin: "a", Vault: "v", ProgramStart: start})
	require.ErrorIs(t, err, model.ErrZeroRate)

	_, err = NewState(Config{Admin: "a", Vault: "v", ProgramStart: start, InitialRateBps: 1, Cooldown: 31 * day})
	require.ErrorIs(t, err, model.ErrExceedsMaxLock)
}

func TestOnePeriodClaim(t *testing.T) {
	h := newHarness(t, 7*day, 0, map[string]uint64{"alice": 1000, "admin": 1000})
	require.NoError(t, h.eng.TopUp("admin", 100, start))
	require.NoError(t, h.eng.Deposit("alice", 100, start))

	at := start.Add(90 * day)
	assert.Equal(t, uint64(100*1000*7776000/(10000*31536000)), h.eng.PendingYield("alice", at))

	got, err := h.eng.Claim("alice", at)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got)
	assert.Equal(t, uint64(98), h.eng.Pool().AvailableYield)
	assert.Equal(t, uint64(2), h.eng.Pool().TotalYieldPaid)
	assert.Equal(t, uint64(902), h.tok.BalanceOf("alice"))

	// Second claim at the same instant is a silent no-op.
	n := len(h.events)
	got, err = h.eng.Claim("alice", at)
	require.NoError(t, err)
	assert.Zero(t, got)
	assert.Len(t, h.events, n)
	assert.False(t, h.eng.Stake("alice").FirstDeposit)
}

func TestInsufficientPool_EmergencyExitReturnsPrincipal(t *testing.T) {
	h := newHarness(t, 7*day, 0, map[string]uint64{"alice": 1000, "admin": 1})
	require.NoError(t, h.eng.TopUp("admin", 1, start))
	require.NoError(t, h.eng.Deposit("alice", 1000, start))

	armedAt := start.Add(20 * day)
	require.Equal(t, uint64(5), h.eng.PendingYield("alice", armedAt))

	step, err := h.eng.EmergencyExit("alice", armedAt)
	require.NoError(t, err)
	assert.Equal(t, EmergencyArmed, step.Outcome)
	assert.Equal(t, model.PhaseEmergencyPending, h.eng.Stake("alice").Phase())

	// Withdraw would pay yield the pool does not have.
	_, err = h.eng.Withdraw("alice", armedAt.Add(8*day))
	require.ErrorIs(t, err, model.ErrInsufficientPool)
	assert.Equal(t, model.KindSolvency, model.KindOf(err))
	assert.Equal(t, uint64(1000), h.eng.Stake("alice").Amount)

	_, err = h.eng.EmergencyExit("alice", armedAt.Add(7*day))
	require.ErrorIs(t, err, model.ErrStillInCooldown)

	step, err = h.eng.EmergencyExit("alice", armedAt.Add(7*day+time.Second))
	require.NoError(t, err)
	assert.Equal(t, EmergencyRefunded, step.Outcome)
	assert.Equal(t, uint64(1000), step.Principal)

	assert.Equal(t, uint64(1000), h.tok.BalanceOf("alice"))
	assert.Equal(t, model.AccountStake{}, h.eng.Stake("alice"))
	pool := h.eng.Pool()
	assert.Equal(t, uint64(1), pool.AvailableYield)
	assert.Zero(t, pool.TotalYieldPaid)
	assert.Zero(t, pool.TotalDeposited)
	assert.Equal(t, model.EventEmergencyWithdrawn, h.events[len(h.events)-1].Kind)
	requireInvariant(t, h.eng)
}

func TestEmergencyExit_FromUnstakePendingCompletesDirectly(t *testing.T) {
	h := newHarness(t, 7*day, 0, map[string]uint64{"alice": 10})
	require.NoError(t, h.eng.Deposit("alice", 10, start))
	require.NoError(t, h.eng.RequestUnstake("alice", start.Add(day)))

	step, err := h.eng.EmergencyExit("alice", start.Add(9*day))
	require.NoError(t, err)
	assert.Equal(t, EmergencyRefunded, step.Outcome)
	assert.Equal(t, uint64(10), h.tok.BalanceOf("alice"))

	_, err = h.eng.EmergencyExit("alice", start.Add(10*day))
	require.ErrorIs(t, err, model.ErrNoStake)
}

func TestDeposit_CompoundsPendingYield(t *testing.T) {
	h := newHarness(t, 7*day, 0, map[string]uint64{"alice": 2000, "admin": 100})
	require.NoError(t, h.eng.TopUp("admin", 100, start))
	require.NoError(t, h.eng.Deposit("alice", 1000, start))
	require.NoError(t, h.eng.RequestUnstake("alice", start.Add(20*day)))

	at := start.Add(30 * day)
	require.NoError(t, h.eng.Deposit("alice", 10, at))

	st := h.eng.Stake("alice")
	assert.Equal(t, uint64(1015), st.Amount)
	assert.Equal(t, at.Unix(), st.LastAccrualTime)
	assert.True(t, st.FirstDeposit)
	assert.Zero(t, st.UnstakeRequestTime)

	pool := h.eng.Pool()
	assert.Equal(t, uint64(95), pool.AvailableYield)
	assert.Equal(t, uint64(5), pool.TotalYieldPaid)
	assert.Equal(t, uint64(1015), pool.TotalDeposited)
	assert.Equal(t, []model.EventKind{
		model.EventPoolToppedUp,
		model.EventDeposited,
		model.EventUnstakeRequested,
		model.EventDeposited,
		model.EventYieldRestaked,
	}, h.kinds())
}

func TestDeposit_FailsWhenPoolCannotCoverYield(t *testing.T) {
	h := newHarness(t, 7*day, 0, map[string]uint64{"alice": 2000})
	require.NoError(t, h.eng.Deposit("alice", 1000, start))
	before := h.eng.Stake("alice")

	err := h.eng.Deposit("alice", 10, start.Add(20*day))
	require.ErrorIs(t, err, model.ErrInsufficientPool)
	assert.Equal(t, before, h.eng.Stake("alice"))
	assert.Equal(t, uint64(1000), h.tok.BalanceOf("alice"))
	assert.Len(t, h.events, 1)
}

func TestDeposit_InputAndTransferErrors(t *testing.T) {
	h := newHarness(t, 7*day, 0, map[string]uint64{"alice": 5})

	require.ErrorIs(t, h.eng.Deposit("alice", 0, start), model.ErrInvalidAmount)

	err := h.eng.Deposit("alice", 6, start)
	require.ErrorIs(t, err, model.ErrTransferFailed)
	assert.Equal(t, model.AccountStake{}, h.eng.Stake("alice"))
	assert.Zero(t, h.eng.Pool().TotalDeposited)
	assert.Empty(t, h.events)
}

func TestDeposit_RestartsDelayForWholeBalance(t *testing.T) {
	h := newHarness(t, 7*day, day, map[string]uint64{"alice": 2_000_000, "admin": 1_000_000})
	require.NoError(t, h.eng.TopUp("admin", 1_000_000, start))
	require.NoError(t, h.eng.Deposit("alice", 1_000_000, start))

	assert.Zero(t, h.eng.PendingYield("alice", start.Add(day)))
	assert.NotZero(t, h.eng.PendingYield("alice", start.Add(2*day)))

	at := start.Add(20 * day)
	require.NoError(t, h.eng.Deposit("alice", 1, at))
	assert.Zero(t, h.eng.PendingYield("alice", at.Add(time.Hour)))
	assert.Zero(t, h.eng.PendingYield("alice", at.Add(day)))
	assert.NotZero(t, h.eng.PendingYield("alice", at.Add(day+time.Hour)))
}

func TestRequestUnstake(t *testing.T) {
	h := newHarness(t, 7*day, 0, map[string]uint64{"alice": 10})
	require.ErrorIs(t, h.eng.RequestUnstake("alice", start), model.ErrNoStake)

	require.NoError(t, h.eng.Deposit("alice", 10, start))
	require.NoError(t, h.eng.RequestUnstake("alice", start.Add(day)))
	err := h.eng.RequestUnstake("alice", start.Add(2*day))
	require.ErrorIs(t, err, model.ErrAlreadyPending)
	assert.Equal(t, model.KindState, model.KindOf(err))
	assert.Equal(t, start.Add(day).Unix(), h.eng.Stake("alice").UnstakeRequestTime)
}

func TestWithdraw(t *testing.T) {
	h := newHarness(t, 7*day, 0, map[string]uint64{"alice": 1000, "admin": 100})
	require.NoError(t, h.eng.TopUp("admin", 100, start))

	_, err := h.eng.Withdraw("alice", start)
	require.ErrorIs(t, err, model.ErrNoStake)

	require.NoError(t, h.eng.Deposit("alice", 1000, start))
	_, err = h.eng.Withdraw("alice", start.Add(day))
	require.ErrorIs(t, err, model.ErrNotPending)

	req := start.Add(20 * day)
	require.NoError(t, h.eng.RequestUnstake("alice", req))
	_, err = h.eng.Withdraw("alice", req.Add(7*day))
	require.ErrorIs(t, err, model.ErrStillInCooldown)
	assert.Equal(t, model.KindTemporal, model.KindOf(err))

	total, err := h.eng.Withdraw("alice", req.Add(7*day+time.Second))
	require.NoError(t, err)
	assert.Equal(t, uint64(1005), total)
	assert.Equal(t, uint64(1005), h.tok.BalanceOf("alice"))
	assert.Equal(t, model.AccountStake{}, h.eng.Stake("alice"))
	assert.Empty(t, h.eng.Accounts())

	pool := h.eng.Pool()
	assert.Equal(t, uint64(95), pool.AvailableYield)
	assert.Equal(t, uint64(5), pool.TotalYieldPaid)
	assert.Zero(t, pool.TotalDeposited)
	requireInvariant(t, h.eng)
}

func TestClaimAndRestake(t *testing.T) {
	h := newHarness(t, 7*day, day, map[string]uint64{"alice": 1_000_000, "admin": 1_000_000})
	require.NoError(t, h.eng.TopUp("admin", 1_000_000, start))
	require.NoError(t, h.eng.Deposit("alice", 1_000_000, start))

	_, err := h.eng.ClaimAndRestake("alice", start.Add(time.Hour))
	require.ErrorIs(t, err, model.ErrNoYield)

	require.NoError(t, h.eng.RequestUnstake("alice", start.Add(15*day)))
	at := start.Add(20 * day)
	vaultBefore := h.tok.BalanceOf("vault")

	got, err := h.eng.ClaimAndRestake("alice", at)
	require.NoError(t, err)
	// 14 days between the end of the delay and the unstake request.
	assert.Equal(t, uint64(1_000_000*1000*14*86400/(10000*31536000)), got)

	st := h.eng.Stake("alice")
	assert.Equal(t, 1_000_000+got, st.Amount)
	assert.False(t, st.FirstDeposit)
	assert.Zero(t, st.UnstakeRequestTime)
	assert.Equal(t, vaultBefore, h.tok.BalanceOf("vault"))

	// Restaking does not restart the yield-start delay.
	assert.NotZero(t, h.eng.PendingYield("alice", at.Add(time.Hour)))
}

func TestAdmin(t *testing.T) {
	h := newHarness(t, 7*day, 0, map[string]uint64{"alice": 10})

	_, err := h.eng.SetPeriodRate("alice", 1, 500, start)
	require.ErrorIs(t, err, model.ErrUnauthorized)
	require.ErrorIs(t, h.eng.TopUp("alice", 10, start), model.ErrUnauthorized)

	_, err = h.eng.SetPeriodRate("admin", 2, 500, start)
	require.ErrorIs(t, err, model.ErrNonSequential)
	_, err = h.eng.SetPeriodRate("admin", 1, 500, start)
	require.NoError(t, err)
	entry, err := h.eng.SetPeriodRate("admin", 2, 400, start)
	require.NoError(t, err)
	assert.Equal(t, start.Unix()+2*model.PeriodLength, entry.StartTime)
	assert.Len(t, h.eng.Rates(), 3)

	last := h.events[len(h.events)-1]
	assert.Equal(t, model.EventRateUpdated, last.Kind)
	assert.Equal(t, 2, last.PeriodIndex)
	assert.Equal(t, uint64(400), last.RateBps)
	assert.NotEmpty(t, last.ID)

	require.ErrorIs(t, h.eng.SetCooldown("admin", 31*day, start), model.ErrExceedsMaxLock)
	require.NoError(t, h.eng.SetCooldown("admin", 3*day, start))
	require.NoError(t, h.eng.SetYieldStartDelay("admin", 12*time.Hour, start))
	cooldown, delay := h.eng.Params()
	assert.Equal(t, 3*day, cooldown)
	assert.Equal(t, 12*time.Hour, delay)

	idx, e := h.eng.CurrentPeriod(start.Add(100 * day))
	assert.Equal(t, 1, idx)
	assert.Equal(t, uint64(500), e.AnnualRateBps)
}

type flakyToken struct {
	*ledger.Memory
	failTransfer bool
}

func (f *flakyToken) Transfer(to string, amount uint64) (bool, error) {
	if f.failTransfer {
		return false, errors.New("ledger unavailable")
	}
	return f.Memory.Transfer(to, amount)
}

func TestTransferFailureLeavesStateUntouched(t *testing.T) {
	st, err := NewState(Config{Admin: "admin", Vault: "vault", ProgramStart: start, InitialRateBps: 1000, Cooldown: 7 * day})
	require.NoError(t, err)
	tok := &flakyToken{Memory: ledger.NewMemory("vault", map[string]uint64{"alice": 1000, "admin": 100})}
	eng, err := New(st, tok)
	require.NoError(t, err)

	require.NoError(t, eng.TopUp("admin", 100, start))
	require.NoError(t, eng.Deposit("alice", 1000, start))
	require.NoError(t, eng.RequestUnstake("alice", start.Add(20*day)))

	tok.failTransfer = true
	before := eng.Snapshot()
	_, err = eng.Withdraw("alice", start.Add(30*day))
	require.ErrorIs(t, err, model.ErrTransferFailed)
	_, err = eng.Claim("alice", start.Add(30*day))
	require.ErrorIs(t, err, model.ErrTransferFailed)
	assert.Equal(t, before, eng.Snapshot())

	tok.failTransfer = false
	total, err := eng.Withdraw("alice", start.Add(30*day))
	require.NoError(t, err)
	assert.Equal(t, uint64(1005), total)
}

type memPersister struct{ last *model.EngineState }

func (m *memPersister) Persist(st *model.EngineState) error {
	m.last = st
	return nil
}

func TestPersistAndRestore(t *testing.T) {
	st, err := NewState(Config{Admin: "admin", Vault: "vault", ProgramStart: start, InitialRateBps: 1000, Cooldown: 7 * day})
	require.NoError(t, err)
	tok := ledger.NewMemory("vault", map[string]uint64{"alice": 1000, "bob": 500, "admin": 50})
	p := &memPersister{}
	eng, err := New(st, tok, WithPersister(p))
	require.NoError(t, err)

	require.NoError(t, eng.TopUp("admin", 50, start))
	require.NoError(t, eng.Deposit("alice", 1000, start))
	require.NoError(t, eng.Deposit("bob", 500, start.Add(day)))
	_, err = eng.SetPeriodRate("admin", 1, 2000, start)
	require.NoError(t, err)
	require.NotNil(t, p.last)

	restored, err := New(p.last, ledger.NewMemory("vault", tok.Balances()))
	require.NoError(t, err)

	at := start.Add(120 * day)
	assert.Equal(t, eng.PendingYield("alice", at), restored.PendingYield("alice", at))
	assert.Equal(t, eng.Liabilities(at), restored.Liabilities(at))
	assert.Equal(t, eng.Pool(), restored.Pool())
	assert.Equal(t, []string{"alice", "bob"}, restored.Accounts())
	assert.Equal(t, eng.PendingYield("alice", at)+eng.PendingYield("bob", at), eng.Liabilities(at))
}

func TestInvariantHoldsAcrossOperations(t *testing.T) {
	h := newHarness(t, 2*day, day, map[string]uint64{
		"alice": 1_000_000, "bob": 1_000_000, "carol": 1_000_000, "admin": 10_000,
	})
	require.NoError(t, h.eng.TopUp("admin", 10_000, start))

	accounts := []string{"alice", "bob", "carol"}
	ops := []func(string, time.Time){
		func(a string, at time.Time) { _ = h.eng.Deposit(a, 100_000, at) },
		func(a string, at time.Time) { _ = h.eng.RequestUnstake(a, at) },
		func(a string, at time.Time) { _, _ = h.eng.Withdraw(a, at) },
		func(a string, at time.Time) { _, _ = h.eng.Claim(a, at) },
		func(a string, at time.Time) { _, _ = h.eng.ClaimAndRestake(a, at) },
		func(a string, at time.Time) { _, _ = h.eng.EmergencyExit(a, at) },
	}
	at := start
	for i := 0; i < 300; i++ {
		at = at.Add(time.Duration(i%5+1) * 13 * time.Hour)
		ops[(i*7)%len(ops)](accounts[i%len(accounts)], at)
		requireInvariant(t, h.eng)

		pool := h.eng.Pool()
		assert.Equal(t, uint64(10_000), pool.AvailableYield+pool.TotalYieldPaid)
	}
}

func TestClaimAndRestake_InsufficientPoolLeavesStateUntouched(t *testing.T) {
	h := newHarness(t, 7*day, 0, map[string]uint64{"alice": 100, "admin": 1})
	require.NoError(t, h.eng.TopUp("admin", 1, start))
	require.NoError(t, h.eng.Deposit("alice", 100, start))

	at := start.Add(90 * day)
	require.Equal(t, uint64(2), h.eng.PendingYield("alice", at))
	before := h.eng.Snapshot()
	emitted := len(h.events)

	y, err := h.eng.Claim("alice", at)
	require.ErrorIs(t, err, model.ErrInsufficientPool)
	assert.Equal(t, model.KindSolvency, model.KindOf(err))
	assert.Zero(t, y)
	assert.Equal(t, before, h.eng.Snapshot())

	y, err = h.eng.ClaimAndRestake("alice", at)
	require.ErrorIs(t, err, model.ErrInsufficientPool)
	assert.Equal(t, model.KindSolvency, model.KindOf(err))
	assert.Zero(t, y)
	assert.Equal(t, before, h.eng.Snapshot())

	assert.Len(t, h.events, emitted)
	assert.Equal(t, uint64(101), h.tok.BalanceOf("vault"))
	assert.Zero(t, h.tok.BalanceOf("alice"))
}

func TestDeposit_BeforeProgramStartEarnsFromStart(t *testing.T) {
	h := newHarness(t, 7*day, 0, map[string]uint64{"alice": 1_000_000_000})
	require.NoError(t, h.eng.Deposit("alice", 1_000_000_000, start.Add(-60*day)))

	assert.Zero(t, h.eng.PendingYield("alice", start))
	assert.Equal(t, uint64(273_972), h.eng.PendingYield("alice", start.Add(day)))
	segs := h.eng.Breakdown("alice", start.Add(day))
	require.Len(t, segs, 1)
	assert.Equal(t, start.Unix(), segs[0].From)
}
