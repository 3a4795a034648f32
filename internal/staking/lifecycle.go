package staking

import (
	"fmt"
	"math"
	"time"

	"StakeVault/internal/model"
)

// Deposit stakes amount for account. Yield pending on the existing stake is
// compounded first; if the pool cannot cover it the whole deposit fails and
// the account must leave through EmergencyExit. Every deposit restarts the
// yield-start delay for the entire balance.
func (e *Engine) Deposit(account string, amount uint64, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount == 0 {
		return model.ErrInvalidAmount
	}
	ts := now.Unix()
	st := e.accounts[account]

	yield := e.accrue(st, ts)
	if yield > 0 {
		if err := e.pool.Covers(yield); err != nil {
			return fmt.Errorf("deposit %s: %w", account, err)
		}
	}
	if amount > math.MaxUint64-yield || st.Amount > math.MaxUint64-amount-yield {
		return fmt.Errorf("deposit %s: balance overflow: %w", account, model.ErrInvalidAmount)
	}
	if err := e.pool.Collect(account, amount); err != nil {
		return fmt.Errorf("deposit %s: %w", account, err)
	}
	evts := []model.Event{{Kind: model.EventDeposited, Account: account, Amount: amount}}
	if yield > 0 {
		if err := e.pool.Compound(yield); err != nil {
			// Covered above under the same lock.
			return fmt.Errorf("deposit %s: %w", account, err)
		}
		evts = append(evts, model.Event{Kind: model.EventYieldRestaked, Account: account, Amount: yield})
	}

	st.Amount += amount + yield
	st.LastAccrualTime = ts
	st.FirstDeposit = true
	st.UnstakeRequestTime = 0
	st.EmergencyArmed = false
	e.accounts[account] = st

	e.commit(now, evts...)
	return nil
}

// RequestUnstake starts the cooldown and freezes accrual at now.
func (e *Engine) RequestUnstake(account string, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.accounts[account]
	if st.Amount == 0 {
		return model.ErrNoStake
	}
	if st.UnstakeRequestTime != 0 {
		return model.ErrAlreadyPending
	}
	st.UnstakeRequestTime = now.Unix()
	e.accounts[account] = st

	e.commit(now, model.Event{Kind: model.EventUnstakeRequested, Account: account, Amount: st.Amount})
	return nil
}

// Withdraw pays principal plus yield once the cooldown has elapsed and
// returns the total paid.
func (e *Engine) Withdraw(account string, now time.Time) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.accounts[account]
	if st.Amount == 0 {
		return 0, model.ErrNoStake
	}
	if st.UnstakeRequestTime == 0 {
		return 0, model.ErrNotPending
	}
	ts := now.Unix()
	if ts <= st.UnstakeRequestTime+e.cooldown {
		return 0, fmt.Errorf("%w: until %s", model.ErrStillInCooldown,
			time.Unix(st.UnstakeRequestTime+e.cooldown, 0).UTC().Format(time.RFC3339))
	}

	yield := e.accrue(st, ts)
	if err := e.pool.Payout(account, yield, st.Amount); err != nil {
		return 0, fmt.Errorf("withdraw %s: %w", account, err)
	}
	total := st.Amount + yield
	delete(e.accounts, account)

	e.commit(now, model.Event{Kind: model.EventWithdrawn, Account: account, Amount: total})
	return total, nil
}

// Claim pays out pending yield and returns it. Zero yield is a no-op.
func (e *Engine) Claim(account string, now time.Time) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ts := now.Unix()
	st := e.accounts[account]
	yield := e.accrue(st, ts)
	if yield == 0 {
		return 0, nil
	}
	if err := e.pool.Payout(account, yield, 0); err != nil {
		return 0, fmt.Errorf("claim %s: %w", account, err)
	}
	st.LastAccrualTime = ts
	st.FirstDeposit = false
	e.accounts[account] = st

	e.commit(now, model.Event{Kind: model.EventYieldClaimed, Account: account, Amount: yield})
	return yield, nil
}

// ClaimAndRestake adds pending yield to the stake without moving ledger funds.
// It cancels a pending unstake and does not restart the yield-start delay.
func (e *Engine) ClaimAndRestake(account string, now time.Time) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ts := now.Unix()
	st := e.accounts[account]
	yield := e.accrue(st, ts)
	if yield == 0 {
		return 0, model.ErrNoYield
	}
	if st.Amount > math.MaxUint64-yield {
		return 0, fmt.Errorf("restake %s: balance overflow: %w", account, model.ErrInvalidAmount)
	}
	if err := e.pool.Compound(yield); err != nil {
		return 0, fmt.Errorf("restake %s: %w", account, err)
	}
	st.Amount += yield
	st.LastAccrualTime = ts
	st.UnstakeRequestTime = 0
	st.EmergencyArmed = false
	st.FirstDeposit = false
	e.accounts[account] = st

	e.commit(now, model.Event{Kind: model.EventYieldRestaked, Account: account, Amount: yield})
	return yield, nil
}
