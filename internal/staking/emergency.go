package staking

import (
	"fmt"
	"time"

	"StakeVault/internal/model"
)

// EmergencyOutcome tells which half of the emergency exit a call performed.
type EmergencyOutcome int

const (
	// EmergencyArmed: the cooldown started; call again once it has elapsed.
	EmergencyArmed EmergencyOutcome = iota + 1
	// EmergencyRefunded: principal was returned and the account closed.
	EmergencyRefunded
)

func (o EmergencyOutcome) String() string {
	switch o {
	case EmergencyArmed:
		return "ARMED"
	case EmergencyRefunded:
		return "REFUNDED"
	}
	return "UNKNOWN"
}

// EmergencyStep is the result of one EmergencyExit call.
type EmergencyStep struct {
	Outcome   EmergencyOutcome
	Principal uint64
	ReadyAt   time.Time
}

// EmergencyExit is the principal-only escape hatch. It is never blocked by
// pool solvency and never pays yield.
//
//	Staked                             -> EmergencyPending (arms the cooldown)
//	UnstakePending | EmergencyPending  -> Empty            (after the cooldown)
func (e *Engine) EmergencyExit(account string, now time.Time) (EmergencyStep, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.accounts[account]
	switch st.Phase() {
	case model.PhaseEmpty:
		return EmergencyStep{}, model.ErrNoStake
	case model.PhaseStaked:
		return e.armEmergency(account, st, now), nil
	default:
		return e.completeEmergency(account, st, now)
	}
}

func (e *Engine) armEmergency(account string, st model.AccountStake, now time.Time) EmergencyStep {
	st.UnstakeRequestTime = now.Unix()
	st.EmergencyArmed = true
	e.accounts[account] = st

	e.commit(now, model.Event{Kind: model.EventUnstakeRequested, Account: account, Amount: st.Amount, Note: "emergency"})
	return EmergencyStep{
		Outcome: EmergencyArmed,
		ReadyAt: time.Unix(st.UnstakeRequestTime+e.cooldown+1, 0).UTC(),
	}
}

func (e *Engine) completeEmergency(account string, st model.AccountStake, now time.Time) (EmergencyStep, error) {
	readyAt := time.Unix(st.UnstakeRequestTime+e.cooldown+1, 0).UTC()
	if now.Unix() <= st.UnstakeRequestTime+e.cooldown {
		return EmergencyStep{ReadyAt: readyAt}, fmt.Errorf("%w: until %s", model.ErrStillInCooldown, readyAt.Format(time.RFC3339))
	}
	if err := e.pool.Refund(account, st.Amount); err != nil {
		return EmergencyStep{}, fmt.Errorf("emergency exit %s: %w", account, err)
	}
	delete(e.accounts, account)

	e.commit(now, model.Event{Kind: model.EventEmergencyWithdrawn, Account: account, Amount: st.Amount})
	return EmergencyStep{Outcome: EmergencyRefunded, Principal: st.Amount, ReadyAt: readyAt}, nil
}
