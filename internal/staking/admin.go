package staking

import (
	"fmt"
	"time"

	"StakeVault/internal/model"
)

func (e *Engine) authorize(caller string) error {
	if caller != e.admin {
		return fmt.Errorf("%w: %s is not the admin", model.ErrUnauthorized, caller)
	}
	return nil
}

// SetPeriodRate creates or overwrites the annual rate of a period that has not ended.
func (e *Engine) SetPeriodRate(caller string, index int, annualRateBps uint64, now time.Time) (model.PeriodEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.authorize(caller); err != nil {
		return model.PeriodEntry{}, err
	}
	entry, err := e.table.Set(index, annualRateBps, now.Unix())
	if err != nil {
		return model.PeriodEntry{}, err
	}
	e.commit(now, model.Event{
		Kind:        model.EventRateUpdated,
		PeriodIndex: index,
		RateBps:     entry.AnnualRateBps,
		PeriodStart: entry.StartTime,
	})
	return entry, nil
}

// SetCooldown changes the wait between an unstake request and withdrawal.
// It applies to pending requests too.
func (e *Engine) SetCooldown(caller string, d time.Duration, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.authorize(caller); err != nil {
		return err
	}
	s, err := lockSeconds(d)
	if err != nil {
		return fmt.Errorf("cooldown %s: %w", d, err)
	}
	e.cooldown = s
	e.commit(now, model.Event{Kind: model.EventParamsUpdated, Note: fmt.Sprintf("cooldown=%s", d)})
	return nil
}

// SetYieldStartDelay changes the wait after a deposit before yield accrues.
func (e *Engine) SetYieldStartDelay(caller string, d time.Duration, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.authorize(caller); err != nil {
		return err
	}
	s, err := lockSeconds(d)
	if err != nil {
		return fmt.Errorf("yield start delay %s: %w", d, err)
	}
	e.delay = s
	e.commit(now, model.Event{Kind: model.EventParamsUpdated, Note: fmt.Sprintf("yield_start_delay=%s", d)})
	return nil
}

// TopUp moves amount from the admin into the rewards pool.
func (e *Engine) TopUp(caller string, amount uint64, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.authorize(caller); err != nil {
		return err
	}
	if err := e.pool.TopUp(caller, amount); err != nil {
		return fmt.Errorf("top up: %w", err)
	}
	e.commit(now, model.Event{Kind: model.EventPoolToppedUp, Account: caller, Amount: amount})
	return nil
}
