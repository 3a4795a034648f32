package fund

import (
	"fmt"
	"math"

	"StakeVault/internal/ledger"
	"StakeVault/internal/model"
)

// Pool is the rewards pool accountant: it moves ledger funds in and out of the
// vault and keeps the pool counters in step with every movement.
// Counters change only after the ledger transfer succeeds.
// Not safe for concurrent use; the staking engine serializes access.
type Pool struct {
	state *model.PoolState
	token ledger.Token
	vault string
}

// NewPool wraps state. The pool mutates state in place.
func NewPool(state *model.PoolState, token ledger.Token, vault string) *Pool {
	return &Pool{state: state, token: token, vault: vault}
}

// State returns a copy of the pool counters.
func (p *Pool) State() model.PoolState {
	return *p.state
}

// TopUp pulls amount from the funder and makes it available for yield payouts.
func (p *Pool) TopUp(from string, amount uint64) error {
	if amount == 0 {
		return model.ErrInvalidAmount
	}
	if p.state.AvailableYield > math.MaxUint64-amount {
		return fmt.Errorf("top up %d: %w", amount, model.ErrInvalidAmount)
	}
	if err := ledger.Pull(p.token, from, p.vault, amount); err != nil {
		return err
	}
	p.state.AvailableYield += amount
	return nil
}

// Covers reports whether yield can be paid from the pool.
func (p *Pool) Covers(yield uint64) error {
	if yield > p.state.AvailableYield {
		return fmt.Errorf("%w: yield %d, available %d", model.ErrInsufficientPool, yield, p.state.AvailableYield)
	}
	return nil
}

// Collect pulls a deposit into the vault.
func (p *Pool) Collect(from string, amount uint64) error {
	if amount == 0 {
		return model.ErrInvalidAmount
	}
	if err := ledger.Pull(p.token, from, p.vault, amount); err != nil {
		return err
	}
	p.state.TotalDeposited += amount
	return nil
}

// Compound converts yield into principal without moving ledger funds.
func (p *Pool) Compound(yield uint64) error {
	if err := p.Covers(yield); err != nil {
		return err
	}
	p.state.AvailableYield -= yield
	p.state.TotalYieldPaid += yield
	p.state.TotalDeposited += yield
	return nil
}

// Payout sends yield plus principal to the recipient in one transfer.
// It never pays partially: either the whole amount moves or nothing changes.
func (p *Pool) Payout(to string, yield, principal uint64) error {
	if err := p.Covers(yield); err != nil {
		return err
	}
	if principal > p.state.TotalDeposited {
		return fmt.Errorf("payout principal %d exceeds deposited %d", principal, p.state.TotalDeposited)
	}
	if yield > math.MaxUint64-principal {
		return fmt.Errorf("payout %d+%d: %w", yield, principal, model.ErrInvalidAmount)
	}
	if total := yield + principal; total > 0 {
		if err := ledger.Send(p.token, to, total); err != nil {
			return err
		}
	}
	p.state.AvailableYield -= yield
	p.state.TotalYieldPaid += yield
	p.state.TotalDeposited -= principal
	return nil
}

// Refund returns principal only. Yield counters are untouched, so it works
// regardless of pool solvency.
func (p *Pool) Refund(to string, principal uint64) error {
	if principal > p.state.TotalDeposited {
		return fmt.Errorf("refund %d exceeds deposited %d", principal, p.state.TotalDeposited)
	}
	if err := ledger.Send(p.token, to, principal); err != nil {
		return err
	}
	p.state.TotalDeposited -= principal
	return nil
}
