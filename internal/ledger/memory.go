package ledger

import (
	"errors"
	"math"
	"sync"
)

// Memory is an in-process token ledger bound to a vault address.
type Memory struct {
	mu       sync.Mutex
	vault    string
	balances map[string]uint64
}

// NewMemory creates a ledger whose Transfer spends from vault.
func NewMemory(vault string, balances map[string]uint64) *Memory {
	m := &Memory{vault: vault, balances: make(map[string]uint64, len(balances))}
	for k, v := range balances {
		m.balances[k] = v
	}
	return m
}

// Mint credits amount to account out of thin air.
func (m *Memory) Mint(account string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[account] > math.MaxUint64-amount {
		return errors.New("mint overflows balance")
	}
	m.balances[account] += amount
	return nil
}

func (m *Memory) Transfer(to string, amount uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(m.vault, to, amount), nil
}

func (m *Memory) TransferFrom(from, to string, amount uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(from, to, amount), nil
}

func (m *Memory) BalanceOf(account string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account]
}

// Balances returns a copy of every non-zero balance.
func (m *Memory) Balances() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.balances))
	for k, v := range m.balances {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

func (m *Memory) move(from, to string, amount uint64) bool {
	if m.balances[from] < amount || m.balances[to] > math.MaxUint64-amount {
		return false
	}
	if from == to {
		return true
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return true
}
