// Package staking drives the per-account stake lifecycle on top of the period
// rate table, the accrual calculator and the rewards pool.
//
// Every operation runs under a single engine lock: it validates, performs at
// most one ledger movement, and only then commits account and pool state,
// persists it and emits events. A failed check or transfer leaves no trace.
package staking

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"StakeVault/internal/calculator"
	"StakeVault/internal/fund"
	"StakeVault/internal/ledger"
	"StakeVault/internal/model"
	"StakeVault/internal/ratetable"
)

// Observer receives events in commit order, under the engine lock.
// It must not call back into the engine.
type Observer func(evt model.Event)

// Persister stores the engine state after every committed operation.
type Persister interface {
	Persist(st *model.EngineState) error
}

// Config describes a fresh staking program.
type Config struct {
	Admin           string
	Vault           string
	ProgramStart    time.Time
	InitialRateBps  uint64
	Cooldown        time.Duration
	YieldStartDelay time.Duration
}

// NewState builds the initial engine state for cfg.
func NewState(cfg Config) (*model.EngineState, error) {
	if cfg.Admin == "" || cfg.Vault == "" {
		return nil, fmt.Errorf("admin and vault addresses are required")
	}
	cooldown, err := lockSeconds(cfg.Cooldown)
	if err != nil {
		return nil, fmt.Errorf("cooldown: %w", err)
	}
	delay, err := lockSeconds(cfg.YieldStartDelay)
	if err != nil {
		return nil, fmt.Errorf("yield start delay: %w", err)
	}
	tbl, err := ratetable.New(cfg.ProgramStart, cfg.InitialRateBps)
	if err != nil {
		return nil, fmt.Errorf("initial rate: %w", err)
	}
	return &model.EngineState{
		ProgramStart:    tbl.Start(),
		Admin:           cfg.Admin,
		Vault:           cfg.Vault,
		Cooldown:        cooldown,
		YieldStartDelay: delay,
		Periods:         tbl.Entries(),
		Accounts:        make(map[string]model.AccountStake),
	}, nil
}

// Option customizes an Engine.
type Option func(*Engine)

// WithObserver subscribes o to committed events.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithPersister stores state after each committed operation.
func WithPersister(p Persister) Option {
	return func(e *Engine) { e.persister = p }
}

// Engine is the stake lifecycle controller.
type Engine struct {
	mu        sync.Mutex
	admin     string
	vault     string
	cooldown  int64
	delay     int64
	table     *ratetable.Table
	poolState model.PoolState
	pool      *fund.Pool
	accounts  map[string]model.AccountStake
	observers []Observer
	persister Persister
}

// New restores an engine from st, moving funds through token.
func New(st *model.EngineState, token ledger.Token, opts ...Option) (*Engine, error) {
	tbl, err := ratetable.Restore(st.ProgramStart, st.Periods)
	if err != nil {
		return nil, err
	}
	if st.Cooldown < 0 || st.Cooldown > model.MaxLockTime {
		return nil, fmt.Errorf("cooldown %ds: %w", st.Cooldown, model.ErrExceedsMaxLock)
	}
	if st.YieldStartDelay < 0 || st.YieldStartDelay > model.MaxLockTime {
		return nil, fmt.Errorf("yield start delay %ds: %w", st.YieldStartDelay, model.ErrExceedsMaxLock)
	}
	e := &Engine{
		admin:     st.Admin,
		vault:     st.Vault,
		cooldown:  st.Cooldown,
		delay:     st.YieldStartDelay,
		table:     tbl,
		poolState: st.Pool,
		accounts:  make(map[string]model.AccountStake, len(st.Accounts)),
	}
	for acct, s := range st.Accounts {
		if s.Amount == 0 {
			continue
		}
		e.accounts[acct] = s
	}
	e.pool = fund.NewPool(&e.poolState, token, st.Vault)
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func lockSeconds(d time.Duration) (int64, error) {
	if d < 0 {
		return 0, model.ErrInvalidAmount
	}
	s := int64(d / time.Second)
	if s > model.MaxLockTime {
		return 0, model.ErrExceedsMaxLock
	}
	return s, nil
}

func (e *Engine) accrue(st model.AccountStake, ts int64) uint64 {
	return calculator.Accrue(e.table, st, ts, e.delay)
}

// commit persists the state and emits evts. Called with e.mu held.
func (e *Engine) commit(now time.Time, evts ...model.Event) {
	e.poolState.UpdatedAt = now
	if e.persister != nil {
		if err := e.persister.Persist(e.snapshot()); err != nil {
			log.Printf("[ERROR] failed to persist engine state: %v", err)
		}
	}
	for _, evt := range evts {
		evt.ID = uuid.NewString()
		evt.At = now
		for _, o := range e.observers {
			o(evt)
		}
	}
}

func (e *Engine) snapshot() *model.EngineState {
	accounts := make(map[string]model.AccountStake, len(e.accounts))
	for k, v := range e.accounts {
		accounts[k] = v
	}
	return &model.EngineState{
		ProgramStart:    e.table.Start(),
		Admin:           e.admin,
		Vault:           e.vault,
		Cooldown:        e.cooldown,
		YieldStartDelay: e.delay,
		Periods:         e.table.Entries(),
		Accounts:        accounts,
		Pool:            e.poolState,
	}
}

// Snapshot returns a deep copy of the engine state.
func (e *Engine) Snapshot() *model.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Stake returns the account's stake record (zero if none).
func (e *Engine) Stake(account string) model.AccountStake {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accounts[account]
}

// PendingYield is the yield the account would receive at now.
func (e *Engine) PendingYield(account string, now time.Time) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accrue(e.accounts[account], now.Unix())
}

// Breakdown explains PendingYield period by period.
func (e *Engine) Breakdown(account string, now time.Time) []calculator.Segment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return calculator.Breakdown(e.table, e.accounts[account], now.Unix(), e.delay)
}

// Pool returns the pool counters.
func (e *Engine) Pool() model.PoolState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.poolState
}

// Rates returns the defined periods in order.
func (e *Engine) Rates() []model.PeriodEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.Entries()
}

// CurrentPeriod returns the index and entry pricing now.
func (e *Engine) CurrentPeriod(now time.Time) (int, model.PeriodEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.table.Lookup(now.Unix())
	return i, e.table.Entry(i)
}

// ProgramEnd is the time after which no yield accrues.
func (e *Engine) ProgramEnd() time.Time {
	return time.Unix(e.table.End(), 0).UTC()
}

// Params returns the cooldown and the yield-start delay.
func (e *Engine) Params() (cooldown, yieldStartDelay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(e.cooldown) * time.Second, time.Duration(e.delay) * time.Second
}

// Accounts returns the addresses holding a stake, sorted.
func (e *Engine) Accounts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.accounts))
	for k := range e.accounts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Liabilities is the total yield owed to all accounts at now.
func (e *Engine) Liabilities(now time.Time) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ts := now.Unix()
	var total uint64
	for _, st := range e.accounts {
		y := e.accrue(st, ts)
		if total > math.MaxUint64-y {
			return math.MaxUint64
		}
		total += y
	}
	return total
}
