package staking

import (
	"fmt"

	"StakeVault/internal/fund"
	"StakeVault/internal/ledger"
	"StakeVault/internal/model"
)

// Open restores the engine and its in-process ledger from the state file at
// path. Committed operations are written back to the same file.
//
// When the file holds no program yet, initState builds the initial state, which is
// saved immediately. A nil initState makes a missing program an error.
func Open(path string, initState func() (*model.EngineState, error), opts ...Option) (*Engine, *ledger.Memory, error) {
	vs, err := fund.LoadState(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load state: %w", err)
	}
	fresh := vs.Engine.ProgramStart == 0 && len(vs.Engine.Periods) == 0
	if fresh {
		if initState == nil {
			return nil, nil, fmt.Errorf("no staking program in %s", path)
		}
		st, err := initState()
		if err != nil {
			return nil, nil, err
		}
		vs.Engine = *st
	}

	mem := ledger.NewMemory(vs.Engine.Vault, vs.Balances)
	store := fund.NewFileStore(path, mem)
	opts = append(opts, WithPersister(store))
	e, err := New(&vs.Engine, mem, opts...)
	if err != nil {
		return nil, nil, err
	}
	if fresh {
		if err := store.Persist(e.Snapshot()); err != nil {
			return nil, nil, err
		}
	}
	return e, mem, nil
}
