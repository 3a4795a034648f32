package model

import "time"

// EngineState is everything the staking engine needs to survive a restart.
type EngineState struct {
	ProgramStart    int64                   `json:"program_start"`
	Admin           string                  `json:"admin"`
	Vault           string                  `json:"vault"`
	Cooldown        int64                   `json:"cooldown"`
	YieldStartDelay int64                   `json:"yield_start_delay"`
	Periods         []PeriodEntry           `json:"periods"`
	Accounts        map[string]AccountStake `json:"accounts"`
	Pool            PoolState               `json:"pool"`
}

// VaultState is the on-disk state file: the engine plus the in-process ledger balances.
type VaultState struct {
	Engine    EngineState       `json:"engine"`
	Balances  map[string]uint64 `json:"balances"`
	UpdatedAt time.Time         `json:"updated_at"`
}
