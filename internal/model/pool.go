package model

import "time"

// PoolState tracks principal held and the yield liquidity available for payouts.
type PoolState struct {
	TotalDeposited uint64    `json:"total_deposited"`
	TotalYieldPaid uint64    `json:"total_yield_paid"`
	AvailableYield uint64    `json:"available_yield"`
	UpdatedAt      time.Time `json:"updated_at"`
}
