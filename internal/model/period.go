package model

const (
	SecondsPerYear  int64 = 365 * 24 * 60 * 60
	PeriodLength    int64 = 90 * 24 * 60 * 60
	ProgramDuration int64 = 5 * SecondsPerYear

	// MaxPeriods is the number of periods whose start lies before program end.
	MaxPeriods = int((ProgramDuration + PeriodLength - 1) / PeriodLength)

	// BasisPoints is 100% expressed in bps.
	BasisPoints uint64 = 10_000

	// MaxLockTime bounds the cooldown and the yield-start delay.
	MaxLockTime int64 = 30 * 24 * 60 * 60
)

// PeriodEntry is one priced period of the rate schedule.
type PeriodEntry struct {
	StartTime     int64  `json:"start_time"`
	AnnualRateBps uint64 `json:"annual_rate_bps"`
}
