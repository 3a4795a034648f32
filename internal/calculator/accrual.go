package calculator

import (
	"math"

	"github.com/holiman/uint256"

	"StakeVault/internal/model"
)

// Schedule is the read-only view of a period rate table.
type Schedule interface {
	Start() int64
	Len() int
	Lookup(ts int64) int
	Entry(i int) model.PeriodEntry
	NextStart(i int) (int64, bool)
	End() int64
}

// Segment is the part of an accrual interval priced by a single period.
type Segment struct {
	PeriodIndex int
	From        int64
	To          int64
	RateBps     uint64
	Yield       uint64
}

var yieldDenominator = new(uint256.Int).SetUint64(model.BasisPoints * uint64(model.SecondsPerYear))

// Accrue returns the yield owed on stake at now.
// Each segment is truncated on its own, so the remainder is never carried.
func Accrue(s Schedule, stake model.AccountStake, now, yieldStartDelay int64) uint64 {
	total := new(uint256.Int)
	walk(s, stake, now, yieldStartDelay, func(seg Segment, y *uint256.Int) {
		total.Add(total, y)
	})
	return saturate(total)
}

// Breakdown returns the priced segments behind Accrue, in time order.
func Breakdown(s Schedule, stake model.AccountStake, now, yieldStartDelay int64) []Segment {
	var segs []Segment
	walk(s, stake, now, yieldStartDelay, func(seg Segment, y *uint256.Int) {
		seg.Yield = saturate(y)
		segs = append(segs, seg)
	})
	return segs
}

// Cutoff is the earliest of now, the unstake request and program end.
func Cutoff(s Schedule, stake model.AccountStake, now int64) int64 {
	cutoff := now
	if stake.UnstakeRequestTime != 0 && stake.UnstakeRequestTime < cutoff {
		cutoff = stake.UnstakeRequestTime
	}
	if end := s.End(); end < cutoff {
		cutoff = end
	}
	return cutoff
}

func walk(s Schedule, stake model.AccountStake, now, delay int64, fn func(Segment, *uint256.Int)) {
	if stake.Amount == 0 || s.Len() == 0 {
		return
	}
	cutoff := Cutoff(s, stake, now)

	cursor := stake.LastAccrualTime
	if stake.FirstDeposit {
		if now <= stake.LastAccrualTime+delay {
			return
		}
		cursor += delay
	}
	// No period prices time before the program starts.
	if start := s.Start(); cursor < start {
		cursor = start
	}

	amount := new(uint256.Int).SetUint64(stake.Amount)
	// At most one segment per defined period, plus one for the tail.
	for iter := 0; cursor < cutoff && iter <= model.MaxPeriods; iter++ {
		idx := s.Lookup(cursor)
		end := cutoff
		if next, ok := s.NextStart(idx); ok && next < end {
			end = next
		}
		rate := s.Entry(idx).AnnualRateBps

		y := new(uint256.Int).SetUint64(rate)
		y.Mul(y, amount)
		y.Mul(y, new(uint256.Int).SetUint64(uint64(end-cursor)))
		y.Div(y, yieldDenominator)

		fn(Segment{PeriodIndex: idx, From: cursor, To: end, RateBps: rate}, y)
		cursor = end
	}
}

func saturate(v *uint256.Int) uint64 {
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}
