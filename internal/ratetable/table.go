// Package ratetable holds the quarterly annual-rate schedule of the staking program.
package ratetable

import (
	"fmt"
	"time"

	"StakeVault/internal/model"
)

// Table is an ordered, gap-free schedule of period rates.
// Entry i always starts at programStart + i*PeriodLength, so lookups are
// index arithmetic over a fixed-size array. Not safe for concurrent use.
type Table struct {
	start   int64
	entries [model.MaxPeriods]model.PeriodEntry
	n       int
}

// New creates a table whose period 0 starts at programStart with initialRateBps.
func New(programStart time.Time, initialRateBps uint64) (*Table, error) {
	if initialRateBps == 0 {
		return nil, model.ErrZeroRate
	}
	t := &Table{start: programStart.Unix()}
	t.entries[0] = model.PeriodEntry{StartTime: t.start, AnnualRateBps: initialRateBps}
	t.n = 1
	return t, nil
}

// Restore rebuilds a table from persisted entries.
func Restore(programStart int64, entries []model.PeriodEntry) (*Table, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("restore rate table: no entries")
	}
	if len(entries) > model.MaxPeriods {
		return nil, fmt.Errorf("restore rate table: %d entries exceeds %d periods", len(entries), model.MaxPeriods)
	}
	t := &Table{start: programStart}
	for i, e := range entries {
		if e.StartTime != t.periodStart(i) {
			return nil, fmt.Errorf("restore rate table: entry %d starts at %d, want %d", i, e.StartTime, t.periodStart(i))
		}
		if e.AnnualRateBps == 0 {
			return nil, fmt.Errorf("restore rate table: entry %d: %w", i, model.ErrZeroRate)
		}
		t.entries[i] = e
	}
	t.n = len(entries)
	return t, nil
}

func (t *Table) periodStart(index int) int64 {
	return t.start + int64(index)*model.PeriodLength
}

// Start is the program start time.
func (t *Table) Start() int64 { return t.start }

// End is the program end time; nothing accrues past it.
func (t *Table) End() int64 { return t.start + model.ProgramDuration }

// Len is the number of defined periods.
func (t *Table) Len() int { return t.n }

// Entry returns period i. It panics if i is out of range.
func (t *Table) Entry(i int) model.PeriodEntry {
	if i < 0 || i >= t.n {
		panic(fmt.Sprintf("ratetable: entry %d out of range [0,%d)", i, t.n))
	}
	return t.entries[i]
}

// Entries returns a copy of the defined periods in order.
func (t *Table) Entries() []model.PeriodEntry {
	out := make([]model.PeriodEntry, t.n)
	copy(out, t.entries[:t.n])
	return out
}

// NextStart returns the start of the period after i, if one is defined.
func (t *Table) NextStart(i int) (int64, bool) {
	if i+1 >= t.n {
		return 0, false
	}
	return t.entries[i+1].StartTime, true
}

// Set creates (index == Len) or overwrites (index < Len) the rate of a period
// that has not ended yet.
func (t *Table) Set(index int, annualRateBps uint64, now int64) (model.PeriodEntry, error) {
	if annualRateBps == 0 {
		return model.PeriodEntry{}, model.ErrZeroRate
	}
	if index < 0 {
		return model.PeriodEntry{}, fmt.Errorf("period %d: %w", index, model.ErrNonSequential)
	}
	start := t.periodStart(index)
	if start >= t.End() || index >= model.MaxPeriods {
		return model.PeriodEntry{}, fmt.Errorf("period %d: %w", index, model.ErrProgramEnded)
	}
	if now >= start+model.PeriodLength {
		return model.PeriodEntry{}, fmt.Errorf("period %d: %w", index, model.ErrPeriodAlreadyEnded)
	}
	if index > t.n {
		return model.PeriodEntry{}, fmt.Errorf("period %d (defined %d): %w", index, t.n, model.ErrNonSequential)
	}

	e := model.PeriodEntry{StartTime: start, AnnualRateBps: annualRateBps}
	t.entries[index] = e
	if index == t.n {
		t.n++
	}
	return e, nil
}

// Lookup returns the index of the period covering ts. Times past the last
// defined period (including past program end) map to the last index; times
// before program start map to 0.
func (t *Table) Lookup(ts int64) int {
	if ts < t.start {
		return 0
	}
	i := int((ts - t.start) / model.PeriodLength)
	if i >= t.n {
		return t.n - 1
	}
	return i
}
