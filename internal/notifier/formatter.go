package notifier

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"StakeVault/internal/model"
)

// FormatAmount renders a base-unit amount with the token's decimals.
func FormatAmount(amount uint64, decimals int32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -decimals).String()
}

// FormatRate renders basis points as an annual percentage.
func FormatRate(bps uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(bps), -2).StringFixed(2) + "%"
}

func formatUnix(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04")
}

// PoolView is everything shown by the pool status message.
type PoolView struct {
	Pool        model.PoolState
	Liabilities uint64
	Accounts    int
	PeriodIndex int
	Period      model.PeriodEntry
	ProgramEnd  time.Time
}

// FormatPoolStatus formats the rewards pool for display.
func FormatPoolStatus(v PoolView, decimals int32) string {
	var b strings.Builder
	b.WriteString("📦 <b>Rewards pool</b>\n\n")
	b.WriteString(fmt.Sprintf("Principal staked: %s\n", FormatAmount(v.Pool.TotalDeposited, decimals)))
	b.WriteString(fmt.Sprintf("Available yield: %s\n", FormatAmount(v.Pool.AvailableYield, decimals)))
	b.WriteString(fmt.Sprintf("Yield paid: %s\n", FormatAmount(v.Pool.TotalYieldPaid, decimals)))
	b.WriteString(fmt.Sprintf("Owed now: %s\n", FormatAmount(v.Liabilities, decimals)))
	b.WriteString(fmt.Sprintf("Stakers: %d\n", v.Accounts))
	b.WriteString(fmt.Sprintf("Period %d: %s APR since %s\n", v.PeriodIndex, FormatRate(v.Period.AnnualRateBps), formatUnix(v.Period.StartTime)))
	b.WriteString(fmt.Sprintf("Program ends: %s\n", v.ProgramEnd.UTC().Format("2006-01-02 15:04")))
	if !v.Pool.UpdatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Updated: %s\n", v.Pool.UpdatedAt.UTC().Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatRates lists the defined periods, marking the current one.
func FormatRates(entries []model.PeriodEntry, current int) string {
	var b strings.Builder
	b.WriteString("📈 <b>Rate schedule</b>\n\n")
	for i, e := range entries {
		marker := "  "
		if i == current {
			marker = "▶ "
		}
		b.WriteString(fmt.Sprintf("%s#%d %s  %s\n", marker, i, formatUnix(e.StartTime), FormatRate(e.AnnualRateBps)))
	}
	if current >= len(entries) && len(entries) > 0 {
		b.WriteString(fmt.Sprintf("\nPeriod %d inherits %s\n", current, FormatRate(entries[len(entries)-1].AnnualRateBps)))
	}
	return b.String()
}

// StakeView is everything shown for a single account.
type StakeView struct {
	Account  string
	Stake    model.AccountStake
	Pending  uint64
	Cooldown time.Duration
}

// FormatStake formats an account's stake for display.
func FormatStake(v StakeView, decimals int32) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("👤 <b>%s</b>\n\n", v.Account))
	phase := v.Stake.Phase()
	if phase == model.PhaseEmpty {
		b.WriteString("No active stake\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Principal: %s\n", FormatAmount(v.Stake.Amount, decimals)))
	b.WriteString(fmt.Sprintf("Pending yield: %s\n", FormatAmount(v.Pending, decimals)))
	b.WriteString(fmt.Sprintf("Phase: %s\n", phase))
	b.WriteString(fmt.Sprintf("Accruing since: %s\n", formatUnix(v.Stake.LastAccrualTime)))
	if v.Stake.UnstakeRequestTime != 0 {
		ready := v.Stake.UnstakeRequestTime + int64(v.Cooldown/time.Second)
		b.WriteString(fmt.Sprintf("Unstake requested: %s\n", formatUnix(v.Stake.UnstakeRequestTime)))
		b.WriteString(fmt.Sprintf("Withdrawable after: %s\n", formatUnix(ready)))
	}
	return b.String()
}

var eventIcons = map[model.EventKind]string{
	model.EventDeposited:          "📥",
	model.EventUnstakeRequested:   "⏳",
	model.EventWithdrawn:          "📤",
	model.EventYieldClaimed:       "💰",
	model.EventYieldRestaked:      "🔁",
	model.EventRateUpdated:        "📈",
	model.EventPoolToppedUp:       "🏦",
	model.EventEmergencyWithdrawn: "🚨",
	model.EventParamsUpdated:      "⚙️",
}

// FormatEvent formats a single committed event as a one-line alert.
func FormatEvent(evt model.Event, decimals int32) string {
	icon, ok := eventIcons[evt.Kind]
	if !ok {
		icon = "•"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s</b>", icon, evt.Kind))
	if evt.Account != "" {
		b.WriteString(" " + evt.Account)
	}
	switch evt.Kind {
	case model.EventRateUpdated:
		b.WriteString(fmt.Sprintf(" period %d → %s", evt.PeriodIndex, FormatRate(evt.RateBps)))
	case model.EventParamsUpdated:
	default:
		b.WriteString(" " + FormatAmount(evt.Amount, decimals))
	}
	if evt.Note != "" {
		b.WriteString(" (" + evt.Note + ")")
	}
	if !evt.At.IsZero() {
		b.WriteString(fmt.Sprintf(" | %s", evt.At.UTC().Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatEvents formats recent events newest first.
func FormatEvents(evts []model.Event, decimals int32) string {
	if len(evts) == 0 {
		return "No events recorded yet"
	}
	var b strings.Builder
	b.WriteString("🧾 <b>Recent events</b>\n\n")
	for _, e := range evts {
		b.WriteString(FormatEvent(e, decimals))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatSolvencyAlert warns that owed yield exceeds what the pool can pay.
func FormatSolvencyAlert(pool model.PoolState, liabilities uint64, decimals int32) string {
	short := liabilities - pool.AvailableYield
	return fmt.Sprintf("⚠️ <b>Pool undercollateralized</b>\n\nOwed: %s\nAvailable: %s\nShortfall: %s\nClaims will fail until the pool is topped up.",
		FormatAmount(liabilities, decimals), FormatAmount(pool.AvailableYield, decimals), FormatAmount(short, decimals))
}

// FormatPeriodWarning warns that an upcoming period has no explicit rate.
func FormatPeriodWarning(index int, start int64, inheritedBps uint64) string {
	return fmt.Sprintf("🗓 <b>Period %d has no rate</b>\n\nStarts: %s\nIt will inherit %s unless a rate is set.",
		index, formatUnix(start), FormatRate(inheritedBps))
}
