package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"StakeVault/internal/model"
	"StakeVault/internal/notifier"
	"StakeVault/internal/staking"
)

var commandInit = &cli.Command{
	Name:  "init",
	Usage: "create the state file from the program section of --config",
	Action: func(ctx *cli.Context) error {
		created := false
		s, err := open(ctx, func() (*model.EngineState, error) {
			sc, err := loadStakingConfig(ctx)
			if err != nil {
				return nil, err
			}
			created = true
			return staking.NewState(sc)
		})
		if err != nil {
			return err
		}
		defer s.close()
		if !created {
			return fmt.Errorf("%s already holds a program", s.path)
		}
		fmt.Fprintf(ctx.App.Writer, "program initialized, ends %s\n", s.engine.ProgramEnd().Format(time.RFC3339))
		return nil
	},
}

var commandMint = &cli.Command{
	Name:      "mint",
	Usage:     "credit test tokens to an account",
	ArgsUsage: "<account> <amount>",
	Action: run(func(ctx *cli.Context, s *session) error {
		if ctx.NArg() != 2 {
			return fmt.Errorf("usage: mint <account> <amount>")
		}
		amount, err := parseAmount(ctx.Args().Get(1))
		if err != nil {
			return err
		}
		if err := s.ledger.Mint(ctx.Args().Get(0), amount); err != nil {
			return err
		}
		if err := s.persist(); err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "balance %s\n", display(ctx, s.ledger.BalanceOf(ctx.Args().Get(0))))
		return nil
	}),
}

var commandDeposit = &cli.Command{
	Name:      "deposit",
	Usage:     "stake tokens, compounding any pending yield",
	ArgsUsage: "<amount>",
	Flags:     []cli.Flag{accountFlag},
	Action: run(func(ctx *cli.Context, s *session) error {
		amount, err := parseAmount(ctx.Args().First())
		if err != nil {
			return err
		}
		account := ctx.String(accountFlag.Name)
		if err := s.engine.Deposit(account, amount, s.now); err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "staked %s\n", display(ctx, s.engine.Stake(account).Amount))
		return nil
	}),
}

var commandUnstake = &cli.Command{
	Name:  "unstake",
	Usage: "request an unstake and start the cooldown",
	Flags: []cli.Flag{accountFlag},
	Action: run(func(ctx *cli.Context, s *session) error {
		if err := s.engine.RequestUnstake(ctx.String(accountFlag.Name), s.now); err != nil {
			return err
		}
		cooldown, _ := s.engine.Params()
		fmt.Fprintf(ctx.App.Writer, "withdrawable after %s\n", s.now.Add(cooldown).UTC().Format(time.RFC3339))
		return nil
	}),
}

var commandWithdraw = &cli.Command{
	Name:  "withdraw",
	Usage: "withdraw principal and yield after the cooldown",
	Flags: []cli.Flag{accountFlag},
	Action: run(func(ctx *cli.Context, s *session) error {
		total, err := s.engine.Withdraw(ctx.String(accountFlag.Name), s.now)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "withdrew %s\n", display(ctx, total))
		return nil
	}),
}

var commandClaim = &cli.Command{
	Name:  "claim",
	Usage: "pay out accrued yield",
	Flags: []cli.Flag{accountFlag},
	Action: run(func(ctx *cli.Context, s *session) error {
		y, err := s.engine.Claim(ctx.String(accountFlag.Name), s.now)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "claimed %s\n", display(ctx, y))
		return nil
	}),
}

var commandRestake = &cli.Command{
	Name:  "restake",
	Usage: "add accrued yield to the principal",
	Flags: []cli.Flag{accountFlag},
	Action: run(func(ctx *cli.Context, s *session) error {
		y, err := s.engine.ClaimAndRestake(ctx.String(accountFlag.Name), s.now)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "restaked %s\n", display(ctx, y))
		return nil
	}),
}

var commandEmergencyExit = &cli.Command{
	Name:  "emergency-exit",
	Usage: "arm or complete a principal-only exit",
	Description: `
The first call from a staked account starts the cooldown. A call after the
cooldown returns the principal and forfeits any yield.
`,
	Flags: []cli.Flag{accountFlag},
	Action: run(func(ctx *cli.Context, s *session) error {
		step, err := s.engine.EmergencyExit(ctx.String(accountFlag.Name), s.now)
		if err != nil {
			return err
		}
		switch step.Outcome {
		case staking.EmergencyArmed:
			fmt.Fprintf(ctx.App.Writer, "armed, call again after %s\n", step.ReadyAt.UTC().Format(time.RFC3339))
		case staking.EmergencyRefunded:
			fmt.Fprintf(ctx.App.Writer, "refunded %s\n", display(ctx, step.Principal))
		}
		return nil
	}),
}

var commandSetRate = &cli.Command{
	Name:      "set-rate",
	Usage:     "set the annual rate of a period (admin)",
	ArgsUsage: "<period-index> <bps>",
	Flags:     []cli.Flag{accountFlag},
	Action: run(func(ctx *cli.Context, s *session) error {
		if ctx.NArg() != 2 {
			return fmt.Errorf("usage: set-rate <period-index> <bps>")
		}
		index, err := strconv.Atoi(ctx.Args().Get(0))
		if err != nil {
			return fmt.Errorf("period index: %w", err)
		}
		bps, err := strconv.ParseUint(ctx.Args().Get(1), 10, 64)
		if err != nil {
			return fmt.Errorf("bps: %w", err)
		}
		entry, err := s.engine.SetPeriodRate(ctx.String(accountFlag.Name), index, bps, s.now)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "period %d from %s at %s\n", index,
			time.Unix(entry.StartTime, 0).UTC().Format(time.RFC3339), notifier.FormatRate(entry.AnnualRateBps))
		return nil
	}),
}

var commandSetCooldown = &cli.Command{
	Name:      "set-cooldown",
	Usage:     "change the unstake cooldown (admin)",
	ArgsUsage: "<duration>",
	Flags:     []cli.Flag{accountFlag},
	Action: run(func(ctx *cli.Context, s *session) error {
		d, err := time.ParseDuration(ctx.Args().First())
		if err != nil {
			return err
		}
		return s.engine.SetCooldown(ctx.String(accountFlag.Name), d, s.now)
	}),
}

var commandSetDelay = &cli.Command{
	Name:      "set-delay",
	Usage:     "change the yield-start delay (admin)",
	ArgsUsage: "<duration>",
	Flags:     []cli.Flag{accountFlag},
	Action: run(func(ctx *cli.Context, s *session) error {
		d, err := time.ParseDuration(ctx.Args().First())
		if err != nil {
			return err
		}
		return s.engine.SetYieldStartDelay(ctx.String(accountFlag.Name), d, s.now)
	}),
}

var commandTopUp = &cli.Command{
	Name:      "top-up",
	Usage:     "fund the rewards pool (admin)",
	ArgsUsage: "<amount>",
	Flags:     []cli.Flag{accountFlag},
	Action: run(func(ctx *cli.Context, s *session) error {
		amount, err := parseAmount(ctx.Args().First())
		if err != nil {
			return err
		}
		if err := s.engine.TopUp(ctx.String(accountFlag.Name), amount, s.now); err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "available yield %s\n", display(ctx, s.engine.Pool().AvailableYield))
		return nil
	}),
}

var commandShow = &cli.Command{
	Name:      "show",
	Usage:     "print the pool, the rate schedule, or one account",
	ArgsUsage: "[ <account> ]",
	Action: run(func(ctx *cli.Context, s *session) error {
		w := ctx.App.Writer
		if acct := ctx.Args().First(); acct != "" {
			st := s.engine.Stake(acct)
			fmt.Fprintf(w, "account:   %s\n", acct)
			fmt.Fprintf(w, "phase:     %s\n", st.Phase())
			fmt.Fprintf(w, "principal: %s\n", display(ctx, st.Amount))
			fmt.Fprintf(w, "pending:   %s\n", display(ctx, s.engine.PendingYield(acct, s.now)))
			fmt.Fprintf(w, "balance:   %s\n", display(ctx, s.ledger.BalanceOf(acct)))
			return nil
		}
		pool := s.engine.Pool()
		fmt.Fprintf(w, "deposited: %s\n", display(ctx, pool.TotalDeposited))
		fmt.Fprintf(w, "available: %s\n", display(ctx, pool.AvailableYield))
		fmt.Fprintf(w, "paid:      %s\n", display(ctx, pool.TotalYieldPaid))
		fmt.Fprintf(w, "owed:      %s\n", display(ctx, s.engine.Liabilities(s.now)))
		fmt.Fprintf(w, "stakers:   %d\n", len(s.engine.Accounts()))
		fmt.Fprintf(w, "ends:      %s\n", s.engine.ProgramEnd().Format(time.RFC3339))
		for i, e := range s.engine.Rates() {
			fmt.Fprintf(w, "period %2d  %s  %s\n", i, time.Unix(e.StartTime, 0).UTC().Format(time.RFC3339), notifier.FormatRate(e.AnnualRateBps))
		}
		return nil
	}),
}

var commandAccrue = &cli.Command{
	Name:  "accrue",
	Usage: "print the yield an account would receive at --at",
	Flags: []cli.Flag{accountFlag, explainFlag},
	Action: run(func(ctx *cli.Context, s *session) error {
		account := ctx.String(accountFlag.Name)
		fmt.Fprintf(ctx.App.Writer, "pending %s\n", display(ctx, s.engine.PendingYield(account, s.now)))
		if !ctx.Bool(explainFlag.Name) {
			return nil
		}
		for _, seg := range s.engine.Breakdown(account, s.now) {
			fmt.Fprintf(ctx.App.Writer, "  period %d  %s .. %s  %s  %s\n", seg.PeriodIndex,
				time.Unix(seg.From, 0).UTC().Format(time.RFC3339), time.Unix(seg.To, 0).UTC().Format(time.RFC3339),
				notifier.FormatRate(seg.RateBps), display(ctx, seg.Yield))
		}
		return nil
	}),
}

func display(ctx *cli.Context, amount uint64) string {
	return notifier.FormatAmount(amount, int32(ctx.Int(decimalsFlag.Name)))
}
