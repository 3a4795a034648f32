package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"StakeVault/internal/config"
	"StakeVault/internal/fund"
	"StakeVault/internal/ledger"
	"StakeVault/internal/model"
	"StakeVault/internal/recorder"
	"StakeVault/internal/staking"
)

var app = newApp()

// Commonly used command line flags.
var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "YAML config used by init",
		Value:   "configs/config.yaml",
		EnvVars: []string{"CONFIG_PATH"},
	}
	stateFlag = &cli.StringFlag{
		Name:    "state",
		Usage:   "engine state file",
		Value:   "data/vault_state.json",
		EnvVars: []string{"STATE_FILE"},
	}
	dbFlag = &cli.StringFlag{
		Name:    "db",
		Usage:   "record events to this SQLite database",
		EnvVars: []string{"SQLITE_PATH"},
	}
	atFlag = &cli.StringFlag{
		Name:  "at",
		Usage: "operation time as RFC 3339 (default now)",
	}
	decimalsFlag = &cli.IntFlag{
		Name:  "decimals",
		Usage: "token decimals used for display",
		Value: 6,
	}
	accountFlag = &cli.StringFlag{
		Name:     "account",
		Aliases:  []string{"a"},
		Usage:    "calling account",
		Required: true,
	}
	explainFlag = &cli.BoolFlag{
		Name:  "explain",
		Usage: "print the per-period breakdown",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "vaultctl",
		Usage: "operate a fixed-term staking vault",
		Flags: []cli.Flag{configFlag, stateFlag, dbFlag, atFlag, decimalsFlag},
		Commands: []*cli.Command{
			commandInit,
			commandMint,
			commandDeposit,
			commandUnstake,
			commandWithdraw,
			commandClaim,
			commandRestake,
			commandEmergencyExit,
			commandSetRate,
			commandSetCooldown,
			commandSetDelay,
			commandTopUp,
			commandShow,
			commandAccrue,
		},
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// opTime returns --at or the current time.
func opTime(ctx *cli.Context) (time.Time, error) {
	v := ctx.String(atFlag.Name)
	if v == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at: %w", err)
	}
	return t, nil
}

func parseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	return v, nil
}

// session is one opened engine plus the resources closed after the command.
type session struct {
	engine *staking.Engine
	ledger *ledger.Memory
	path   string
	rec    *recorder.SQLiteRecorder
	now    time.Time
}

func (s *session) close() {
	if s.rec != nil {
		s.rec.Close()
	}
}

// persist writes balances changed outside an engine operation.
func (s *session) persist() error {
	return fund.NewFileStore(s.path, s.ledger).Persist(s.engine.Snapshot())
}

func open(ctx *cli.Context, initState func() (*model.EngineState, error)) (*session, error) {
	now, err := opTime(ctx)
	if err != nil {
		return nil, err
	}
	s := &session{path: ctx.String(stateFlag.Name), now: now}
	var opts []staking.Option
	if db := ctx.String(dbFlag.Name); db != "" {
		if s.rec, err = recorder.NewSQLiteRecorder(db); err != nil {
			return nil, err
		}
		opts = append(opts, staking.WithObserver(s.rec.Observe))
	}
	opts = append(opts, staking.WithObserver(func(evt model.Event) {
		fmt.Fprintf(ctx.App.Writer, "event %s %s %d\n", evt.Kind, evt.Account, evt.Amount)
	}))
	s.engine, s.ledger, err = staking.Open(s.path, initState, opts...)
	if err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// run opens the engine, applies fn and reports a classified failure.
func run(fn func(ctx *cli.Context, s *session) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		s, err := open(ctx, nil)
		if err != nil {
			return err
		}
		defer s.close()
		if err := fn(ctx, s); err != nil {
			if kind := model.KindOf(err); kind != model.KindUnknown {
				return fmt.Errorf("%s error: %w", kind, err)
			}
			return err
		}
		return nil
	}
}

func loadStakingConfig(ctx *cli.Context) (staking.Config, error) {
	cfg, err := config.Load(ctx.String(configFlag.Name))
	if err != nil {
		return staking.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return staking.Config{}, err
	}
	return cfg.StakingConfig()
}
