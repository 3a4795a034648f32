package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"StakeVault/internal/model"
	"StakeVault/internal/staking"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Program struct {
		Admin           string        `yaml:"admin"`
		Vault           string        `yaml:"vault"`
		Start           string        `yaml:"start"`
		InitialRateBps  uint64        `yaml:"initial_rate_bps"`
		Cooldown        time.Duration `yaml:"cooldown"`
		YieldStartDelay time.Duration `yaml:"yield_start_delay"`
		Decimals        int32         `yaml:"decimals"`
	} `yaml:"program"`
	Schedule struct {
		SolvencyCron string `yaml:"solvency_cron"`
		SnapshotCron string `yaml:"snapshot_cron"`
		PeriodCron   string `yaml:"period_cron"`
		EventsCron   string `yaml:"events_cron"`
	} `yaml:"schedule"`
	State struct {
		File string `yaml:"file"`
	} `yaml:"state"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies a dotenv file and
// environment variable overrides, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Zero is a valid cooldown and delay, so these defaults are set before
	// decoding and only replaced by keys present in the file.
	cfg.Program.Cooldown = 7 * 24 * time.Hour
	cfg.Program.YieldStartDelay = 24 * time.Hour

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	// Variables already set in the environment win over the file.
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("VAULT_ADMIN"); v != "" {
		cfg.Program.Admin = v
	}
	if v := os.Getenv("VAULT_ADDRESS"); v != "" {
		cfg.Program.Vault = v
	}
	if v := os.Getenv("PROGRAM_START"); v != "" {
		cfg.Program.Start = v
	}
	if v := os.Getenv("INITIAL_RATE_BPS"); v != "" {
		bps, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("INITIAL_RATE_BPS: %w", err)
		}
		cfg.Program.InitialRateBps = bps
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.State.File = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_SOLVENCY"); v != "" {
		cfg.Schedule.SolvencyCron = v
	}

	// Defaults
	if cfg.Program.Decimals == 0 {
		cfg.Program.Decimals = 6
	}
	if cfg.Schedule.SolvencyCron == "" {
		cfg.Schedule.SolvencyCron = "0 0 * * * *"
	}
	if cfg.Schedule.SnapshotCron == "" {
		cfg.Schedule.SnapshotCron = "0 */15 * * * *"
	}
	if cfg.Schedule.PeriodCron == "" {
		cfg.Schedule.PeriodCron = "0 0 9 * * *"
	}
	if cfg.Schedule.EventsCron == "" {
		cfg.Schedule.EventsCron = "30 * * * * *"
	}
	if cfg.State.File == "" {
		cfg.State.File = "data/vault_state.json"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stake_vault.db"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Program.Admin == "" {
		return fmt.Errorf("program.admin is required")
	}
	if c.Program.Vault == "" {
		return fmt.Errorf("program.vault is required")
	}
	if c.Program.Admin == c.Program.Vault {
		return fmt.Errorf("program.admin and program.vault must differ")
	}
	if _, err := c.ProgramStart(); err != nil {
		return err
	}
	if c.Program.InitialRateBps == 0 {
		return fmt.Errorf("program.initial_rate_bps must be positive")
	}
	maxLock := time.Duration(model.MaxLockTime) * time.Second
	if c.Program.Cooldown < 0 || c.Program.Cooldown > maxLock {
		return fmt.Errorf("program.cooldown must be within [0, %s]", maxLock)
	}
	if c.Program.YieldStartDelay < 0 || c.Program.YieldStartDelay > maxLock {
		return fmt.Errorf("program.yield_start_delay must be within [0, %s]", maxLock)
	}
	if c.Program.Decimals < 0 || c.Program.Decimals > 18 {
		return fmt.Errorf("program.decimals must be within [0, 18]")
	}
	return nil
}

// ProgramStart parses program.start as RFC 3339.
func (c *Config) ProgramStart() (time.Time, error) {
	if c.Program.Start == "" {
		return time.Time{}, fmt.Errorf("program.start is required")
	}
	t, err := time.Parse(time.RFC3339, c.Program.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("program.start: %w", err)
	}
	return t, nil
}

// StakingConfig converts the program section for staking.NewState.
func (c *Config) StakingConfig() (staking.Config, error) {
	start, err := c.ProgramStart()
	if err != nil {
		return staking.Config{}, err
	}
	return staking.Config{
		Admin:           c.Program.Admin,
		Vault:           c.Program.Vault,
		ProgramStart:    start,
		InitialRateBps:  c.Program.InitialRateBps,
		Cooldown:        c.Program.Cooldown,
		YieldStartDelay: c.Program.YieldStartDelay,
	}, nil
}

// NotifierEnabled reports whether Telegram credentials are configured.
func (c *Config) NotifierEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
