package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"StakeVault/internal/config"
	"StakeVault/internal/model"
	"StakeVault/internal/notifier"
	"StakeVault/internal/recorder"
	"StakeVault/internal/scheduler"
	"StakeVault/internal/staking"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] StakeVault monitor starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Restore the engine once so a fresh deployment gets its state file.
	eng, _, err := staking.Open(cfg.State.File, func() (*model.EngineState, error) {
		sc, err := cfg.StakingConfig()
		if err != nil {
			return nil, err
		}
		return staking.NewState(sc)
	})
	if err != nil {
		log.Fatalf("[FATAL] open staking state: %v", err)
	}
	log.Printf("[INFO] program runs until %s, %d stakers", eng.ProgramEnd().Format("2006-01-02"), len(eng.Accounts()))

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var alerts scheduler.Alerts
	alertsDone := make(chan struct{})
	if cfg.NotifierEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		alerter := notifier.NewAlerter(tn, 64)
		alerts = alerter
		go func() {
			alerter.Run(ctx)
			close(alertsDone)
		}()
	} else {
		log.Println("[WARN] telegram not configured, alerts disabled")
		close(alertsDone)
	}

	// Every job re-reads the state file, which vaultctl may have changed.
	load := func() (*staking.Engine, error) {
		e, _, err := staking.Open(cfg.State.File, nil)
		return e, err
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, load, alerts, rec, cfg.Program.Decimals)
	if err := sched.RegisterAll(cfg.Schedule.SolvencyCron, cfg.Schedule.SnapshotCron, cfg.Schedule.PeriodCron, cfg.Schedule.EventsCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing all tasks now")
		go sched.RunAllNow()
	}

	log.Println("[INFO] StakeVault monitor is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	sched.Stop()
	cancel()
	<-alertsDone
	log.Println("[INFO] StakeVault monitor stopped")
}
