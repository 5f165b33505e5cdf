package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dcastano/btcpayd/config"
	"github.com/dcastano/btcpayd/internal/adapters/chain"
	"github.com/dcastano/btcpayd/internal/adapters/notify"
	"github.com/dcastano/btcpayd/internal/adapters/prefs"
	"github.com/dcastano/btcpayd/internal/adapters/storage"
	"github.com/dcastano/btcpayd/internal/domain"
	"github.com/dcastano/btcpayd/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "reconcile, run one tick and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full feed tables each tick (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("btcpayd starting",
		"config", *configPath,
		"tick", cfg.TickInterval(),
		"base_asset", cfg.Wallet.BaseAsset,
		"auto_pay", cfg.Wallet.AutoPay,
		"once", *once,
	)

	client := chain.NewClient(cfg.API.Base)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole(*table)
	preferences := prefs.NewStore(cfg.Wallet.AutoPay)

	sched := scheduler.New(
		scheduler.Config{
			Addresses:            cfg.Wallet.Addresses,
			BaseAsset:            cfg.Wallet.BaseAsset,
			EligibilityThreshold: int64(cfg.Scheduler.EligibilityThreshold),
			ExpiryMargin:         int64(cfg.Scheduler.ExpiryMargin),
			TickInterval:         cfg.TickInterval(),
			BlockTime:            cfg.BlockTime(),
		},
		client,        // chain query
		client,        // balance query
		client,        // pending actions
		client,        // broadcaster
		preferences,   // auto-pay flag
		deferAll{},    // without a UI, non-auto payments wait for manual completion
		notifier,
		store,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := sched.Reconcile(ctx); err != nil {
		slog.Error("reconcile failed", "err", err)
		os.Exit(1)
	}

	if *once {
		if err := sched.Tick(ctx); err != nil {
			slog.Error("tick failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := sched.Run(ctx); err != nil {
		slog.Error("scheduler exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("btcpayd stopped cleanly")
}

// deferAll implements ports.PaymentDecider for headless runs: every prompt
// answers "hold off", leaving the payment in the waiting feed.
type deferAll struct{}

func (deferAll) Decide(_ context.Context, _ domain.PaymentRequirement) domain.Decision {
	return domain.DecisionDefer
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
