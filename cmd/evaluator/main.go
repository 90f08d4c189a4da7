package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpenny18/shockwave-capital-sub003/config"
	"github.com/jpenny18/shockwave-capital-sub003/internal/adapters/metaapi"
	"github.com/jpenny18/shockwave-capital-sub003/internal/adapters/metrics"
	"github.com/jpenny18/shockwave-capital-sub003/internal/adapters/notify"
	"github.com/jpenny18/shockwave-capital-sub003/internal/adapters/risktracker"
	"github.com/jpenny18/shockwave-capital-sub003/internal/adapters/storage"
	"github.com/jpenny18/shockwave-capital-sub003/internal/api"
	"github.com/jpenny18/shockwave-capital-sub003/internal/application/evaluator"
	"github.com/jpenny18/shockwave-capital-sub003/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one evaluation batch and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full report table (default: compact 1-line)")
	jsonOut := flag.Bool("json", false, "print one JSON report per line on stdout (logs go to stderr)")
	noAPI := flag.Bool("no-api", false, "disable the HTTP reporting API")
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
	logOut := io.Writer(os.Stdout)
	if *jsonOut {
		logOut = os.Stderr
	}
	setupLogger(cfg.Log, logOut)

	serveAPI := cfg.API.Enabled && !*noAPI && !*once
	consumeTracker := cfg.RiskTracker.Enabled && !*once

	slog.Info("evaluator starting",
		"config", *configPath,
		"interval", cfg.Interval(),
		"window_days", cfg.Evaluator.WindowDays,
		"once", *once,
		"api", serveAPI,
		"risk_tracker", consumeTracker,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for _, account := range cfg.SeedAccounts() {
		if err := store.UpsertAccount(ctx, account); err != nil {
			slog.Error("failed to seed account", "account_id", account.ID, "err", err)
			os.Exit(1)
		}
	}

	client := metaapi.NewClient(metaapi.Config{
		BaseURL:    cfg.Connector.BaseURL,
		Token:      cfg.Connector.Token,
		MaxRetries: cfg.Connector.MaxRetries,
		RatePerSec: cfg.Connector.RatePerSecond,
	})

	var notifier ports.Notifier = notify.NewConsole(*table)
	if *jsonOut {
		notifier = notify.NewJSON()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(reg)

	ev := evaluator.New(evaluator.Config{
		Interval:     cfg.Interval(),
		Workers:      cfg.Evaluator.Workers,
		WindowDays:   cfg.Evaluator.WindowDays,
		FetchTimeout: cfg.FetchTimeout(),
		Once:         *once,
	}, nil, client, store, notifier, recorder, cfg.Catalog())

	g, gctx := errgroup.WithContext(ctx)

	if consumeTracker {
		tracker := risktracker.New(risktracker.DefaultOptions(cfg.RiskTracker.URL, cfg.RiskTracker.Token))
		g.Go(func() error {
			// sin tracker el evaluador sigue: solo se pierde la corroboración
			if err := ev.ConsumeRiskEvents(gctx, tracker); err != nil {
				slog.Error("risk tracker unavailable", "err", err)
			}
			return nil
		})
	}

	if serveAPI {
		server := api.NewServer(cfg.API.Addr, store, ev, reg)
		g.Go(func() error { return server.Start(gctx) })
	}

	g.Go(func() error {
		err := ev.Run(gctx)
		if *once {
			cancel()
		}
		return err
	})

	if err := g.Wait(); err != nil {
		slog.Error("evaluator exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("evaluator stopped cleanly")
}

func setupLogger(cfg config.LogConfig, w io.Writer) {
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
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}
