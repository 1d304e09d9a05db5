package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/journalbot/config"
	"github.com/alejandrodnm/journalbot/internal/adapters/notify"
	"github.com/alejandrodnm/journalbot/internal/adapters/storage"
	"github.com/alejandrodnm/journalbot/internal/gateway"
	"github.com/alejandrodnm/journalbot/internal/insights"
	"github.com/alejandrodnm/journalbot/internal/ports"
	"github.com/alejandrodnm/journalbot/internal/recorder"
	"github.com/alejandrodnm/journalbot/internal/risk"
)

func main() {
	configPath := flag.String("config", "", "path to config file (empty = defaults + env)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	reportUser := flag.String("report", "", "print the trade insights for a user and exit")
	checkUser := flag.String("check", "", "run a risk scan for a user, print the alerts and exit")
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

	ledger, err := storage.NewSQLiteLedger(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open ledger", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer ledger.Close()

	rec := recorder.New(ledger)
	engine := insights.New(ledger)
	monitor := risk.New(ledger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Modos one-shot de consola: reportar y salir.
	if *reportUser != "" {
		runReport(ctx, engine, *reportUser)
		return
	}
	if *checkUser != "" {
		runCheck(ctx, monitor, cfg, *checkUser)
		return
	}

	limiter := gateway.NewUserLimiter(cfg.Server.RatePerSec, cfg.Server.RateBurst)
	svc := gateway.NewService(rec, engine, monitor, limiter)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      svc.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSecs) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("journalbot listening",
			"addr", cfg.Server.Addr,
			"dsn", cfg.Storage.DSN,
			"writable", ledger.Writable(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	slog.Info("shutting down journalbot...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		os.Exit(1)
	}
	slog.Info("journalbot stopped cleanly")
}

func runReport(ctx context.Context, engine *insights.Engine, user string) {
	summary, err := engine.Compute(ctx, ports.TradeFilter{UserID: user})
	if err != nil {
		slog.Error("insights failed", "err", err, "user", user)
		os.Exit(1)
	}

	var reporter ports.Reporter = notify.NewConsole()
	if err := reporter.ReportSummary(ctx, summary); err != nil {
		slog.Error("report failed", "err", err)
		os.Exit(1)
	}
}

func runCheck(ctx context.Context, monitor *risk.Monitor, cfg *config.Config, user string) {
	report, err := monitor.Scan(ctx, user, risk.Params{
		RecentTrades:             cfg.Risk.RecentTrades,
		ConsecutiveLossThreshold: cfg.Risk.ConsecutiveLossThreshold,
		MaxTradesPerHour:         cfg.Risk.MaxTradesPerHour,
		MaxRiskPerTradePercent:   cfg.Risk.MaxRiskPerTradePercent,
		DrawdownThresholdPercent: cfg.Risk.DrawdownThresholdPercent,
	})
	if err != nil {
		slog.Error("risk scan failed", "err", err, "user", user)
		os.Exit(1)
	}

	var reporter ports.Reporter = notify.NewConsole()
	if err := reporter.ReportAlerts(ctx, report); err != nil {
		slog.Error("report failed", "err", err)
		os.Exit(1)
	}
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
