package main

import (
	"context"
	"flag"
	"os"

	"finance/internal/backend"
	"finance/internal/cli"
	applog "finance/internal/log"
	"finance/internal/services"
	"finance/internal/worker"
)

func main() {
	configFile := flag.String("config", "", "optional config file (yaml, json or toml)")
	flag.Parse()

	ctx, stop := cli.ShutdownContext(context.Background())
	defer stop()

	logger, cfg, b := cli.Bootstrap(ctx, *configFile)
	defer b.Close()

	logger.Info("Starting recurring-worker",
		applog.FieldOperation, applog.OpStartup,
		"interval", cfg.RecurringInterval,
		"sqlite_db", cfg.SQLiteDBPath,
		"amqp_enabled", b.AMQP != nil,
		"sheets_enabled", cfg.SheetsEnabled())

	var reports worker.ReportSink
	if cfg.SheetsEnabled() {
		backendCfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			logger.Error("Invalid backend configuration", applog.FieldError, err)
			os.Exit(1)
		}
		writer, err := backend.NewFactory(logger.Logger).ReportWriter(ctx, backendCfg)
		if err != nil {
			logger.Error("Failed to initialize report writer", applog.FieldError, err)
			os.Exit(1)
		}
		reports = services.NewReportSync(b.Summary, writer, services.ReportSyncConfig{
			FlushInterval: cfg.ReportInterval,
		})
	}

	// Without a broker the worker still reconciles on its timer.
	var consumer worker.Consumer
	if b.AMQP != nil {
		consumer = b.AMQP
	}

	w := worker.NewRecurringWorker(b.Recurring, reports, consumer, cfg.RecurringInterval, logger)
	if err := w.Run(ctx); err != nil {
		logger.Error("Recurring worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring-worker shutdown complete", applog.FieldOperation, applog.OpShutdown)
}
