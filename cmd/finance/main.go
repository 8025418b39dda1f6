package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finance/internal/cache"
	"finance/internal/cli"
	apphttp "finance/internal/http"
	applog "finance/internal/log"
)

func main() {
	configFile := flag.String("config", "", "optional config file (yaml, json or toml)")
	flag.Parse()

	ctx, stop := cli.ShutdownContext(context.Background())
	defer stop()

	logger, cfg, b := cli.Bootstrap(ctx, *configFile)
	defer b.Close()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Ledger:      b.Ledger,
		Summary:     b.Summary,
		Recurring:   b.Recurring,
		Backup:      b.Backup,
		Preferences: b.Preferences,
		Ready:       b.Store.Ping,
	}, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return cache.NewJanitor(b.Summaries).Run(gctx, cfg.SummaryCacheTTL)
	})

	g.Go(func() error {
		logger.Info("Starting finance server",
			applog.FieldOperation, applog.OpStartup,
			"port", cfg.Port,
			"amqp_enabled", b.AMQP != nil,
			"rate_limit", cfg.RateLimitPerMinute)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
