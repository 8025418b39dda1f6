package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finance/internal/amqp"
	applog "finance/internal/log"
)

// Reconciler brings a year's generated transactions in line with the rules.
type Reconciler interface {
	ReconcileYear(ctx context.Context, year int) (int, error)
}

// ReportSink receives ledger changes that affect the yearly report.
type ReportSink interface {
	HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
	MarkDirty(year int)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Consumer delivers bus messages to handlers until ctx is done.
type Consumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
	ConsumeReconcileRequests(ctx context.Context, handler func(context.Context, *amqp.ReconcileRequest) error) error
}

// RecurringWorker reconciles recurring rules on a timer and on request, and
// forwards ledger events to the report sink. Reports and consumer are
// optional.
type RecurringWorker struct {
	recurring Reconciler
	reports   ReportSink
	consumer  Consumer
	interval  time.Duration
	logger    *applog.Logger
	now       func() time.Time
}

func NewRecurringWorker(recurring Reconciler, reports ReportSink, consumer Consumer, interval time.Duration, logger *applog.Logger) *RecurringWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &RecurringWorker{
		recurring: recurring,
		reports:   reports,
		consumer:  consumer,
		interval:  interval,
		logger:    logger.WithComponent(applog.ComponentWorker),
		now:       time.Now,
	}
}

// HandleReconcileRequest processes a reconcile request from AMQP
func (w *RecurringWorker) HandleReconcileRequest(ctx context.Context, req *amqp.ReconcileRequest) error {
	if _, err := w.reconcile(ctx, req.Year); err != nil {
		return fmt.Errorf("reconcile %d: %w", req.Year, err)
	}
	return nil
}

// HandleLedgerEvent processes a ledger change from AMQP
func (w *RecurringWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if w.reports == nil {
		return nil
	}
	return w.reports.HandleLedgerEvent(ctx, ev)
}

// StartupCheck reconciles the current year once, recovering from rule
// changes made while the worker was down.
func (w *RecurringWorker) StartupCheck(ctx context.Context) error {
	year := w.now().Year()
	changed, err := w.reconcile(ctx, year)
	if err != nil {
		return fmt.Errorf("startup reconcile: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup reconcile completed", applog.FieldYear, year, applog.FieldChanged, changed)
	return nil
}

func (w *RecurringWorker) reconcile(ctx context.Context, year int) (int, error) {
	start := time.Now()
	changed, err := w.recurring.ReconcileYear(ctx, year)
	if err != nil {
		return 0, err
	}
	applog.NewStructuredLogger(w.logger).LogReconciled(ctx, year, changed, time.Since(start))
	if changed > 0 && w.reports != nil {
		w.reports.MarkDirty(year)
	}
	return changed, nil
}

// Run blocks until ctx is cancelled or a consumer fails permanently.
func (w *RecurringWorker) Run(ctx context.Context) error {
	if w.reports != nil {
		// the flush loop outlives ctx so Stop can write pending years
		if err := w.reports.Start(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("start report sync: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := w.reports.Stop(stopCtx); err != nil {
				w.logger.Error("Report sync stop error", applog.FieldError, err)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		w.tick(gctx)
		return nil
	})

	if w.consumer != nil {
		g.Go(func() error {
			w.logger.InfoContext(gctx, "Consuming reconcile requests", "queue", amqp.RecurringReconcileQueue)
			return w.consumer.ConsumeReconcileRequests(gctx, w.HandleReconcileRequest)
		})
		if w.reports != nil {
			g.Go(func() error {
				w.logger.InfoContext(gctx, "Consuming ledger events", "queue", amqp.LedgerEventsQueue)
				return w.consumer.ConsumeLedgerEvents(gctx, w.HandleLedgerEvent)
			})
		}
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *RecurringWorker) tick(ctx context.Context) {
	if err := w.StartupCheck(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Startup reconcile failed", applog.FieldError, err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			year := w.now().Year()
			if _, err := w.reconcile(ctx, year); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic reconcile failed", applog.FieldYear, year, applog.FieldError, err)
			}
		}
	}
}
