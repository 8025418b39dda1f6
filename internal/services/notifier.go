package services

import (
	"context"
	"log/slog"

	"finance/internal/amqp"
	applog "finance/internal/log"
)

// Publisher is implemented by *amqp.Client.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
	PublishReconcileRequest(ctx context.Context, req *amqp.ReconcileRequest) error
}

// Invalidator drops derived data after a write.
type Invalidator interface {
	Invalidate()
}

// Reconciler runs a reconcile in-process.
type Reconciler interface {
	ReconcileYear(ctx context.Context, year int) (int, error)
}

// Notifier fans ledger changes out to the summary cache and, when a
// publisher is configured, to the message bus. A nil Notifier does nothing.
type Notifier struct {
	publisher   Publisher
	invalidator Invalidator
	local       Reconciler
}

// NewNotifier wires change notifications. Either argument may be nil.
func NewNotifier(publisher Publisher, invalidator Invalidator) *Notifier {
	return &Notifier{publisher: publisher, invalidator: invalidator}
}

// Changed invalidates cached summaries and publishes a ledger event. Publish
// failures are logged, the local write already succeeded.
func (n *Notifier) Changed(ctx context.Context, entity, op, id, period string) {
	if n == nil {
		return
	}
	if n.invalidator != nil {
		n.invalidator.Invalidate()
	}
	if n.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping ledger event",
			applog.FieldEntity, entity, applog.FieldOperation, op)
		return
	}
	if err := n.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(entity, op, id, period)); err != nil {
		fields := applog.NewFields().
			WithComponent(applog.ComponentAMQP).
			WithEntity(entity, id).
			WithOperation(op).
			WithError(err)
		slog.ErrorContext(ctx, "Failed to publish ledger event", fields.ToSlice()...)
	}
}

// SetLocalReconciler sets the reconciler used for reconcile requests when
// no publisher is configured.
func (n *Notifier) SetLocalReconciler(r Reconciler) {
	n.local = r
}

// RequestReconcile asks the recurring worker to reconcile year. Without a
// publisher the local reconciler, if any, runs synchronously instead.
func (n *Notifier) RequestReconcile(ctx context.Context, year int) {
	if n == nil {
		return
	}
	if n.publisher == nil {
		if n.local == nil {
			return
		}
		if _, err := n.local.ReconcileYear(ctx, year); err != nil {
			slog.ErrorContext(ctx, "Local reconcile failed", applog.FieldYear, year, applog.FieldError, err)
		}
		return
	}
	if err := n.publisher.PublishReconcileRequest(ctx, amqp.NewReconcileRequest(year)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish reconcile request",
			applog.FieldComponent, applog.ComponentAMQP, applog.FieldYear, year, applog.FieldError, err)
	}
}
