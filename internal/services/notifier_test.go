package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type yearRecorder struct {
	years []int
	err   error
}

func (r *yearRecorder) ReconcileYear(_ context.Context, year int) (int, error) {
	r.years = append(r.years, year)
	return 0, r.err
}

func TestNotifier_NilIsNoop(t *testing.T) {
	var n *Notifier
	n.Changed(context.Background(), "transaction", "created", "t1", "2024-05")
	n.RequestReconcile(context.Background(), 2024)
}

func TestNotifier_PublishesWhenConfigured(t *testing.T) {
	pub := &recordingPublisher{}
	inv := &countingInvalidator{}
	local := &yearRecorder{}
	n := NewNotifier(pub, inv)
	n.SetLocalReconciler(local)

	n.Changed(context.Background(), "transaction", "created", "t1", "2024-05")
	n.RequestReconcile(context.Background(), 2024)

	assert.Equal(t, 1, inv.calls)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "2024-05", pub.events[0].Period)
	require.Len(t, pub.reconciles, 1)
	assert.Equal(t, 2024, pub.reconciles[0].Year)
	assert.Empty(t, local.years, "publisher takes precedence")
}

func TestNotifier_PublishErrorIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	inv := &countingInvalidator{}
	n := NewNotifier(pub, inv)

	n.Changed(context.Background(), "budget", "updated", "b1", "2024-05")
	assert.Equal(t, 1, inv.calls, "cache is purged even when publishing fails")
}

func TestNotifier_LocalReconcileWithoutPublisher(t *testing.T) {
	local := &yearRecorder{err: errors.New("locked")}
	n := NewNotifier(nil, nil)
	n.SetLocalReconciler(local)

	n.RequestReconcile(context.Background(), 2023)
	assert.Equal(t, []int{2023}, local.years)
}
