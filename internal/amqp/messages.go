package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Routing keys, also used as queue names on the direct exchange.
const (
	LedgerEventsQueue       = "ledger.events"
	RecurringReconcileQueue = "recurring.reconcile"
)

// Entities and operations carried by ledger events.
const (
	EntityCategory    = "category"
	EntityTransaction = "transaction"
	EntityBudget      = "budget"
	EntityRule        = "rule"
	EntityLedger      = "ledger"

	OpCreated  = "created"
	OpUpdated  = "updated"
	OpDeleted  = "deleted"
	OpImported = "imported"
	OpReset    = "reset"
)

// LedgerEvent announces that something in the ledger changed. Period is the
// affected month (YYYY-MM) or year (YYYY) when the change is tied to one.
type LedgerEvent struct {
	Entity    string    `json:"entity"`
	Op        string    `json:"op"`
	ID        string    `json:"id,omitempty"`
	Period    string    `json:"period,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(entity, op, id, period string) *LedgerEvent {
	return &LedgerEvent{
		Entity:    entity,
		Op:        op,
		ID:        id,
		Period:    period,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Entity == "" || msg.Op == "" {
		return nil, fmt.Errorf("ledger event missing entity or op")
	}
	return &msg, nil
}

// ReconcileRequest asks the recurring worker to reconcile a whole year.
type ReconcileRequest struct {
	Year      int       `json:"year"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReconcileRequest(year int) *ReconcileRequest {
	return &ReconcileRequest{Year: year, Timestamp: time.Now()}
}

func (m *ReconcileRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReconcileRequestFromJSON(data []byte) (*ReconcileRequest, error) {
	var msg ReconcileRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Year < 1 {
		return nil, fmt.Errorf("reconcile request has invalid year %d", msg.Year)
	}
	return &msg, nil
}
