// Package notification is the audit/notification collaborator boundary.
// The settlement orchestrator emits domain events here strictly after
// commit; delivery to users and the audit log happens downstream.
package notification

import (
	"context"
	"log"
	"time"
)

// Event names emitted by the core.
const (
	EventWalletCredited      = "wallet.credited"
	EventWalletDebited       = "wallet.debited"
	EventStockPurchased      = "stock.purchased"
	EventSaleCompleted       = "sale.completed"
	EventSaleFailed          = "sale.failed"
	EventSaleRefunded        = "sale.refunded"
	EventFundingConfirmed    = "funding.confirmed"
	EventAdjustmentCompleted = "adjustment.completed"
)

// Event is one domain event with its payload.
type Event struct {
	Name    string
	At      time.Time
	Payload map[string]interface{}
}

// Emitter receives domain events after the owning transaction commits.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// LogEmitter writes events to the application log.
type LogEmitter struct{}

func NewLogEmitter() *LogEmitter { return &LogEmitter{} }

func (e *LogEmitter) Emit(ctx context.Context, event Event) {
	log.Printf("event %s payload=%v", event.Name, event.Payload)
}
