package events

import (
	"context"
	"time"

	"dental-ledger/internal/domain"
)

// EventType ledger change kinds
type EventType string

const (
	PaymentCreated EventType = "payment.created"
	PaymentUpdated EventType = "payment.updated"
	PaymentDeleted EventType = "payment.deleted"
)

// LedgerEvent notification that a patient's ledger changed.
// It is a hint to re-read, consumers must not derive balances from it.
type LedgerEvent struct {
	Type        EventType `json:"type"`
	PaymentID   string    `json:"payment_id"`
	PatientID   string    `json:"patient_id"`
	TreatmentID *string   `json:"treatment_id,omitempty"`
	LabWorkID   *string   `json:"lab_work_id,omitempty"`
	Amount      string    `json:"amount"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewLedgerEvent builds an event from the payment as committed
func NewLedgerEvent(t EventType, p *domain.Payment, at time.Time) LedgerEvent {
	return LedgerEvent{
		Type:        t,
		PaymentID:   p.ID,
		PatientID:   p.PatientID,
		TreatmentID: p.TreatmentID,
		LabWorkID:   p.LabWorkID,
		Amount:      domain.FormatAmount(p.Amount),
		OccurredAt:  at.UTC(),
	}
}

// Publisher delivers ledger events to an external bus
type Publisher interface {
	Publish(ctx context.Context, ev LedgerEvent) error
	Close() error
}

// NopPublisher used when LEDGER_EVENTS_SINK=none
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, LedgerEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
