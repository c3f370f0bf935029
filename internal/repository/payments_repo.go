package repository

import (
	"context"

	"dental-ledger/internal/domain"
)

// PaymentsRepository durable storage of payments; the single source of truth for money.
// Every call goes to the backing store, nothing is cached between calls.
type PaymentsRepository interface {
	// Create inserts a payment and returns it with generated id and timestamps
	Create(ctx context.Context, in domain.PaymentInput) (*domain.Payment, error)

	// Get returns one payment, domain.ErrNotFound if it does not exist
	Get(ctx context.Context, id string) (*domain.Payment, error)

	// Update changes amount / payment_method / notes only.
	// Last write wins; there is no version column.
	Update(ctx context.Context, id string, upd domain.PaymentUpdate) (*domain.Payment, error)

	// Delete removes the payment permanently and returns the row as it was.
	// Unknown id is domain.ErrNotFound, deletes are not idempotent.
	Delete(ctx context.Context, id string) (*domain.Payment, error)

	// ListByPatient ordered by payment_date DESC, created_at DESC
	ListByPatient(ctx context.Context, patientID string) ([]*domain.Payment, error)

	// ListByLabWork same ordering, scoped to one lab-work order
	ListByLabWork(ctx context.Context, labWorkID string) ([]*domain.Payment, error)
}
