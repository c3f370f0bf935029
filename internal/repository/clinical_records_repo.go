package repository

import (
	"context"

	"dental-ledger/internal/domain"

	"github.com/shopspring/decimal"
)

// ClinicalRecords read-only view of treatment and lab-work costs.
// A NULL cost (Valid == false) means the record is not yet costed.
type ClinicalRecords interface {
	// TreatmentCosts cost of every treatment of the patient
	TreatmentCosts(ctx context.Context, patientID string) ([]decimal.NullDecimal, error)

	// LabWorkCosts cost of every lab-work order of the patient
	LabWorkCosts(ctx context.Context, patientID string) ([]decimal.NullDecimal, error)

	// LabWorkCost cost of a single lab-work order, domain.ErrNotFound if unknown
	LabWorkCost(ctx context.Context, labWorkID string) (*domain.LabWorkCost, error)

	// RecordOwner patient_id owning a treatment or lab-work record, domain.ErrNotFound if unknown
	RecordOwner(ctx context.Context, kind domain.RecordKind, recordID string) (string, error)
}

// PatientDirectory patient existence lookups used for referential checks
type PatientDirectory interface {
	Exists(ctx context.Context, patientID string) (bool, error)
}
