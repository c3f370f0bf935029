package domain

import "github.com/shopspring/decimal"

// RecordKind clinical record types that can carry a cost
type RecordKind string

const (
	RecordKindTreatment RecordKind = "treatment"
	RecordKindLabWork   RecordKind = "lab_work"
)

// LabWorkCost cost attached to a lab-work order; Cost.Valid false means not yet costed
type LabWorkCost struct {
	LabWorkID string
	PatientID string
	Cost      decimal.NullDecimal
}
