package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dental-ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostgresClinicalRecords reads costs from the treatments and lab_work tables
type PostgresClinicalRecords struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresClinicalRecords timeout <= 0 uses DefaultQueryTimeout
func NewPostgresClinicalRecords(db *sql.DB, timeout time.Duration) *PostgresClinicalRecords {
	return &PostgresClinicalRecords{db: db, timeout: timeout}
}

var _ ClinicalRecords = (*PostgresClinicalRecords)(nil)

// TreatmentCosts cost column of every treatment of the patient
func (r *PostgresClinicalRecords) TreatmentCosts(ctx context.Context, patientID string) ([]decimal.NullDecimal, error) {
	return r.costs(ctx, "treatment costs", `SELECT cost FROM treatments WHERE patient_id = $1`, patientID)
}

// LabWorkCosts cost column of every lab-work order of the patient
func (r *PostgresClinicalRecords) LabWorkCosts(ctx context.Context, patientID string) ([]decimal.NullDecimal, error) {
	return r.costs(ctx, "lab work costs", `SELECT cost FROM lab_work WHERE patient_id = $1`, patientID)
}

func (r *PostgresClinicalRecords) costs(ctx context.Context, what, query, patientID string) ([]decimal.NullDecimal, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	op := fmt.Sprintf("list %s of patient %s", what, patientID)
	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, classifyError(op, false, err)
	}
	defer rows.Close()

	costs := []decimal.NullDecimal{}
	for rows.Next() {
		var c decimal.NullDecimal
		if err := rows.Scan(&c); err != nil {
			return nil, classifyError(op, false, err)
		}
		costs = append(costs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(op, false, err)
	}
	return costs, nil
}

// LabWorkCost one lab-work order with its owner and cost
func (r *PostgresClinicalRecords) LabWorkCost(ctx context.Context, labWorkID string) (*domain.LabWorkCost, error) {
	if _, err := uuid.Parse(labWorkID); err != nil {
		return nil, domain.Validationf("lab_work_id %q is not a valid id", labWorkID)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var lw domain.LabWorkCost
	err := r.db.QueryRowContext(ctx,
		`SELECT id::text, patient_id, cost FROM lab_work WHERE id = $1`,
		labWorkID,
	).Scan(&lw.LabWorkID, &lw.PatientID, &lw.Cost)
	if err != nil {
		return nil, classifyError(fmt.Sprintf("lab work %s", labWorkID), false, err)
	}
	return &lw, nil
}

// RecordOwner patient_id of a treatment or lab-work record
func (r *PostgresClinicalRecords) RecordOwner(ctx context.Context, kind domain.RecordKind, recordID string) (string, error) {
	var table string
	switch kind {
	case domain.RecordKindTreatment:
		table = "treatments"
	case domain.RecordKindLabWork:
		table = "lab_work"
	default:
		return "", domain.Validationf("unknown record kind %q", kind)
	}
	if _, err := uuid.Parse(recordID); err != nil {
		return "", domain.NotFoundf("%s %s", kind, recordID)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var patientID string
	err := r.db.QueryRowContext(ctx,
		`SELECT patient_id FROM `+table+` WHERE id = $1`,
		recordID,
	).Scan(&patientID)
	if err != nil {
		return "", classifyError(fmt.Sprintf("%s %s", kind, recordID), false, err)
	}
	return patientID, nil
}
