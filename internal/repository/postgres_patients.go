package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresPatientDirectory patient lookups against the patients table
type PostgresPatientDirectory struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresPatientDirectory timeout <= 0 uses DefaultQueryTimeout
func NewPostgresPatientDirectory(db *sql.DB, timeout time.Duration) *PostgresPatientDirectory {
	return &PostgresPatientDirectory{db: db, timeout: timeout}
}

var _ PatientDirectory = (*PostgresPatientDirectory)(nil)

// Exists checks the externally visible patient_id, not the row id
func (r *PostgresPatientDirectory) Exists(ctx context.Context, patientID string) (bool, error) {
	if patientID == "" {
		return false, nil
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE patient_id = $1)`,
		patientID,
	).Scan(&exists)
	if err != nil {
		return false, classifyError(fmt.Sprintf("lookup patient %s", patientID), false, err)
	}
	return exists, nil
}
