package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dental-ledger/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostgresPaymentsRepository PaymentsRepository backed by the payments table
type PostgresPaymentsRepository struct {
	db      *sql.DB
	timeout time.Duration
	logger  *zap.Logger
}

// NewPostgresPaymentsRepository timeout bounds every statement; <= 0 uses DefaultQueryTimeout
func NewPostgresPaymentsRepository(db *sql.DB, timeout time.Duration, logger *zap.Logger) *PostgresPaymentsRepository {
	return &PostgresPaymentsRepository{db: db, timeout: timeout, logger: logger}
}

var _ PaymentsRepository = (*PostgresPaymentsRepository)(nil)

const paymentColumns = `
	id::text,
	patient_id,
	treatment_id::text,
	lab_work_id::text,
	amount,
	payment_date,
	payment_method,
	notes,
	created_at,
	updated_at`

// Create inserts a payment
func (r *PostgresPaymentsRepository) Create(ctx context.Context, in domain.PaymentInput) (*domain.Payment, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	p := &domain.Payment{
		ID:          uuid.NewString(),
		PatientID:   in.PatientID,
		TreatmentID: in.TreatmentID,
		LabWorkID:   in.LabWorkID,
		Amount:      in.Amount,
		PaymentDate: domain.DateOnly(in.PaymentDate),
		Method:      in.Method,
		Notes:       in.Notes,
	}

	query := `
		INSERT INTO payments (
			id, patient_id, treatment_id, lab_work_id,
			amount, payment_date, payment_method, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		p.ID,
		p.PatientID,
		p.TreatmentID,
		p.LabWorkID,
		domain.FormatAmount(p.Amount),
		p.PaymentDate,
		p.Method,
		p.Notes,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, classifyError("create payment", true, err)
	}

	r.logger.Debug("payment inserted",
		zap.String("payment_id", p.ID),
		zap.String("patient_id", p.PatientID),
		zap.String("amount", domain.FormatAmount(p.Amount)),
	)
	return p, nil
}

// Get returns one payment by id
func (r *PostgresPaymentsRepository) Get(ctx context.Context, id string) (*domain.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NotFoundf("payment %s", id)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, classifyError(fmt.Sprintf("get payment %s", id), false, err)
	}
	return p, nil
}

// Update applies a partial update of the mutable columns
func (r *PostgresPaymentsRepository) Update(ctx context.Context, id string, upd domain.PaymentUpdate) (*domain.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NotFoundf("payment %s", id)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var amount *string
	if upd.Amount != nil {
		s := domain.FormatAmount(*upd.Amount)
		amount = &s
	}
	setNotes := upd.Notes != nil
	notes := ""
	if setNotes {
		notes = *upd.Notes
	}

	query := `
		UPDATE payments SET
			amount         = COALESCE($2::numeric, amount),
			payment_method = COALESCE($3::text, payment_method),
			notes          = CASE WHEN $4::boolean THEN NULLIF($5::text, '') ELSE notes END,
			updated_at     = now()
		WHERE id = $1
		RETURNING ` + paymentColumns
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id, amount, upd.Method, setNotes, notes))
	if err != nil {
		return nil, classifyError(fmt.Sprintf("update payment %s", id), true, err)
	}
	return p, nil
}

// Delete removes a payment and returns the deleted row
func (r *PostgresPaymentsRepository) Delete(ctx context.Context, id string) (*domain.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NotFoundf("payment %s", id)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `DELETE FROM payments WHERE id = $1 RETURNING ` + paymentColumns
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, classifyError(fmt.Sprintf("delete payment %s", id), true, err)
	}
	return p, nil
}

// ListByPatient all payments of a patient, newest first
func (r *PostgresPaymentsRepository) ListByPatient(ctx context.Context, patientID string) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE patient_id = $1
		ORDER BY payment_date DESC, created_at DESC, id DESC
	`
	return r.list(ctx, fmt.Sprintf("list payments of patient %s", patientID), query, patientID)
}

// ListByLabWork all payments offsetting one lab-work order, newest first
func (r *PostgresPaymentsRepository) ListByLabWork(ctx context.Context, labWorkID string) ([]*domain.Payment, error) {
	if _, err := uuid.Parse(labWorkID); err != nil {
		return nil, domain.Validationf("lab_work_id %q is not a valid id", labWorkID)
	}
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE lab_work_id = $1
		ORDER BY payment_date DESC, created_at DESC, id DESC
	`
	return r.list(ctx, fmt.Sprintf("list payments of lab work %s", labWorkID), query, labWorkID)
}

func (r *PostgresPaymentsRepository) list(ctx context.Context, op, query string, args ...any) ([]*domain.Payment, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyError(op, false, err)
	}
	defer rows.Close()

	payments := []*domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, classifyError(op, false, err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(op, false, err)
	}
	return payments, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var (
		p           domain.Payment
		treatmentID sql.NullString
		labWorkID   sql.NullString
		notes       sql.NullString
	)
	err := row.Scan(
		&p.ID,
		&p.PatientID,
		&treatmentID,
		&labWorkID,
		&p.Amount,
		&p.PaymentDate,
		&p.Method,
		&notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if treatmentID.Valid {
		p.TreatmentID = &treatmentID.String
	}
	if labWorkID.Valid {
		p.LabWorkID = &labWorkID.String
	}
	if notes.Valid {
		p.Notes = &notes.String
	}
	p.PaymentDate = domain.DateOnly(p.PaymentDate)
	return &p, nil
}
