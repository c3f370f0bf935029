package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dental-ledger/internal/domain"
	"dental-ledger/internal/events"
	"dental-ledger/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	dateLayout     = "2006-01-02"
	publishTimeout = 5 * time.Second
)

// LedgerService records, edits and lists payments
type LedgerService struct {
	payments  repository.PaymentsRepository
	patients  repository.PatientDirectory
	records   repository.ClinicalRecords
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewLedgerService publisher may be nil (no events)
func NewLedgerService(
	payments repository.PaymentsRepository,
	patients repository.PatientDirectory,
	records repository.ClinicalRecords,
	publisher events.Publisher,
	logger *zap.Logger,
) *LedgerService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &LedgerService{
		payments:  payments,
		patients:  patients,
		records:   records,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// CreatePaymentRequest raw fields as entered by staff
type CreatePaymentRequest struct {
	PatientID   string
	TreatmentID string // optional
	LabWorkID   string // optional
	Amount      string
	PaymentDate string // optional, YYYY-MM-DD, defaults to today
	Method      string // optional, defaults to cash
	Notes       string
}

// UpdatePaymentRequest nil fields are left unchanged.
// PaymentDate and PatientID are immutable and only present so they can be rejected.
type UpdatePaymentRequest struct {
	PaymentID   string
	Amount      *string
	Method      *string
	Notes       *string
	PaymentDate *string
	PatientID   *string
}

// CreatePayment validates, checks references and stores a payment
func (s *LedgerService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, error) {
	in, err := s.buildInput(req)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, in); err != nil {
		return nil, err
	}

	p, err := s.payments.Create(ctx, in)
	if err != nil {
		s.logWriteError("CreatePayment failed", err, zap.String("patient_id", in.PatientID))
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	s.logger.Info("Payment recorded",
		zap.String("payment_id", p.ID),
		zap.String("patient_id", p.PatientID),
		zap.String("amount", domain.FormatAmount(p.Amount)),
		zap.String("payment_method", p.Method),
	)
	s.publish(ctx, events.PaymentCreated, p)
	return p, nil
}

// UpdatePayment changes amount, method or notes of an existing payment
func (s *LedgerService) UpdatePayment(ctx context.Context, req UpdatePaymentRequest) (*domain.Payment, error) {
	if strings.TrimSpace(req.PaymentID) == "" {
		return nil, domain.Validationf("payment id is required")
	}
	if req.PaymentDate != nil {
		return nil, domain.Validationf("payment_date cannot be changed after the payment is recorded")
	}
	if req.PatientID != nil {
		return nil, domain.Validationf("patient_id cannot be changed; delete the payment and record it for the other patient")
	}

	var upd domain.PaymentUpdate
	if req.Amount != nil {
		amount, err := domain.ParseAmount(*req.Amount)
		if err != nil {
			return nil, err
		}
		upd.Amount = &amount
	}
	if req.Method != nil {
		// no cash default here: an empty method is rejected by upd.Validate
		m := strings.ToLower(strings.TrimSpace(*req.Method))
		upd.Method = &m
	}
	if req.Notes != nil {
		n := strings.TrimSpace(*req.Notes)
		upd.Notes = &n
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	p, err := s.payments.Update(ctx, req.PaymentID, upd)
	if err != nil {
		s.logWriteError("UpdatePayment failed", err, zap.String("payment_id", req.PaymentID))
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	s.logger.Info("Payment updated",
		zap.String("payment_id", p.ID),
		zap.String("patient_id", p.PatientID),
		zap.String("amount", domain.FormatAmount(p.Amount)),
	)
	s.publish(ctx, events.PaymentUpdated, p)
	return p, nil
}

// DeletePayment removes a payment permanently; unknown ids are domain.ErrNotFound
func (s *LedgerService) DeletePayment(ctx context.Context, paymentID string) error {
	if strings.TrimSpace(paymentID) == "" {
		return domain.Validationf("payment id is required")
	}

	p, err := s.payments.Delete(ctx, paymentID)
	if err != nil {
		s.logWriteError("DeletePayment failed", err, zap.String("payment_id", paymentID))
		return fmt.Errorf("failed to delete payment: %w", err)
	}

	s.logger.Info("Payment deleted",
		zap.String("payment_id", p.ID),
		zap.String("patient_id", p.PatientID),
		zap.String("amount", domain.FormatAmount(p.Amount)),
	)
	s.publish(ctx, events.PaymentDeleted, p)
	return nil
}

// GetPayment one payment by id
func (s *LedgerService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	p, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// ListByPatient payments of one patient, newest first. No payments is an empty slice.
func (s *LedgerService) ListByPatient(ctx context.Context, patientID string) ([]*domain.Payment, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, domain.Validationf("patient_id is required")
	}
	payments, err := s.payments.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// ListByLabWork payments offsetting one lab-work order, newest first
func (s *LedgerService) ListByLabWork(ctx context.Context, labWorkID string) ([]*domain.Payment, error) {
	labWorkID, err := parseLabWorkID(labWorkID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByLabWork(ctx, labWorkID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lab work payments: %w", err)
	}
	return payments, nil
}

func (s *LedgerService) buildInput(req CreatePaymentRequest) (domain.PaymentInput, error) {
	in := domain.PaymentInput{
		PatientID: strings.TrimSpace(req.PatientID),
		Method:    domain.NormalizeMethod(req.Method),
	}

	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return in, err
	}
	in.Amount = amount

	today := domain.DateOnly(s.now())
	in.PaymentDate = today
	if ds := strings.TrimSpace(req.PaymentDate); ds != "" {
		d, err := time.Parse(dateLayout, ds)
		if err != nil {
			return in, domain.Validationf("payment_date %q must be YYYY-MM-DD", ds)
		}
		// one day of slack for clinics ahead of UTC
		if d.After(today.AddDate(0, 0, 1)) {
			return in, domain.Validationf("payment_date %s is in the future", ds)
		}
		in.PaymentDate = d
	}

	if in.TreatmentID, err = optionalID("treatment_id", req.TreatmentID); err != nil {
		return in, err
	}
	if in.LabWorkID, err = optionalID("lab_work_id", req.LabWorkID); err != nil {
		return in, err
	}
	if n := strings.TrimSpace(req.Notes); n != "" {
		in.Notes = &n
	}

	return in, in.Validate()
}

// parseLabWorkID a malformed lab-work id is a validation error on every lab-work route
func parseLabWorkID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.Validationf("lab_work_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", domain.Validationf("lab_work_id %q is not a valid id", raw)
	}
	return id.String(), nil
}

func optionalID(field, raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.Validationf("%s %q is not a valid id", field, raw)
	}
	s := id.String()
	return &s, nil
}

// checkReferences patient must exist; a linked record must exist and belong to the same patient
func (s *LedgerService) checkReferences(ctx context.Context, in domain.PaymentInput) error {
	exists, err := s.patients.Exists(ctx, in.PatientID)
	if err != nil {
		return fmt.Errorf("failed to look up patient: %w", err)
	}
	if !exists {
		return domain.ReferentialIntegrityf("patient %s does not exist", in.PatientID)
	}

	kind, recordID := domain.RecordKind(""), ""
	switch {
	case in.TreatmentID != nil:
		kind, recordID = domain.RecordKindTreatment, *in.TreatmentID
	case in.LabWorkID != nil:
		kind, recordID = domain.RecordKindLabWork, *in.LabWorkID
	default:
		return nil
	}

	owner, err := s.records.RecordOwner(ctx, kind, recordID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ReferentialIntegrityf("%s %s does not exist", kind, recordID)
	}
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", kind, err)
	}
	if owner != in.PatientID {
		return domain.ReferentialIntegrityf("%s %s belongs to another patient", kind, recordID)
	}
	return nil
}

// publish is best effort: the write is already committed and consumers re-read the ledger.
// It outlives the request context so a client hanging up after the commit does not drop the event.
func (s *LedgerService) publish(ctx context.Context, t events.EventType, p *domain.Payment) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	ev := events.NewLedgerEvent(t, p, s.now())
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error("Failed to publish ledger event",
			zap.String("event_type", string(t)),
			zap.String("payment_id", p.ID),
			zap.Error(err),
		)
	}
}

func (s *LedgerService) logWriteError(msg string, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("error_kind", domain.Kind(err)),
		zap.Bool("uncertain", domain.IsUncertain(err)),
		zap.Error(err),
	)
	if errors.Is(err, domain.ErrIO) {
		s.logger.Error(msg, fields...)
		return
	}
	s.logger.Warn(msg, fields...)
}
