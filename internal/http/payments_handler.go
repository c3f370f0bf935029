package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dental-ledger/internal/domain"
	"dental-ledger/internal/service"

	"go.uber.org/zap"
)

// LedgerService payment operations used by the handlers
type LedgerService interface {
	CreatePayment(ctx context.Context, req service.CreatePaymentRequest) (*domain.Payment, error)
	UpdatePayment(ctx context.Context, req service.UpdatePaymentRequest) (*domain.Payment, error)
	DeletePayment(ctx context.Context, paymentID string) error
	GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error)
	ListByPatient(ctx context.Context, patientID string) ([]*domain.Payment, error)
	ListByLabWork(ctx context.Context, labWorkID string) ([]*domain.Payment, error)
}

// BalanceService derived totals used by the handlers
type BalanceService interface {
	SummarizePatient(ctx context.Context, patientID string) (*domain.PaymentSummary, error)
	SummarizeLabWorkOrder(ctx context.Context, labWorkID string) (*domain.LabWorkSummary, error)
}

var (
	_ LedgerService  = (*service.LedgerService)(nil)
	_ BalanceService = (*service.BalanceService)(nil)
)

// LedgerHandler payments and balance routes
type LedgerHandler struct {
	ledger  LedgerService
	balance BalanceService
	logger  *zap.Logger
	now     func() time.Time
}

func NewLedgerHandler(ledger LedgerService, balance BalanceService, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, balance: balance, logger: logger, now: time.Now}
}

// CreatePayment POST /payments
func (h *LedgerHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var body createPaymentBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		h.fail(w, r, "CreatePayment", err)
		return
	}

	p, err := h.ledger.CreatePayment(r.Context(), service.CreatePaymentRequest{
		PatientID:   body.PatientID,
		TreatmentID: body.TreatmentID,
		LabWorkID:   body.LabWorkID,
		Amount:      string(body.Amount),
		PaymentDate: body.PaymentDate,
		Method:      body.PaymentMethod,
		Notes:       body.Notes,
	})
	if err != nil {
		h.fail(w, r, "CreatePayment", err, zap.String("patient_id", body.PatientID))
		return
	}
	writeJSON(w, http.StatusCreated, Ok(toPaymentJSON(p)))
}

// GetPayment GET /payments/{id}
func (h *LedgerHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.ledger.GetPayment(r.Context(), id)
	if err != nil {
		h.fail(w, r, "GetPayment", err, zap.String("payment_id", id))
		return
	}
	writeJSON(w, http.StatusOK, Ok(toPaymentJSON(p)))
}

// UpdatePayment PATCH /payments/{id}
func (h *LedgerHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body updatePaymentBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		h.fail(w, r, "UpdatePayment", err, zap.String("payment_id", id))
		return
	}

	req := service.UpdatePaymentRequest{
		PaymentID:   id,
		Method:      body.PaymentMethod,
		Notes:       body.Notes,
		PaymentDate: body.PaymentDate,
		PatientID:   body.PatientID,
	}
	if body.Amount != nil {
		amount := string(*body.Amount)
		req.Amount = &amount
	}

	p, err := h.ledger.UpdatePayment(r.Context(), req)
	if err != nil {
		h.fail(w, r, "UpdatePayment", err, zap.String("payment_id", id))
		return
	}
	writeJSON(w, http.StatusOK, Ok(toPaymentJSON(p)))
}

// DeletePayment DELETE /payments/{id}
func (h *LedgerHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.ledger.DeletePayment(r.Context(), id); err != nil {
		h.fail(w, r, "DeletePayment", err, zap.String("payment_id", id))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"id": id, "deleted": true}))
}

// ListPatientPayments GET /patients/{id}/payments
func (h *LedgerHandler) ListPatientPayments(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	payments, err := h.ledger.ListByPatient(r.Context(), patientID)
	if err != nil {
		h.fail(w, r, "ListPatientPayments", err, zap.String("patient_id", patientID))
		return
	}
	writeJSON(w, http.StatusOK, Ok(toPaymentList(payments)))
}

// PatientSummary GET /patients/{id}/summary
func (h *LedgerHandler) PatientSummary(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	sum, err := h.balance.SummarizePatient(r.Context(), patientID)
	if err != nil {
		h.fail(w, r, "PatientSummary", err, zap.String("patient_id", patientID))
		return
	}
	writeJSON(w, http.StatusOK, Ok(toPatientSummaryJSON(sum)))
}

// ListLabWorkPayments GET /lab-work/{id}/payments
func (h *LedgerHandler) ListLabWorkPayments(w http.ResponseWriter, r *http.Request) {
	labWorkID := r.PathValue("id")
	payments, err := h.ledger.ListByLabWork(r.Context(), labWorkID)
	if err != nil {
		h.fail(w, r, "ListLabWorkPayments", err, zap.String("lab_work_id", labWorkID))
		return
	}
	writeJSON(w, http.StatusOK, Ok(toPaymentList(payments)))
}

// LabWorkSummary GET /lab-work/{id}/summary
func (h *LedgerHandler) LabWorkSummary(w http.ResponseWriter, r *http.Request) {
	labWorkID := r.PathValue("id")
	sum, err := h.balance.SummarizeLabWorkOrder(r.Context(), labWorkID)
	if err != nil {
		h.fail(w, r, "LabWorkSummary", err, zap.String("lab_work_id", labWorkID))
		return
	}
	writeJSON(w, http.StatusOK, Ok(toLabWorkSummaryJSON(sum)))
}

// ExportPatientStatement GET /patients/{id}/payments/export
func (h *LedgerHandler) ExportPatientStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID := r.PathValue("id")

	sum, err := h.balance.SummarizePatient(ctx, patientID)
	if err != nil {
		h.fail(w, r, "ExportPatientStatement", err, zap.String("patient_id", patientID))
		return
	}
	payments, err := h.ledger.ListByPatient(ctx, patientID)
	if err != nil {
		h.fail(w, r, "ExportPatientStatement", err, zap.String("patient_id", patientID))
		return
	}

	// paid and balance come from the listed rows so the sheet adds up even if a write lands between the reads
	stmt := *sum
	stmt.TotalPaid = domain.SumPayments(payments)
	stmt.Balance = stmt.TotalCost.Sub(stmt.TotalPaid)

	data, err := GeneratePatientStatement(&stmt, payments, h.now())
	if err != nil {
		h.fail(w, r, "ExportPatientStatement", err, zap.String("patient_id", patientID))
		return
	}

	filename := fmt.Sprintf("statement_%s_%s.xlsx", patientID, h.now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *LedgerHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error, fields ...zap.Field) {
	status, res := errorResponse(err)
	fields = append(fields,
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", fields...)
	} else {
		h.logger.Warn(op+" failed", fields...)
	}
	writeJSON(w, status, res)
}
