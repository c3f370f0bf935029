package httpapi

import (
	"bytes"
	"encoding/json"
	"time"

	"dental-ledger/internal/domain"
)

const dateLayout = "2006-01-02"

// amountField accepts "1500.00" or 1500.00 and keeps the literal text so no
// precision is lost on the way to decimal parsing
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	*a = amountField(data)
	return nil
}

type createPaymentBody struct {
	PatientID     string      `json:"patient_id"`
	TreatmentID   string      `json:"treatment_id"`
	LabWorkID     string      `json:"lab_work_id"`
	Amount        amountField `json:"amount"`
	PaymentDate   string      `json:"payment_date"`
	PaymentMethod string      `json:"payment_method"`
	Notes         string      `json:"notes"`
}

// updatePaymentBody absent fields stay unchanged; payment_date and patient_id are rejected
type updatePaymentBody struct {
	Amount        *amountField `json:"amount"`
	PaymentMethod *string      `json:"payment_method"`
	Notes         *string      `json:"notes"`
	PaymentDate   *string      `json:"payment_date"`
	PatientID     *string      `json:"patient_id"`
}

type paymentJSON struct {
	ID            string    `json:"id"`
	PatientID     string    `json:"patient_id"`
	TreatmentID   *string   `json:"treatment_id"`
	LabWorkID     *string   `json:"lab_work_id"`
	Amount        string    `json:"amount"`
	PaymentDate   string    `json:"payment_date"`
	PaymentMethod string    `json:"payment_method"`
	Notes         *string   `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toPaymentJSON(p *domain.Payment) paymentJSON {
	return paymentJSON{
		ID:            p.ID,
		PatientID:     p.PatientID,
		TreatmentID:   p.TreatmentID,
		LabWorkID:     p.LabWorkID,
		Amount:        domain.FormatAmount(p.Amount),
		PaymentDate:   p.PaymentDate.Format(dateLayout),
		PaymentMethod: p.Method,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
	}
}

type paymentListJSON struct {
	Items []paymentJSON `json:"items"`
	Total int           `json:"total"`
}

func toPaymentList(payments []*domain.Payment) paymentListJSON {
	items := make([]paymentJSON, 0, len(payments))
	for _, p := range payments {
		items = append(items, toPaymentJSON(p))
	}
	return paymentListJSON{Items: items, Total: len(items)}
}

type summaryJSON struct {
	PatientID string `json:"patient_id,omitempty"`
	LabWorkID string `json:"lab_work_id,omitempty"`
	TotalCost string `json:"total_cost"`
	TotalPaid string `json:"total_paid"`
	Balance   string `json:"balance"`
	Status    string `json:"status"`
}

func toPatientSummaryJSON(s *domain.PaymentSummary) summaryJSON {
	return summaryJSON{
		PatientID: s.PatientID,
		TotalCost: domain.FormatAmount(s.TotalCost),
		TotalPaid: domain.FormatAmount(s.TotalPaid),
		Balance:   domain.FormatAmount(s.Balance),
		Status:    s.Status(),
	}
}

func toLabWorkSummaryJSON(s *domain.LabWorkSummary) summaryJSON {
	return summaryJSON{
		LabWorkID: s.LabWorkID,
		TotalCost: domain.FormatAmount(s.TotalCost),
		TotalPaid: domain.FormatAmount(s.TotalPaid),
		Balance:   domain.FormatAmount(s.Balance),
		Status:    s.Status(),
	}
}
