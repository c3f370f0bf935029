package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payment a ledger entry for money received (payments table)
type Payment struct {
	ID          string          `db:"id"`
	PatientID   string          `db:"patient_id"`
	TreatmentID *string         `db:"treatment_id"`
	LabWorkID   *string         `db:"lab_work_id"`
	Amount      decimal.Decimal `db:"amount"`
	PaymentDate time.Time       `db:"payment_date"` // calendar date, UTC midnight
	Method      string          `db:"payment_method"`
	Notes       *string         `db:"notes"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// PaymentInput fields accepted when recording a payment
type PaymentInput struct {
	PatientID   string
	TreatmentID *string
	LabWorkID   *string
	Amount      decimal.Decimal
	PaymentDate time.Time
	Method      string
	Notes       *string
}

// PaymentUpdate mutable fields; nil leaves the column unchanged.
// Notes set to "" clears the note.
type PaymentUpdate struct {
	Amount *decimal.Decimal
	Method *string
	Notes  *string
}

// Payment method tags offered by the front desk. Other tags are accepted as-is.
const (
	PaymentMethodCash         = "cash"
	PaymentMethodCard         = "card"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodInsurance    = "insurance"
	PaymentMethodCheque       = "cheque"
	PaymentMethodOther        = "other"
)

const maxMethodLen = 32

// NormalizeMethod lower-cases and trims a method tag; empty means cash
func NormalizeMethod(method string) string {
	m := strings.ToLower(strings.TrimSpace(method))
	if m == "" {
		return PaymentMethodCash
	}
	return m
}

// Validate checks a normalized input
func (in *PaymentInput) Validate() error {
	if strings.TrimSpace(in.PatientID) == "" {
		return Validationf("patient_id is required")
	}
	if in.TreatmentID != nil && in.LabWorkID != nil {
		return Validationf("a payment may offset a treatment or a lab-work order, not both")
	}
	if err := ValidatePaymentAmount(in.Amount); err != nil {
		return err
	}
	if in.PaymentDate.IsZero() {
		return Validationf("payment_date is required")
	}
	return validateMethod(in.Method)
}

// Validate checks a normalized update
func (u *PaymentUpdate) Validate() error {
	if u.Amount == nil && u.Method == nil && u.Notes == nil {
		return Validationf("nothing to update: only amount, payment_method and notes are mutable")
	}
	if u.Amount != nil {
		if err := ValidatePaymentAmount(*u.Amount); err != nil {
			return err
		}
	}
	if u.Method != nil {
		return validateMethod(*u.Method)
	}
	return nil
}

func validateMethod(m string) error {
	if m == "" {
		return Validationf("payment_method is required")
	}
	if len(m) > maxMethodLen {
		return Validationf("payment_method longer than %d characters", maxMethodLen)
	}
	return nil
}

// DateOnly truncates t to its calendar date in UTC
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
