package domain

import "github.com/shopspring/decimal"

// Balance badge states
const (
	StatusUnpaid   = "Unpaid"
	StatusPartial  = "Partial"
	StatusPaid     = "Paid"
	StatusOverpaid = "Overpaid"
)

// PaymentSummary derived per-patient totals; recomputed on every read, never stored
type PaymentSummary struct {
	PatientID string
	TotalCost decimal.Decimal
	TotalPaid decimal.Decimal
	Balance   decimal.Decimal
}

// Status badge for the summary
func (s PaymentSummary) Status() string {
	return BalanceStatus(s.TotalPaid, s.Balance)
}

// LabWorkSummary derived totals for one lab-work order
type LabWorkSummary struct {
	LabWorkID string
	TotalCost decimal.Decimal
	TotalPaid decimal.Decimal
	Balance   decimal.Decimal
}

// Status badge for the lab-work order
func (s LabWorkSummary) Status() string {
	return BalanceStatus(s.TotalPaid, s.Balance)
}

// BalanceStatus nothing owed is Paid, including a patient with no charges yet
func BalanceStatus(totalPaid, balance decimal.Decimal) string {
	switch {
	case balance.IsNegative():
		return StatusOverpaid
	case balance.IsZero():
		return StatusPaid
	case totalPaid.IsPositive():
		return StatusPartial
	default:
		return StatusUnpaid
	}
}
