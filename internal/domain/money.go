package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale fractional digits of the clinic currency
const MoneyScale = 2

// MaxAmount largest value a NUMERIC(12,2) column holds
var MaxAmount = decimal.RequireFromString("9999999999.99")

// ParseAmount parses a monetary string such as "1500.00".
// More than two significant fractional digits is rejected, never rounded.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, Validationf("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Validationf("amount %q is not a decimal number", s)
	}
	if err := checkScale(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidatePaymentAmount amount must be in (0, MaxAmount] with at most two fractional digits
func ValidatePaymentAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return Validationf("amount must be greater than 0, got %s", d.String())
	}
	if d.GreaterThan(MaxAmount) {
		return Validationf("amount %s exceeds the maximum of %s", d.String(), MaxAmount.StringFixed(MoneyScale))
	}
	return checkScale(d)
}

func checkScale(d decimal.Decimal) error {
	if !d.Equal(d.Truncate(MoneyScale)) {
		return Validationf("amount %s has more than %d fractional digits", d.String(), MoneyScale)
	}
	return nil
}

// FormatAmount fixed two-digit string for the wire
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}

// SumCosts adds billable costs; a NULL cost means "not yet costed" and adds nothing
func SumCosts(costs []decimal.NullDecimal) decimal.Decimal {
	total := decimal.Zero
	for _, c := range costs {
		if c.Valid {
			total = total.Add(c.Decimal)
		}
	}
	return total
}

// SumPayments adds payment amounts
func SumPayments(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
