package service

import (
	"context"
	"fmt"
	"strings"

	"dental-ledger/internal/domain"
	"dental-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BalanceService derives totals on every call from the current payments and clinical costs.
// Nothing is cached; any failed fetch fails the whole summary.
type BalanceService struct {
	payments repository.PaymentsRepository
	records  repository.ClinicalRecords
	logger   *zap.Logger
}

func NewBalanceService(payments repository.PaymentsRepository, records repository.ClinicalRecords, logger *zap.Logger) *BalanceService {
	return &BalanceService{payments: payments, records: records, logger: logger}
}

// SummarizePatient balance = treatment costs + lab-work costs - payments
func (s *BalanceService) SummarizePatient(ctx context.Context, patientID string) (*domain.PaymentSummary, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, domain.Validationf("patient_id is required")
	}

	var (
		treatmentCosts []decimal.NullDecimal
		labWorkCosts   []decimal.NullDecimal
		payments       []*domain.Payment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if treatmentCosts, err = s.records.TreatmentCosts(gctx, patientID); err != nil {
			return fmt.Errorf("failed to fetch treatment costs: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if labWorkCosts, err = s.records.LabWorkCosts(gctx, patientID); err != nil {
			return fmt.Errorf("failed to fetch lab work costs: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if payments, err = s.payments.ListByPatient(gctx, patientID); err != nil {
			return fmt.Errorf("failed to fetch payments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("SummarizePatient failed",
			zap.String("patient_id", patientID),
			zap.String("error_kind", domain.Kind(err)),
			zap.Error(err),
		)
		return nil, err
	}

	totalCost := domain.SumCosts(treatmentCosts).Add(domain.SumCosts(labWorkCosts))
	totalPaid := domain.SumPayments(payments)
	return &domain.PaymentSummary{
		PatientID: patientID,
		TotalCost: totalCost,
		TotalPaid: totalPaid,
		Balance:   totalCost.Sub(totalPaid),
	}, nil
}

// SummarizeLabWork totals payments linked to one lab-work order against a supplied cost
func (s *BalanceService) SummarizeLabWork(ctx context.Context, labWorkID string, totalCost decimal.Decimal) (*domain.LabWorkSummary, error) {
	labWorkID, err := parseLabWorkID(labWorkID)
	if err != nil {
		return nil, err
	}
	if totalCost.IsNegative() {
		return nil, domain.Validationf("lab work cost cannot be negative")
	}

	payments, err := s.payments.ListByLabWork(ctx, labWorkID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lab work payments: %w", err)
	}

	totalPaid := domain.SumPayments(payments)
	return &domain.LabWorkSummary{
		LabWorkID: labWorkID,
		TotalCost: totalCost,
		TotalPaid: totalPaid,
		Balance:   totalCost.Sub(totalPaid),
	}, nil
}

// SummarizeLabWorkOrder looks up the order's cost (unset counts as zero) then summarizes it
func (s *BalanceService) SummarizeLabWorkOrder(ctx context.Context, labWorkID string) (*domain.LabWorkSummary, error) {
	labWorkID, err := parseLabWorkID(labWorkID)
	if err != nil {
		return nil, err
	}
	lw, err := s.records.LabWorkCost(ctx, labWorkID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lab work cost: %w", err)
	}
	return s.SummarizeLabWork(ctx, labWorkID, domain.SumCosts([]decimal.NullDecimal{lw.Cost}))
}
