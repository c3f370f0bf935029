package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"dental-ledger/internal/domain"
	"dental-ledger/internal/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockClinicalRecords mock of repository.ClinicalRecords
type MockClinicalRecords struct {
	mock.Mock
}

func (m *MockClinicalRecords) TreatmentCosts(ctx context.Context, patientID string) ([]decimal.NullDecimal, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]decimal.NullDecimal), args.Error(1)
}

func (m *MockClinicalRecords) LabWorkCosts(ctx context.Context, patientID string) ([]decimal.NullDecimal, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]decimal.NullDecimal), args.Error(1)
}

func (m *MockClinicalRecords) LabWorkCost(ctx context.Context, labWorkID string) (*domain.LabWorkCost, error) {
	args := m.Called(ctx, labWorkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LabWorkCost), args.Error(1)
}

func (m *MockClinicalRecords) RecordOwner(ctx context.Context, kind domain.RecordKind, recordID string) (string, error) {
	args := m.Called(ctx, kind, recordID)
	return args.String(0), args.Error(1)
}

// MockPatientDirectory mock of repository.PatientDirectory
type MockPatientDirectory struct {
	mock.Mock
}

func (m *MockPatientDirectory) Exists(ctx context.Context, patientID string) (bool, error) {
	args := m.Called(ctx, patientID)
	return args.Bool(0), args.Error(1)
}

// MockPublisher mock of events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, ev events.LedgerEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

// memoryPayments in-memory PaymentsRepository for ledger scenarios.
// failWith, when set, is returned by every call.
type memoryPayments struct {
	mu       sync.Mutex
	rows     map[string]*domain.Payment
	seq      int
	failWith error
	// afterWrite, when set, runs once a write has been applied
	afterWrite func()
}

func newMemoryPayments() *memoryPayments {
	return &memoryPayments{rows: map[string]*domain.Payment{}}
}

func (r *memoryPayments) Create(_ context.Context, in domain.PaymentInput) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.seq++
	// created_at strictly increases so same-day ordering is deterministic
	created := time.Date(2024, 1, 1, 0, 0, r.seq, 0, time.UTC)
	p := &domain.Payment{
		ID:          uuid.NewString(),
		PatientID:   in.PatientID,
		TreatmentID: in.TreatmentID,
		LabWorkID:   in.LabWorkID,
		Amount:      in.Amount,
		PaymentDate: in.PaymentDate,
		Method:      in.Method,
		Notes:       in.Notes,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	r.rows[p.ID] = p
	if r.afterWrite != nil {
		r.afterWrite()
	}
	cp := *p
	return &cp, nil
}

func (r *memoryPayments) Get(_ context.Context, id string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	p, ok := r.rows[id]
	if !ok {
		return nil, domain.NotFoundf("payment %s", id)
	}
	cp := *p
	return &cp, nil
}

func (r *memoryPayments) Update(_ context.Context, id string, upd domain.PaymentUpdate) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	p, ok := r.rows[id]
	if !ok {
		return nil, domain.NotFoundf("payment %s", id)
	}
	if upd.Amount != nil {
		p.Amount = *upd.Amount
	}
	if upd.Method != nil {
		p.Method = *upd.Method
	}
	if upd.Notes != nil {
		if *upd.Notes == "" {
			p.Notes = nil
		} else {
			n := *upd.Notes
			p.Notes = &n
		}
	}
	p.UpdatedAt = p.UpdatedAt.Add(time.Second)
	cp := *p
	return &cp, nil
}

func (r *memoryPayments) Delete(_ context.Context, id string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	p, ok := r.rows[id]
	if !ok {
		return nil, domain.NotFoundf("payment %s", id)
	}
	delete(r.rows, id)
	return p, nil
}

func (r *memoryPayments) ListByPatient(_ context.Context, patientID string) ([]*domain.Payment, error) {
	return r.list(func(p *domain.Payment) bool { return p.PatientID == patientID })
}

func (r *memoryPayments) ListByLabWork(_ context.Context, labWorkID string) ([]*domain.Payment, error) {
	return r.list(func(p *domain.Payment) bool { return p.LabWorkID != nil && *p.LabWorkID == labWorkID })
}

func (r *memoryPayments) list(match func(*domain.Payment) bool) ([]*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	out := []*domain.Payment{}
	for _, p := range r.rows {
		if match(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].PaymentDate.After(out[j].PaymentDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
