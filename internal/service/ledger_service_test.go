package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"dental-ledger/internal/domain"
	"dental-ledger/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	testPatient   = "PT-001"
	testTreatment = "b4f5a2de-0c7e-4a43-9f0a-4b7f1d4c2a11"
	testLabWork   = "5d1c8e2b-7a3f-4a59-8a2d-93c6f0b1e8aa"
)

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

type ledgerFixture struct {
	svc      *LedgerService
	repo     *memoryPayments
	patients *MockPatientDirectory
	records  *MockClinicalRecords
	pub      *MockPublisher
}

func newLedgerFixture(t *testing.T, logger *zap.Logger) *ledgerFixture {
	t.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &ledgerFixture{
		repo:     newMemoryPayments(),
		patients: &MockPatientDirectory{},
		records:  &MockClinicalRecords{},
		pub:      &MockPublisher{},
	}
	f.svc = NewLedgerService(f.repo, f.patients, f.records, f.pub, logger)
	f.svc.now = func() time.Time { return testNow }
	t.Cleanup(func() {
		f.patients.AssertExpectations(t)
		f.records.AssertExpectations(t)
		f.pub.AssertExpectations(t)
	})
	return f
}

func eventOfType(t events.EventType) interface{} {
	return mock.MatchedBy(func(ev events.LedgerEvent) bool { return ev.Type == t })
}

func TestCreatePayment_Success(t *testing.T) {
	f := newLedgerFixture(t, nil)
	f.patients.On("Exists", mock.Anything, testPatient).Return(true, nil)
	f.pub.On("Publish", mock.Anything, eventOfType(events.PaymentCreated)).Return(nil)

	p, err := f.svc.CreatePayment(context.Background(), CreatePaymentRequest{
		PatientID: " PT-001 ",
		Amount:    "500.00",
		Method:    " Card ",
		Notes:     "  ",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, testPatient, p.PatientID)
	assert.Equal(t, "500.00", domain.FormatAmount(p.Amount))
	assert.Equal(t, domain.PaymentMethodCard, p.Method)
	assert.Nil(t, p.Notes)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), p.PaymentDate)
}

func TestCreatePayment_DefaultsMethodToCash(t *testing.T) {
	f := newLedgerFixture(t, nil)
	f.patients.On("Exists", mock.Anything, testPatient).Return(true, nil)
	f.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	p, err := f.svc.CreatePayment(context.Background(), CreatePaymentRequest{
		PatientID: testPatient, Amount: "10", PaymentDate: "2024-03-01",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentMethodCash, p.Method)
	assert.Equal(t, 1, p.PaymentDate.Day())
}

func TestCreatePayment_ValidationRejectedBeforeAnyLookup(t *testing.T) {
	f := newLedgerFixture(t, nil)

	cases := []struct {
		name string
		req  CreatePaymentRequest
	}{
		{"zero amount", CreatePaymentRequest{PatientID: testPatient, Amount: "0"}},
		{"negative amount", CreatePaymentRequest{PatientID: testPatient, Amount: "-5"}},
		{"three decimals", CreatePaymentRequest{PatientID: testPatient, Amount: "0.001"}},
		{"not a number", CreatePaymentRequest{PatientID: testPatient, Amount: "abc"}},
		{"missing patient", CreatePaymentRequest{Amount: "10"}},
		{"both links", CreatePaymentRequest{PatientID: testPatient, Amount: "10", TreatmentID: testTreatment, LabWorkID: testLabWork}},
		{"bad treatment id", CreatePaymentRequest{PatientID: testPatient, Amount: "10", TreatmentID: "tr-1"}},
		{"bad date", CreatePaymentRequest{PatientID: testPatient, Amount: "10", PaymentDate: "15/03/2024"}},
		{"future date", CreatePaymentRequest{PatientID: testPatient, Amount: "10", PaymentDate: "2024-04-01"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreatePayment(context.Background(), tc.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	payments, err := f.repo.ListByPatient(context.Background(), testPatient)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestCreatePayment_SmallestAmountAccepted(t *testing.T) {
	f := newLedgerFixture(t, nil)
	f.patients.On("Exists", mock.Anything, testPatient).Return(true, nil)
	f.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	p, err := f.svc.CreatePayment(context.Background(), CreatePaymentRequest{PatientID: testPatient, Amount: "0.01"})
	require.NoError(t, err)
	assert.Equal(t, "0.01", domain.FormatAmount(p.Amount))
}

func TestCreatePayment_UnknownPatient(t *testing.T) {
	f := newLedgerFixture(t, nil)
	f.patients.On("Exists", mock.Anything, "PT-999").Return(false, nil)

	_, err := f.svc.CreatePayment(context.Background(), CreatePaymentRequest{PatientID: "PT-999", Amount: "10"})
	assert.ErrorIs(t, err, domain.ErrReferentialIntegrity)
}

func TestCreatePayment_LinkedRecordChecks(t *testing.T) {
	t.Run("treatment of another patient", func(t *testing.T) {
		f := newLedgerFixture(t, nil)
		f.patients.On("Exists", mock.Anything, testPatient).Return(true, nil)
		f.records.On("RecordOwner", mock.Anything, domain.RecordKindTreatment, testTreatment).Return("PT-002", nil)

		_, err := f.svc.CreatePayment(context.Background(), CreatePaymentRequest{
			PatientID: testPatient, Amount: "10", TreatmentID: testTreatment,
		})
		assert.ErrorIs(t, err, domain.ErrReferentialIntegrity)
	})

	t.Run("missing lab work", func(t *testing.T) {
		f := newLedgerFixture(t, nil)
		f.patients.On("Exists", mock.Anything, testPatient).Return(true, nil)
		f.records.On("RecordOwner", mock.Anything, domain.RecordKindLabWork, testLabWork).
			Return("", domain.NotFoundf("lab_work %s", testLabWork))

		_, err := f.svc.CreatePayment(context.Background(), CreatePaymentRequest{
			PatientID: testPatient, Amount: "10", LabWorkID: testLabWork,
		})
		assert.ErrorIs(t, err, domain.ErrReferentialIntegrity)
	})

	t.Run("lookup unavailable", func(t *testing.T) {
		f := newLedgerFixture(t, nil)
		f.patients.On("Exists", mock.Anything, testPatient).Return(true, nil)
		f.records.On("RecordOwner", mock.Anything, domain.RecordKindLabWork, testLabWork).
			Return("", &domain.IOError{Op: "GET lab_work", Err: errors.New("connection refused")})

		_, err := f.svc.CreatePayment(context.Background(), CreatePaymentRequest{
			PatientID: testPatient, Amount: "10", LabWorkID: testLabWork,
		})
		assert.ErrorIs(t, err, domain.ErrIO)
		assert.NotErrorIs(t, err, domain.ErrReferentialIntegrity)
	})

	t.Run("own lab work", func(t *testing.T) {
		f := newLedgerFixture(t, nil)
		f.patients.On("Exists", mock.Anything, testPatient).Return(true, nil)
		f.records.On("RecordOwner", mock.Anything, domain.RecordKindLabWork, testLabWork).Return(testPatient, nil)
		f.pub.On("Publish", mock.Anything, eventOfType(events.PaymentCreated)).Return(nil)

		p, err := f.svc.CreatePayment(context.Background(), CreatePaymentRequest{
			PatientID: testPatient, Amount: "800.00", LabWorkID: testLabWork,
		})
		require.NoError(t, err)
		require.NotNil(t, p.LabWorkID)
		assert.Equal(t, testLabWork, *p.LabWorkID)
	})
}

func TestCreatePayment_PublishFailureDoesNotFailWrite(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	f := newLedgerFixture(t, zap.New(core))
	f.patients.On("Exists", mock.Anything, testPatient).Return(true, nil)
	f.pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	p, err := f.svc.CreatePayment(context.Background(), CreatePaymentRequest{PatientID: testPatient, Amount: "10"})
	require.NoError(t, err)

	_, err = f.repo.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Failed to publish ledger event").Len())
}

func TestCreatePayment_StorageFailurePropagates(t *testing.T) {
	f := newLedgerFixture(t, nil)
	f.patients.On("Exists", mock.Anything, testPatient).Return(true, nil)
	f.repo.failWith = &domain.IOError{Op: "insert payment", Uncertain: true, Err: context.DeadlineExceeded}

	_, err := f.svc.CreatePayment(context.Background(), CreatePaymentRequest{PatientID: testPatient, Amount: "10"})
	assert.ErrorIs(t, err, domain.ErrIO)
	assert.True(t, domain.IsUncertain(err))
}

func TestUpdatePayment(t *testing.T) {
	f := newLedgerFixture(t, nil)
	f.patients.On("Exists", mock.Anything, testPatient).Return(true, nil)
	f.pub.On("Publish", mock.Anything, eventOfType(events.PaymentCreated)).Return(nil)
	f.pub.On("Publish", mock.Anything, eventOfType(events.PaymentUpdated)).Return(nil)
	ctx := context.Background()

	p, err := f.svc.CreatePayment(ctx, CreatePaymentRequest{PatientID: testPatient, Amount: "100", Notes: "first visit"})
	require.NoError(t, err)

	amount, method := "120.50", "Insurance"
	updated, err := f.svc.UpdatePayment(ctx, UpdatePaymentRequest{PaymentID: p.ID, Amount: &amount, Method: &method})
	require.NoError(t, err)
	assert.Equal(t, "120.50", domain.FormatAmount(updated.Amount))
	assert.Equal(t, domain.PaymentMethodInsurance, updated.Method)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "first visit", *updated.Notes)

	empty := ""
	updated, err = f.svc.UpdatePayment(ctx, UpdatePaymentRequest{PaymentID: p.ID, Notes: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.Notes)
	assert.Equal(t, p.PaymentDate, updated.PaymentDate)
}

func TestUpdatePayment_Rejections(t *testing.T) {
	f := newLedgerFixture(t, nil)
	ctx := context.Background()
	date, patient, zero := "2024-01-01", "PT-002", "0"

	_, err := f.svc.UpdatePayment(ctx, UpdatePaymentRequest{PaymentID: testTreatment, PaymentDate: &date})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.UpdatePayment(ctx, UpdatePaymentRequest{PaymentID: testTreatment, PatientID: &patient})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.UpdatePayment(ctx, UpdatePaymentRequest{PaymentID: testTreatment})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.UpdatePayment(ctx, UpdatePaymentRequest{PaymentID: testTreatment, Amount: &zero})
	assert.ErrorIs(t, err, domain.ErrValidation)

	amount := "10"
	_, err = f.svc.UpdatePayment(ctx, UpdatePaymentRequest{PaymentID: testTreatment, Amount: &amount})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeletePayment_NotIdempotent(t *testing.T) {
	f := newLedgerFixture(t, nil)
	f.patients.On("Exists", mock.Anything, testPatient).Return(true, nil)
	f.pub.On("Publish", mock.Anything, eventOfType(events.PaymentCreated)).Return(nil)
	f.pub.On("Publish", mock.Anything, eventOfType(events.PaymentDeleted)).Return(nil).Once()
	ctx := context.Background()

	p, err := f.svc.CreatePayment(ctx, CreatePaymentRequest{PatientID: testPatient, Amount: "10"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePayment(ctx, p.ID))
	assert.ErrorIs(t, f.svc.DeletePayment(ctx, p.ID), domain.ErrNotFound)

	_, err = f.svc.GetPayment(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByPatient_NewestFirst(t *testing.T) {
	f := newLedgerFixture(t, nil)
	f.patients.On("Exists", mock.Anything, testPatient).Return(true, nil)
	f.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	for _, date := range []string{"2024-03-01", "2024-03-10", "2024-03-05", "2024-03-10"} {
		_, err := f.svc.CreatePayment(ctx, CreatePaymentRequest{PatientID: testPatient, Amount: "10", PaymentDate: date})
		require.NoError(t, err)
	}

	payments, err := f.svc.ListByPatient(ctx, testPatient)
	require.NoError(t, err)
	require.Len(t, payments, 4)
	for i := 1; i < len(payments); i++ {
		prev, cur := payments[i-1], payments[i]
		assert.False(t, cur.PaymentDate.After(prev.PaymentDate))
		if cur.PaymentDate.Equal(prev.PaymentDate) {
			assert.True(t, cur.CreatedAt.Before(prev.CreatedAt))
		}
	}

	none, err := f.svc.ListByPatient(ctx, "PT-002")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = f.svc.ListByPatient(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdatePayment_EmptyMethodRejected(t *testing.T) {
	f := newLedgerFixture(t, nil)
	f.patients.On("Exists", mock.Anything, testPatient).Return(true, nil)
	f.pub.On("Publish", mock.Anything, eventOfType(events.PaymentCreated)).Return(nil)
	ctx := context.Background()

	p, err := f.svc.CreatePayment(ctx, CreatePaymentRequest{PatientID: testPatient, Amount: "10", Method: "card"})
	require.NoError(t, err)

	for _, method := range []string{"", "   "} {
		m := method
		_, err = f.svc.UpdatePayment(ctx, UpdatePaymentRequest{PaymentID: p.ID, Method: &m})
		assert.ErrorIs(t, err, domain.ErrValidation)
	}

	stored, err := f.svc.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentMethodCard, stored.Method)
}

func TestCreatePayment_PublishSurvivesCancelledRequest(t *testing.T) {
	f := newLedgerFixture(t, nil)
	f.patients.On("Exists", mock.Anything, testPatient).Return(true, nil)
	f.pub.On("Publish", mock.MatchedBy(func(ctx context.Context) bool {
		_, hasDeadline := ctx.Deadline()
		return ctx.Err() == nil && hasDeadline
	}), eventOfType(events.PaymentCreated)).Return(nil).Once()

	// the client hangs up once the write is committed
	ctx, cancel := context.WithCancel(context.Background())
	f.repo.afterWrite = cancel

	_, err := f.svc.CreatePayment(ctx, CreatePaymentRequest{PatientID: testPatient, Amount: "10"})
	require.NoError(t, err)
	assert.Error(t, ctx.Err())
}
