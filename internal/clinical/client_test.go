package clinical

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dental-ledger/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
	mux.HandleFunc("GET /patients/PT-001/treatments/costs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"costs": ["1500.00", null]}`)
	})
	mux.HandleFunc("GET /patients/PT-001/lab-work/costs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"costs": []}`)
	})
	mux.HandleFunc("GET /patients/PT-500/lab-work/costs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"error": "boom"}`)
	})
	mux.HandleFunc("GET /patients/PT-001", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"patient_id": "PT-001"}`)
	})
	mux.HandleFunc("GET /lab-work/lw-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"id": "lw-1", "patient_id": "PT-001", "cost": "800.00"}`)
	})
	mux.HandleFunc("GET /treatments/tr-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"id": "tr-1", "patient_id": "PT-002", "cost": null}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Costs(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, time.Second, zap.NewNop())
	ctx := context.Background()

	costs, err := c.TreatmentCosts(ctx, "PT-001")
	require.NoError(t, err)
	require.Len(t, costs, 2)
	assert.Equal(t, "1500.00", domain.FormatAmount(costs[0].Decimal))
	assert.False(t, costs[1].Valid)

	costs, err = c.LabWorkCosts(ctx, "PT-001")
	require.NoError(t, err)
	assert.Empty(t, costs)

	_, err = c.LabWorkCosts(ctx, "PT-500")
	assert.ErrorIs(t, err, domain.ErrIO)
}

func TestClient_LabWorkAndOwner(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, time.Second, zap.NewNop())
	ctx := context.Background()

	lw, err := c.LabWorkCost(ctx, "lw-1")
	require.NoError(t, err)
	assert.Equal(t, "PT-001", lw.PatientID)
	assert.Equal(t, "800.00", domain.FormatAmount(lw.Cost.Decimal))

	_, err = c.LabWorkCost(ctx, "lw-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	owner, err := c.RecordOwner(ctx, domain.RecordKindTreatment, "tr-1")
	require.NoError(t, err)
	assert.Equal(t, "PT-002", owner)
}

func TestClient_Exists(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, time.Second, zap.NewNop())
	ctx := context.Background()

	ok, err := c.Exists(ctx, "PT-001")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists(ctx, "PT-404")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_Unreachable(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL
	srv.Close()

	c := NewClient(url, 200*time.Millisecond, zap.NewNop())
	_, err := c.TreatmentCosts(context.Background(), "PT-001")
	assert.ErrorIs(t, err, domain.ErrIO)
	assert.False(t, domain.IsUncertain(err))
}
