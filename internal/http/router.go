package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Router standard library http.ServeMux with method patterns
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	r.mux.ServeHTTP(rec, req)
	r.logger.Debug("http request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)),
	)
}

// RegisterLedgerRoutes payments, balances and statement export
func (r *Router) RegisterLedgerRoutes(h *LedgerHandler) {
	r.Handle("POST /payments", h.CreatePayment)
	r.Handle("GET /payments/{id}", h.GetPayment)
	r.Handle("PATCH /payments/{id}", h.UpdatePayment)
	r.Handle("DELETE /payments/{id}", h.DeletePayment)

	r.Handle("GET /patients/{id}/payments", h.ListPatientPayments)
	r.Handle("GET /patients/{id}/payments/export", h.ExportPatientStatement)
	r.Handle("GET /patients/{id}/summary", h.PatientSummary)

	r.Handle("GET /lab-work/{id}/payments", h.ListLabWorkPayments)
	r.Handle("GET /lab-work/{id}/summary", h.LabWorkSummary)
}

// Pinger *sql.DB satisfies this
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RegisterHealthRoutes GET /health; 503 when the database does not answer
func (r *Router) RegisterHealthRoutes(db Pinger) {
	r.Handle("GET /health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			r.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, FailCode(ResultUnavailable, "database unavailable"))
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
