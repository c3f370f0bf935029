package clinical

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dental-ledger/internal/domain"
	"dental-ledger/internal/repository"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Client remote Clinical Records / Patient Directory service.
// Requests are not retried here: a failed fetch surfaces as domain.ErrIO and the
// caller retries the whole operation.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient baseURL e.g. "http://clinical-records:8080/api/v1"
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = repository.DefaultQueryTimeout
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{httpClient: httpClient, logger: logger}
}

var (
	_ repository.ClinicalRecords  = (*Client)(nil)
	_ repository.PatientDirectory = (*Client)(nil)
)

type costsResponse struct {
	Costs []decimal.NullDecimal `json:"costs"`
}

type recordResponse struct {
	ID        string              `json:"id"`
	PatientID string              `json:"patient_id"`
	Cost      decimal.NullDecimal `json:"cost"`
}

// TreatmentCosts GET /patients/{id}/treatments/costs
func (c *Client) TreatmentCosts(ctx context.Context, patientID string) ([]decimal.NullDecimal, error) {
	return c.costs(ctx, "/patients/{id}/treatments/costs", patientID)
}

// LabWorkCosts GET /patients/{id}/lab-work/costs
func (c *Client) LabWorkCosts(ctx context.Context, patientID string) ([]decimal.NullDecimal, error) {
	return c.costs(ctx, "/patients/{id}/lab-work/costs", patientID)
}

func (c *Client) costs(ctx context.Context, path, patientID string) ([]decimal.NullDecimal, error) {
	var out costsResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", patientID).
		SetResult(&out).
		Get(path)
	if err := c.check("GET "+path, resp, err); err != nil {
		return nil, err
	}
	if out.Costs == nil {
		out.Costs = []decimal.NullDecimal{}
	}
	return out.Costs, nil
}

// LabWorkCost GET /lab-work/{id}
func (c *Client) LabWorkCost(ctx context.Context, labWorkID string) (*domain.LabWorkCost, error) {
	var out recordResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", labWorkID).
		SetResult(&out).
		Get("/lab-work/{id}")
	if err := c.check("GET /lab-work/"+labWorkID, resp, err); err != nil {
		return nil, err
	}
	return &domain.LabWorkCost{LabWorkID: labWorkID, PatientID: out.PatientID, Cost: out.Cost}, nil
}

// RecordOwner GET /treatments/{id} or /lab-work/{id}
func (c *Client) RecordOwner(ctx context.Context, kind domain.RecordKind, recordID string) (string, error) {
	var path string
	switch kind {
	case domain.RecordKindTreatment:
		path = "/treatments/{id}"
	case domain.RecordKindLabWork:
		path = "/lab-work/{id}"
	default:
		return "", domain.Validationf("unknown record kind %q", kind)
	}

	var out recordResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", recordID).
		SetResult(&out).
		Get(path)
	if err := c.check(fmt.Sprintf("GET %s %s", kind, recordID), resp, err); err != nil {
		return "", err
	}
	return out.PatientID, nil
}

// Exists GET /patients/{id}; 404 means the patient does not exist
func (c *Client) Exists(ctx context.Context, patientID string) (bool, error) {
	if patientID == "" {
		return false, nil
	}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", patientID).
		Get("/patients/{id}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return false, nil
	}
	if err := c.check("GET /patients/"+patientID, resp, err); err != nil {
		return false, err
	}
	return true, nil
}

// check maps transport errors and status codes onto the ledger error kinds
func (c *Client) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Warn("clinical records call failed", zap.String("op", op), zap.Error(err))
		return &domain.IOError{Op: op, Err: err}
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return domain.NotFoundf("%s", op)
	case resp.IsError():
		c.logger.Warn("clinical records returned error",
			zap.String("op", op),
			zap.Int("status_code", resp.StatusCode()),
		)
		return &domain.IOError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode())}
	}
	return nil
}
