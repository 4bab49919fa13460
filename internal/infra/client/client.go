// Package client talks to the finance backend API that owns accounts,
// ledger entries and bills. Every call goes through a bulkhead, a circuit
// breaker and retry with backoff.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"
	"github.com/boddenberg/finadmin-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/finadmin-bfa-go/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("finance-api")

const serviceName = "finance-api"

// FinanceClient implements port.AccountStore, port.LedgerStore and
// port.BillStore over the finance backend's REST API.
type FinanceClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewFinanceClient creates a FinanceClient.
func NewFinanceClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *FinanceClient {
	return &FinanceClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
		logger:     logger,
	}
}

// request describes one call to the finance API.
type request struct {
	method  string
	path    string
	body    any
	headers map[string]string
}

// do executes req with bulkhead, breaker and retry, and decodes a 2xx
// JSON body into out (when out is non-nil). resource/id feed the
// ErrNotFound returned for a 404.
func (c *FinanceClient) do(ctx context.Context, op string, req request, resource, id string, out any) error {
	err := c.bulkhead.Do(ctx, func() error {
		_, err := c.cb.Execute(func() (any, error) {
			return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
				body, err := c.roundTrip(ctx, req)
				if err != nil {
					return classify(err, resource, id)
				}
				if out == nil || len(body) == 0 {
					return nil
				}
				if err := json.Unmarshal(body, out); err != nil {
					return resilience.Permanent(fmt.Errorf("decode %s: %w", op, err))
				}
				return nil
			})
		})
		return err
	})
	return c.mapError(ctx, op, err)
}

// statusError is a non-2xx answer from the finance API.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("finance API returned status %d: %s", e.status, e.body)
}

func (c *FinanceClient) roundTrip(ctx context.Context, r request) ([]byte, error) {
	var payload io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, payload)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("finance-api: request failed",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("finance-api: non-2xx response",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &statusError{status: resp.StatusCode, body: string(body)}
	}

	c.logger.Debug("finance-api: request OK",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
	)
	return body, nil
}

// classify turns a raw transport error into what the retry loop should see.
// 4xx answers are final; 5xx and network errors are retried.
func classify(err error, resource, id string) error {
	var se *statusError
	if !errors.As(err, &se) {
		return err
	}
	switch {
	case se.status == http.StatusNotFound:
		return resilience.Permanent(&domain.ErrNotFound{Resource: resource, ID: id})
	case se.status == http.StatusConflict:
		return resilience.Permanent(&domain.ErrDuplicate{Key: id})
	case se.status == http.StatusBadRequest || se.status == http.StatusUnprocessableEntity:
		return resilience.Permanent(&domain.ErrValidation{Field: resource, Message: se.body})
	case se.status >= 400 && se.status < 500:
		return resilience.Permanent(err)
	}
	return err
}

// mapError converts breaker, context and transport failures into domain
// errors. Domain errors from classify pass through untouched.
func (c *FinanceClient) mapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}

	var (
		nf  *domain.ErrNotFound
		dup *domain.ErrDuplicate
		val *domain.ErrValidation
	)
	switch {
	case errors.As(err, &nf), errors.As(err, &dup), errors.As(err, &val):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: serviceName}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: op}
	}
	return &domain.ErrExternalService{Service: serviceName + "/" + op, Err: err}
}

var (
	_ port.AccountStore = (*FinanceClient)(nil)
	_ port.LedgerStore  = (*FinanceClient)(nil)
	_ port.BillStore    = (*FinanceClient)(nil)
)
