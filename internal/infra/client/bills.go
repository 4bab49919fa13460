package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// CreateBill stores a bill. The idempotency key travels as a header so a
// retried POST is not recorded twice; the API answers 409 for a reused key.
func (c *FinanceClient) CreateBill(ctx context.Context, bill *domain.Bill) (*domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.CreateBill")
	defer span.End()
	span.SetAttributes(
		attribute.String("bill.id", bill.ID),
		attribute.String("vendor.id", bill.VendorID),
	)

	req := request{
		method:  http.MethodPost,
		path:    "/v1/bills",
		body:    bill,
		headers: map[string]string{"Idempotency-Key": bill.IdempotencyKey},
	}

	var created domain.Bill
	if err := c.do(ctx, "create_bill", req, "bill", bill.IdempotencyKey, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return bill, nil
	}
	return &created, nil
}

// ListBills fetches bills newest first, optionally for a single vendor.
func (c *FinanceClient) ListBills(ctx context.Context, vendorID string, limit, offset int) ([]domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.ListBills")
	defer span.End()

	q := url.Values{}
	if vendorID != "" {
		q.Set("vendor_id", vendorID)
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var bills []domain.Bill
	if err := c.do(ctx, "bills", request{method: http.MethodGet, path: "/v1/bills?" + q.Encode()}, "bills", vendorID, &bills); err != nil {
		return nil, err
	}
	if bills == nil {
		bills = []domain.Bill{}
	}
	return bills, nil
}

// GetBill fetches a single bill.
func (c *FinanceClient) GetBill(ctx context.Context, billID string) (*domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.GetBill")
	defer span.End()
	span.SetAttributes(attribute.String("bill.id", billID))

	var bill domain.Bill
	path := "/v1/bills/" + url.PathEscape(billID)
	if err := c.do(ctx, "bill", request{method: http.MethodGet, path: path}, "bill", billID, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}
