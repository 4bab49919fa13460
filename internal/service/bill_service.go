package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"
	"github.com/boddenberg/finadmin-bfa-go/internal/infra/observability"
	"github.com/boddenberg/finadmin-bfa-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var billTracer = otel.Tracer("service/bills")

// ledgerInvalidator drops cached ledger entries of an account.
type ledgerInvalidator interface {
	InvalidateAccount(accountID string)
}

// BillService records vendor bills and lists them back.
type BillService struct {
	store     port.BillStore
	publisher port.EventPublisher
	tax       *TaxService
	ledger    ledgerInvalidator
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewBillService creates a new bill service. ledger may be nil.
func NewBillService(
	store port.BillStore,
	publisher port.EventPublisher,
	tax *TaxService,
	ledger ledgerInvalidator,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *BillService {
	return &BillService{
		store:     store,
		publisher: publisher,
		tax:       tax,
		ledger:    ledger,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordBill validates and stores a bill, then publishes bill.recorded.
// A publish failure is logged and does not fail the call: the bill is
// already stored.
func (s *BillService) RecordBill(ctx context.Context, req *domain.BillRequest) (*domain.Bill, error) {
	ctx, span := billTracer.Start(ctx, "BillService.RecordBill")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("record_bill", time.Since(start)) }()

	if err := s.validate(req); err != nil {
		s.metrics.IncrBill("rejected")
		return nil, err
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	bill := &domain.Bill{
		ID:             uuid.NewString(),
		IdempotencyKey: key,
		VendorID:       req.VendorID,
		VendorName:     strings.TrimSpace(req.VendorName),
		BillNumber:     strings.TrimSpace(req.BillNumber),
		AccountID:      req.AccountID,
		IssueDate:      req.IssueDate,
		DueDate:        req.DueDate,
		Description:    req.Description,
		Tax:            req.Tax,
		Status:         domain.BillStatusOpen,
		CreatedAt:      s.now().UTC(),
	}
	span.SetAttributes(
		attribute.String("bill.id", bill.ID),
		attribute.String("vendor.id", bill.VendorID),
	)

	created, err := s.store.CreateBill(ctx, bill)
	if err != nil {
		var dup *domain.ErrDuplicate
		if errors.As(err, &dup) {
			s.metrics.IncrBill("duplicate")
			return nil, err
		}
		s.metrics.IncrBill("failed")
		recordExternalError(s.metrics, err)
		return nil, fmt.Errorf("create bill: %w", err)
	}
	s.metrics.IncrBill("recorded")

	if s.ledger != nil && created.AccountID != "" {
		s.ledger.InvalidateAccount(created.AccountID)
	}

	evt := domain.BillRecordedEvent{
		BillID:     created.ID,
		VendorID:   created.VendorID,
		BillNumber: created.BillNumber,
		Total:      domain.ValueOrZero(created.Tax.Total).StringFixed(2),
		TaxAmount:  created.Tax.TaxAmount().StringFixed(2),
		IsSplit:    created.Tax.IsSplit,
		RecordedAt: created.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, created.VendorID, evt); err != nil {
		s.logger.Warn("bill.recorded not published",
			zap.String("bill_id", created.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("bill recorded",
		zap.String("bill_id", created.ID),
		zap.String("vendor_id", created.VendorID),
		zap.String("total", evt.Total),
	)
	return created, nil
}

func (s *BillService) validate(req *domain.BillRequest) error {
	if req == nil {
		return &domain.ErrValidation{Field: "body", Message: "required"}
	}
	if strings.TrimSpace(req.VendorID) == "" {
		return &domain.ErrValidation{Field: "vendor_id", Message: "required"}
	}
	if strings.TrimSpace(req.BillNumber) == "" {
		return &domain.ErrValidation{Field: "bill_number", Message: "required"}
	}
	if req.IssueDate.IsZero() {
		return &domain.ErrValidation{Field: "issue_date", Message: "required"}
	}
	if req.DueDate.IsZero() {
		return &domain.ErrValidation{Field: "due_date", Message: "required"}
	}
	if req.DueDate.Before(req.IssueDate) {
		return &domain.ErrValidation{Field: "due_date", Message: "must not be before issue_date"}
	}

	t := req.Tax
	amounts := []struct {
		field string
		value decimal.NullDecimal
	}{
		{"taxable_value", t.TaxableValue},
		{"tax_rate_percent", t.TaxRatePercent},
		{"primary_tax_amount", t.PrimaryTaxAmount},
		{"split_tax_amount_a", t.SplitTaxAmountA},
		{"split_tax_amount_b", t.SplitTaxAmountB},
		{"cess_amount", t.CessAmount},
		{"total", t.Total},
	}
	for _, a := range amounts {
		if a.value.Valid && a.value.Decimal.IsNegative() {
			return &domain.ErrValidation{Field: a.field, Message: "must not be negative"}
		}
	}
	if !t.Total.Valid || !t.Total.Decimal.IsPositive() {
		return &domain.ErrValidation{Field: "total", Message: "must be greater than zero"}
	}

	return s.tax.CheckConsistency(t)
}

// ListBills returns a page of bills, newest first.
func (s *BillService) ListBills(ctx context.Context, vendorID string, page, pageSize int) (*domain.ListResponse[domain.Bill], error) {
	ctx, span := billTracer.Start(ctx, "BillService.ListBills")
	defer span.End()
	span.SetAttributes(attribute.String("vendor.id", vendorID))

	// one extra row tells whether another page exists
	bills, err := s.store.ListBills(ctx, vendorID, pageSize+1, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}

	hasMore := len(bills) > pageSize
	if hasMore {
		bills = bills[:pageSize]
	}
	if bills == nil {
		bills = []domain.Bill{}
	}

	return &domain.ListResponse[domain.Bill]{
		Data:     bills,
		Page:     page,
		PageSize: pageSize,
		HasMore:  hasMore,
	}, nil
}

func (s *BillService) GetBill(ctx context.Context, billID string) (*domain.Bill, error) {
	ctx, span := billTracer.Start(ctx, "BillService.GetBill")
	defer span.End()
	span.SetAttributes(attribute.String("bill.id", billID))

	if billID == "" {
		return nil, &domain.ErrValidation{Field: "billId", Message: "required"}
	}
	return s.store.GetBill(ctx, billID)
}
