package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"
	"github.com/boddenberg/finadmin-bfa-go/internal/infra/observability"
	"github.com/boddenberg/finadmin-bfa-go/internal/reconcile"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var taxTracer = otel.Tracer("service/tax")

// TaxService resolves and checks the linked tax fields of a bill form.
type TaxService struct {
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewTaxService creates a new tax service.
func NewTaxService(metrics *observability.Metrics, logger *zap.Logger) *TaxService {
	return &TaxService{metrics: metrics, logger: logger}
}

// inverseFields are the edits that back-solve the taxable value.
var inverseFields = map[domain.TaxField]bool{
	domain.FieldPrimaryTax: true,
	domain.FieldSplitTaxA:  true,
	domain.FieldSplitTaxB:  true,
	domain.FieldTotal:      true,
}

// Resolve makes fields consistent with the field the user just edited.
func (s *TaxService) Resolve(ctx context.Context, fields domain.TaxFieldSet, edited string) (domain.TaxFieldSet, error) {
	_, span := taxTracer.Start(ctx, "TaxService.Resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("tax.edited_field", edited),
		attribute.Bool("tax.is_split", fields.IsSplit),
	)

	field, err := domain.ParseTaxField(edited)
	if err != nil {
		return domain.TaxFieldSet{}, err
	}

	out := reconcile.Resolve(fields, field)

	s.metrics.IncrTaxResolution(string(field))
	if inverseFields[field] && !out.TaxableValue.Valid {
		s.metrics.IncrClearedBackSolve(string(field))
		s.logger.Debug("back-solve cleared taxable value",
			zap.String("field", string(field)),
			zap.Bool("rate_present", fields.TaxRatePercent.Valid),
		)
	}
	return out, nil
}

// CheckConsistency validates a tax block before it is saved. The total must
// match its parts within reconcile.Tolerance, and the tax fields that do not
// apply to the current mode must be empty. A tax amount that drifted from
// taxable×rate (after a total edit) is only logged.
func (s *TaxService) CheckConsistency(fields domain.TaxFieldSet) error {
	if fields.IsSplit && fields.PrimaryTaxAmount.Valid {
		return &domain.ErrValidation{Field: "primary_tax_amount", Message: "must be empty when tax is split"}
	}
	if !fields.IsSplit && (fields.SplitTaxAmountA.Valid || fields.SplitTaxAmountB.Valid) {
		return &domain.ErrValidation{Field: "split_tax_amount_a", Message: "must be empty when tax is not split"}
	}

	if d := reconcile.Discrepancy(fields); d.GreaterThan(reconcile.Tolerance) {
		return &domain.ErrValidation{
			Field:   "total",
			Message: fmt.Sprintf("does not match taxable value + tax + cess (off by %s)", d.StringFixed(2)),
		}
	}

	if drift := reconcile.RateDrift(fields); drift.GreaterThan(reconcile.Tolerance) {
		s.logger.Warn("tax amount differs from taxable value × rate",
			zap.String("drift", drift.StringFixed(2)),
			zap.Bool("is_split", fields.IsSplit),
		)
	}
	return nil
}
