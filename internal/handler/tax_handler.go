package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"
	"github.com/boddenberg/finadmin-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Tax form handlers
// ============================================================

// taxFieldsPayload is the wire form of domain.TaxFieldSet. Amounts travel
// as strings; null or "" means the field is cleared.
type taxFieldsPayload struct {
	TaxableValue     *string `json:"taxable_value"`
	TaxRatePercent   *string `json:"tax_rate_percent"`
	PrimaryTaxAmount *string `json:"primary_tax_amount"`
	SplitTaxAmountA  *string `json:"split_tax_amount_a"`
	SplitTaxAmountB  *string `json:"split_tax_amount_b"`
	CessAmount       *string `json:"cess_amount"`
	Total            *string `json:"total"`
	IsSplit          bool    `json:"is_split"`
}

func (p taxFieldsPayload) toDomain() (domain.TaxFieldSet, error) {
	out := domain.TaxFieldSet{IsSplit: p.IsSplit}

	var err error
	if out.TaxableValue, err = parseAmount("taxable_value", p.TaxableValue); err != nil {
		return out, err
	}
	if out.TaxRatePercent, err = parseAmount("tax_rate_percent", p.TaxRatePercent); err != nil {
		return out, err
	}
	if out.PrimaryTaxAmount, err = parseAmount("primary_tax_amount", p.PrimaryTaxAmount); err != nil {
		return out, err
	}
	if out.SplitTaxAmountA, err = parseAmount("split_tax_amount_a", p.SplitTaxAmountA); err != nil {
		return out, err
	}
	if out.SplitTaxAmountB, err = parseAmount("split_tax_amount_b", p.SplitTaxAmountB); err != nil {
		return out, err
	}
	if out.CessAmount, err = parseAmount("cess_amount", p.CessAmount); err != nil {
		return out, err
	}
	if out.Total, err = parseAmount("total", p.Total); err != nil {
		return out, err
	}
	return out, nil
}

func newTaxFieldsPayload(s domain.TaxFieldSet) taxFieldsPayload {
	return taxFieldsPayload{
		TaxableValue:     formatAmount(s.TaxableValue),
		TaxRatePercent:   formatAmount(s.TaxRatePercent),
		PrimaryTaxAmount: formatAmount(s.PrimaryTaxAmount),
		SplitTaxAmountA:  formatAmount(s.SplitTaxAmountA),
		SplitTaxAmountB:  formatAmount(s.SplitTaxAmountB),
		CessAmount:       formatAmount(s.CessAmount),
		Total:            formatAmount(s.Total),
		IsSplit:          s.IsSplit,
	}
}

type resolveTaxRequest struct {
	Fields      taxFieldsPayload `json:"fields"`
	EditedField string           `json:"edited_field"`
}

type resolveTaxResponse struct {
	Fields taxFieldsPayload `json:"fields"`
}

func resolveTaxHandler(svc *service.TaxService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tax/resolve")
		defer span.End()

		var req resolveTaxRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.String("tax.edited_field", req.EditedField))

		fields, err := req.Fields.toDomain()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resolved, err := svc.Resolve(ctx, fields, req.EditedField)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resolveTaxResponse{Fields: newTaxFieldsPayload(resolved)})
	}
}
