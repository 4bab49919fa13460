package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ============================================================
// Tax form fields
// ============================================================

// TaxField identifies the field of a TaxFieldSet the user last edited.
type TaxField string

const (
	FieldTaxableValue TaxField = "taxable_value"
	FieldTaxRate      TaxField = "tax_rate"
	FieldPrimaryTax   TaxField = "primary_tax"
	FieldSplitTaxA    TaxField = "split_tax_a"
	FieldSplitTaxB    TaxField = "split_tax_b"
	FieldCess         TaxField = "cess"
	FieldTotal        TaxField = "total"
	FieldIsSplit      TaxField = "is_split"
)

// TaxFields lists every editable field, in form order.
var TaxFields = []TaxField{
	FieldTaxableValue,
	FieldTaxRate,
	FieldPrimaryTax,
	FieldSplitTaxA,
	FieldSplitTaxB,
	FieldCess,
	FieldTotal,
	FieldIsSplit,
}

// ParseTaxField validates a field identifier coming from the form.
func ParseTaxField(s string) (TaxField, error) {
	for _, f := range TaxFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", &ErrValidation{Field: "edited_field", Message: fmt.Sprintf("unknown field %q", s)}
}

// TaxFieldSet is the linked group of amounts on a bill form.
// A cleared field is an invalid NullDecimal: "not applicable", as opposed
// to a zero amount.
type TaxFieldSet struct {
	TaxableValue     decimal.NullDecimal `json:"taxable_value"`
	TaxRatePercent   decimal.NullDecimal `json:"tax_rate_percent"`
	PrimaryTaxAmount decimal.NullDecimal `json:"primary_tax_amount"`
	SplitTaxAmountA  decimal.NullDecimal `json:"split_tax_amount_a"`
	SplitTaxAmountB  decimal.NullDecimal `json:"split_tax_amount_b"`
	CessAmount       decimal.NullDecimal `json:"cess_amount"`
	Total            decimal.NullDecimal `json:"total"`
	IsSplit          bool                `json:"is_split"`
}

// TaxAmount returns the authoritative tax amount: the primary component,
// or the sum of the split components when the set is split.
func (s TaxFieldSet) TaxAmount() decimal.Decimal {
	if s.IsSplit {
		return ValueOrZero(s.SplitTaxAmountA).Add(ValueOrZero(s.SplitTaxAmountB))
	}
	return ValueOrZero(s.PrimaryTaxAmount)
}

// ValueOrZero reads a nullable amount, treating cleared as zero.
func ValueOrZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
