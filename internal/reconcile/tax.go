package reconcile

import (
	"github.com/boddenberg/finadmin-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Places is the precision every derived amount is rounded to.
const Places = 2

var (
	hundred    = decimal.NewFromInt(100)
	twoHundred = decimal.NewFromInt(200)

	// Tolerance is the largest gap accepted between a total and its parts.
	Tolerance = decimal.New(1, -Places)
)

var cleared = decimal.NullDecimal{}

type resolveFunc func(domain.TaxFieldSet) domain.TaxFieldSet

// resolvers maps the edited field to the transform that treats it as ground
// truth. Rate, cess and the split flag are inputs only: editing them re-runs
// the forward computation.
var resolvers = map[domain.TaxField]resolveFunc{
	domain.FieldTaxableValue: forward,
	domain.FieldTaxRate:      forward,
	domain.FieldCess:         forward,
	domain.FieldIsSplit:      forward,
	domain.FieldPrimaryTax:   fromPrimaryTax,
	domain.FieldSplitTaxA:    fromSplitTax,
	domain.FieldSplitTaxB:    fromSplitTax,
	domain.FieldTotal:        fromTotal,
}

// Resolve returns a copy of fields made consistent with the value the user
// just edited. An unknown field returns the set unchanged.
func Resolve(fields domain.TaxFieldSet, edited domain.TaxField) domain.TaxFieldSet {
	fn, ok := resolvers[edited]
	if !ok {
		return fields
	}
	return fn(fields)
}

// forward derives the tax components and the total from the taxable value
// and the rate. A zero component clears the tax fields instead of writing
// 0.00.
func forward(s domain.TaxFieldSet) domain.TaxFieldSet {
	base := domain.ValueOrZero(s.TaxableValue)
	rate := domain.ValueOrZero(s.TaxRatePercent)

	s.PrimaryTaxAmount, s.SplitTaxAmountA, s.SplitTaxAmountB = cleared, cleared, cleared
	if s.IsSplit {
		half := positiveOrCleared(base.Mul(rate).Div(twoHundred))
		s.SplitTaxAmountA, s.SplitTaxAmountB = half, half
	} else {
		s.PrimaryTaxAmount = positiveOrCleared(base.Mul(rate).Div(hundred))
	}

	s.Total = total(s)
	return s
}

func fromPrimaryTax(s domain.TaxFieldSet) domain.TaxFieldSet {
	if s.IsSplit {
		// primary is not authoritative in split mode
		return forward(s)
	}
	s.SplitTaxAmountA, s.SplitTaxAmountB = cleared, cleared
	s.TaxableValue = backSolve(s.PrimaryTaxAmount, s.TaxRatePercent, hundred)
	s.Total = total(s)
	return s
}

// fromSplitTax back-solves the base as (A+B)*200/rate. Both halves are kept
// as entered. An absent half counts as zero.
// TODO: product to confirm the x200 factor; with forward's halves of
// base*rate/200 each, the sum back-solves to twice the base.
func fromSplitTax(s domain.TaxFieldSet) domain.TaxFieldSet {
	if !s.IsSplit {
		return forward(s)
	}
	s.PrimaryTaxAmount = cleared
	s.TaxableValue = backSolve(sumPresent(s.SplitTaxAmountA, s.SplitTaxAmountB), s.TaxRatePercent, twoHundred)
	s.Total = total(s)
	return s
}

// sumPresent adds the valid values. It is cleared only when none is valid.
func sumPresent(values ...decimal.NullDecimal) decimal.NullDecimal {
	sum, present := decimal.Zero, false
	for _, v := range values {
		if v.Valid {
			sum = sum.Add(v.Decimal)
			present = true
		}
	}
	if !present {
		return cleared
	}
	return decimal.NewNullDecimal(sum)
}

// fromTotal lets the taxable value absorb the difference between the new
// total and the current tax and cess. Tax amounts are kept as they are, so
// this does not round-trip with forward.
// TODO: product to confirm whether a total edit should rescale the tax
// amounts instead; CheckConsistency only warns on the resulting rate drift.
func fromTotal(s domain.TaxFieldSet) domain.TaxFieldSet {
	if !s.Total.Valid {
		s.TaxableValue = cleared
		return s
	}
	base := s.Total.Decimal.Sub(s.TaxAmount()).Sub(domain.ValueOrZero(s.CessAmount))
	if !base.IsPositive() {
		s.TaxableValue = cleared
		return s
	}
	s.TaxableValue = rounded(base)
	return s
}

// backSolve computes amount*scale/rate. A missing or zero rate has no
// inverse and yields a cleared value.
func backSolve(amount, rate decimal.NullDecimal, scale decimal.Decimal) decimal.NullDecimal {
	if !amount.Valid || !rate.Valid || !rate.Decimal.IsPositive() {
		return cleared
	}
	v := amount.Decimal.Mul(scale).Div(rate.Decimal)
	if v.IsNegative() {
		return cleared
	}
	return rounded(v)
}

// total sums the present parts. With nothing present the total is cleared.
func total(s domain.TaxFieldSet) decimal.NullDecimal {
	parts := []decimal.NullDecimal{s.TaxableValue, s.CessAmount}
	if s.IsSplit {
		parts = append(parts, s.SplitTaxAmountA, s.SplitTaxAmountB)
	} else {
		parts = append(parts, s.PrimaryTaxAmount)
	}

	sum, present := decimal.Zero, false
	for _, p := range parts {
		if p.Valid {
			sum = sum.Add(p.Decimal)
			present = true
		}
	}
	if !present || sum.IsNegative() {
		return cleared
	}
	return rounded(sum)
}

func rounded(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d.Round(Places))
}

func positiveOrCleared(d decimal.Decimal) decimal.NullDecimal {
	d = d.Round(Places)
	if !d.IsPositive() {
		return cleared
	}
	return decimal.NewNullDecimal(d)
}

// Discrepancy is |total - (taxable + tax + cess)|.
func Discrepancy(s domain.TaxFieldSet) decimal.Decimal {
	parts := domain.ValueOrZero(s.TaxableValue).
		Add(s.TaxAmount()).
		Add(domain.ValueOrZero(s.CessAmount))
	return domain.ValueOrZero(s.Total).Sub(parts).Abs()
}

// RateDrift is |tax - taxable*rate/100|. It is non-zero after a total edit
// because that path does not recompute tax.
func RateDrift(s domain.TaxFieldSet) decimal.Decimal {
	expected := domain.ValueOrZero(s.TaxableValue).
		Mul(domain.ValueOrZero(s.TaxRatePercent)).
		Div(hundred).
		Round(Places)
	return s.TaxAmount().Sub(expected).Abs()
}
