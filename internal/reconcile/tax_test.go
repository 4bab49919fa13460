package reconcile_test

import (
	"testing"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"
	"github.com/boddenberg/finadmin-bfa-go/internal/reconcile"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(t *testing.T, d decimal.NullDecimal) string {
	t.Helper()
	if !d.Valid {
		return "<cleared>"
	}
	return d.Decimal.StringFixed(2)
}

func TestResolve_ForwardNotSplit(t *testing.T) {
	got := reconcile.Resolve(domain.TaxFieldSet{
		TaxableValue:   amt("1000"),
		TaxRatePercent: amt("18"),
	}, domain.FieldTaxableValue)

	assert.Equal(t, "180.00", fixed(t, got.PrimaryTaxAmount))
	assert.Equal(t, "<cleared>", fixed(t, got.SplitTaxAmountA))
	assert.Equal(t, "<cleared>", fixed(t, got.SplitTaxAmountB))
	assert.Equal(t, "1180.00", fixed(t, got.Total))
}

func TestResolve_ForwardAddsCess(t *testing.T) {
	got := reconcile.Resolve(domain.TaxFieldSet{
		TaxableValue:   amt("1000"),
		TaxRatePercent: amt("18"),
		CessAmount:     amt("25.5"),
	}, domain.FieldTaxRate)

	assert.Equal(t, "180.00", fixed(t, got.PrimaryTaxAmount))
	assert.Equal(t, "1205.50", fixed(t, got.Total))
	assert.Equal(t, "25.50", fixed(t, got.CessAmount))
}

func TestResolve_RoundTripThroughPrimaryTax(t *testing.T) {
	first := reconcile.Resolve(domain.TaxFieldSet{
		TaxableValue:   amt("1000"),
		TaxRatePercent: amt("18"),
	}, domain.FieldTaxableValue)

	edited := first
	edited.PrimaryTaxAmount = amt("180.00")
	second := reconcile.Resolve(edited, domain.FieldPrimaryTax)

	assert.Equal(t, "1000.00", fixed(t, second.TaxableValue))
	assert.Equal(t, "1180.00", fixed(t, second.Total))
}

func TestResolve_SplitForward(t *testing.T) {
	got := reconcile.Resolve(domain.TaxFieldSet{
		TaxableValue:   amt("1000"),
		TaxRatePercent: amt("18"),
		IsSplit:        true,
	}, domain.FieldTaxableValue)

	assert.Equal(t, "90.00", fixed(t, got.SplitTaxAmountA))
	assert.Equal(t, "90.00", fixed(t, got.SplitTaxAmountB))
	assert.Equal(t, "<cleared>", fixed(t, got.PrimaryTaxAmount))
	assert.Equal(t, "1180.00", fixed(t, got.Total))
}

func TestResolve_SplitInverse(t *testing.T) {
	for _, field := range []domain.TaxField{domain.FieldSplitTaxA, domain.FieldSplitTaxB} {
		t.Run(string(field), func(t *testing.T) {
			in := domain.TaxFieldSet{
				TaxRatePercent:   amt("18"),
				PrimaryTaxAmount: amt("12"),
				IsSplit:          true,
			}
			if field == domain.FieldSplitTaxA {
				in.SplitTaxAmountA = amt("90")
			} else {
				in.SplitTaxAmountB = amt("90")
			}

			got := reconcile.Resolve(in, field)

			assert.Equal(t, "1000.00", fixed(t, got.TaxableValue))
			assert.Equal(t, fixed(t, in.SplitTaxAmountA), fixed(t, got.SplitTaxAmountA))
			assert.Equal(t, fixed(t, in.SplitTaxAmountB), fixed(t, got.SplitTaxAmountB))
			assert.Equal(t, "<cleared>", fixed(t, got.PrimaryTaxAmount))
			assert.Equal(t, "1090.00", fixed(t, got.Total))
		})
	}
}

func TestResolve_SplitInverseSumsBothHalves(t *testing.T) {
	in := domain.TaxFieldSet{
		TaxRatePercent:  amt("18"),
		SplitTaxAmountA: amt("100"),
		SplitTaxAmountB: amt("90"),
		IsSplit:         true,
	}

	for _, field := range []domain.TaxField{domain.FieldSplitTaxA, domain.FieldSplitTaxB} {
		got := reconcile.Resolve(in, field)

		assert.Equal(t, "2111.11", fixed(t, got.TaxableValue), field)
		assert.Equal(t, "100.00", fixed(t, got.SplitTaxAmountA), field)
		assert.Equal(t, "90.00", fixed(t, got.SplitTaxAmountB), field)
		assert.Equal(t, "<cleared>", fixed(t, got.PrimaryTaxAmount), field)
		assert.Equal(t, "2301.11", fixed(t, got.Total), field)
	}
}

func TestResolve_SplitInverseWithoutHalvesClears(t *testing.T) {
	got := reconcile.Resolve(domain.TaxFieldSet{
		TaxableValue:   amt("1000"),
		TaxRatePercent: amt("18"),
		IsSplit:        true,
	}, domain.FieldSplitTaxA)

	assert.False(t, got.TaxableValue.Valid)
	assert.False(t, got.Total.Valid)
}

func TestResolve_ToggleSplitRedistributes(t *testing.T) {
	s := reconcile.Resolve(domain.TaxFieldSet{
		TaxableValue:   amt("500"),
		TaxRatePercent: amt("12"),
	}, domain.FieldTaxableValue)
	require.Equal(t, "60.00", fixed(t, s.PrimaryTaxAmount))

	s.IsSplit = true
	s = reconcile.Resolve(s, domain.FieldIsSplit)

	assert.Equal(t, "<cleared>", fixed(t, s.PrimaryTaxAmount))
	assert.Equal(t, "30.00", fixed(t, s.SplitTaxAmountA))
	assert.Equal(t, "30.00", fixed(t, s.SplitTaxAmountB))
	assert.Equal(t, "560.00", fixed(t, s.Total))

	s.IsSplit = false
	s = reconcile.Resolve(s, domain.FieldIsSplit)

	assert.Equal(t, "60.00", fixed(t, s.PrimaryTaxAmount))
	assert.Equal(t, "<cleared>", fixed(t, s.SplitTaxAmountA))
	assert.Equal(t, "560.00", fixed(t, s.Total))
}

func TestResolve_ZeroComponentClearsTaxFields(t *testing.T) {
	tests := []struct {
		name string
		in   domain.TaxFieldSet
	}{
		{"zero rate", domain.TaxFieldSet{TaxableValue: amt("1000"), TaxRatePercent: amt("0")}},
		{"zero base", domain.TaxFieldSet{TaxableValue: amt("0"), TaxRatePercent: amt("18")}},
		{"zero rate split", domain.TaxFieldSet{TaxableValue: amt("1000"), TaxRatePercent: amt("0"), IsSplit: true}},
		{"missing rate", domain.TaxFieldSet{TaxableValue: amt("1000")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reconcile.Resolve(tt.in, domain.FieldTaxableValue)
			assert.False(t, got.PrimaryTaxAmount.Valid)
			assert.False(t, got.SplitTaxAmountA.Valid)
			assert.False(t, got.SplitTaxAmountB.Valid)
			assert.Equal(t, fixed(t, tt.in.TaxableValue), fixed(t, got.Total))
		})
	}
}

func TestResolve_ZeroRateBackSolveClears(t *testing.T) {
	s := reconcile.Resolve(domain.TaxFieldSet{
		TaxableValue:   amt("1000"),
		TaxRatePercent: amt("0"),
	}, domain.FieldTaxableValue)

	s.PrimaryTaxAmount = amt("50")
	require.NotPanics(t, func() {
		s = reconcile.Resolve(s, domain.FieldPrimaryTax)
	})

	assert.False(t, s.TaxableValue.Valid)
	assert.Equal(t, "50.00", fixed(t, s.Total))
}

func TestResolve_ZeroRateSplitBackSolveClears(t *testing.T) {
	got := reconcile.Resolve(domain.TaxFieldSet{
		TaxableValue:    amt("1000"),
		SplitTaxAmountA: amt("10"),
		IsSplit:         true,
	}, domain.FieldSplitTaxA)

	assert.False(t, got.TaxableValue.Valid)
	assert.Equal(t, "10.00", fixed(t, got.SplitTaxAmountA))
	assert.False(t, got.SplitTaxAmountB.Valid)
	assert.Equal(t, "10.00", fixed(t, got.Total))
}

func TestResolve_PrimaryTaxIgnoredWhenSplit(t *testing.T) {
	got := reconcile.Resolve(domain.TaxFieldSet{
		TaxableValue:     amt("1000"),
		TaxRatePercent:   amt("18"),
		PrimaryTaxAmount: amt("999"),
		IsSplit:          true,
	}, domain.FieldPrimaryTax)

	assert.Equal(t, "1000.00", fixed(t, got.TaxableValue))
	assert.False(t, got.PrimaryTaxAmount.Valid)
	assert.Equal(t, "90.00", fixed(t, got.SplitTaxAmountA))
}

func TestResolve_TotalEditBackSolvesTaxable(t *testing.T) {
	s := reconcile.Resolve(domain.TaxFieldSet{
		TaxableValue:   amt("1000"),
		TaxRatePercent: amt("18"),
		CessAmount:     amt("20"),
	}, domain.FieldTaxableValue)
	require.Equal(t, "1200.00", fixed(t, s.Total))

	s.Total = amt("1300")
	s = reconcile.Resolve(s, domain.FieldTotal)

	assert.Equal(t, "1100.00", fixed(t, s.TaxableValue))
	assert.Equal(t, "180.00", fixed(t, s.PrimaryTaxAmount), "tax is not recomputed on a total edit")
	assert.Equal(t, "1300.00", fixed(t, s.Total))
	assert.True(t, reconcile.Discrepancy(s).LessThanOrEqual(reconcile.Tolerance))
	assert.True(t, reconcile.RateDrift(s).GreaterThan(reconcile.Tolerance))
}

func TestResolve_TotalEditClampsNonPositive(t *testing.T) {
	s := domain.TaxFieldSet{
		TaxableValue:     amt("1000"),
		TaxRatePercent:   amt("18"),
		PrimaryTaxAmount: amt("180"),
		Total:            amt("150"),
	}

	got := reconcile.Resolve(s, domain.FieldTotal)
	assert.False(t, got.TaxableValue.Valid)

	s.Total = amt("180")
	got = reconcile.Resolve(s, domain.FieldTotal)
	assert.False(t, got.TaxableValue.Valid)
}

// A total edit followed by a taxable edit does not land back on the total
// the user typed: the total path leaves tax untouched. Expected behaviour.
func TestResolve_TotalEditDoesNotRoundTrip(t *testing.T) {
	s := reconcile.Resolve(domain.TaxFieldSet{
		TaxableValue:   amt("1000"),
		TaxRatePercent: amt("18"),
	}, domain.FieldTaxableValue)

	s.Total = amt("1300")
	s = reconcile.Resolve(s, domain.FieldTotal)
	require.Equal(t, "1120.00", fixed(t, s.TaxableValue))

	s = reconcile.Resolve(s, domain.FieldTaxableValue)
	assert.Equal(t, "201.60", fixed(t, s.PrimaryTaxAmount))
	assert.Equal(t, "1321.60", fixed(t, s.Total))
}

func TestResolve_RoundsDerivedValues(t *testing.T) {
	got := reconcile.Resolve(domain.TaxFieldSet{
		TaxableValue:   amt("333.33"),
		TaxRatePercent: amt("7.5"),
	}, domain.FieldTaxableValue)

	// 333.33 * 7.5% = 24.99975
	assert.Equal(t, "25.00", fixed(t, got.PrimaryTaxAmount))
	assert.Equal(t, "358.33", fixed(t, got.Total))
	assert.Equal(t, int32(-2), got.Total.Decimal.Exponent())
}

func TestResolve_RateAndCessNeverRecomputed(t *testing.T) {
	in := domain.TaxFieldSet{
		TaxableValue:     amt("10"),
		TaxRatePercent:   amt("18"),
		PrimaryTaxAmount: amt("5"),
		CessAmount:       amt("1"),
		Total:            amt("40"),
	}

	for _, field := range domain.TaxFields {
		got := reconcile.Resolve(in, field)
		assert.True(t, got.TaxRatePercent.Decimal.Equal(in.TaxRatePercent.Decimal), field)
		assert.True(t, got.CessAmount.Decimal.Equal(in.CessAmount.Decimal), field)
		assert.Equal(t, in.IsSplit, got.IsSplit, field)
	}
}

func TestResolve_TotalMatchesPartsAfterEveryEdit(t *testing.T) {
	in := domain.TaxFieldSet{
		TaxableValue:     amt("1234.56"),
		TaxRatePercent:   amt("28"),
		PrimaryTaxAmount: amt("345.68"),
		SplitTaxAmountA:  amt("172.84"),
		SplitTaxAmountB:  amt("172.84"),
		CessAmount:       amt("12.5"),
		Total:            amt("1600"),
	}

	for _, split := range []bool{false, true} {
		in.IsSplit = split
		for _, field := range domain.TaxFields {
			got := reconcile.Resolve(in, field)
			assert.True(t, reconcile.Discrepancy(got).LessThanOrEqual(reconcile.Tolerance),
				"split=%v field=%s discrepancy=%s", split, field, reconcile.Discrepancy(got))
		}
	}
}

func TestResolve_UnknownFieldIsNoop(t *testing.T) {
	in := domain.TaxFieldSet{TaxableValue: amt("1"), Total: amt("99")}
	got := reconcile.Resolve(in, domain.TaxField("discount"))
	assert.Equal(t, in, got)
}

func TestResolve_DoesNotMutateCaller(t *testing.T) {
	in := domain.TaxFieldSet{TaxableValue: amt("1000"), TaxRatePercent: amt("18")}
	_ = reconcile.Resolve(in, domain.FieldTaxableValue)
	assert.False(t, in.PrimaryTaxAmount.Valid)
	assert.False(t, in.Total.Valid)
}
