// Package reconcile holds the pure numeric rules behind the ledger and bill
// screens: running balances over ledger entries and the linked tax fields of
// a bill form. Nothing here performs I/O or keeps state between calls.
package reconcile

import (
	"slices"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Accumulate orders entries chronologically and annotates each one with the
// running balance (credits increase, debits decrease). Entries sharing a
// timestamp keep their input order. The input slice is left untouched.
func Accumulate(entries []domain.LedgerEntry) []domain.BalancedEntry {
	out := make([]domain.BalancedEntry, len(entries))
	for i, e := range entries {
		out[i] = domain.BalancedEntry{LedgerEntry: e}
	}

	slices.SortStableFunc(out, func(a, b domain.BalancedEntry) int {
		return a.OccurredAt.Compare(b.OccurredAt)
	})

	balance := decimal.Zero
	for i := range out {
		balance = balance.Add(Delta(out[i].LedgerEntry))
		out[i].RunningBalance = balance
	}
	return out
}

// Delta is the signed effect of one entry on its account balance.
// Amounts are taken as absolute values: producers may encode direction in
// the field rather than the sign.
func Delta(e domain.LedgerEntry) decimal.Decimal {
	return domain.ValueOrZero(e.CreditAmount).Abs().Sub(domain.ValueOrZero(e.DebitAmount).Abs())
}

// Totals sums the absolute debit and credit amounts of entries.
func Totals(entries []domain.BalancedEntry) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range entries {
		debit = debit.Add(domain.ValueOrZero(e.DebitAmount).Abs())
		credit = credit.Add(domain.ValueOrZero(e.CreditAmount).Abs())
	}
	return debit, credit
}
