package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Ledger entries
// ============================================================

// EntryKind categorises a ledger entry. The accumulator never inspects it.
type EntryKind string

const (
	EntryBill        EntryKind = "bill"
	EntryPayment     EntryKind = "payment"
	EntryJournalLine EntryKind = "journal_line"
	EntryPayroll     EntryKind = "payroll"
	EntryLoan        EntryKind = "loan"
)

// IsValid reports whether k is one of the known entry kinds.
func (k EntryKind) IsValid() bool {
	switch k {
	case EntryBill, EntryPayment, EntryJournalLine, EntryPayroll, EntryLoan:
		return true
	}
	return false
}

// LedgerEntry is one dated movement of value into or out of an account.
// Absent amounts are represented by an invalid NullDecimal.
type LedgerEntry struct {
	ID           string              `json:"id"`
	AccountID    string              `json:"account_id"`
	OccurredAt   time.Time           `json:"occurred_at"`
	Kind         EntryKind           `json:"kind"`
	DebitAmount  decimal.NullDecimal `json:"debit_amount"`
	CreditAmount decimal.NullDecimal `json:"credit_amount"`
	Note         string              `json:"note,omitempty"`
}

// BalancedEntry is a LedgerEntry annotated with the account balance right
// after it was applied.
type BalancedEntry struct {
	LedgerEntry
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// LedgerWindow restricts a ledger view to [From, To]. Zero values are open.
type LedgerWindow struct {
	From time.Time
	To   time.Time
}

// LedgerView is returned by GET /v1/accounts/{accountId}/ledger.
type LedgerView struct {
	Account        *Account        `json:"account"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	Count          int             `json:"count"`
	Period         *SummaryPeriod  `json:"period,omitempty"`
	Entries        []BalancedEntry `json:"entries"`
}

// SummaryPeriod represents the date range for a view.
type SummaryPeriod struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}
