package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Accounts
// ============================================================

// Account is a bank or cash account administered from the dashboard.
type Account struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	AccountType   string          `json:"account_type"` // bank, cash, credit_line, loan
	AccountNumber string          `json:"account_number,omitempty"`
	BankName      string          `json:"bank_name,omitempty"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}
