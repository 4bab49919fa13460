package domain

import "time"

// ============================================================
// Vendor bills
// ============================================================

// Bill statuses.
const (
	BillStatusOpen    = "open"
	BillStatusPartial = "partially_paid"
	BillStatusPaid    = "paid"
)

// BillRequest is the payload to record a vendor bill once the form is
// confirmed. The tax block must already be consistent.
type BillRequest struct {
	IdempotencyKey string      `json:"idempotency_key,omitempty"`
	VendorID       string      `json:"vendor_id"`
	VendorName     string      `json:"vendor_name"`
	BillNumber     string      `json:"bill_number"`
	AccountID      string      `json:"account_id,omitempty"`
	IssueDate      time.Time   `json:"issue_date"`
	DueDate        time.Time   `json:"due_date"`
	Description    string      `json:"description,omitempty"`
	Tax            TaxFieldSet `json:"tax"`
}

// Bill represents a recorded vendor bill.
type Bill struct {
	ID             string      `json:"id"`
	IdempotencyKey string      `json:"idempotency_key"`
	VendorID       string      `json:"vendor_id"`
	VendorName     string      `json:"vendor_name"`
	BillNumber     string      `json:"bill_number"`
	AccountID      string      `json:"account_id,omitempty"`
	IssueDate      time.Time   `json:"issue_date"`
	DueDate        time.Time   `json:"due_date"`
	Description    string      `json:"description,omitempty"`
	Tax            TaxFieldSet `json:"tax"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
}

// BillRecordedEvent is published after a bill is persisted.
type BillRecordedEvent struct {
	BillID     string    `json:"bill_id"`
	VendorID   string    `json:"vendor_id"`
	BillNumber string    `json:"bill_number"`
	Total      string    `json:"total"`
	TaxAmount  string    `json:"tax_amount"`
	IsSplit    bool      `json:"is_split"`
	RecordedAt time.Time `json:"recorded_at"`
}
