package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const billColumns = `id, idempotency_key, vendor_id, vendor_name, bill_number, account_id,
	issue_date, due_date, description,
	taxable_value, tax_rate_percent, primary_tax_amount, split_tax_amount_a, split_tax_amount_b,
	cess_amount, total, is_split, status, created_at`

type billRow struct {
	ID             string              `db:"id"`
	IdempotencyKey string              `db:"idempotency_key"`
	VendorID       string              `db:"vendor_id"`
	VendorName     string              `db:"vendor_name"`
	BillNumber     string              `db:"bill_number"`
	AccountID      sql.NullString      `db:"account_id"`
	IssueDate      time.Time           `db:"issue_date"`
	DueDate        time.Time           `db:"due_date"`
	Description    sql.NullString      `db:"description"`
	TaxableValue   decimal.NullDecimal `db:"taxable_value"`
	TaxRatePercent decimal.NullDecimal `db:"tax_rate_percent"`
	PrimaryTax     decimal.NullDecimal `db:"primary_tax_amount"`
	SplitTaxA      decimal.NullDecimal `db:"split_tax_amount_a"`
	SplitTaxB      decimal.NullDecimal `db:"split_tax_amount_b"`
	Cess           decimal.NullDecimal `db:"cess_amount"`
	Total          decimal.NullDecimal `db:"total"`
	IsSplit        bool                `db:"is_split"`
	Status         string              `db:"status"`
	CreatedAt      time.Time           `db:"created_at"`
}

func (r billRow) toDomain() domain.Bill {
	return domain.Bill{
		ID:             r.ID,
		IdempotencyKey: r.IdempotencyKey,
		VendorID:       r.VendorID,
		VendorName:     r.VendorName,
		BillNumber:     r.BillNumber,
		AccountID:      r.AccountID.String,
		IssueDate:      r.IssueDate,
		DueDate:        r.DueDate,
		Description:    r.Description.String,
		Tax: domain.TaxFieldSet{
			TaxableValue:     r.TaxableValue,
			TaxRatePercent:   r.TaxRatePercent,
			PrimaryTaxAmount: r.PrimaryTax,
			SplitTaxAmountA:  r.SplitTaxA,
			SplitTaxAmountB:  r.SplitTaxB,
			CessAmount:       r.Cess,
			Total:            r.Total,
			IsSplit:          r.IsSplit,
		},
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateBill inserts a bill. A reused idempotency key violates the unique
// index and comes back as *domain.ErrDuplicate.
func (s *Store) CreateBill(ctx context.Context, bill *domain.Bill) (*domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateBill")
	defer span.End()
	span.SetAttributes(attribute.String("bill.id", bill.ID))
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const query = `INSERT INTO bills (id, idempotency_key, vendor_id, vendor_name, bill_number, account_id,
		issue_date, due_date, description,
		taxable_value, tax_rate_percent, primary_tax_amount, split_tax_amount_a, split_tax_amount_b,
		cess_amount, total, is_split, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at`

	t := bill.Tax
	var createdAt time.Time
	err := s.db.QueryRowxContext(ctx, query,
		bill.ID, bill.IdempotencyKey, bill.VendorID, bill.VendorName, bill.BillNumber, nullString(bill.AccountID),
		bill.IssueDate, bill.DueDate, nullString(bill.Description),
		t.TaxableValue, t.TaxRatePercent, t.PrimaryTaxAmount, t.SplitTaxAmountA, t.SplitTaxAmountB,
		t.CessAmount, t.Total, t.IsSplit, bill.Status,
	).Scan(&createdAt)
	if isUniqueViolation(err) {
		return nil, &domain.ErrDuplicate{Key: bill.IdempotencyKey}
	}
	if err != nil {
		return nil, s.wrap("bills", err)
	}

	created := *bill
	created.CreatedAt = createdAt
	return &created, nil
}

// ListBills returns bills newest first. An empty vendorID lists every vendor.
func (s *Store) ListBills(ctx context.Context, vendorID string, limit, offset int) ([]domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListBills")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `SELECT ` + billColumns + ` FROM bills
		WHERE ($1 = '' OR vendor_id = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	var rows []billRow
	if err := s.db.SelectContext(ctx, &rows, query, vendorID, limit, offset); err != nil {
		return nil, s.wrap("bills", err)
	}

	bills := make([]domain.Bill, 0, len(rows))
	for _, r := range rows {
		bills = append(bills, r.toDomain())
	}
	return bills, nil
}

func (s *Store) GetBill(ctx context.Context, billID string) (*domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetBill")
	defer span.End()
	span.SetAttributes(attribute.String("bill.id", billID))
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row billRow
	err := s.db.GetContext(ctx, &row, `SELECT `+billColumns+` FROM bills WHERE id = $1`, billID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "bill", ID: billID}
	}
	if err != nil {
		return nil, s.wrap("bills", err)
	}

	b := row.toDomain()
	return &b, nil
}
