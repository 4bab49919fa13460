// Package postgres reads accounts and ledger entries from a Postgres replica
// of the finance database, and stores bills there. It is selected with
// LEDGER_SOURCE=postgres.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"
	"github.com/boddenberg/finadmin-bfa-go/internal/port"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("postgres")

// uniqueViolation is the SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

// Config holds connection pool settings.
type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	QueryTimeout time.Duration
}

// Store implements port.AccountStore, port.LedgerStore and port.BillStore.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
	logger  *zap.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: DATABASE_URL is required")
	}

	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return NewStore(db, cfg.QueryTimeout, logger), nil
}

// NewStore wraps an existing connection.
func NewStore(db *sqlx.DB, timeout time.Duration, logger *zap.Logger) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{db: db, timeout: timeout, logger: logger}
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ============================================================
// Accounts
// ============================================================

const accountColumns = `id, name, account_type, account_number, bank_name, balance, currency, status, created_at`

type accountRow struct {
	ID            string          `db:"id"`
	Name          string          `db:"name"`
	AccountType   string          `db:"account_type"`
	AccountNumber sql.NullString  `db:"account_number"`
	BankName      sql.NullString  `db:"bank_name"`
	Balance       decimal.Decimal `db:"balance"`
	Currency      string          `db:"currency"`
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		ID:            r.ID,
		Name:          r.Name,
		AccountType:   r.AccountType,
		AccountNumber: r.AccountNumber.String,
		BankName:      r.BankName.String,
		Balance:       r.Balance,
		Currency:      r.Currency,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
	}
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListAccounts")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at ASC`); err != nil {
		return nil, s.wrap("accounts", err)
	}

	accounts := make([]domain.Account, 0, len(rows))
	for _, r := range rows {
		accounts = append(accounts, r.toDomain())
	}
	return accounts, nil
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row accountRow
	err := s.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	if err != nil {
		return nil, s.wrap("account", err)
	}

	a := row.toDomain()
	return &a, nil
}

// ============================================================
// Ledger entries
// ============================================================

type entryRow struct {
	ID           string              `db:"id"`
	AccountID    string              `db:"account_id"`
	OccurredAt   time.Time           `db:"occurred_at"`
	Kind         string              `db:"kind"`
	DebitAmount  decimal.NullDecimal `db:"debit_amount"`
	CreditAmount decimal.NullDecimal `db:"credit_amount"`
	Note         sql.NullString      `db:"note"`
}

// ListLedgerEntries returns the entries of an account. Rows are returned in
// insertion order so equal timestamps keep a stable order downstream.
func (s *Store) ListLedgerEntries(ctx context.Context, accountID string) ([]domain.LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListLedgerEntries")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const query = `SELECT id, account_id, occurred_at, kind, debit_amount, credit_amount, note
		FROM ledger_entries WHERE account_id = $1 ORDER BY seq ASC`

	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, query, accountID); err != nil {
		return nil, s.wrap("ledger_entries", err)
	}

	entries := make([]domain.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, domain.LedgerEntry{
			ID:           r.ID,
			AccountID:    r.AccountID,
			OccurredAt:   r.OccurredAt,
			Kind:         domain.EntryKind(r.Kind),
			DebitAmount:  r.DebitAmount,
			CreditAmount: r.CreditAmount,
			Note:         r.Note.String,
		})
	}

	span.SetAttributes(attribute.Int("ledger.entries", len(entries)))
	return entries, nil
}

// wrap logs and wraps a driver error.
func (s *Store) wrap(table string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: "postgres/" + table}
	}
	s.logger.Error("postgres: query failed", zap.String("table", table), zap.Error(err))
	return &domain.ErrExternalService{Service: "postgres/" + table, Err: err}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

var (
	_ port.AccountStore = (*Store)(nil)
	_ port.LedgerStore  = (*Store)(nil)
	_ port.BillStore    = (*Store)(nil)
)
