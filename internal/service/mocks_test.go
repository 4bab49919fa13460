package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// --- Mocks ---

type mockAccountStore struct {
	accounts map[string]*domain.Account
	err      error
}

func (m *mockAccountStore) ListAccounts(_ context.Context) ([]domain.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAccountStore) GetAccount(_ context.Context, accountID string) (*domain.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return a, nil
}

type mockLedgerStore struct {
	entries map[string][]domain.LedgerEntry
	err     error
	calls   atomic.Int32

	mu     sync.Mutex
	ctxErr error
}

func (m *mockLedgerStore) ListLedgerEntries(ctx context.Context, accountID string) ([]domain.LedgerEntry, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.ctxErr = ctx.Err()
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.entries[accountID], nil
}

type mockBillStore struct {
	mu         sync.Mutex
	bills      []domain.Bill
	keys       map[string]bool
	createErr  error
	lastLimit  int
	lastOffset int
}

func (m *mockBillStore) CreateBill(_ context.Context, bill *domain.Bill) (*domain.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[bill.IdempotencyKey] {
		return nil, &domain.ErrDuplicate{Key: bill.IdempotencyKey}
	}
	m.keys[bill.IdempotencyKey] = true
	m.bills = append(m.bills, *bill)
	created := *bill
	return &created, nil
}

func (m *mockBillStore) ListBills(_ context.Context, vendorID string, limit, offset int) ([]domain.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit, m.lastOffset = limit, offset

	var matched []domain.Bill
	for _, b := range m.bills {
		if vendorID == "" || b.VendorID == vendorID {
			matched = append(matched, b)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (m *mockBillStore) GetBill(_ context.Context, billID string) (*domain.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bills {
		if b.ID == billID {
			found := b
			return &found, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "bill", ID: billID}
}

type mockPublisher struct {
	keys   []string
	events []any
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, key string, event any) error {
	if m.err != nil {
		return m.err
	}
	m.keys = append(m.keys, key)
	m.events = append(m.events, event)
	return nil
}

type mockInvalidator struct {
	ids []string
}

func (m *mockInvalidator) InvalidateAccount(accountID string) {
	m.ids = append(m.ids, accountID)
}

// --- Helpers ---

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func (m *mockLedgerStore) lastCtxErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctxErr
}
