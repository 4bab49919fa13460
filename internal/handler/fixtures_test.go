package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"
	"github.com/boddenberg/finadmin-bfa-go/internal/handler"
	"github.com/boddenberg/finadmin-bfa-go/internal/infra/cache"
	"github.com/boddenberg/finadmin-bfa-go/internal/infra/observability"
	"github.com/boddenberg/finadmin-bfa-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- In-memory stores ---

type memStore struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	entries  map[string][]domain.LedgerEntry
	bills    []domain.Bill
	keys     map[string]bool
	err      error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]domain.Account{
			"acc-1": {ID: "acc-1", Name: "Operating", AccountType: "bank", Currency: "USD", Status: "active"},
		},
		entries: map[string][]domain.LedgerEntry{
			"acc-1": {
				{ID: "e3", AccountID: "acc-1", OccurredAt: day("2025-01-10"), Kind: domain.EntryPayment, CreditAmount: amt("50")},
				{ID: "e1", AccountID: "acc-1", OccurredAt: day("2025-01-01"), Kind: domain.EntryPayment, CreditAmount: amt("1000")},
				{ID: "e2", AccountID: "acc-1", OccurredAt: day("2025-01-05"), Kind: domain.EntryBill, DebitAmount: amt("200")},
			},
		},
		keys: map[string]bool{},
	}
}

func (m *memStore) ListAccounts(_ context.Context) ([]domain.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) GetAccount(_ context.Context, accountID string) (*domain.Account, error) {
	a, ok := m.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return &a, nil
}

func (m *memStore) ListLedgerEntries(_ context.Context, accountID string) ([]domain.LedgerEntry, error) {
	return m.entries[accountID], nil
}

func (m *memStore) CreateBill(_ context.Context, bill *domain.Bill) (*domain.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[bill.IdempotencyKey] {
		return nil, &domain.ErrDuplicate{Key: bill.IdempotencyKey}
	}
	m.keys[bill.IdempotencyKey] = true
	// newest first
	m.bills = append([]domain.Bill{*bill}, m.bills...)
	created := *bill
	return &created, nil
}

func (m *memStore) ListBills(_ context.Context, vendorID string, limit, offset int) ([]domain.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *memStore) GetBill(_ context.Context, billID string) (*domain.Bill, error) {
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

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

// --- Router fixture ---

type routerOpts struct {
	tokens  *service.TokenValidator
	limiter *handler.ClientLimiter
}

func newTestRouter(t *testing.T, store *memStore, opts routerOpts) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	c := cache.New[[]domain.LedgerEntry](time.Minute)
	t.Cleanup(c.Close)

	ledgerSvc := service.NewLedgerService(store, store, c, metrics, logger)
	taxSvc := service.NewTaxService(metrics, logger)
	billSvc := service.NewBillService(store, nopPublisher{}, taxSvc, ledgerSvc, metrics, logger)

	return handler.NewRouter(ledgerSvc, taxSvc, billSvc, opts.tokens, opts.limiter, metrics, logger)
}

func do(router http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- Helpers ---

func amt(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

var errStoreDown = errors.New("store down")
