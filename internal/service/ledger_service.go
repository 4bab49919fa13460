// Package service provides the business logic layer (use cases).
// It wires the reconciliation core to the stores behind the ports.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"
	"github.com/boddenberg/finadmin-bfa-go/internal/infra/observability"
	"github.com/boddenberg/finadmin-bfa-go/internal/port"
	"github.com/boddenberg/finadmin-bfa-go/internal/reconcile"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ledgerTracer = otel.Tracer("service/ledger")

const dateLayout = "2006-01-02"

// entriesLoadTimeout bounds a shared entries load, which outlives the
// request that started it.
const entriesLoadTimeout = 30 * time.Second

// LedgerService serves accounts and their running-balance ledgers.
type LedgerService struct {
	accounts port.AccountStore
	ledger   port.LedgerStore
	cache    port.Cache[[]domain.LedgerEntry]
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewLedgerService creates a new ledger service. Raw entries are cached per
// account; the accumulated view is always recomputed.
func NewLedgerService(
	accounts port.AccountStore,
	ledger port.LedgerStore,
	cache port.Cache[[]domain.LedgerEntry],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		accounts: accounts,
		ledger:   ledger,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListAccounts")
	defer span.End()

	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		recordExternalError(s.metrics, err)
		return nil, err
	}
	return accounts, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	if accountID == "" {
		return nil, &domain.ErrValidation{Field: "accountId", Message: "required"}
	}
	return s.accounts.GetAccount(ctx, accountID)
}

// InvalidateAccount drops the cached entries of an account so the next
// ledger view reloads them.
func (s *LedgerService) InvalidateAccount(accountID string) {
	s.cache.Delete(accountID)
}

// GetLedger returns the account's entries with a running balance.
//
// The balance is accumulated over the full history and the window is cut
// afterwards, so balances inside the window are true account balances:
// entries before window.From fold into OpeningBalance, entries after
// window.To are dropped. Totals cover the window only.
func (s *LedgerService) GetLedger(ctx context.Context, accountID string, window domain.LedgerWindow) (*domain.LedgerView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetLedger")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("ledger_view", time.Since(start)) }()

	if accountID == "" {
		return nil, &domain.ErrValidation{Field: "accountId", Message: "required"}
	}
	if !window.From.IsZero() && !window.To.IsZero() && window.From.After(window.To) {
		return nil, &domain.ErrValidation{Field: "from", Message: "must not be after 'to'"}
	}

	var (
		account *domain.Account
		entries []domain.LedgerEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.accounts.GetAccount(gctx, accountID)
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		account = a
		return nil
	})
	g.Go(func() error {
		e, err := s.loadEntries(gctx, accountID)
		if err != nil {
			return fmt.Errorf("list ledger entries: %w", err)
		}
		entries = e
		return nil
	})
	if err := g.Wait(); err != nil {
		recordExternalError(s.metrics, err)
		return nil, err
	}

	view := cutWindow(reconcile.Accumulate(entries), window)
	view.Account = account

	windowed := !window.From.IsZero() || !window.To.IsZero()
	s.metrics.RecordLedgerView(windowed, len(entries))
	span.SetAttributes(
		attribute.Int("ledger.entries", len(entries)),
		attribute.Int("ledger.window_entries", view.Count),
	)

	s.logger.Debug("ledger view served",
		zap.String("account_id", accountID),
		zap.Int("entries", len(entries)),
		zap.Int("in_window", view.Count),
		zap.String("closing_balance", view.ClosingBalance.StringFixed(2)),
	)

	return view, nil
}

func (s *LedgerService) loadEntries(ctx context.Context, accountID string) ([]domain.LedgerEntry, error) {
	entries, hit, err := s.cache.GetOrLoad(accountID, func() ([]domain.LedgerEntry, error) {
		// shared by every waiter, so detached from this caller's cancellation
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), entriesLoadTimeout)
		defer cancel()
		return s.ledger.ListLedgerEntries(loadCtx, accountID)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		s.metrics.IncrCacheHit("ledger")
	} else {
		s.metrics.IncrCacheMiss("ledger")
	}
	return entries, nil
}

// cutWindow keeps the entries inside window. Balanced must be in
// chronological order.
func cutWindow(balanced []domain.BalancedEntry, window domain.LedgerWindow) *domain.LedgerView {
	view := &domain.LedgerView{
		OpeningBalance: decimal.Zero,
		Entries:        make([]domain.BalancedEntry, 0, len(balanced)),
	}

	for _, e := range balanced {
		if !window.From.IsZero() && e.OccurredAt.Before(window.From) {
			view.OpeningBalance = e.RunningBalance
			continue
		}
		if !window.To.IsZero() && e.OccurredAt.After(window.To) {
			break
		}
		view.Entries = append(view.Entries, e)
	}

	view.ClosingBalance = view.OpeningBalance
	if n := len(view.Entries); n > 0 {
		view.ClosingBalance = view.Entries[n-1].RunningBalance
	}
	view.TotalDebit, view.TotalCredit = reconcile.Totals(view.Entries)
	view.Count = len(view.Entries)

	if !window.From.IsZero() || !window.To.IsZero() {
		view.Period = &domain.SummaryPeriod{}
		if !window.From.IsZero() {
			view.Period.From = window.From.Format(dateLayout)
		}
		if !window.To.IsZero() {
			view.Period.To = window.To.Format(dateLayout)
		}
	}
	return view
}

// recordExternalError counts failures of the finance API or the database
// by the service that produced them.
func recordExternalError(metrics *observability.Metrics, err error) {
	var ext *domain.ErrExternalService
	if errors.As(err, &ext) {
		metrics.IncrExternalError(ext.Service)
	}
}
