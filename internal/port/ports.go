// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"
)

// AccountStore reads the accounts administered from the dashboard.
type AccountStore interface {
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
}

// LedgerStore returns the raw entries of an account, in no particular order.
type LedgerStore interface {
	ListLedgerEntries(ctx context.Context, accountID string) ([]domain.LedgerEntry, error)
}

// BillStore persists vendor bills. ListBills returns newest first.
// CreateBill returns *domain.ErrDuplicate when the idempotency key was
// already used.
type BillStore interface {
	CreateBill(ctx context.Context, bill *domain.Bill) (*domain.Bill, error)
	ListBills(ctx context.Context, vendorID string, limit, offset int) ([]domain.Bill, error)
	GetBill(ctx context.Context, billID string) (*domain.Bill, error)
}

// EventPublisher emits domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	GetOrLoad(key string, loader func() (T, error)) (T, bool, error)
}
