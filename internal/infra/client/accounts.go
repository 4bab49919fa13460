package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ListAccounts fetches every account the dashboard administers.
func (c *FinanceClient) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.ListAccounts")
	defer span.End()

	var accounts []domain.Account
	err := c.do(ctx, "accounts", request{method: http.MethodGet, path: "/v1/accounts"}, "accounts", "", &accounts)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	return accounts, nil
}

// GetAccount fetches a single account.
func (c *FinanceClient) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var account domain.Account
	path := "/v1/accounts/" + url.PathEscape(accountID)
	if err := c.do(ctx, "account", request{method: http.MethodGet, path: path}, "account", accountID, &account); err != nil {
		return nil, err
	}
	return &account, nil
}
