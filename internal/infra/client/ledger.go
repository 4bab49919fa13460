package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ListLedgerEntries fetches the raw entries of an account. The API does not
// guarantee any order; the accumulator sorts them.
func (c *FinanceClient) ListLedgerEntries(ctx context.Context, accountID string) ([]domain.LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.ListLedgerEntries")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var entries []domain.LedgerEntry
	path := "/v1/accounts/" + url.PathEscape(accountID) + "/entries"
	if err := c.do(ctx, "ledger_entries", request{method: http.MethodGet, path: path}, "account", accountID, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}

	span.SetAttributes(attribute.Int("ledger.entries", len(entries)))
	return entries, nil
}
