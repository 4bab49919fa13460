package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"
	"github.com/boddenberg/finadmin-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Accounts & ledger handlers
// ============================================================

func listAccountsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts")
		defer span.End()

		accounts, err := svc.ListAccounts(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, accounts)
	}
}

func getAccountHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}")
		defer span.End()

		account, err := svc.GetAccount(ctx, chi.URLParam(r, "accountId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

// getLedgerHandler serves the running-balance view. from and to are
// inclusive calendar days; refresh=true drops the cached entries first.
func getLedgerHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/ledger")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		q := r.URL.Query()

		from, err := parseDate("from", q.Get("from"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		to, err := parseDate("to", q.Get("to"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if !to.IsZero() {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}

		if q.Get("refresh") == "true" {
			svc.InvalidateAccount(accountID)
		}

		view, err := svc.GetLedger(ctx, accountID, domain.LedgerWindow{From: from, To: to})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
