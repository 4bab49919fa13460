package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"
	"github.com/boddenberg/finadmin-bfa-go/internal/infra/observability"
	"github.com/boddenberg/finadmin-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// tokens may be nil, in which case /v1 is served without authentication.
// limiter may be nil to disable throttling of /v1/tax/resolve.
func NewRouter(
	ledgerSvc *service.LedgerService,
	taxSvc *service.TaxService,
	billSvc *service.BillService,
	tokens *service.TokenValidator,
	limiter *ClientLimiter,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(peerAddr)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(ledgerSvc, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if tokens != nil {
			r.Use(JWTAuthMiddleware(tokens, logger))
		}

		// =============================================
		// Accounts & ledger
		// =============================================
		r.Get("/accounts", listAccountsHandler(ledgerSvc, logger))
		r.Get("/accounts/{accountId}", getAccountHandler(ledgerSvc, logger))
		r.Get("/accounts/{accountId}/ledger", getLedgerHandler(ledgerSvc, logger))

		// =============================================
		// Tax form
		// =============================================
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Middleware("tax/resolve", logger))
			}
			r.Post("/tax/resolve", resolveTaxHandler(taxSvc, logger))
		})

		// =============================================
		// Vendor bills
		// =============================================
		r.Post("/bills", recordBillHandler(billSvc, logger))
		r.Get("/bills", listBillsHandler(billSvc, logger))
		r.Get("/bills/{billId}", getBillHandler(billSvc, logger))

		r.Get("/metrics/reconcile", reconcileMetricsHandler(metrics))
	})

	return r
}

// healthzHandler reports the BFA and, when wired, the ledger source.
func healthzHandler(ledgerSvc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LastChecked: now},
		}

		if ledgerSvc != nil {
			start := time.Now()
			_, err := ledgerSvc.ListAccounts(r.Context())
			status := "healthy"
			if err != nil {
				logger.Warn("health check: ledger source degraded", zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name:        "ledger-source",
				Status:      status,
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			})
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overall = s.Status
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overall,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func reconcileMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetReconcileSnapshot())
	}
}
