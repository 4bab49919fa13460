package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"
	"github.com/boddenberg/finadmin-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Vendor bills
// ============================================================

type recordBillRequest struct {
	IdempotencyKey string           `json:"idempotency_key"`
	VendorID       string           `json:"vendor_id"`
	VendorName     string           `json:"vendor_name"`
	BillNumber     string           `json:"bill_number"`
	AccountID      string           `json:"account_id"`
	IssueDate      string           `json:"issue_date"`
	DueDate        string           `json:"due_date"`
	Description    string           `json:"description"`
	Tax            taxFieldsPayload `json:"tax"`
}

func (b recordBillRequest) toDomain() (*domain.BillRequest, error) {
	issue, err := parseDate("issue_date", b.IssueDate)
	if err != nil {
		return nil, err
	}
	due, err := parseDate("due_date", b.DueDate)
	if err != nil {
		return nil, err
	}
	tax, err := b.Tax.toDomain()
	if err != nil {
		return nil, err
	}
	return &domain.BillRequest{
		IdempotencyKey: b.IdempotencyKey,
		VendorID:       b.VendorID,
		VendorName:     b.VendorName,
		BillNumber:     b.BillNumber,
		AccountID:      b.AccountID,
		IssueDate:      issue,
		DueDate:        due,
		Description:    b.Description,
		Tax:            tax,
	}, nil
}

type billResponse struct {
	ID             string           `json:"id"`
	IdempotencyKey string           `json:"idempotency_key"`
	VendorID       string           `json:"vendor_id"`
	VendorName     string           `json:"vendor_name"`
	BillNumber     string           `json:"bill_number"`
	AccountID      string           `json:"account_id,omitempty"`
	IssueDate      string           `json:"issue_date"`
	DueDate        string           `json:"due_date"`
	Description    string           `json:"description,omitempty"`
	Tax            taxFieldsPayload `json:"tax"`
	TaxAmount      string           `json:"tax_amount"`
	Status         string           `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
}

func newBillResponse(b *domain.Bill) billResponse {
	return billResponse{
		ID:             b.ID,
		IdempotencyKey: b.IdempotencyKey,
		VendorID:       b.VendorID,
		VendorName:     b.VendorName,
		BillNumber:     b.BillNumber,
		AccountID:      b.AccountID,
		IssueDate:      b.IssueDate.Format(dateLayout),
		DueDate:        b.DueDate.Format(dateLayout),
		Description:    b.Description,
		Tax:            newTaxFieldsPayload(b.Tax),
		TaxAmount:      b.Tax.TaxAmount().StringFixed(2),
		Status:         b.Status,
		CreatedAt:      b.CreatedAt,
	}
}

func recordBillHandler(svc *service.BillService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/bills")
		defer span.End()

		var body recordBillRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if key := r.Header.Get("Idempotency-Key"); key != "" {
			body.IdempotencyKey = key
		}

		req, err := body.toDomain()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		bill, err := svc.RecordBill(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, newBillResponse(bill))
	}
}

func listBillsHandler(svc *service.BillService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/bills")
		defer span.End()

		page, pageSize := parsePagination(r)
		result, err := svc.ListBills(ctx, r.URL.Query().Get("vendor_id"), page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		data := make([]billResponse, 0, len(result.Data))
		for i := range result.Data {
			data = append(data, newBillResponse(&result.Data[i]))
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[billResponse]{
			Data:     data,
			Page:     result.Page,
			PageSize: result.PageSize,
			HasMore:  result.HasMore,
		})
	}
}

func getBillHandler(svc *service.BillService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/bills/{billId}")
		defer span.End()

		bill, err := svc.GetBill(ctx, chi.URLParam(r, "billId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, newBillResponse(bill))
	}
}
