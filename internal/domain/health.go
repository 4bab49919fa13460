package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// ReconcileMetrics is returned by GET /v1/metrics/reconcile.
type ReconcileMetrics struct {
	LedgerViews        int64            `json:"ledgerViews"`
	EntriesAccumulated int64            `json:"entriesAccumulated"`
	TaxResolutions     map[string]int64 `json:"taxResolutions"`
	ClearedBackSolves  int64            `json:"clearedBackSolves"`
	BillsRecorded      int64            `json:"billsRecorded"`
	BillsRejected      int64            `json:"billsRejected"`
	CacheHitRate       float64          `json:"cacheHitRate"`
	Period             string           `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps paginated list results.
type ListResponse[T any] struct {
	Data     []T  `json:"data"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}
