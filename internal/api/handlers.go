package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parcelops/shipcost-reconciler/internal/reconciliation"
	"github.com/parcelops/shipcost-reconciler/internal/repository"
	"github.com/parcelops/shipcost-reconciler/internal/shiprocket"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	svc      *reconciliation.Service
	repo     *repository.ChargeRepo
	platform *shiprocket.Client
	log      *zap.Logger
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil
		}
	}
	return &t
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- BulkFetchShippingCharges ---

type bulkFetchRequest struct {
	OrderNumbers []string `json:"order_numbers"`
}

// BulkFetchShippingCharges triggers a reconciliation batch for the given
// order numbers. The run happens inline; the response carries the counts.
func (h *Handlers) BulkFetchShippingCharges(w http.ResponseWriter, r *http.Request) {
	var req bulkFetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.OrderNumbers) == 0 {
		writeError(w, http.StatusBadRequest, "order_numbers is required")
		return
	}

	result, err := h.svc.Run(r.Context(), req.OrderNumbers)
	if err != nil {
		if shiprocket.IsAuthError(err) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// --- GetShippingCharges ---

// GetShippingCharges returns persisted breakdowns for the order numbers in
// the comma-separated "orders" query parameter. Store reads only.
func (h *Handlers) GetShippingCharges(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("orders")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "orders query parameter is required")
		return
	}

	var orderNumbers []string
	for _, n := range strings.Split(raw, ",") {
		if n = strings.TrimSpace(n); n != "" {
			orderNumbers = append(orderNumbers, n)
		}
	}

	charges, err := h.svc.GetShippingCharges(orderNumbers)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"charges": charges,
		"found":   len(charges),
	})
}

// --- ListChargeRecords ---

func (h *Handlers) ListChargeRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parseIntDefault(q.Get("page"), 1)
	limit := parseIntDefault(q.Get("limit"), 50)

	records, total, err := h.repo.List(page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// --- ListLedgerTransactions ---

// ListLedgerTransactions pages the platform's wallet feed, optionally
// bounded to a date range. Date filtering happens client-side.
func (h *Handlers) ListLedgerTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := parseTime(q.Get("from"))
	to := parseTime(q.Get("to"))

	txns, err := h.platform.FetchLedger(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"count":        len(txns),
	})
}

// --- Healthz ---

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.repo.Count(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
