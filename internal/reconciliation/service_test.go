package reconciliation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parcelops/shipcost-reconciler/internal/config"
	"github.com/parcelops/shipcost-reconciler/internal/domain"
	"github.com/parcelops/shipcost-reconciler/internal/reconciliation"
	"github.com/parcelops/shipcost-reconciler/internal/repository"
	"github.com/parcelops/shipcost-reconciler/internal/shiprocket"
)

// ledgerEntry is the wire shape the fake platform writes to the wallet feed.
type ledgerEntry struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	AWB         string  `json:"awb"`
	OrderID     string  `json:"order_id"`
	CreatedAt   string  `json:"created_at"`
}

type fakePlatform struct {
	orders       []domain.RemoteOrder
	ledger       []ledgerEntry
	authStatus   int // non-zero forces this status on login
	ledgerStatus int // non-zero forces this status on the wallet feed
	srv          *httptest.Server

	walletCalls int64 // atomic
	inFlight    int64 // atomic
	maxInFlight int64 // atomic
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	f := &fakePlatform{}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if f.authStatus != 0 {
			w.WriteHeader(f.authStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
	})
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		start := (page - 1) * perPage
		out := []domain.RemoteOrder{}
		if start < len(f.orders) {
			end := start + perPage
			if end > len(f.orders) {
				end = len(f.orders)
			}
			out = f.orders[start:end]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": out})
	})
	mux.HandleFunc("/wallet/transactions", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.walletCalls, 1)
		cur := atomic.AddInt64(&f.inFlight, 1)
		defer atomic.AddInt64(&f.inFlight, -1)
		for {
			max := atomic.LoadInt64(&f.maxInFlight)
			if cur <= max || atomic.CompareAndSwapInt64(&f.maxInFlight, max, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond) // widen the overlap window

		if f.ledgerStatus != 0 {
			w.WriteHeader(f.ledgerStatus)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		out := []ledgerEntry{}
		if page == 1 {
			out = f.ledger
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": out})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func newTestService(t *testing.T, f *fakePlatform, windowSize int) (*reconciliation.Service, *repository.ChargeRepo) {
	t.Helper()

	db, err := repository.InitDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := repository.NewChargeRepo(db)

	srCfg := config.ShiprocketConfig{
		BaseURL:         f.srv.URL,
		Email:           "ops@example.com",
		Password:        "secret",
		TokenTTL:        240 * time.Hour,
		OrderPageSize:   50,
		OrderPageLimit:  20,
		LedgerPageSize:  100,
		LedgerPageLimit: 10,
	}
	httpc := f.srv.Client()
	client := shiprocket.NewClient(srCfg,
		shiprocket.NewTokenManager(srCfg, httpc, zap.NewNop()), httpc, zap.NewNop())

	svc := reconciliation.NewService(client, repo,
		config.BatchConfig{WindowSize: windowSize, MaxIndexOrders: 1000}, zap.NewNop())
	return svc, repo
}

func TestRunReconcilesAndIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFakePlatform(t)
	f.orders = []domain.RemoteOrder{
		{
			ID: 101, ChannelOrderID: "PB1", Status: "DELIVERED",
			Shipments: []domain.Shipment{
				{AWBCode: "AWB1", CourierName: "Delhivery", Weight: 0.5, Status: "DELIVERED"},
			},
		},
		{
			// Channel stored the id with a '#'; callers pass it bare.
			ID: 102, ChannelOrderID: "#PB2", Status: "SHIPPED",
			Shipments: []domain.Shipment{
				{AWBCode: "AWB2", CourierName: "Xpressbees", Weight: 1.0, Status: "IN TRANSIT"},
			},
			AWBData: &domain.AWBData{Charges: domain.AWBCharges{
				FreightCharges: "120", CODCharges: "20",
			}},
		},
		{ID: 103, ChannelOrderID: "PB3", Status: "NEW"}, // no shipments yet
		{
			ID: 105, ChannelOrderID: "PB5", Status: "SHIPPED",
			Shipments: []domain.Shipment{{AWBCode: "AWB5"}}, // nothing billed anywhere
		},
	}
	f.ledger = []ledgerEntry{
		{ID: 1, Type: "Freight Forward", Amount: -50, OrderID: "PB1"},
		{ID: 2, Type: "Freight COD", Amount: -20, AWB: "AWB1"},
		{ID: 3, Type: "WhatsApp Communication", Amount: -5, Description: "order PB1"},
	}

	svc, repo := newTestService(t, f, 5)
	orderNumbers := []string{"PB1", "PB2", "PB3", "PB4", "PB5"}

	res, err := svc.Run(context.Background(), orderNumbers)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fetched, "PB1 via ledger tier, PB2 via raw-field tier")
	assert.Equal(t, 0, res.Skipped)

	charges, err := svc.GetShippingCharges(orderNumbers)
	require.NoError(t, err)
	require.Len(t, charges, 2)

	pb1 := charges["PB1"]
	assert.Equal(t, 50.0, pb1.FreightForward)
	assert.Equal(t, -20.0, pb1.FreightCOD)
	assert.Equal(t, 5.0, pb1.Whatsapp)
	assert.Equal(t, 35.0, pb1.ShippingCharge)
	assert.Equal(t, int64(101), pb1.ShiprocketOrderID)
	assert.Equal(t, "AWB1", pb1.AWBCode)
	assert.Equal(t, "Delhivery", pb1.CourierName)

	pb2 := charges["PB2"]
	assert.Equal(t, 100.0, pb2.FreightForward)
	assert.Equal(t, 20.0, pb2.FreightCOD)
	assert.Equal(t, 120.0, pb2.ShippingCharge)

	// Zero-charge and unknown orders must never be persisted.
	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Second run: everything persisted is skipped, nothing re-fetched.
	// PB3/PB4/PB5 stay unrecorded and will be retried next run.
	res, err = svc.Run(context.Background(), orderNumbers)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Fetched)
	assert.Equal(t, 2, res.Skipped)
}

func TestRunBoundsConcurrencyToWindowSize(t *testing.T) {
	t.Parallel()

	f := newFakePlatform(t)
	for i := 0; i < 12; i++ {
		f.orders = append(f.orders, domain.RemoteOrder{
			ID:             int64(i + 1),
			ChannelOrderID: "ORD-" + strconv.Itoa(i+1),
			Shipments:      []domain.Shipment{{AWBCode: "AWB-" + strconv.Itoa(i+1)}},
		})
	}

	svc, _ := newTestService(t, f, 5)

	var orderNumbers []string
	for i := 0; i < 12; i++ {
		orderNumbers = append(orderNumbers, "ORD-"+strconv.Itoa(i+1))
	}

	_, err := svc.Run(context.Background(), orderNumbers)
	require.NoError(t, err)

	assert.Equal(t, int64(12), atomic.LoadInt64(&f.walletCalls))
	assert.LessOrEqual(t, atomic.LoadInt64(&f.maxInFlight), int64(5),
		"window N+1 must not start before window N completes")
}

func TestRunFallsBackWhenLedgerErrors(t *testing.T) {
	t.Parallel()

	f := newFakePlatform(t)
	f.ledgerStatus = http.StatusInternalServerError
	f.orders = []domain.RemoteOrder{
		{
			ID: 201, ChannelOrderID: "PB9",
			Shipments: []domain.Shipment{{AWBCode: "AWB9"}},
			AWBData: &domain.AWBData{Charges: domain.AWBCharges{
				FreightCharges: "90", CODCharges: "10",
			}},
		},
	}

	svc, _ := newTestService(t, f, 5)

	res, err := svc.Run(context.Background(), []string{"PB9"})
	require.NoError(t, err, "a transient ledger failure must not abort the batch")
	assert.Equal(t, 1, res.Fetched)

	charges, err := svc.GetShippingCharges([]string{"PB9"})
	require.NoError(t, err)
	assert.Equal(t, 80.0, charges["PB9"].FreightForward)
	assert.Equal(t, 10.0, charges["PB9"].FreightCOD)
}

func TestRunAbortsOnAuthFailure(t *testing.T) {
	t.Parallel()

	f := newFakePlatform(t)
	f.authStatus = http.StatusUnauthorized

	svc, _ := newTestService(t, f, 5)

	_, err := svc.Run(context.Background(), []string{"PB1"})
	require.Error(t, err)
	assert.True(t, shiprocket.IsAuthError(err))
}
