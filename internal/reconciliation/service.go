package reconciliation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parcelops/shipcost-reconciler/internal/config"
	"github.com/parcelops/shipcost-reconciler/internal/domain"
	"github.com/parcelops/shipcost-reconciler/internal/metrics"
	"github.com/parcelops/shipcost-reconciler/internal/repository"
	"github.com/parcelops/shipcost-reconciler/internal/shiprocket"
)

// RunResult summarises a reconciliation batch.
type RunResult struct {
	Fetched int `json:"fetched"`
	Skipped int `json:"skipped"`
}

// Service reconciles shipping costs for sales orders against the logistics
// platform and persists one breakdown per order number.
type Service struct {
	client *shiprocket.Client
	repo   *repository.ChargeRepo
	log    *zap.Logger

	windowSize     int
	maxIndexOrders int
}

// NewService creates a reconciliation service.
func NewService(client *shiprocket.Client, repo *repository.ChargeRepo, cfg config.BatchConfig, log *zap.Logger) *Service {
	return &Service{
		client:         client,
		repo:           repo,
		log:            log,
		windowSize:     cfg.WindowSize,
		maxIndexOrders: cfg.MaxIndexOrders,
	}
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomeFetched
	outcomeSkipped
)

// Run reconciles the given order numbers. The order index is built once for
// the whole run; orders are then processed in fixed-size windows, concurrent
// within a window, windows strictly sequential so in-flight upstream
// requests never exceed the window size.
//
// One order failing is logged and dropped; only a rejected credential
// exchange aborts the batch. Run is idempotent: already-persisted orders
// count as skipped.
func (s *Service) Run(ctx context.Context, orderNumbers []string) (*RunResult, error) {
	ix, err := s.client.BuildOrderIndex(ctx, s.maxIndexOrders)
	if err != nil {
		return nil, fmt.Errorf("build order index: %w", err)
	}
	s.log.Info("order index built",
		zap.Int("orders_indexed", ix.Len()),
		zap.Int("orders_requested", len(orderNumbers)))

	res := &RunResult{}

	for start := 0; start < len(orderNumbers); start += s.windowSize {
		end := start + s.windowSize
		if end > len(orderNumbers) {
			end = len(orderNumbers)
		}
		window := orderNumbers[start:end]

		outcomes := make([]outcome, len(window))
		errs := make([]error, len(window))

		var wg sync.WaitGroup
		for i, num := range window {
			wg.Add(1)
			go func(i int, num string) {
				defer wg.Done()
				outcomes[i], errs[i] = s.processOrder(ctx, ix, num)
			}(i, num)
		}
		wg.Wait()

		for i, num := range window {
			if errs[i] != nil {
				if shiprocket.IsAuthError(errs[i]) {
					return res, errs[i]
				}
				s.log.Warn("order reconciliation failed, dropping from batch",
					zap.String("order_number", num), zap.Error(errs[i]))
				metrics.OrdersFailedTotal.Inc()
				continue
			}
			switch outcomes[i] {
			case outcomeFetched:
				res.Fetched++
				metrics.OrdersFetchedTotal.Inc()
			case outcomeSkipped:
				res.Skipped++
				metrics.OrdersSkippedTotal.Inc()
			}
		}
	}

	s.log.Info("reconciliation batch finished",
		zap.Int("fetched", res.Fetched), zap.Int("skipped", res.Skipped))

	return res, nil
}

func (s *Service) processOrder(ctx context.Context, ix *shiprocket.OrderIndex, orderNumber string) (outcome, error) {
	exists, err := s.repo.Exists(orderNumber)
	if err != nil {
		return outcomeNone, err
	}
	if exists {
		return outcomeSkipped, nil
	}

	order := ix.Find(orderNumber)
	if order == nil {
		s.log.Debug("order not in platform listing", zap.String("order_number", orderNumber))
		return outcomeNone, nil
	}

	shipment := order.FirstShipment()
	if shipment == nil {
		s.log.Debug("order has no shipments yet", zap.String("order_number", orderNumber))
		return outcomeNone, nil
	}

	txns, err := s.client.FetchLedgerForOrder(ctx, shipment.AWBCode, orderNumber)
	if err != nil {
		if shiprocket.IsAuthError(err) {
			return outcomeNone, err
		}
		// Transient upstream trouble: fall through to the raw-field tier.
		s.log.Warn("ledger fetch failed, falling back to raw charge fields",
			zap.String("order_number", orderNumber), zap.Error(err))
		txns = nil
	}

	var charges *domain.AWBCharges
	if order.AWBData != nil {
		charges = &order.AWBData.Charges
	}

	breakdown := ComputeBreakdown(txns, shipment, charges)
	if breakdown.Total() <= 0 {
		// No billable data anywhere yet; leave the order unrecorded so a
		// later run picks it up once the platform bills it.
		return outcomeNone, nil
	}

	now := time.Now()
	inserted, err := s.repo.Insert(&domain.ShippingCharge{
		OrderNumber:       orderNumber,
		ShippingCharge:    breakdown.Total(),
		FreightForward:    breakdown.FreightForward,
		FreightCOD:        breakdown.FreightCOD,
		FreightRTO:        breakdown.FreightRTO,
		Whatsapp:          breakdown.Whatsapp,
		Other:             breakdown.Other,
		ShiprocketOrderID: order.ID,
		AWBCode:           shipment.AWBCode,
		CourierName:       shipment.CourierName,
		Weight:            shipment.Weight,
		Status:            shipment.Status,
		FetchedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return outcomeNone, err
	}
	if !inserted {
		// Another window or an overlapping run got there first.
		return outcomeSkipped, nil
	}

	s.log.Info("shipping charge persisted",
		zap.String("order_number", orderNumber),
		zap.String("awb", shipment.AWBCode),
		zap.Float64("total", breakdown.Total()))

	return outcomeFetched, nil
}

// GetShippingCharges returns persisted breakdowns keyed by order number. It
// reads the store only; no upstream calls.
func (s *Service) GetShippingCharges(orderNumbers []string) (map[string]domain.ShippingCharge, error) {
	return s.repo.GetByOrderNumbers(orderNumbers)
}
