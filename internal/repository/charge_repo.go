package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/parcelops/shipcost-reconciler/internal/domain"
)

// ChargeRepo stores finalized shipping-charge records, one per sales-channel
// order number.
type ChargeRepo struct {
	db *sql.DB
}

func NewChargeRepo(db *sql.DB) *ChargeRepo {
	return &ChargeRepo{db: db}
}

// Exists reports whether a record for the order number is already persisted.
func (r *ChargeRepo) Exists(orderNumber string) (bool, error) {
	var n int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM shipping_charges WHERE order_number = ?",
		orderNumber,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check existence of %s: %w", orderNumber, err)
	}
	return n > 0, nil
}

// Insert persists a record. A conflicting order number is not an error: the
// order was already reconciled, so the write is dropped and Insert reports
// inserted=false. This keeps batch runs re-entrant.
func (r *ChargeRepo) Insert(sc *domain.ShippingCharge) (bool, error) {
	res, err := r.db.Exec(
		`INSERT OR IGNORE INTO shipping_charges
		(order_number, shipping_charge, freight_forward, freight_cod,
		 freight_rto, whatsapp_charges, other_charges, shiprocket_order_id,
		 awb_code, courier_name, weight, status, fetched_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		sc.OrderNumber, sc.ShippingCharge, sc.FreightForward, sc.FreightCOD,
		sc.FreightRTO, sc.Whatsapp, sc.Other, sc.ShiprocketOrderID,
		sc.AWBCode, sc.CourierName, sc.Weight, sc.Status,
		sc.FetchedAt.Format(time.RFC3339), sc.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("insert shipping charge for %s: %w", sc.OrderNumber, err)
	}
	ra, _ := res.RowsAffected()
	return ra > 0, nil
}

// GetByOrderNumbers returns persisted records keyed by order number. Order
// numbers with no record are simply absent from the map.
func (r *ChargeRepo) GetByOrderNumbers(orderNumbers []string) (map[string]domain.ShippingCharge, error) {
	out := make(map[string]domain.ShippingCharge, len(orderNumbers))
	if len(orderNumbers) == 0 {
		return out, nil
	}

	placeholders := strings.Repeat("?,", len(orderNumbers))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(orderNumbers))
	for i, n := range orderNumbers {
		args[i] = n
	}

	rows, err := r.db.Query(
		"SELECT * FROM shipping_charges WHERE order_number IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		sc, err := scanShippingCharge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out[sc.OrderNumber] = *sc
	}
	return out, rows.Err()
}

// List returns persisted records newest-first, paged.
func (r *ChargeRepo) List(page, limit int) ([]domain.ShippingCharge, int, error) {
	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM shipping_charges").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	rows, err := r.db.Query(
		"SELECT * FROM shipping_charges ORDER BY fetched_at DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var records []domain.ShippingCharge
	for rows.Next() {
		sc, err := scanShippingCharge(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		records = append(records, *sc)
	}
	return records, total, rows.Err()
}

// Count returns the number of persisted records.
func (r *ChargeRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM shipping_charges").Scan(&count)
	return count, err
}

func scanShippingCharge(rows *sql.Rows) (*domain.ShippingCharge, error) {
	var sc domain.ShippingCharge
	var fetchedAt, updatedAt string

	err := rows.Scan(
		&sc.OrderNumber, &sc.ShippingCharge, &sc.FreightForward, &sc.FreightCOD,
		&sc.FreightRTO, &sc.Whatsapp, &sc.Other, &sc.ShiprocketOrderID,
		&sc.AWBCode, &sc.CourierName, &sc.Weight, &sc.Status,
		&fetchedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	sc.FetchedAt, _ = time.Parse(time.RFC3339, fetchedAt)
	sc.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &sc, nil
}
