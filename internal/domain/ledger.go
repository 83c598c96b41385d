package domain

import "time"

// LedgerTransaction is one entry in the platform's merchant wallet feed.
// The sign of Amount encodes direction: debits are negative, reversals and
// credits positive. Owned by the platform; read-only to this service.
type LedgerTransaction struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	AWB         string    `json:"awb,omitempty"`
	OrderID     string    `json:"order_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
