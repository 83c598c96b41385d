package domain

import "time"

// ChargeBreakdown categorizes the logistics cost of one order. All amounts
// are in the platform's base currency unit. FreightCOD keeps its sign since
// COD handling charges may be reversed as credits.
type ChargeBreakdown struct {
	FreightForward float64 `json:"freight_forward"`
	FreightCOD     float64 `json:"freight_cod"`
	FreightRTO     float64 `json:"freight_rto"`
	Whatsapp       float64 `json:"whatsapp_charges"`
	Other          float64 `json:"other_charges"`
}

// Total sums the five category fields. A zero total means no billable data
// was found; such breakdowns must not be persisted.
func (b ChargeBreakdown) Total() float64 {
	return b.FreightForward + b.FreightCOD + b.FreightRTO + b.Whatsapp + b.Other
}

// ShippingCharge is the persisted reconciliation result for one sales-channel
// order number. Written exactly once; the store enforces uniqueness on
// OrderNumber.
type ShippingCharge struct {
	OrderNumber       string    `json:"order_number"`
	ShippingCharge    float64   `json:"shipping_charge"`
	FreightForward    float64   `json:"freight_forward"`
	FreightCOD        float64   `json:"freight_cod"`
	FreightRTO        float64   `json:"freight_rto"`
	Whatsapp          float64   `json:"whatsapp_charges"`
	Other             float64   `json:"other_charges"`
	ShiprocketOrderID int64     `json:"shiprocket_order_id"`
	AWBCode           string    `json:"awb_code,omitempty"`
	CourierName       string    `json:"courier_name,omitempty"`
	Weight            float64   `json:"weight"`
	Status            string    `json:"status,omitempty"`
	FetchedAt         time.Time `json:"fetched_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
