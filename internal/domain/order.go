package domain

// RemoteOrder is an order as known to the logistics platform. Owned by the
// platform; read-only to this service.
type RemoteOrder struct {
	ID             int64      `json:"id"`
	ChannelOrderID string     `json:"channel_order_id"`
	Status         string     `json:"status"`
	Shipments      []Shipment `json:"shipments"`
	AWBData        *AWBData   `json:"awb_data,omitempty"`
}

// FirstShipment returns the order's primary shipment, or nil if the order
// has not been assigned one yet.
func (o *RemoteOrder) FirstShipment() *Shipment {
	if len(o.Shipments) == 0 {
		return nil
	}
	return &o.Shipments[0]
}

type Shipment struct {
	ID          int64   `json:"id"`
	AWBCode     string  `json:"awb_code"`
	CourierName string  `json:"courier_name"`
	Status      string  `json:"status"`
	Weight      float64 `json:"weight"`
	// Cost is the platform's generic per-shipment cost figure. It arrives as
	// a string and may be empty or malformed.
	Cost string `json:"cost,omitempty"`
}

// AWBData carries the raw charge figures the platform attaches to an order
// once an AWB is assigned. All amounts are strings on the wire.
type AWBData struct {
	Charges AWBCharges `json:"charges"`
}

type AWBCharges struct {
	// FreightCharges is the platform's total freight figure. It includes the
	// COD component, which must be subtracted to get the forward leg alone.
	FreightCharges         string `json:"freight_charges"`
	CODCharges             string `json:"cod_charges"`
	AppliedWeightAmountRTO string `json:"applied_weight_amount_rto"`
}
