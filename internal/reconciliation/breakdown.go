package reconciliation

import (
	"math"
	"strconv"
	"strings"

	"github.com/parcelops/shipcost-reconciler/internal/domain"
)

type chargeCategory int

const (
	catFreightForward chargeCategory = iota
	catFreightCOD
	catFreightRTO
	catWhatsapp
	catOther
)

// ledgerLabelCategories maps the known wallet-entry type labels (lowercased)
// to charge categories. An unknown label lands in catOther; it must never be
// guessed into a freight bucket.
var ledgerLabelCategories = map[string]chargeCategory{
	"freight forward":        catFreightForward,
	"freight forward charge": catFreightForward,
	"freight charges":        catFreightForward,
	"forward charges":        catFreightForward,

	"freight cod":        catFreightCOD,
	"freight cod charge": catFreightCOD,
	"cod charges":        catFreightCOD,
	"cod reversal":       catFreightCOD,

	"freight rto":        catFreightRTO,
	"freight rto charge": catFreightRTO,
	"rto":                catFreightRTO,
	"rto charges":        catFreightRTO,
	"rto reversal":       catFreightRTO,

	"whatsapp":               catWhatsapp,
	"whatsapp charges":       catWhatsapp,
	"whatsapp communication": catWhatsapp,
	"whatsapp notification":  catWhatsapp,
}

func categorize(label string) chargeCategory {
	if cat, ok := ledgerLabelCategories[strings.ToLower(strings.TrimSpace(label))]; ok {
		return cat
	}
	return catOther
}

// ComputeBreakdown converts matched ledger entries into a categorized cost
// breakdown, falling back to the order's raw charge fields and finally the
// shipment's generic cost figure. Tiers apply in order; a later tier runs
// only when the earlier ones produced nothing.
//
// A result with Total() == 0 means no billable data was found; callers must
// not persist it.
func ComputeBreakdown(txns []domain.LedgerTransaction, shipment *domain.Shipment, charges *domain.AWBCharges) domain.ChargeBreakdown {
	var b domain.ChargeBreakdown

	// Tier 1: categorized ledger entries. COD keeps its sign because COD
	// handling charges are reversed as credits when a shipment RTOs.
	for _, t := range txns {
		switch categorize(t.Type) {
		case catFreightForward:
			b.FreightForward += math.Abs(t.Amount)
		case catFreightCOD:
			b.FreightCOD += t.Amount
		case catFreightRTO:
			b.FreightRTO += math.Abs(t.Amount)
		case catWhatsapp:
			b.Whatsapp += math.Abs(t.Amount)
		default:
			b.Other += math.Abs(t.Amount)
		}
	}

	// Tier 2: the order's raw charge fields. The platform's freight figure
	// includes the COD component, so the forward leg is the difference.
	if b.Total() == 0 && charges != nil {
		freight := parseAmount(charges.FreightCharges)
		cod := parseAmount(charges.CODCharges)
		b.FreightForward = freight - cod
		b.FreightCOD = cod
		b.FreightRTO = parseAmount(charges.AppliedWeightAmountRTO)
	}

	// Tier 3: the shipment's generic cost field.
	if b.FreightForward == 0 && shipment != nil && shipment.Cost != "" {
		b.FreightForward = parseAmount(shipment.Cost)
	}

	return b
}

// parseAmount parses a platform-supplied numeric string. Malformed values
// default to 0 so one bad field cannot sink the whole computation.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}
