package shiprocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/parcelops/shipcost-reconciler/internal/domain"
)

// walletTxn is the wire shape of one wallet-feed entry. Amounts arrive as
// numbers or quoted strings depending on the entry type, and timestamps come
// in more than one layout.
type walletTxn struct {
	ID          int64       `json:"id"`
	Type        string      `json:"type"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	AWB         string      `json:"awb"`
	OrderID     string      `json:"order_id"`
	CreatedAt   string      `json:"created_at"`
}

type walletResponse struct {
	Data []walletTxn `json:"data"`
}

var ledgerTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t walletTxn) toDomain() domain.LedgerTransaction {
	amount, err := t.Amount.Float64()
	if err != nil {
		amount = 0
	}

	var createdAt time.Time
	for _, layout := range ledgerTimeLayouts {
		if parsed, err := time.Parse(layout, t.CreatedAt); err == nil {
			createdAt = parsed
			break
		}
	}

	return domain.LedgerTransaction{
		ID:          t.ID,
		Type:        t.Type,
		Amount:      amount,
		Description: t.Description,
		AWB:         t.AWB,
		OrderID:     t.OrderID,
		CreatedAt:   createdAt,
	}
}

// FetchLedgerForOrder returns the wallet entries belonging to one order. The
// feed's search parameter is only a coarse prefilter, so results are matched
// locally against the order number, the AWB, and the free-text description.
// A 404 means the order has no billing data yet and yields an empty result.
func (c *Client) FetchLedgerForOrder(ctx context.Context, awbCode, orderNumber string) ([]domain.LedgerTransaction, error) {
	var matched []domain.LedgerTransaction

	for page := 1; page <= c.ledgerPageLimit; page++ {
		entries, err := c.listLedgerPage(ctx, orderNumber, page)
		if err != nil {
			if IsNotFound(err) {
				return matched, nil
			}
			return nil, err
		}

		for _, e := range entries {
			if matchesOrder(e, awbCode, orderNumber) {
				matched = append(matched, e.toDomain())
			}
		}

		if len(entries) < c.ledgerPageSize {
			break
		}
	}

	return matched, nil
}

// matchesOrder reports whether a wallet entry belongs to the given order.
// Description matching is case-sensitive substring containment; the platform
// writes identifiers into descriptions verbatim.
func matchesOrder(t walletTxn, awbCode, orderNumber string) bool {
	if t.OrderID == orderNumber {
		return true
	}
	if awbCode != "" && t.AWB == awbCode {
		return true
	}
	if orderNumber != "" && strings.Contains(t.Description, orderNumber) {
		return true
	}
	if awbCode != "" && strings.Contains(t.Description, awbCode) {
		return true
	}
	return false
}

// FetchLedger pages the full wallet feed up to the page ceiling. When a date
// range is given, entries are filtered locally on their timestamp; the feed
// has no reliable server-side date filter.
func (c *Client) FetchLedger(ctx context.Context, from, to *time.Time) ([]domain.LedgerTransaction, error) {
	var out []domain.LedgerTransaction

	for page := 1; page <= c.ledgerPageLimit; page++ {
		entries, err := c.listLedgerPage(ctx, "", page)
		if err != nil {
			if IsNotFound(err) {
				return out, nil
			}
			return nil, fmt.Errorf("list ledger page %d: %w", page, err)
		}

		for _, e := range entries {
			txn := e.toDomain()
			if from != nil && txn.CreatedAt.Before(*from) {
				continue
			}
			if to != nil && txn.CreatedAt.After(*to) {
				continue
			}
			out = append(out, txn)
		}

		if len(entries) < c.ledgerPageSize {
			break
		}
	}

	return out, nil
}

func (c *Client) listLedgerPage(ctx context.Context, search string, page int) ([]walletTxn, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.ledgerPageSize))

	var resp walletResponse
	if err := c.getJSON(ctx, "/wallet/transactions", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
