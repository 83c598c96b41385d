package shiprocket

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/parcelops/shipcost-reconciler/internal/domain"
)

// OrderIndex is a per-run lookup table over the platform's order listing,
// keyed by channel-order-id variants. It is built once per batch and thrown
// away; it is never shared between runs.
type OrderIndex struct {
	byKey map[string]*domain.RemoteOrder
	count int
}

// Find returns the order whose channel id matches any normalization variant
// of orderNumber, or nil if no page we scanned contained it.
func (ix *OrderIndex) Find(orderNumber string) *domain.RemoteOrder {
	for _, k := range channelKeys(orderNumber) {
		if o, ok := ix.byKey[k]; ok {
			return o
		}
	}
	return nil
}

// Len returns the number of orders registered in the index.
func (ix *OrderIndex) Len() int { return ix.count }

// channelKeys returns the lookup variants for a channel order id: the raw
// value, the value with a leading '#' stripped, and the value with a leading
// '#' added if absent. Sales channels disagree about the prefix and the
// platform stores whatever it was given.
func channelKeys(id string) []string {
	keys := []string{id}
	if stripped := strings.TrimPrefix(id, "#"); stripped != id {
		keys = append(keys, stripped)
	} else if id != "" {
		keys = append(keys, "#"+id)
	}
	return keys
}

type orderListResponse struct {
	Data []domain.RemoteOrder `json:"data"`
}

// BuildOrderIndex pages through the order listing and registers every order
// under its channel-id variants, stopping at a short page, the configured
// page ceiling, or maxOrders registered orders. The platform's own
// filter-by-id query silently returns wrong results, so bulk listing plus a
// local index is the reliable path.
func (c *Client) BuildOrderIndex(ctx context.Context, maxOrders int) (*OrderIndex, error) {
	ix := &OrderIndex{byKey: make(map[string]*domain.RemoteOrder)}

	for page := 1; page <= c.orderPageLimit; page++ {
		orders, err := c.listOrdersPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("list orders page %d: %w", page, err)
		}

		for i := range orders {
			o := &orders[i]
			if o.ChannelOrderID == "" {
				continue
			}
			for _, k := range channelKeys(o.ChannelOrderID) {
				if _, exists := ix.byKey[k]; !exists {
					ix.byKey[k] = o
				}
			}
			ix.count++
			if ix.count >= maxOrders {
				c.log.Warn("order index hit its size cap; older orders will not reconcile this run",
					zap.Int("max_orders", maxOrders))
				return ix, nil
			}
		}

		if len(orders) < c.orderPageSize {
			break
		}
	}

	return ix, nil
}

// FindOrder scans the order listing page by page for a single order number,
// matching against the same channel-id variants the index uses. It exists
// for one-off lookups; batch work should build an index instead.
func (c *Client) FindOrder(ctx context.Context, orderNumber string) (*domain.RemoteOrder, error) {
	wanted := channelKeys(orderNumber)

	for page := 1; page <= c.orderPageLimit; page++ {
		orders, err := c.listOrdersPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("list orders page %d: %w", page, err)
		}

		for i := range orders {
			o := &orders[i]
			for _, have := range channelKeys(o.ChannelOrderID) {
				for _, want := range wanted {
					if have == want {
						return o, nil
					}
				}
			}
		}

		if len(orders) < c.orderPageSize {
			break
		}
	}

	return nil, nil
}

func (c *Client) listOrdersPage(ctx context.Context, page int) ([]domain.RemoteOrder, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.orderPageSize))

	var resp orderListResponse
	if err := c.getJSON(ctx, "/orders", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
