package capacity

import (
	"context"
	"fmt"
	"time"

	"github.com/divino-bizcochito/platform/services/capacity-service/internal/model"
)

// DateLayout is the ISO calendar-date form used for slot keys and wire dates.
const DateLayout = "2006-01-02"

// OrderStore lists open orders and their lines from the shared order tables.
type OrderStore interface {
	ListOpenOrders(ctx context.Context) ([]model.Order, error)
	ListOrderLines(ctx context.Context, orderIDs []int64) ([]model.OrderLine, error)
}

// LoadAggregator sums the item quantities of open orders per delivery date.
type LoadAggregator struct {
	store OrderStore
}

func NewLoadAggregator(store OrderStore) *LoadAggregator {
	return &LoadAggregator{store: store}
}

// CommittedLoadByDate returns committed item load keyed by ISO date. Orders
// without an assigned delivery date do not occupy a slot yet and are skipped.
// Store failures propagate: committed load is safety-critical and must never
// silently read as zero.
func (a *LoadAggregator) CommittedLoadByDate(ctx context.Context) (map[string]int, error) {
	orders, err := a.store.ListOpenOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	if len(orders) == 0 {
		return map[string]int{}, nil
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	lines, err := a.store.ListOrderLines(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}

	loadByOrder := make(map[int64]int, len(orders))
	for _, line := range lines {
		loadByOrder[line.OrderID] += effectiveQuantity(line.Quantity)
	}

	loadByDate := make(map[string]int)
	for _, o := range orders {
		if o.DeliveryDate == nil {
			continue
		}
		loadByDate[o.DeliveryDate.Format(DateLayout)] += loadByOrder[o.ID]
	}
	return loadByDate, nil
}

// effectiveQuantity substitutes 1 for a missing or non-positive quantity so a
// malformed line never frees up capacity.
func effectiveQuantity(q *int) int {
	if q == nil || *q <= 0 {
		return 1
	}
	return *q
}

func formatDate(t time.Time) string {
	return t.Format(DateLayout)
}
