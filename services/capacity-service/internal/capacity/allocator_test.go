package capacity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/divino-bizcochito/platform/services/capacity-service/internal/model"
)

type fakeConfigStore struct {
	row   ConfigRow
	found bool
	err   error
}

func (s *fakeConfigStore) ReadConfig(context.Context) (ConfigRow, bool, error) {
	return s.row, s.found, s.err
}

type fakeOrderStore struct {
	orders    []model.Order
	lines     []model.OrderLine
	ordersErr error
	linesErr  error
}

func (s *fakeOrderStore) ListOpenOrders(context.Context) ([]model.Order, error) {
	return s.orders, s.ordersErr
}

func (s *fakeOrderStore) ListOrderLines(context.Context, []int64) ([]model.OrderLine, error) {
	return s.lines, s.linesErr
}

type fakeChecker struct {
	unavailable map[string]bool
	err         error
	calls       []string
}

func (c *fakeChecker) CheckCapacity(_ context.Context, date string, _ int) (bool, error) {
	c.calls = append(c.calls, date)
	if c.err != nil {
		return false, c.err
	}
	return !c.unavailable[date], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAllocator(cfg *fakeConfigStore, orders *fakeOrderStore, checker *fakeChecker) *Allocator {
	logger := testLogger()
	return NewAllocator(NewConfigProvider(cfg, logger), NewLoadAggregator(orders), checker, logger)
}

func intPtr(n int) *int { return &n }

func datePtr(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return &d
}

func openOrder(id int64, delivery *time.Time) model.Order {
	return model.Order{ID: id, Status: model.StatusReceived, DeliveryDate: delivery}
}

// now = 2024-01-01 10:00 UTC, before cutoff, default config.
var testNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func TestEligibleSlots_HorizonStartsAfterLeadTime(t *testing.T) {
	alloc := newTestAllocator(&fakeConfigStore{}, &fakeOrderStore{}, &fakeChecker{})

	out, err := alloc.EligibleSlots(context.Background(), 0, testNow)
	if err != nil {
		t.Fatalf("EligibleSlots: %v", err)
	}
	if len(out.Slots) != 14 {
		t.Fatalf("expected full 14-day horizon, got %d slots", len(out.Slots))
	}
	if out.Slots[0].Date != "2024-01-04" {
		t.Fatalf("expected first date 2024-01-04, got %s", out.Slots[0].Date)
	}
	if out.Slots[13].Date != "2024-01-17" {
		t.Fatalf("expected last date 2024-01-17, got %s", out.Slots[13].Date)
	}
	for _, s := range out.Slots {
		if s.Remaining != 30 || s.CommittedLoad != 0 {
			t.Fatalf("expected untouched capacity, got %+v", s)
		}
	}
}

func TestEligibleSlots_CutoffBoundary(t *testing.T) {
	cases := []struct {
		name      string
		now       time.Time
		firstDate string
	}{
		{"just before cutoff", time.Date(2024, 1, 1, 19, 59, 0, 0, time.UTC), "2024-01-04"},
		{"at cutoff", time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC), "2024-01-05"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alloc := newTestAllocator(&fakeConfigStore{}, &fakeOrderStore{}, &fakeChecker{})
			out, err := alloc.EligibleSlots(context.Background(), 0, tc.now)
			if err != nil {
				t.Fatalf("EligibleSlots: %v", err)
			}
			if out.Slots[0].Date != tc.firstDate {
				t.Fatalf("expected first date %s, got %s", tc.firstDate, out.Slots[0].Date)
			}
		})
	}
}

func TestEligibleSlots_ConfiguredLeadTimeCanOnlyRaise(t *testing.T) {
	cases := []struct {
		name       string
		configured int
		firstDate  string
		effective  int
	}{
		{"below policy floor", 1, "2024-01-04", 3},
		{"above policy floor", 5, "2024-01-06", 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &fakeConfigStore{row: ConfigRow{MinLeadTimeDays: intPtr(tc.configured)}, found: true}
			alloc := newTestAllocator(cfg, &fakeOrderStore{}, &fakeChecker{})
			out, err := alloc.EligibleSlots(context.Background(), 0, testNow)
			if err != nil {
				t.Fatalf("EligibleSlots: %v", err)
			}
			if out.Slots[0].Date != tc.firstDate {
				t.Fatalf("expected first date %s, got %s", tc.firstDate, out.Slots[0].Date)
			}
			if out.Config.MinLeadTimeDays != tc.effective {
				t.Fatalf("expected effective lead time %d, got %d", tc.effective, out.Config.MinLeadTimeDays)
			}
		})
	}
}

func TestEligibleSlots_BlockedDateNeverOffered(t *testing.T) {
	cfg := &fakeConfigStore{row: ConfigRow{BlockedDates: []string{"2024-01-05"}}, found: true}
	alloc := newTestAllocator(cfg, &fakeOrderStore{}, &fakeChecker{})

	out, err := alloc.EligibleSlots(context.Background(), 0, testNow)
	if err != nil {
		t.Fatalf("EligibleSlots: %v", err)
	}
	if len(out.Slots) != 13 {
		t.Fatalf("expected 13 slots with one blocked date, got %d", len(out.Slots))
	}
	for _, s := range out.Slots {
		if s.Date == "2024-01-05" {
			t.Fatal("blocked date offered as eligible")
		}
	}
}

func TestEligibleSlots_SnapshotCapacityFilter(t *testing.T) {
	// 2024-01-04 already carries 28 of 30 units.
	orders := &fakeOrderStore{
		orders: []model.Order{openOrder(1, datePtr(t, "2024-01-04"))},
		lines:  []model.OrderLine{{OrderID: 1, Quantity: intPtr(28)}},
	}

	alloc := newTestAllocator(&fakeConfigStore{}, orders, &fakeChecker{})
	out, err := alloc.EligibleSlots(context.Background(), 5, testNow)
	if err != nil {
		t.Fatalf("EligibleSlots: %v", err)
	}
	for _, s := range out.Slots {
		if s.Date == "2024-01-04" {
			t.Fatalf("date with remaining 2 offered for a 5-item cart: %+v", s)
		}
	}

	out, err = alloc.EligibleSlots(context.Background(), 2, testNow)
	if err != nil {
		t.Fatalf("EligibleSlots: %v", err)
	}
	found := false
	for _, s := range out.Slots {
		if s.Date == "2024-01-04" {
			found = true
			if s.CommittedLoad != 28 || s.Remaining != 2 {
				t.Fatalf("expected carga=28 restante=2, got %+v", s)
			}
		}
	}
	if !found {
		t.Fatal("date with exactly enough capacity missing for a 2-item cart")
	}
}

func TestEligibleSlots_RemainingFloorsAtZero(t *testing.T) {
	// Over-committed date (40 of 30): still reported when browsing, at 0.
	orders := &fakeOrderStore{
		orders: []model.Order{openOrder(1, datePtr(t, "2024-01-04"))},
		lines:  []model.OrderLine{{OrderID: 1, Quantity: intPtr(40)}},
	}

	alloc := newTestAllocator(&fakeConfigStore{}, orders, &fakeChecker{})
	out, err := alloc.EligibleSlots(context.Background(), 0, testNow)
	if err != nil {
		t.Fatalf("EligibleSlots: %v", err)
	}
	for _, s := range out.Slots {
		if s.Remaining < 0 {
			t.Fatalf("remaining went negative: %+v", s)
		}
		if s.Date == "2024-01-04" && (s.CommittedLoad != 40 || s.Remaining != 0) {
			t.Fatalf("expected carga=40 restante=0, got %+v", s)
		}
	}
}

func TestEligibleSlots_ZeroItemsSkipsAuthoritativeCheck(t *testing.T) {
	checker := &fakeChecker{unavailable: map[string]bool{"2024-01-04": true}}
	alloc := newTestAllocator(&fakeConfigStore{}, &fakeOrderStore{}, checker)

	out, err := alloc.EligibleSlots(context.Background(), 0, testNow)
	if err != nil {
		t.Fatalf("EligibleSlots: %v", err)
	}
	if len(checker.calls) != 0 {
		t.Fatalf("checker called %d times for an empty cart", len(checker.calls))
	}
	if len(out.Slots) != 14 {
		t.Fatalf("expected every horizon date, got %d", len(out.Slots))
	}
}

func TestEligibleSlots_AuthoritativeCheckOverridesSnapshot(t *testing.T) {
	// Snapshot sees free capacity but the store says the date is taken.
	checker := &fakeChecker{unavailable: map[string]bool{"2024-01-06": true}}
	alloc := newTestAllocator(&fakeConfigStore{}, &fakeOrderStore{}, checker)

	out, err := alloc.EligibleSlots(context.Background(), 3, testNow)
	if err != nil {
		t.Fatalf("EligibleSlots: %v", err)
	}
	if len(out.Slots) != 13 {
		t.Fatalf("expected 13 slots, got %d", len(out.Slots))
	}
	for _, s := range out.Slots {
		if s.Date == "2024-01-06" {
			t.Fatal("store-rejected date still offered")
		}
	}
	if len(checker.calls) != 14 {
		t.Fatalf("expected one check per candidate date, got %d", len(checker.calls))
	}
}

func TestEligibleSlots_CheckFailureKeepsDate(t *testing.T) {
	checker := &fakeChecker{err: errors.New("rpc unreachable")}
	alloc := newTestAllocator(&fakeConfigStore{}, &fakeOrderStore{}, checker)

	out, err := alloc.EligibleSlots(context.Background(), 3, testNow)
	if err != nil {
		t.Fatalf("check failure must not fail the request: %v", err)
	}
	if len(out.Slots) != 14 {
		t.Fatalf("expected best-effort candidates for all dates, got %d", len(out.Slots))
	}
}

func TestEligibleSlots_ExceedsMaxIsAdvisory(t *testing.T) {
	alloc := newTestAllocator(&fakeConfigStore{}, &fakeOrderStore{}, &fakeChecker{})

	out, err := alloc.EligibleSlots(context.Background(), 16, testNow)
	if err != nil {
		t.Fatalf("EligibleSlots: %v", err)
	}
	if !out.ExceedsMax {
		t.Fatal("expected superaMaximo for 16 items against max 15")
	}
	if len(out.Slots) == 0 {
		t.Fatal("flag is advisory; slots must still be returned")
	}
}

func TestEligibleSlots_LoadQueryFailurePropagates(t *testing.T) {
	orders := &fakeOrderStore{ordersErr: errors.New("db down")}
	alloc := newTestAllocator(&fakeConfigStore{}, orders, &fakeChecker{})

	if _, err := alloc.EligibleSlots(context.Background(), 0, testNow); err == nil {
		t.Fatal("expected error when committed load cannot be read")
	}
}

func TestEligibleSlots_Idempotent(t *testing.T) {
	orders := &fakeOrderStore{
		orders: []model.Order{openOrder(1, datePtr(t, "2024-01-08"))},
		lines:  []model.OrderLine{{OrderID: 1, Quantity: intPtr(7)}},
	}
	alloc := newTestAllocator(&fakeConfigStore{}, orders, &fakeChecker{})

	first, err := alloc.EligibleSlots(context.Background(), 4, testNow)
	if err != nil {
		t.Fatalf("EligibleSlots: %v", err)
	}
	second, err := alloc.EligibleSlots(context.Background(), 4, testNow)
	if err != nil {
		t.Fatalf("EligibleSlots: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different allocations:\n%+v\n%+v", first, second)
	}
}

func TestEligibleSlots_NegativeItemsTreatedAsBrowsing(t *testing.T) {
	checker := &fakeChecker{}
	alloc := newTestAllocator(&fakeConfigStore{}, &fakeOrderStore{}, checker)

	out, err := alloc.EligibleSlots(context.Background(), -3, testNow)
	if err != nil {
		t.Fatalf("EligibleSlots: %v", err)
	}
	if out.RequestedItems != 0 {
		t.Fatalf("expected clamped requested items, got %d", out.RequestedItems)
	}
	if len(checker.calls) != 0 {
		t.Fatal("checker must not run for a clamped empty cart")
	}
}
