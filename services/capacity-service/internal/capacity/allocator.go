package capacity

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// horizonDays is how many consecutive candidate dates each request considers.
	horizonDays = 14
	// cutoffHour: requests placed at or after this local hour cannot enter the
	// next production day, so the first eligible date moves one day forward.
	cutoffHour = 20
)

// Checker is the authoritative store-side capacity verification. It must be
// evaluated with the same isolation a concurrent order insert would use; the
// snapshot filtering in EligibleSlots is only an optimization on top of it.
type Checker interface {
	CheckCapacity(ctx context.Context, date string, quantity int) (bool, error)
}

// DaySlot is one candidate delivery date with its committed and remaining load.
type DaySlot struct {
	Date          string `json:"fecha"`
	CommittedLoad int    `json:"carga"`
	Remaining     int    `json:"restante"`
}

// Allocation is the result of one slot computation. Field names on the wire
// are the ones the storefront date picker already understands.
type Allocation struct {
	Config         Config    `json:"config"`
	RequestedItems int       `json:"itemsSolicitados"`
	ExceedsMax     bool      `json:"superaMaximo"`
	Slots          []DaySlot `json:"slots"`
}

// Allocator computes eligible delivery dates. It holds no mutable state:
// config and load are re-fetched on every call, and the final admission
// decision always belongs to the store-side check.
type Allocator struct {
	config  *ConfigProvider
	load    *LoadAggregator
	checker Checker
	logger  *slog.Logger
}

func NewAllocator(config *ConfigProvider, load *LoadAggregator, checker Checker, logger *slog.Logger) *Allocator {
	return &Allocator{
		config:  config,
		load:    load,
		checker: checker,
		logger:  logger,
	}
}

// EligibleSlots returns the dates within the horizon that can absorb
// requestedItems more units, in ascending date order. requestedItems <= 0
// disables capacity filtering and returns every non-blocked date.
func (a *Allocator) EligibleSlots(ctx context.Context, requestedItems int, now time.Time) (Allocation, error) {
	ctx, span := otel.Tracer("capacity").Start(ctx, "capacity.eligible_slots",
		trace.WithAttributes(attribute.Int("capacity.requested_items", requestedItems)),
	)
	defer span.End()

	if requestedItems < 0 {
		requestedItems = 0
	}

	cfg := a.config.Resolve(ctx)
	loadByDate, err := a.load.CommittedLoadByDate(ctx)
	if err != nil {
		span.RecordError(err)
		return Allocation{}, err
	}

	leadTime := EffectiveLeadTimeDays(cfg)
	cfg.MinLeadTimeDays = leadTime // callers see the lead time actually applied

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, leadTime)
	if now.Hour() >= cutoffHour {
		start = start.AddDate(0, 0, 1)
	}

	blocked := make(map[string]struct{}, len(cfg.BlockedDates))
	for _, d := range cfg.BlockedDates {
		blocked[d] = struct{}{}
	}

	slots := make([]DaySlot, 0, horizonDays)
	for i := 0; i < horizonDays; i++ {
		date := formatDate(start.AddDate(0, 0, i))

		if _, ok := blocked[date]; ok {
			continue
		}

		load := loadByDate[date]
		remaining := cfg.DailyCapacity - load
		if remaining < 0 {
			remaining = 0
		}

		if requestedItems > 0 {
			if remaining < requestedItems {
				continue
			}
			// Authoritative re-check at the store. A failed check drops the
			// date; a check that could not run keeps the date best-effort so
			// one bad call does not empty the whole horizon.
			ok, err := a.checker.CheckCapacity(ctx, date, requestedItems)
			if err != nil {
				a.logger.Warn("capacity check failed; keeping date as candidate", "date", date, "err", err)
			} else if !ok {
				continue
			}
		}

		slots = append(slots, DaySlot{Date: date, CommittedLoad: load, Remaining: remaining})
	}

	span.SetAttributes(attribute.Int("capacity.slot_count", len(slots)))
	return Allocation{
		Config:         cfg,
		RequestedItems: requestedItems,
		ExceedsMax:     requestedItems > cfg.MaxItemsPerOrder,
		Slots:          slots,
	}, nil
}
