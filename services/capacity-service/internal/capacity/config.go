// Package capacity decides which future delivery dates can absorb a cart of
// items: it resolves the production configuration, aggregates the load already
// committed by open orders, and filters a rolling date horizon against daily
// capacity.
package capacity

import (
	"context"
	"log/slog"
)

// Config holds the operational production parameters. JSON tags match the
// vocabulary the storefront already consumes.
type Config struct {
	DailyCapacity    int      `json:"capacidadDiaria"`
	MaxItemsPerOrder int      `json:"maxProductosPorPedido"`
	MinLeadTimeDays  int      `json:"leadTimeMinimoDias"`
	BlockedDates     []string `json:"diasBloqueados"`
}

// policyMinLeadTimeDays is a hard floor on the lead time. Operator
// configuration can raise the lead time but never lower it below this.
const policyMinLeadTimeDays = 3

func DefaultConfig() Config {
	return Config{
		DailyCapacity:    30,
		MaxItemsPerOrder: 15,
		MinLeadTimeDays:  3,
		BlockedDates:     []string{},
	}
}

// ConfigRow is the raw configuration row as stored. Fields are pointers
// because the table allows partial rows; nil means "use the default".
type ConfigRow struct {
	DailyCapacity    *int
	MaxItemsPerOrder *int
	MinLeadTimeDays  *int
	BlockedDates     []string
}

// ConfigStore reads the single production-configuration row.
// found=false means no row exists.
type ConfigStore interface {
	ReadConfig(ctx context.Context) (row ConfigRow, found bool, err error)
}

// ConfigProvider resolves the effective Config. It never fails: a missing row,
// a store error, or a null field all fall back to defaults with a warning.
type ConfigProvider struct {
	store  ConfigStore
	logger *slog.Logger
}

func NewConfigProvider(store ConfigStore, logger *slog.Logger) *ConfigProvider {
	return &ConfigProvider{store: store, logger: logger}
}

func (p *ConfigProvider) Resolve(ctx context.Context) Config {
	def := DefaultConfig()

	row, found, err := p.store.ReadConfig(ctx)
	if err != nil {
		p.logger.Warn("config read failed; using defaults", "err", err)
		return def
	}
	if !found {
		p.logger.Warn("no production configuration row; using defaults")
		return def
	}

	cfg := def
	if row.DailyCapacity != nil {
		cfg.DailyCapacity = *row.DailyCapacity
	}
	if row.MaxItemsPerOrder != nil {
		cfg.MaxItemsPerOrder = *row.MaxItemsPerOrder
	}
	if row.MinLeadTimeDays != nil {
		cfg.MinLeadTimeDays = *row.MinLeadTimeDays
	}
	if row.BlockedDates != nil {
		cfg.BlockedDates = row.BlockedDates
	}
	return cfg
}

// EffectiveLeadTimeDays applies the policy floor to the configured lead time.
func EffectiveLeadTimeDays(cfg Config) int {
	if cfg.MinLeadTimeDays > policyMinLeadTimeDays {
		return cfg.MinLeadTimeDays
	}
	return policyMinLeadTimeDays
}
