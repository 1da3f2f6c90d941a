package pricing

import (
	"context"
	"time"

	"panta-workers/internal/common/logger"
)

// Calculator prices vehicles for a single tenant.
type Calculator struct {
	tenantID TenantID
	loader   *ConfigLoader
	now      func() time.Time
}

type options struct {
	now          func() time.Time
	fetchTimeout time.Duration
	entryTTL     time.Duration
}

type Option func(*options)

// WithClock sets the clock used to derive the current year.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithFetchTimeout bounds the configuration fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.fetchTimeout = d
	}
}

// WithEntryTTL limits how long a Registry keeps a tenant calculator, and with
// it the tenant configuration. Zero keeps calculators until invalidated.
func WithEntryTTL(d time.Duration) Option {
	return func(o *options) {
		o.entryTTL = d
	}
}

func resolveOptions(opts []Option) options {
	o := options{now: time.Now, fetchTimeout: DefaultFetchTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewCalculator(tenantID TenantID, source ConfigSource, log logger.Logger, opts ...Option) *Calculator {
	o := resolveOptions(opts)
	return &Calculator{
		tenantID: tenantID,
		loader:   NewConfigLoader(tenantID, source, o.fetchTimeout, log),
		now:      o.now,
	}
}

func (c *Calculator) TenantID() TenantID {
	return c.tenantID
}

// CalculatePrice prices v on top of basePrice. The tenant configuration is
// loaded on first use; if it cannot be loaded the defaults apply.
func (c *Calculator) CalculatePrice(ctx context.Context, v VehicleInfo, basePrice int64) Result {
	res, _ := c.Quote(ctx, v, basePrice)
	return res
}

// Quote is CalculatePrice that also reports which configuration priced v.
func (c *Calculator) Quote(ctx context.Context, v VehicleInfo, basePrice int64) (Result, ConfigOrigin) {
	cfg, origin := c.loader.Load(ctx)
	return Evaluate(cfg, v, basePrice, c.now().Year()), origin
}

// Configuration returns the configuration in effect and where it came from.
func (c *Calculator) Configuration(ctx context.Context) (Configuration, ConfigOrigin) {
	return c.loader.Load(ctx)
}

// Refresh reloads the tenant configuration from the source.
func (c *Calculator) Refresh(ctx context.Context) (Configuration, ConfigOrigin) {
	return c.loader.Refresh(ctx)
}

// ConfigurationSource reports where the cached configuration came from.
func (c *Calculator) ConfigurationSource() ConfigOrigin {
	return c.loader.Source()
}

// GetQuickPrice returns only the total price, using a calculator that is discarded afterwards.
func GetQuickPrice(ctx context.Context, source ConfigSource, tenantID TenantID, v VehicleInfo, basePrice int64, log logger.Logger, opts ...Option) int64 {
	return NewCalculator(tenantID, source, log, opts...).CalculatePrice(ctx, v, basePrice).TotalPrice
}

// GetPriceBreakdown returns the full result, using a calculator that is discarded afterwards.
func GetPriceBreakdown(ctx context.Context, source ConfigSource, tenantID TenantID, v VehicleInfo, basePrice int64, log logger.Logger, opts ...Option) Result {
	return NewCalculator(tenantID, source, log, opts...).CalculatePrice(ctx, v, basePrice)
}
