package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"panta-workers/internal/common/logger"
	"panta-workers/internal/common/metrics"
)

// DefaultFetchTimeout bounds a single configuration fetch.
const DefaultFetchTimeout = 5 * time.Second

// ErrConfigurationNotFound is returned by a ConfigSource when the tenant has
// no active vehicle pricing configuration.
var ErrConfigurationNotFound = errors.New("pricing configuration not found")

// ConfigSource fetches a tenant's pricing override.
type ConfigSource interface {
	FetchPricingConfiguration(ctx context.Context, tenantID TenantID) (*ConfigurationOverride, error)
}

// ConfigLoader loads a tenant configuration and keeps it for its lifetime.
// Concurrent loads share one fetch. A missing tenant record is cached as
// defaults; a failed or timed out fetch yields defaults for that call only
// and the next Load tries again.
type ConfigLoader struct {
	tenantID TenantID
	source   ConfigSource
	timeout  time.Duration
	logger   logger.Logger

	group singleflight.Group

	mu         sync.RWMutex
	loaded     bool
	generation uint64
	config     Configuration
	origin     ConfigOrigin
}

func NewConfigLoader(tenantID TenantID, source ConfigSource, timeout time.Duration, log logger.Logger) *ConfigLoader {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &ConfigLoader{
		tenantID: tenantID,
		source:   source,
		timeout:  timeout,
		logger:   log.With(map[string]interface{}{"tenantId": string(tenantID)}),
	}
}

func (l *ConfigLoader) cached() (Configuration, ConfigOrigin, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config, l.origin, l.loaded
}

// Load returns the tenant configuration, fetching it until a fetch settles.
func (l *ConfigLoader) Load(ctx context.Context) (Configuration, ConfigOrigin) {
	if cfg, origin, ok := l.cached(); ok {
		return cfg, origin
	}

	// the fetch is shared, so it must not die with the caller that started it
	shared := context.WithoutCancel(ctx)
	ch := l.group.DoChan("load", func() (interface{}, error) {
		if cfg, origin, ok := l.cached(); ok {
			return loaded{cfg, origin}, nil
		}
		l.mu.RLock()
		gen := l.generation
		l.mu.RUnlock()
		return l.fetchAndStore(shared, gen), nil
	})
	return l.wait(ctx, ch)
}

// Refresh discards the cached configuration and fetches it again. A load
// that started before the refresh cannot overwrite its result.
func (l *ConfigLoader) Refresh(ctx context.Context) (Configuration, ConfigOrigin) {
	shared := context.WithoutCancel(ctx)
	ch := l.group.DoChan("refresh", func() (interface{}, error) {
		l.mu.Lock()
		l.generation++
		gen := l.generation
		l.mu.Unlock()
		return l.fetchAndStore(shared, gen), nil
	})
	return l.wait(ctx, ch)
}

// wait returns the shared fetch result, or the defaults once ctx is done.
func (l *ConfigLoader) wait(ctx context.Context, ch <-chan singleflight.Result) (Configuration, ConfigOrigin) {
	select {
	case r := <-ch:
		res := r.Val.(loaded)
		return res.config, res.origin
	case <-ctx.Done():
		l.logger.Warn("Gave up waiting for pricing configuration, using defaults", map[string]interface{}{
			"error": ctx.Err().Error(),
		})
		return DefaultConfiguration(), OriginDefault
	}
}

// Source reports the origin of the cached configuration, or "" before the first load.
func (l *ConfigLoader) Source() ConfigOrigin {
	_, origin, _ := l.cached()
	return origin
}

type loaded struct {
	config Configuration
	origin ConfigOrigin
}

func (l *ConfigLoader) fetchAndStore(ctx context.Context, gen uint64) loaded {
	cfg, origin, settled := l.fetch(ctx)
	metrics.PricingConfigLoads.WithLabelValues(string(origin)).Inc()

	l.mu.Lock()
	if gen == l.generation {
		l.config, l.origin, l.loaded = cfg, origin, settled
	}
	l.mu.Unlock()

	return loaded{cfg, origin}
}

// fetch reports settled=false when the source failed, so the result is not kept.
func (l *ConfigLoader) fetch(ctx context.Context) (Configuration, ConfigOrigin, bool) {
	defaults := DefaultConfiguration()
	if l.source == nil {
		return defaults, OriginDefault, true
	}

	override, err := l.fetchWithTimeout(ctx)
	switch {
	case errors.Is(err, ErrConfigurationNotFound), err == nil && override == nil:
		l.logger.Warn("No pricing configuration for tenant, using defaults", nil)
		return defaults, OriginDefault, true
	case err != nil:
		l.logger.Warn("Failed to load pricing configuration, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		return defaults, OriginDefault, false
	}

	l.logger.Debug("Loaded tenant pricing configuration", nil)
	return override.Apply(defaults), OriginTenant, true
}

// fetchWithTimeout returns when the source answers or the timeout expires,
// whichever comes first, even if the source ignores ctx.
func (l *ConfigLoader) fetchWithTimeout(ctx context.Context) (*ConfigurationOverride, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type answer struct {
		override *ConfigurationOverride
		err      error
	}
	ch := make(chan answer, 1)
	go func() {
		override, err := l.source.FetchPricingConfiguration(ctx, l.tenantID)
		ch <- answer{override, err}
	}()

	select {
	case a := <-ch:
		return a.override, a.err
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch pricing configuration: %w", ctx.Err())
	}
}
