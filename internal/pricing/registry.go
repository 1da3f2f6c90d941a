package pricing

import (
	"sync"
	"time"

	"panta-workers/internal/common/logger"
)

// Registry keeps one long-lived Calculator per tenant. With WithEntryTTL a
// calculator is replaced once it is older than the TTL, so edits to the
// tenant record are picked up.
type Registry struct {
	source ConfigSource
	logger logger.Logger
	opts   []Option
	now    func() time.Time
	ttl    time.Duration

	mu          sync.RWMutex
	calculators map[TenantID]registryEntry
}

type registryEntry struct {
	calc    *Calculator
	created time.Time
}

func NewRegistry(source ConfigSource, log logger.Logger, opts ...Option) *Registry {
	o := resolveOptions(opts)
	return &Registry{
		source:      source,
		logger:      log,
		opts:        opts,
		now:         o.now,
		ttl:         o.entryTTL,
		calculators: make(map[TenantID]registryEntry),
	}
}

func (r *Registry) expired(e registryEntry) bool {
	return r.ttl > 0 && r.now().Sub(e.created) >= r.ttl
}

// For returns the calculator for tenantID, creating it if needed.
func (r *Registry) For(tenantID TenantID) *Calculator {
	r.mu.RLock()
	e, ok := r.calculators[tenantID]
	r.mu.RUnlock()
	if ok && !r.expired(e) {
		return e.calc
	}
	if ok {
		r.Invalidate(tenantID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.calculators[tenantID]; ok && !r.expired(e) {
		return e.calc
	}
	c := NewCalculator(tenantID, r.source, r.logger, r.opts...)
	r.calculators[tenantID] = registryEntry{calc: c, created: r.now()}
	return c
}

// Invalidate drops the tenant's calculator so the next For starts with a fresh load.
func (r *Registry) Invalidate(tenantID TenantID) {
	r.mu.Lock()
	delete(r.calculators, tenantID)
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Debug("Tenant calculator invalidated", map[string]interface{}{
			"tenantId": string(tenantID),
		})
	}
}
