package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/odhiambodaniel/pesaflow/internal/domain/gateway"
	"github.com/odhiambodaniel/pesaflow/internal/gateway/services"
	"github.com/rs/zerolog"
)

// ProbeCache stores recent health results per gateway type. TTL handling is
// owned by the implementation; Get's second return is the hit flag.
type ProbeCache interface {
	Get(ctx context.Context, t gateway.Type) (healthy bool, ok bool, err error)
	Set(ctx context.Context, t gateway.Type, healthy bool) error
}

// HealthProbe answers "is gateway type T usable right now?". Probe calls never
// fault outward: any internal failure collapses to unhealthy plus a warning.
// Probing has no side effect on gateway state; fault-marking is a separate,
// explicit catalog action.
type HealthProbe struct {
	cache   ProbeCache
	timeout time.Duration
	logger  zerolog.Logger
}

func NewHealthProbe(cache ProbeCache, timeout time.Duration, logger zerolog.Logger) *HealthProbe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthProbe{cache: cache, timeout: timeout, logger: logger}
}

// Probe checks liveness for one gateway type. A service without the health
// capability is healthy by default. Probe faults and timeouts report false.
func (p *HealthProbe) Probe(ctx context.Context, t gateway.Type, svc services.PaymentService) bool {
	checker, ok := svc.(services.HealthChecker)
	if !ok {
		return true
	}

	if healthy, hit, err := p.cache.Get(ctx, t); err != nil {
		p.logger.Warn().Err(err).Str("gateway", string(t)).Msg("health cache read failed, probing directly")
	} else if hit {
		return healthy
	}

	healthy := p.check(ctx, t, checker)

	if err := p.cache.Set(ctx, t, healthy); err != nil {
		p.logger.Warn().Err(err).Str("gateway", string(t)).Msg("health cache write failed")
	}
	return healthy
}

func (p *HealthProbe) check(ctx context.Context, t gateway.Type, checker services.HealthChecker) (healthy bool) {
	// A misbehaving service integration must never take selection down.
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn().Interface("panic", r).Str("gateway", string(t)).Msg("health check panicked")
			healthy = false
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := checker.HealthCheck(probeCtx); err != nil {
		p.logger.Warn().Err(err).Str("gateway", string(t)).Msg("health check failed")
		return false
	}
	return true
}

// MemoryProbeCache is an in-process ProbeCache with per-entry TTL. Suited to
// single-instance deployments and tests; multi-instance deployments share
// results through the redis-backed cache instead.
type MemoryProbeCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[gateway.Type]memoryProbeEntry
}

type memoryProbeEntry struct {
	healthy   bool
	expiresAt time.Time
}

func NewMemoryProbeCache(ttl time.Duration) *MemoryProbeCache {
	return &MemoryProbeCache{
		ttl:     ttl,
		entries: make(map[gateway.Type]memoryProbeEntry),
	}
}

func (c *MemoryProbeCache) Get(_ context.Context, t gateway.Type) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[t]
	if !ok || time.Now().After(e.expiresAt) {
		delete(c.entries, t)
		return false, false, nil
	}
	return e.healthy, true, nil
}

func (c *MemoryProbeCache) Set(_ context.Context, t gateway.Type, healthy bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[t] = memoryProbeEntry{healthy: healthy, expiresAt: time.Now().Add(c.ttl)}
	return nil
}
