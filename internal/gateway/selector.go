package gateway

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/odhiambodaniel/pesaflow/internal/domain/gateway"
	"github.com/odhiambodaniel/pesaflow/internal/gateway/services"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Candidate is one ranked selection result. Candidates are computed fresh per
// selection call and never persisted.
type Candidate struct {
	Descriptor *gateway.Descriptor
	Service    services.PaymentService
	Healthy    bool
}

// Selector ranks catalog gateways against selection criteria. Selection never
// performs payment network I/O; the only remote calls are short, independently
// bounded health probes served through a TTL cache.
type Selector struct {
	catalog  gateway.Catalog
	registry *Registry
	probe    *HealthProbe
	logger   zerolog.Logger
}

func NewSelector(catalog gateway.Catalog, registry *Registry, probe *HealthProbe, logger zerolog.Logger) *Selector {
	return &Selector{
		catalog:  catalog,
		registry: registry,
		probe:    probe,
		logger:   logger,
	}
}

// Select returns the ranked candidate list for the criteria: healthy before
// unhealthy, then ascending priority, ties keeping catalog order. An empty
// list is a valid outcome, not an error.
func (s *Selector) Select(ctx context.Context, criteria gateway.SelectionCriteria) ([]Candidate, error) {
	descriptors, err := s.catalog.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("load gateway catalog: %w", err)
	}

	candidates := make([]Candidate, 0, len(descriptors))
	for _, d := range descriptors {
		svc, ok := s.registry.Lookup(d.Type)
		if !ok {
			// Unknown type tags are excluded, not errors.
			s.logger.Debug().Str("gateway", string(d.Type)).Msg("no registered service for gateway type, skipping")
			continue
		}
		if !MatchesCriteria(d, criteria) {
			continue
		}
		// The catalog does not model countries; the country axis is answered
		// by the service's own capability check.
		if criteria.HasCountry() && !svc.SupportsCountryAndCurrency(criteria.Country, effectiveCurrency(d, criteria)) {
			continue
		}
		candidates = append(candidates, Candidate{Descriptor: d, Service: svc})
	}

	// Probe all surviving candidates concurrently. Each probe bounds its own
	// timeout, so one stuck gateway cannot serialize the others.
	g, gCtx := errgroup.WithContext(ctx)
	for i := range candidates {
		if !candidates[i].Descriptor.SupportsHealthCheck {
			// The catalog says there is nothing to probe.
			candidates[i].Healthy = true
			continue
		}
		g.Go(func() error {
			candidates[i].Healthy = s.probe.Probe(gCtx, candidates[i].Descriptor.Type, candidates[i].Service)
			return nil
		})
	}
	// Probe never returns errors, so Wait cannot fail; the group only scopes
	// the context.
	_ = g.Wait()

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Healthy != candidates[j].Healthy {
			return candidates[i].Healthy
		}
		return candidates[i].Descriptor.Priority < candidates[j].Descriptor.Priority
	})

	return candidates, nil
}

// effectiveCurrency pairs a currency with the country capability check: the
// requested currency when given, else the descriptor's default.
func effectiveCurrency(d *gateway.Descriptor, c gateway.SelectionCriteria) string {
	if c.HasCurrency() {
		return c.Currency
	}
	if d.DefaultCurrency != "" {
		return d.DefaultCurrency
	}
	if len(d.SupportedCurrencies) > 0 {
		return d.SupportedCurrencies[0]
	}
	return ""
}

// Best returns the top-ranked candidate, or nil when no gateway matched.
// Callers must treat a nil candidate as a first-class outcome.
func (s *Selector) Best(ctx context.Context, criteria gateway.SelectionCriteria) (*Candidate, error) {
	ranked, err := s.Select(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, nil
	}
	return &ranked[0], nil
}

// ReportFault records an operational gateway failure through the catalog. It
// is an explicit caller action after a processing failure, never triggered by
// probing, and does not remove the gateway from selection.
func (s *Selector) ReportFault(ctx context.Context, t gateway.Type, message string, at time.Time) error {
	return s.catalog.RecordFault(ctx, &gateway.Fault{
		GatewayType: t,
		Message:     message,
		OccurredAt:  at,
	})
}
