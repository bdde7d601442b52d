package controller

import (
	"net/http"
	"time"

	domainErrors "github.com/odhiambodaniel/pesaflow/internal/domain/errors"
	domainGateway "github.com/odhiambodaniel/pesaflow/internal/domain/gateway"
	domainRBAC "github.com/odhiambodaniel/pesaflow/internal/domain/rbac"
	"github.com/odhiambodaniel/pesaflow/internal/gateway"
	"github.com/odhiambodaniel/pesaflow/internal/infrastructure/observability"
	"github.com/odhiambodaniel/pesaflow/internal/rbac"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GatewayController handles gateway selection and fault reporting requests.
type GatewayController struct {
	selector *gateway.Selector
	registry *gateway.Registry
	checker  *rbac.Checker
	metrics  *observability.Metrics
}

// NewGatewayController creates a new GatewayController.
func NewGatewayController(
	selector *gateway.Selector,
	registry *gateway.Registry,
	checker *rbac.Checker,
	metrics *observability.Metrics,
) *GatewayController {
	return &GatewayController{
		selector: selector,
		registry: registry,
		checker:  checker,
		metrics:  metrics,
	}
}

// Select handles POST /api/v1/gateways/select
func (h *GatewayController) Select(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, h.checker, domainRBAC.PermGatewaysSelect) {
		return
	}

	var req SelectGatewayRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	ranked, err := h.selector.Select(r.Context(), req.toCriteria())
	h.metrics.SelectionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		h.metrics.SelectionsTotal.WithLabelValues("error").Inc()
		writeError(w, err)
		return
	}

	resp := SelectionResponse{Candidates: make([]CandidateResponse, 0, len(ranked))}
	for _, c := range ranked {
		result := "unhealthy"
		if c.Healthy {
			result = "healthy"
		}
		h.metrics.ProbeResults.WithLabelValues(string(c.Descriptor.Type), result).Inc()
		resp.Candidates = append(resp.Candidates, FromCandidate(c))
	}
	if len(ranked) > 0 {
		best := FromCandidate(ranked[0])
		resp.Best = &best
		h.metrics.SelectionsTotal.WithLabelValues("matched").Inc()
	} else {
		h.metrics.SelectionsTotal.WithLabelValues("empty").Inc()
	}
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Int("selection.candidates", len(ranked)),
	)

	writeJSON(w, http.StatusOK, resp)
}

// ReportFault handles POST /api/v1/gateways/{type}/faults
func (h *GatewayController) ReportFault(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, h.checker, domainRBAC.PermGatewaysManage) {
		return
	}

	gwType := domainGateway.Type(chi.URLParam(r, "type"))
	if _, ok := h.registry.Lookup(gwType); !ok {
		writeError(w, domainErrors.ErrGatewayNotRegistered)
		return
	}

	var req ReportFaultRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.selector.ReportFault(r.Context(), gwType, req.Message, time.Now().UTC()); err != nil {
		writeError(w, err)
		return
	}
	h.metrics.GatewayFaults.WithLabelValues(string(gwType)).Inc()
	if breaker, ok := h.registry.Breaker(gwType); ok {
		h.metrics.CircuitBreakerState.WithLabelValues(string(gwType)).Set(float64(breaker.State()))
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}
