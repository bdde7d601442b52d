package controller

import (
	"net/http"
	"strconv"
	"time"

	domainRBAC "github.com/odhiambodaniel/pesaflow/internal/domain/rbac"
	domainWebhook "github.com/odhiambodaniel/pesaflow/internal/domain/webhook"
	"github.com/odhiambodaniel/pesaflow/internal/infrastructure/observability"
	"github.com/odhiambodaniel/pesaflow/internal/rbac"
	"github.com/odhiambodaniel/pesaflow/internal/webhook"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// EventController handles webhook event dispatch and delivery inspection.
type EventController struct {
	dispatcher *webhook.Dispatcher
	deliveries domainWebhook.DeliveryRepository
	endpoints  domainWebhook.EndpointRepository
	checker    *rbac.Checker
	metrics    *observability.Metrics
}

// NewEventController creates a new EventController.
func NewEventController(
	dispatcher *webhook.Dispatcher,
	deliveries domainWebhook.DeliveryRepository,
	endpoints domainWebhook.EndpointRepository,
	checker *rbac.Checker,
	metrics *observability.Metrics,
) *EventController {
	return &EventController{
		dispatcher: dispatcher,
		deliveries: deliveries,
		endpoints:  endpoints,
		checker:    checker,
		metrics:    metrics,
	}
}

// Dispatch handles POST /api/v1/events
func (h *EventController) Dispatch(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, h.checker, domainRBAC.PermDeliveriesDispatch) {
		return
	}

	var req DispatchEventRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	endpointID := parseUUID(req.EndpointID)
	if endpointID == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid endpoint_id", Code: "invalid_id"})
		return
	}

	endpoint, err := h.endpoints.GetByID(r.Context(), *endpointID)
	if err != nil {
		writeError(w, err)
		return
	}

	delivery, err := h.dispatcher.Dispatch(r.Context(), endpoint, req.EventType, req.Payload, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	h.metrics.DeliveriesDispatched.WithLabelValues(req.EventType).Inc()

	writeJSON(w, http.StatusAccepted, FromDelivery(delivery))
}

// GetDelivery handles GET /api/v1/deliveries/{id}
func (h *EventController) GetDelivery(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, h.checker, domainRBAC.PermDeliveriesRead) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid delivery id", Code: "invalid_id"})
		return
	}

	delivery, err := h.deliveries.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromDelivery(delivery))
}

// ListDeliveries handles GET /api/v1/endpoints/{id}/deliveries
func (h *EventController) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, h.checker, domainRBAC.PermDeliveriesRead) {
		return
	}

	endpointID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid endpoint id", Code: "invalid_id"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	deliveries, err := h.deliveries.ListByEndpoint(r.Context(), endpointID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*DeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		resp = append(resp, FromDelivery(d))
	}
	writeJSON(w, http.StatusOK, resp)
}
