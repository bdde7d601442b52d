package controller

import (
	"net/http"
	"time"

	domainRBAC "github.com/odhiambodaniel/pesaflow/internal/domain/rbac"
	"github.com/odhiambodaniel/pesaflow/internal/domain/webhook"
	"github.com/odhiambodaniel/pesaflow/internal/rbac"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// EndpointController handles webhook endpoint CRUD requests.
type EndpointController struct {
	endpoints webhook.EndpointRepository
	checker   *rbac.Checker
}

// NewEndpointController creates a new EndpointController.
func NewEndpointController(endpoints webhook.EndpointRepository, checker *rbac.Checker) *EndpointController {
	return &EndpointController{endpoints: endpoints, checker: checker}
}

// Create handles POST /api/v1/endpoints
func (h *EndpointController) Create(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, h.checker, domainRBAC.PermEndpointsManage) {
		return
	}

	var req CreateEndpointRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	appID := parseUUID(req.ApplicationID)
	if appID == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid application_id", Code: "invalid_id"})
		return
	}

	endpoint := webhook.NewEndpoint(*appID, req.URL, req.Secret, time.Now().UTC())
	if len(req.Headers) > 0 {
		endpoint.Headers = req.Headers
	}
	if req.TimeoutSeconds > 0 {
		endpoint.Timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	if err := h.endpoints.Create(r.Context(), endpoint); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, endpoint)
}

// Get handles GET /api/v1/endpoints/{id}
func (h *EndpointController) Get(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, h.checker, domainRBAC.PermEndpointsRead) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid endpoint id", Code: "invalid_id"})
		return
	}

	endpoint, err := h.endpoints.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, endpoint)
}

// List handles GET /api/v1/applications/{id}/endpoints
func (h *EndpointController) List(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, h.checker, domainRBAC.PermEndpointsRead) {
		return
	}

	appID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid application id", Code: "invalid_id"})
		return
	}

	endpoints, err := h.endpoints.ListByApplication(r.Context(), appID)
	if err != nil {
		writeError(w, err)
		return
	}
	if endpoints == nil {
		endpoints = []*webhook.Endpoint{}
	}

	writeJSON(w, http.StatusOK, endpoints)
}

// Update handles PUT /api/v1/endpoints/{id}
func (h *EndpointController) Update(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, h.checker, domainRBAC.PermEndpointsManage) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid endpoint id", Code: "invalid_id"})
		return
	}

	var req UpdateEndpointRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	endpoint, err := h.endpoints.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.URL != nil {
		endpoint.URL = *req.URL
	}
	if req.Secret != nil {
		endpoint.Secret = *req.Secret
	}
	if req.Headers != nil {
		endpoint.Headers = *req.Headers
	}
	if req.TimeoutSeconds != nil {
		endpoint.Timeout = time.Duration(*req.TimeoutSeconds) * time.Second
	}
	if req.Active != nil {
		endpoint.Active = *req.Active
	}
	endpoint.UpdatedAt = time.Now().UTC()

	if err := h.endpoints.Update(r.Context(), endpoint); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, endpoint)
}

// Delete handles DELETE /api/v1/endpoints/{id}
func (h *EndpointController) Delete(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, h.checker, domainRBAC.PermEndpointsManage) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid endpoint id", Code: "invalid_id"})
		return
	}

	if err := h.endpoints.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
