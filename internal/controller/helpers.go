package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	domainErrors "github.com/odhiambodaniel/pesaflow/internal/domain/errors"
	domainRBAC "github.com/odhiambodaniel/pesaflow/internal/domain/rbac"
	"github.com/odhiambodaniel/pesaflow/internal/rbac"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// Identity headers set by the upstream API gateway after authentication.
// Authorization here is permission checks only; nothing in this service
// verifies credentials.
const (
	headerActorID    = "X-Actor-ID"
	headerActorRoles = "X-Actor-Roles"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domainErrors.ErrEndpointNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrDeliveryNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrGatewayNotRegistered, http.StatusNotFound, "not_found"},
	{domainErrors.ErrEndpointInactive, http.StatusUnprocessableEntity, "endpoint_inactive"},
	{domainErrors.ErrInvalidStateTransition, http.StatusConflict, "invalid_state_transition"},
	{domainErrors.ErrScheduleNotFound, http.StatusNotFound, "no_fee_schedule"},
	{domainErrors.ErrPermissionDenied, http.StatusForbidden, "forbidden"},
	{domainErrors.ErrCatalogUnavailable, http.StatusServiceUnavailable, "catalog_unavailable"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			writeJSON(w, m.status, resp)
			return
		}
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}

// actorFromRequest reads the acting user from the trusted identity headers.
// A request without them gets an anonymous actor with no roles, which fails
// every permission check.
func actorFromRequest(r *http.Request) domainRBAC.Actor {
	actor := domainRBAC.Actor{}
	if id, err := uuid.Parse(r.Header.Get(headerActorID)); err == nil {
		actor.ID = id
	}
	for _, raw := range strings.Split(r.Header.Get(headerActorRoles), ",") {
		if role := strings.TrimSpace(raw); role != "" {
			actor.Roles = append(actor.Roles, domainRBAC.Role(role))
		}
	}
	return actor
}

// requirePermission runs the audited permission check and writes a 403 when
// the actor lacks it. Returns true when the handler may proceed.
func requirePermission(w http.ResponseWriter, r *http.Request, checker *rbac.Checker, perm domainRBAC.Permission) bool {
	actor := actorFromRequest(r)
	if !checker.Can(r.Context(), actor, perm, time.Now().UTC()) {
		writeError(w, domainErrors.ErrPermissionDenied)
		return false
	}
	return true
}
