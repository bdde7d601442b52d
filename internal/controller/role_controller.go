package controller

import (
	"net/http"

	domainRBAC "github.com/odhiambodaniel/pesaflow/internal/domain/rbac"
	"github.com/odhiambodaniel/pesaflow/internal/rbac"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RoleController manages role assignments for actors.
type RoleController struct {
	assignments domainRBAC.AssignmentStore
	checker     *rbac.Checker
}

// NewRoleController creates a new RoleController.
func NewRoleController(assignments domainRBAC.AssignmentStore, checker *rbac.Checker) *RoleController {
	return &RoleController{
		assignments: assignments,
		checker:     checker,
	}
}

// ListRoles handles GET /api/v1/actors/{id}/roles
func (h *RoleController) ListRoles(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, h.checker, domainRBAC.PermRolesManage) {
		return
	}

	actorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid actor id", Code: "invalid_id"})
		return
	}

	roles, err := h.assignments.RolesFor(r.Context(), actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromActorRoles(actorID, roles))
}

// AssignRole handles POST /api/v1/actors/{id}/roles
func (h *RoleController) AssignRole(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, h.checker, domainRBAC.PermRolesManage) {
		return
	}

	actorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid actor id", Code: "invalid_id"})
		return
	}

	var req AssignRoleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.assignments.Assign(r.Context(), actorID, domainRBAC.Role(req.Role)); err != nil {
		writeError(w, err)
		return
	}

	roles, err := h.assignments.RolesFor(r.Context(), actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromActorRoles(actorID, roles))
}

// RevokeRole handles DELETE /api/v1/actors/{id}/roles/{role}
func (h *RoleController) RevokeRole(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, h.checker, domainRBAC.PermRolesManage) {
		return
	}

	actorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid actor id", Code: "invalid_id"})
		return
	}

	role := domainRBAC.Role(chi.URLParam(r, "role"))
	if _, ok := domainRBAC.DefaultRolePermissions[role]; !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unknown role", Code: "unknown_role"})
		return
	}

	if err := h.assignments.Revoke(r.Context(), actorID, role); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
