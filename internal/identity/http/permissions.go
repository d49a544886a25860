package http

import (
	"net/http"

	"github.com/arcwell/identity/internal/identity/service"
	"github.com/arcwell/identity/pkg/httpx"
)

type PermissionsHandler struct {
	PermissionService *service.PermissionService
}

func (h *PermissionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	offset, limit := listParams(r)
	perms, err := h.PermissionService.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, toPermissionResponse(p))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *PermissionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	perm, err := h.PermissionService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPermissionResponse(perm))
}

type permissionCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *PermissionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req permissionCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	perm, err := h.PermissionService.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toPermissionResponse(perm))
}

func (h *PermissionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.PermissionService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
