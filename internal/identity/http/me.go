package http

import (
	"net/http"

	"github.com/arcwell/identity/internal/identity/service"
	"github.com/arcwell/identity/pkg/httpx"
)

// MeHandler serves the authenticated user's own account.
type MeHandler struct {
	AuthService *service.AuthService
	UserService *service.UserService
}

func (h *MeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, service.UnauthorizedError("missing bearer token"))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

type meUpdateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// HandleUpdate edits the caller's own profile. Role assignment is not
// reachable here; only the user-management endpoints change roles.
func (h *MeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, service.UnauthorizedError("missing bearer token"))
		return
	}

	var req meUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.UserService.UpdateProfile(r.Context(), user.ID, service.UpdateProfileParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		RoleID:    user.RoleID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(updated))
}

// HandleDelete deactivates the caller's own account. The record stays for
// audit; authentication rejects inactive users, so the bearer token stops
// working immediately.
func (h *MeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, service.UnauthorizedError("missing bearer token"))
		return
	}

	if err := h.UserService.Deactivate(r.Context(), user.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

func (h *MeHandler) HandleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, service.UnauthorizedError("missing bearer token"))
		return
	}

	var req updatePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.AuthService.UpdatePassword(r.Context(), user.ID, req.CurrentPassword, req.Password, req.PasswordConfirm)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
