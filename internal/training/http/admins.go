package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/service"
	"github.com/aussiebroadwan/traintab/pkg/httpx"
)

type AdminsHandler struct {
	AdminInviteService *service.AdminInviteService
	UserService        *service.UserService
}

type emailRequest struct {
	Email string `json:"email"`
}

func decodeEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body.")
		return "", false
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Email is required.")
		return "", false
	}
	return req.Email, true
}

// HandleGrant promotes an existing user to admin, or creates an invitation
// when no account exists yet.
func (h *AdminsHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	email, ok := decodeEmail(w, r)
	if !ok {
		return
	}

	invited, err := h.AdminInviteService.GrantAdminAccess(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if invited {
		httpx.WriteJSON(w, http.StatusCreated, map[string]string{
			"message": "An invitation has been sent.",
		})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Admin access granted.",
	})
}

// HandleRevoke strips the admin role, or withdraws the pending invitation.
func (h *AdminsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	email, ok := decodeEmail(w, r)
	if !ok {
		return
	}

	if err := h.AdminInviteService.RevokeAdminAccess(r.Context(), email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Admin access revoked.",
	})
}

// HandleList returns every admin user.
func (h *AdminsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	admins, err := h.UserService.ListAdmins(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(admins))
	for _, u := range admins {
		out = append(out, toUserResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// AdminInviteHandler creates an admin invitation directly.
type AdminInviteHandler struct {
	AdminInviteService *service.AdminInviteService
}

func (h *AdminInviteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	email, ok := decodeEmail(w, r)
	if !ok {
		return
	}

	inv, err := h.AdminInviteService.ProcessInvite(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, struct {
		Message   string `json:"message"`
		Email     string `json:"email"`
		ExpiresAt string `json:"expires_at"`
	}{
		Message:   "Invitation created.",
		Email:     inv.Email,
		ExpiresAt: inv.ExpiresAt.Format(time.RFC3339),
	})
}
