package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/traintab/internal/training/service"
	"github.com/aussiebroadwan/traintab/pkg/httpx"
)

// AcceptHandler is the public redemption endpoint shared by every invitation
// kind. The token is the only credential.
type AcceptHandler struct {
	OrgInviteService *service.OrgInviteService
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token           string `json:"token"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
		Name            string `json:"name"`
		Username        string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	user, err := h.OrgInviteService.AcceptInvitation(
		r.Context(),
		req.Token, req.Email, req.Password, req.ConfirmPassword, req.Name, req.Username,
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct {
		Message string       `json:"message"`
		User    userResponse `json:"user"`
	}{
		Message: "Invitation accepted. You can now log in.",
		User:    toUserResponse(user),
	})
}
