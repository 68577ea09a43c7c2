package http

import (
	"net/http"

	"github.com/aussiebroadwan/traintab/internal/training/service"
	"github.com/aussiebroadwan/traintab/pkg/httpx"
)

// SessionHandler returns the caller's own account record. It sits behind
// the training participation gate, so a trainee's first request here is
// what records their first login.
type SessionHandler struct {
	UserService *service.UserService
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserService.GetUserByID(r.Context(), httpx.UserIDFromCtx(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}
