package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/traintab/internal/training/service"
	"github.com/aussiebroadwan/traintab/pkg/httpx"
)

type LoginHandler struct {
	UserService *service.UserService
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Email and password are required.")
		return
	}

	token, user, err := h.UserService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct {
		Token string       `json:"token"`
		User  userResponse `json:"user"`
	}{
		Token: token,
		User:  toUserResponse(user),
	})
}
