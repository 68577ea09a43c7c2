package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/service"
	"github.com/aussiebroadwan/traintab/pkg/httpx"
)

type TraineesHandler struct {
	TrainingService *service.TrainingService
}

func (h *TraineesHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	err := h.TrainingService.AddTrainee(r.Context(), r.PathValue("trainingId"), domain.Trainee{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]string{
		"message": "Trainee added.",
	})
}

func (h *TraineesHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	err := h.TrainingService.RemoveTrainee(r.Context(),
		r.PathValue("trainingId"), r.PathValue("username"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Trainee removed.",
	})
}

// HandleUpdate flips a trainee's login flag.
func (h *TraineesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HasLoggedIn bool `json:"has_logged_in"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	err := h.TrainingService.SetTraineeLoginStatus(r.Context(),
		r.PathValue("trainingId"), r.PathValue("username"), req.HasLoggedIn)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Trainee updated.",
	})
}
