package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/service"
	"github.com/aussiebroadwan/traintab/pkg/httpx"
)

type TrainingsHandler struct {
	TrainingService *service.TrainingService
}

type trainingRequest struct {
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Location         string    `json:"location"`
	Timezone         string    `json:"timezone"`
	StartDateTime    time.Time `json:"start_date_time"`
	EndDateTime      time.Time `json:"end_date_time"`
	ParticipantCount int       `json:"participant_count"`
	Trainers         []string  `json:"trainers"`
	Trainees         []struct {
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"trainees"`
}

func (req trainingRequest) toInput() service.TrainingInput {
	in := service.TrainingInput{
		Name:             req.Name,
		Description:      req.Description,
		Location:         req.Location,
		Timezone:         req.Timezone,
		StartDateTime:    req.StartDateTime,
		EndDateTime:      req.EndDateTime,
		ParticipantCount: req.ParticipantCount,
		Trainers:         req.Trainers,
	}
	for _, t := range req.Trainees {
		in.Trainees = append(in.Trainees, domain.Trainee{
			Username: t.Username,
			Password: t.Password,
		})
	}
	return in
}

func (h *TrainingsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req trainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	t, err := h.TrainingService.CreateTraining(r.Context(), r.PathValue("organizationId"), req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toTrainingResponse(t, time.Now()))
}

func (h *TrainingsHandler) HandleListByOrg(w http.ResponseWriter, r *http.Request) {
	ts, err := h.TrainingService.ListByOrganization(r.Context(), r.PathValue("organizationId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTrainingResponses(ts, time.Now()))
}

func (h *TrainingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.TrainingService.GetTraining(r.Context(), r.PathValue("trainingId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTrainingResponse(t, time.Now()))
}

func (h *TrainingsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req trainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	t, err := h.TrainingService.UpdateTraining(r.Context(), r.PathValue("trainingId"), req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTrainingResponse(t, time.Now()))
}

func (h *TrainingsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.TrainingService.DeleteTraining(r.Context(), r.PathValue("trainingId")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Training deleted.",
	})
}
