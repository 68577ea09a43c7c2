package http

import (
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
)

// Wire representations. Password hashes and invitation token hashes never
// leave the service; trainee plaintext passwords do, because handing them to
// the trainer is the whole point of generated credentials.

type userResponse struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	Username      string   `json:"username"`
	Name          string   `json:"name"`
	Roles         []string `json:"roles"`
	EmailVerified bool     `json:"email_verified"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		Name:          u.Name,
		Roles:         u.Roles,
		EmailVerified: u.EmailVerified,
	}
}

type memberResponse struct {
	Email       string     `json:"email"`
	UserID      string     `json:"user_id,omitempty"`
	Status      string     `json:"status"`
	InvitedAt   *time.Time `json:"invited_at,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}

func toMemberResponses(members []domain.Member) []memberResponse {
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			Email:       m.Email,
			UserID:      m.UserID,
			Status:      m.Status,
			InvitedAt:   m.InvitedAt,
			ActivatedAt: m.ActivatedAt,
		})
	}
	return out
}

type organizationResponse struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Administrators []memberResponse `json:"administrators"`
	Trainers       []memberResponse `json:"trainers"`
	CreatedAt      time.Time        `json:"created_at"`
}

func toOrganizationResponse(org domain.TrainingOrganization) organizationResponse {
	return organizationResponse{
		ID:             org.ID,
		Name:           org.Name,
		Administrators: toMemberResponses(org.Administrators),
		Trainers:       toMemberResponses(org.Trainers),
		CreatedAt:      org.CreatedAt,
	}
}

type traineeResponse struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	HasLoggedIn bool   `json:"has_logged_in"`
}

type trainingResponse struct {
	ID               string            `json:"id"`
	OrganizationID   string            `json:"organization_id"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Location         string            `json:"location,omitempty"`
	Timezone         string            `json:"timezone"`
	StartDateTime    time.Time         `json:"start_date_time"`
	EndDateTime      time.Time         `json:"end_date_time"`
	ParticipantCount int               `json:"participant_count"`
	Status           string            `json:"status"`
	Trainers         []string          `json:"trainers"`
	Trainees         []traineeResponse `json:"trainees"`
}

func toTrainingResponse(t domain.Training, now time.Time) trainingResponse {
	trainees := make([]traineeResponse, 0, len(t.Trainees))
	for _, tr := range t.Trainees {
		trainees = append(trainees, traineeResponse{
			Username:    tr.Username,
			Password:    tr.Password,
			HasLoggedIn: tr.HasLoggedIn,
		})
	}
	return trainingResponse{
		ID:               t.ID,
		OrganizationID:   t.OrganizationID,
		Name:             t.Name,
		Description:      t.Description,
		Location:         t.Location,
		Timezone:         t.Timezone,
		StartDateTime:    t.StartDateTime,
		EndDateTime:      t.EndDateTime,
		ParticipantCount: t.ParticipantCount,
		Status:           t.Status(now),
		Trainers:         t.Trainers,
		Trainees:         trainees,
	}
}

func toTrainingResponses(ts []domain.Training, now time.Time) []trainingResponse {
	out := make([]trainingResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTrainingResponse(t, now))
	}
	return out
}
