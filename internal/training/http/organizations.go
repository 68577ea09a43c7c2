package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/traintab/internal/training/service"
	"github.com/aussiebroadwan/traintab/internal/training/store"
	"github.com/aussiebroadwan/traintab/pkg/httpx"
)

type OrganizationsHandler struct {
	OrgInviteService *service.OrgInviteService
	Store            store.Store
}

func (h *OrganizationsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string   `json:"name"`
		Administrators []string `json:"administrators"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Name is required.")
		return
	}

	org, err := h.OrgInviteService.CreateOrganization(r.Context(), req.Name, req.Administrators)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toOrganizationResponse(org))
}

func (h *OrganizationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.Store.Organizations().List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]organizationResponse, 0, len(orgs))
	for _, org := range orgs {
		out = append(out, toOrganizationResponse(org))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *OrganizationsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	org, err := h.Store.Organizations().GetByID(r.Context(), r.PathValue("organizationId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeServiceError(w, r, service.ErrOrganizationNotFound)
			return
		}
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toOrganizationResponse(org))
}

func (h *OrganizationsHandler) handleAddMembers(
	w http.ResponseWriter,
	r *http.Request,
	process func(r *http.Request, orgID string, emails []string) error,
) {
	var req struct {
		Emails []string `json:"emails"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if len(req.Emails) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "At least one email is required.")
		return
	}

	if err := process(r, r.PathValue("organizationId"), req.Emails); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Members processed.",
	})
}

func (h *OrganizationsHandler) HandleAddAdministrators(w http.ResponseWriter, r *http.Request) {
	h.handleAddMembers(w, r, func(r *http.Request, orgID string, emails []string) error {
		return h.OrgInviteService.ProcessAdministrators(r.Context(), orgID, emails)
	})
}

func (h *OrganizationsHandler) HandleAddTrainers(w http.ResponseWriter, r *http.Request) {
	h.handleAddMembers(w, r, func(r *http.Request, orgID string, emails []string) error {
		return h.OrgInviteService.ProcessTrainers(r.Context(), orgID, emails)
	})
}

func (h *OrganizationsHandler) HandleRemoveAdministrator(w http.ResponseWriter, r *http.Request) {
	err := h.OrgInviteService.RemoveAdministrator(r.Context(),
		r.PathValue("organizationId"), r.PathValue("email"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Administrator removed.",
	})
}

func (h *OrganizationsHandler) HandleRemoveTrainer(w http.ResponseWriter, r *http.Request) {
	err := h.OrgInviteService.RemoveTrainer(r.Context(),
		r.PathValue("organizationId"), r.PathValue("email"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Trainer removed.",
	})
}
