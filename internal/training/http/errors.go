package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/traintab/internal/training/service"
	"github.com/aussiebroadwan/traintab/pkg/httpx"
	"github.com/aussiebroadwan/traintab/pkg/slogx"
)

// writeServiceError translates a service error into the platform's uniform
// single-sentence response. Unknown errors become a generic 500 and are
// logged; internals never leak into the body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidAcceptRequest),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrInvalidTraining),
		errors.Is(err, service.ErrMissingOrganizationID),
		errors.Is(err, service.ErrInvalidOrExpiredToken),
		errors.Is(err, service.ErrUserAlreadyExists),
		errors.Is(err, service.ErrInvitationPending),
		errors.Is(err, service.ErrAlreadyAdmin),
		errors.Is(err, service.ErrRoleConflict),
		errors.Is(err, service.ErrMemberExists),
		errors.Is(err, service.ErrDuplicateTrainee):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, err.Error())

	case errors.Is(err, service.ErrNoOngoingTraining),
		errors.Is(err, service.ErrAccessDenied):
		httpx.WriteError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, service.ErrAdminNotFound),
		errors.Is(err, service.ErrOrganizationNotFound),
		errors.Is(err, service.ErrTrainingNotFound),
		errors.Is(err, service.ErrTraineeNotFound),
		errors.Is(err, service.ErrMemberNotFound),
		errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())

	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
	}
}
