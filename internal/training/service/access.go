package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/store"
	"github.com/aussiebroadwan/traintab/pkg/slogx"
)

var (
	ErrNoOngoingTraining     = errors.New("no ongoing training for this account")
	ErrMissingOrganizationID = errors.New("missing organization id")
	ErrAccessDenied          = errors.New("access denied")
)

// AccessService is the per-request decision procedure behind the role gates.
// Every check either passes or terminates the request; there is no partial
// allow.
type AccessService struct {
	Store store.Store
}

// CheckTrainingAccess decides whether the user may enter the training area
// right now. ADMIN and ORGADMIN bypass entirely. A trainer passes when they
// are listed on at least one ongoing training. A trainee passes when their
// username matches a roster entry of at least one ongoing training; on every
// such match the entry's first login is recorded as a side effect of the
// check itself.
func (s *AccessService) CheckTrainingAccess(ctx context.Context, user domain.User, now time.Time) error {
	log := slogx.FromContext(ctx)

	if user.HasRole(domain.RoleAdmin) || user.HasRole(domain.RoleOrgAdmin) {
		return nil
	}
	if !user.HasRole(domain.RoleTrainer) && !user.HasRole(domain.RoleTrainee) {
		return ErrNoOngoingTraining
	}

	all, err := s.Store.Trainings().ListAll(ctx)
	if err != nil {
		log.Error("failed to load trainings for access check", slog.Any("error", err))
		return err
	}

	allowed := false
	for _, t := range all {
		if t.Status(now) != domain.StatusInProgress {
			continue
		}

		if user.HasRole(domain.RoleTrainer) && t.HasTrainer(user.ID) {
			allowed = true
			continue
		}

		if user.HasRole(domain.RoleTrainee) {
			for _, trainee := range t.Trainees {
				if !strings.EqualFold(trainee.Username, user.Username) &&
					!strings.EqualFold(trainee.Username, user.Email) {
					continue
				}
				allowed = true
				if !trainee.HasLoggedIn {
					if err := s.Store.Trainings().MarkTraineeLoggedIn(ctx, t.ID, trainee.Username); err != nil {
						log.Warn("failed to record trainee first login",
							slog.String("training_id", t.ID),
							slog.String("username", trainee.Username),
							slog.Any("error", err),
						)
					}
				}
			}
		}
	}

	if !allowed {
		log.Warn("training access denied",
			slog.String("user_id", user.ID),
			slog.Any("roles", user.Roles),
		)
		return ErrNoOngoingTraining
	}
	return nil
}

// CheckOrgAccess decides whether the user may manage the organization.
// ADMIN bypasses; everyone else must be an active administrator of that
// exact organization.
func (s *AccessService) CheckOrgAccess(ctx context.Context, user domain.User, orgID string) error {
	log := slogx.FromContext(ctx)

	if user.HasRole(domain.RoleAdmin) {
		return nil
	}
	if orgID == "" {
		return ErrMissingOrganizationID
	}

	org, err := s.Store.Organizations().GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrOrganizationNotFound
		}
		log.Error("failed to load organization for access check", slog.Any("error", err))
		return err
	}

	for _, m := range org.Administrators {
		if m.Status == domain.MemberActive && m.UserID == user.ID {
			return nil
		}
	}

	log.Warn("organization access denied",
		slog.String("user_id", user.ID),
		slog.String("organization_id", orgID),
	)
	return ErrAccessDenied
}
