package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/store"
	"github.com/aussiebroadwan/traintab/pkg/cryptox"
	"github.com/aussiebroadwan/traintab/pkg/jwtx"
	"github.com/aussiebroadwan/traintab/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// UserService covers account-level operations: login, admin listing and the
// full deletion cascade.
type UserService struct {
	Store store.Store
	JWT   *jwtx.Service
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// Login verifies credentials and issues a session token carrying the user's
// role set.
func (s *UserService) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	log := slogx.FromContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.User{}, ErrInvalidCredentials
		}
		log.Error("failed to fetch user for login", slog.Any("error", err))
		return "", domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Warn("login rejected", slog.String("email", email))
		return "", domain.User{}, ErrInvalidCredentials
	}

	token, err := s.JWT.Sign(user.ID, user.Email, user.Roles)
	if err != nil {
		log.Error("failed to sign session token", slog.Any("error", err))
		return "", domain.User{}, err
	}

	log.Info("user logged in", slog.String("user_id", user.ID))
	return token, user, nil
}

// ListAdmins returns every user carrying the ADMIN role.
func (s *UserService) ListAdmins(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListByRole(ctx, domain.RoleAdmin)
}

// DeleteUser removes a user and every record that references them:
// organization memberships, training trainer slots and trainee roster
// entries, then the user row itself. The whole cascade commits as one
// transaction.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	log := slogx.FromContext(ctx)

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 1. Organization memberships, both lists.
		orgs, err := tx.Organizations().List(ctx)
		if err != nil {
			return err
		}
		for _, org := range orgs {
			for _, entry := range []struct {
				list    string
				members []domain.Member
			}{
				{domain.ListAdministrators, org.Administrators},
				{domain.ListTrainers, org.Trainers},
			} {
				for _, m := range entry.members {
					if m.UserID != user.ID && !strings.EqualFold(m.Email, user.Email) {
						continue
					}
					if err := tx.Organizations().RemoveMember(ctx, org.ID, entry.list, m.Email); err != nil {
						return err
					}
				}
			}
		}

		// 2. Training trainer slots and trainee roster entries.
		trainings, err := tx.Trainings().ListAll(ctx)
		if err != nil {
			return err
		}
		for _, t := range trainings {
			if t.HasTrainer(user.ID) {
				trainers := t.Trainers[:0:0]
				for _, id := range t.Trainers {
					if id != user.ID {
						trainers = append(trainers, id)
					}
				}
				t.Trainers = trainers
				if err := tx.Trainings().Update(ctx, t); err != nil {
					return err
				}
			}
			for _, trainee := range t.Trainees {
				if !strings.EqualFold(trainee.Username, user.Email) {
					continue
				}
				if err := tx.Trainings().RemoveTrainee(ctx, t.ID, trainee.Username); err != nil {
					return err
				}
			}
		}

		// 3. The user row last.
		return tx.Users().DeleteUser(ctx, user.ID)
	})
	if err != nil {
		log.Error("failed to delete user",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return err
	}

	log.Info("user deleted", slog.String("user_id", user.ID))
	return nil
}
