package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/store"
	"github.com/aussiebroadwan/traintab/pkg/cryptox"
	"github.com/aussiebroadwan/traintab/pkg/idx"
	"github.com/aussiebroadwan/traintab/pkg/slogx"
)

var (
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrUserAlreadyExists = errors.New("a user with this email already exists")
	ErrInvitationPending = errors.New("an invitation for this email is already pending")
	ErrAlreadyAdmin      = errors.New("user is already an admin")
	ErrRoleConflict      = errors.New("trainee accounts cannot be granted admin access")
	ErrAdminNotFound     = errors.New("no admin user or pending invitation for this email")
)

// AdminInviteService manages system-admin invitations and the grant/revoke
// paths for existing users.
type AdminInviteService struct {
	Store  store.Store
	Mailer Mailer
}

// normalizeEmail lower-cases and validates an address. Every email entering
// the invitation subsystem passes through here so lookups stay consistent.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// ProcessInvite creates a pending admin invitation for an email with no
// existing account. Mail delivery is best-effort; a send failure is logged
// and the invitation still stands.
func (s *AdminInviteService) ProcessInvite(ctx context.Context, email string) (domain.AdminInvitation, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate and normalize the address.
	email, err := normalizeEmail(email)
	if err != nil {
		return domain.AdminInvitation{}, err
	}

	// 2. An existing account takes the grant path, not the invitation path.
	_, err = s.Store.Users().GetUserByEmail(ctx, email)
	if err == nil {
		return domain.AdminInvitation{}, ErrUserAlreadyExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to check for existing user", slog.Any("error", err))
		return domain.AdminInvitation{}, err
	}

	// 3. Mint the token and its hash.
	token, err := cryptox.GenerateInviteToken()
	if err != nil {
		log.Error("failed to generate invite token", slog.Any("error", err))
		return domain.AdminInvitation{}, err
	}
	hash, err := cryptox.HashInviteToken(token)
	if err != nil {
		log.Error("failed to hash invite token", slog.Any("error", err))
		return domain.AdminInvitation{}, err
	}

	// 4. An email with pending org grants accumulates the admin grant on the
	// same record, so any of its tokens redeems everything at once. Only an
	// email with no record at all gets a standalone admin invitation.
	inv := domain.AdminInvitation{
		ID:        idx.New().String(),
		Email:     email,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(domain.InvitationTTL),
	}
	record, err := s.Store.Invitations().GetByEmail(ctx, email)
	switch {
	case err == nil:
		if record.SuperAdmin {
			return domain.AdminInvitation{}, ErrInvitationPending
		}
		inv.ID = record.ID
		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			return tx.Invitations().SetSuperAdmin(ctx, record.ID, hash)
		})
		if err != nil {
			log.Error("failed to record admin grant", slog.Any("error", err))
			return domain.AdminInvitation{}, err
		}

	case errors.Is(err, store.ErrNotFound):
		// The partial unique index turns a still-pending duplicate into a
		// conflict here, without a separate existence check.
		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			return tx.AdminInvitations().Create(ctx, inv)
		})
		if err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domain.AdminInvitation{}, ErrInvitationPending
			}
			log.Error("failed to create admin invitation", slog.Any("error", err))
			return domain.AdminInvitation{}, err
		}

	default:
		log.Error("failed to look up invitation record", slog.Any("error", err))
		return domain.AdminInvitation{}, err
	}

	// 5. Best-effort mail.
	if err := s.Mailer.SendAdminInvitation(ctx, email, token); err != nil {
		log.Warn("failed to send admin invitation mail",
			slog.String("email", email),
			slog.Any("error", err),
		)
	}

	log.Info("admin invitation created",
		slog.String("invitation_id", inv.ID),
		slog.String("email", email),
	)
	return inv, nil
}

// FindPendingByEmail returns the unaccepted, unexpired invitation for an
// email, or store.ErrNotFound. The grant may live either on a standalone
// admin invitation or on the email's multi-role record.
func (s *AdminInviteService) FindPendingByEmail(ctx context.Context, email string) (domain.AdminInvitation, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return domain.AdminInvitation{}, err
	}

	pending, err := s.Store.AdminInvitations().GetPendingByEmail(ctx, email, time.Now())
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return pending, err
	}

	record, rerr := s.Store.Invitations().GetByEmail(ctx, email)
	if rerr == nil && record.SuperAdmin {
		return domain.AdminInvitation{
			ID:        record.ID,
			Email:     record.Email,
			CreatedAt: record.CreatedAt,
		}, nil
	}
	return domain.AdminInvitation{}, store.ErrNotFound
}

// GrantAdminAccess promotes an existing user to ADMIN, or falls back to
// creating an invitation when no account exists yet. Trainee accounts are
// never promoted.
func (s *AdminInviteService) GrantAdminAccess(ctx context.Context, email string) (created bool, err error) {
	log := slogx.FromContext(ctx)

	email, err = normalizeEmail(email)
	if err != nil {
		return false, err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// No account yet: invitation path.
			if _, err := s.ProcessInvite(ctx, email); err != nil {
				return false, err
			}
			return true, nil
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return false, err
	}

	if user.HasRole(domain.RoleTrainee) {
		log.Warn("attempted to grant admin access to a trainee account",
			slog.String("email", email),
		)
		return false, ErrRoleConflict
	}
	if user.HasRole(domain.RoleAdmin) {
		return false, ErrAlreadyAdmin
	}

	roles := domain.WithRole(user.Roles, domain.RoleAdmin)
	if err := s.Store.Users().UpdateRoles(ctx, user.ID, roles); err != nil {
		log.Error("failed to grant admin role",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return false, err
	}

	log.Info("admin access granted",
		slog.String("user_id", user.ID),
		slog.String("email", email),
	)
	return false, nil
}

// RevokeAdminAccess strips the ADMIN role from an existing user, or deletes
// the pending invitation when no account exists.
func (s *AdminInviteService) RevokeAdminAccess(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)

	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err == nil {
		if !user.HasRole(domain.RoleAdmin) {
			return ErrAdminNotFound
		}
		roles := domain.WithoutRole(user.Roles, domain.RoleAdmin)
		if err := s.Store.Users().UpdateRoles(ctx, user.ID, roles); err != nil {
			log.Error("failed to revoke admin role",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
			return err
		}
		log.Info("admin access revoked",
			slog.String("user_id", user.ID),
			slog.String("email", email),
		)
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to fetch user", slog.Any("error", err))
		return err
	}

	// No account: a pending grant can still be withdrawn. A multi-role record
	// carrying the admin flag loses just that flag; the record itself only
	// goes once no org grants remain either.
	record, err := s.Store.Invitations().GetByEmail(ctx, email)
	if err == nil && record.SuperAdmin {
		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			if len(record.Grants) == 0 {
				return tx.Invitations().Delete(ctx, record.ID)
			}
			return tx.Invitations().ClearSuperAdmin(ctx, record.ID)
		})
		if err != nil {
			log.Error("failed to withdraw admin grant", slog.Any("error", err))
			return err
		}
		log.Info("admin invitation revoked", slog.String("email", email))
		return nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to look up invitation record", slog.Any("error", err))
		return err
	}

	if _, err := s.Store.AdminInvitations().GetPendingByEmail(ctx, email, time.Now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAdminNotFound
		}
		return err
	}
	if err := s.Store.AdminInvitations().DeleteByEmail(ctx, email); err != nil {
		log.Error("failed to delete admin invitation", slog.Any("error", err))
		return err
	}

	log.Info("admin invitation revoked", slog.String("email", email))
	return nil
}
