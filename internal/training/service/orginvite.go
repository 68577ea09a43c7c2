package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/store"
	"github.com/aussiebroadwan/traintab/pkg/cryptox"
	"github.com/aussiebroadwan/traintab/pkg/idx"
	"github.com/aussiebroadwan/traintab/pkg/slogx"
)

var (
	ErrInvalidAcceptRequest  = errors.New("missing required fields")
	ErrPasswordMismatch      = errors.New("passwords do not match")
	ErrInvalidOrExpiredToken = errors.New("invitation token is invalid or expired")
	ErrOrganizationNotFound  = errors.New("organization not found")
	ErrMemberExists          = errors.New("this email is already on the list")
	ErrMemberNotFound        = errors.New("no member or pending invitation for this email")
)

// listRole maps a membership list to the platform role it confers and the
// grant kind recorded on a pending invitation.
func listRole(list string) (role, grant, label string) {
	if list == domain.ListAdministrators {
		return domain.RoleOrgAdmin, domain.GrantOrgAdmin, "administrator"
	}
	return domain.RoleTrainer, domain.GrantOrgTrainer, "trainer"
}

// OrgInviteService manages organization membership: inviting administrators
// and trainers, redeeming invitations, and removing members with the role
// recomputation that goes with it.
type OrgInviteService struct {
	Store  store.Store
	Mailer Mailer
}

// CreateOrganization creates an organization and invites its initial
// administrators in one call.
func (s *OrgInviteService) CreateOrganization(ctx context.Context, name string, adminEmails []string) (domain.TrainingOrganization, error) {
	log := slogx.FromContext(ctx)

	if name == "" {
		return domain.TrainingOrganization{}, ErrInvalidAcceptRequest
	}

	org := domain.TrainingOrganization{
		ID:   idx.New().String(),
		Name: name,
	}
	if err := s.Store.Organizations().Create(ctx, org); err != nil {
		log.Error("failed to create organization", slog.Any("error", err))
		return domain.TrainingOrganization{}, err
	}

	log.Info("organization created",
		slog.String("organization_id", org.ID),
		slog.String("name", name),
	)

	if len(adminEmails) > 0 {
		if err := s.ProcessAdministrators(ctx, org.ID, adminEmails); err != nil {
			return domain.TrainingOrganization{}, err
		}
	}
	return s.Store.Organizations().GetByID(ctx, org.ID)
}

// ProcessAdministrators grants or invites the given emails as administrators
// of the organization.
func (s *OrgInviteService) ProcessAdministrators(ctx context.Context, orgID string, emails []string) error {
	return s.processMembers(ctx, orgID, domain.ListAdministrators, emails)
}

// ProcessTrainers grants or invites the given emails as trainers of the
// organization.
func (s *OrgInviteService) ProcessTrainers(ctx context.Context, orgID string, emails []string) error {
	return s.processMembers(ctx, orgID, domain.ListTrainers, emails)
}

func (s *OrgInviteService) processMembers(ctx context.Context, orgID, list string, emails []string) error {
	log := slogx.FromContext(ctx)

	org, err := s.Store.Organizations().GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrOrganizationNotFound
		}
		return err
	}

	// 1. De-duplicate and normalize the batch.
	seen := make(map[string]struct{}, len(emails))
	for _, raw := range emails {
		email, err := normalizeEmail(raw)
		if err != nil {
			return err
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}

		// 2. Existing accounts activate immediately; everyone else goes
		// through the token path.
		user, err := s.Store.Users().GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			if err := s.addActiveMember(ctx, org, list, email, user); err != nil {
				return err
			}
		case errors.Is(err, store.ErrNotFound):
			if err := s.addInvitedMember(ctx, org, list, email); err != nil {
				return err
			}
		default:
			log.Error("failed to look up user", slog.Any("error", err))
			return err
		}
	}
	return nil
}

// addActiveMember records an existing user directly as an active member and
// grants the list's role. No token is involved.
func (s *OrgInviteService) addActiveMember(
	ctx context.Context,
	org domain.TrainingOrganization,
	list, email string,
	user domain.User,
) error {
	log := slogx.FromContext(ctx)
	role, _, label := listRole(list)
	now := time.Now()

	m := domain.Member{
		Email:       email,
		UserID:      user.ID,
		Status:      domain.MemberActive,
		InvitedAt:   &now,
		ActivatedAt: &now,
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Organizations().AddMember(ctx, org.ID, list, m); err != nil {
			return err
		}
		if !user.HasRole(role) {
			roles := domain.WithRole(user.Roles, role)
			if err := tx.Users().UpdateRoles(ctx, user.ID, roles); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrMemberExists
		}
		log.Error("failed to add member", slog.Any("error", err))
		return err
	}

	if err := s.Mailer.SendRoleGranted(ctx, email, org.Name, label); err != nil {
		log.Warn("failed to send role-granted mail",
			slog.String("email", email),
			slog.Any("error", err),
		)
	}

	log.Info("member activated directly",
		slog.String("organization_id", org.ID),
		slog.String("list", list),
		slog.String("email", email),
	)
	return nil
}

// addInvitedMember mints a token, records an invited member entry and the
// grant on the email's accumulated invitation record, then mails the link.
func (s *OrgInviteService) addInvitedMember(
	ctx context.Context,
	org domain.TrainingOrganization,
	list, email string,
) error {
	log := slogx.FromContext(ctx)
	_, grant, label := listRole(list)

	token, err := cryptox.GenerateInviteToken()
	if err != nil {
		log.Error("failed to generate invite token", slog.Any("error", err))
		return err
	}
	hash, err := cryptox.HashInviteToken(token)
	if err != nil {
		log.Error("failed to hash invite token", slog.Any("error", err))
		return err
	}

	now := time.Now()
	expires := now.Add(domain.InvitationTTL)
	m := domain.Member{
		Email:             email,
		Status:            domain.MemberInvited,
		InvitedAt:         &now,
		InvitationToken:   hash,
		InvitationExpires: &expires,
	}
	// The member entry and the grant on the email's accumulated invitation
	// record commit together; each grant event appends its own token hash and
	// any of them redeems the whole record.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Organizations().AddMember(ctx, org.ID, list, m); err != nil {
			return err
		}

		inv, err := tx.Invitations().GetByEmail(ctx, email)
		switch {
		case err == nil:
			if err := tx.Invitations().AddOrgGrant(ctx, inv.ID, org.ID, grant, hash); err != nil &&
				!errors.Is(err, store.ErrAlreadyExists) {
				return err
			}
		case errors.Is(err, store.ErrNotFound):
			inv = domain.Invitation{
				ID:    idx.New().String(),
				Email: email,
				Grants: []domain.InvitationGrant{
					{OrganizationID: org.ID, Role: grant},
				},
				TokenHashes: []string{hash},
			}
			// A standalone admin invitation for this email folds into the
			// new record so either token still redeems everything at once.
			adminInv, aerr := tx.AdminInvitations().GetPendingByEmail(ctx, email, time.Now())
			switch {
			case aerr == nil:
				inv.SuperAdmin = true
				inv.TokenHashes = []string{adminInv.TokenHash, hash}
				if err := tx.AdminInvitations().DeleteByEmail(ctx, email); err != nil {
					return err
				}
			case !errors.Is(aerr, store.ErrNotFound):
				return aerr
			}
			if err := tx.Invitations().Create(ctx, inv); err != nil {
				return err
			}
		default:
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrMemberExists
		}
		log.Error("failed to record invited member", slog.Any("error", err))
		return err
	}

	if err := s.Mailer.SendOrgInvitation(ctx, email, org.Name, label, token); err != nil {
		log.Warn("failed to send invitation mail",
			slog.String("email", email),
			slog.Any("error", err),
		)
	}

	log.Info("member invited",
		slog.String("organization_id", org.ID),
		slog.String("list", list),
		slog.String("email", email),
	)
	return nil
}

// AcceptInvitation redeems an invitation token and registers the account.
// The token is checked against every hash on the email's accumulated record;
// any match redeems all pending grants at once. When no record exists the
// pending admin invitation, if any, is tried instead.
func (s *OrgInviteService) AcceptInvitation(
	ctx context.Context,
	token, email, password, confirmPassword, name, username string,
) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input.
	if token == "" || email == "" || password == "" || name == "" {
		return domain.User{}, ErrInvalidAcceptRequest
	}
	if password != confirmPassword {
		return domain.User{}, ErrPasswordMismatch
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return domain.User{}, err
	}
	if username == "" {
		username = email
	}

	// 2. Find the record the token belongs to.
	inv, err := s.Store.Invitations().GetByEmail(ctx, email)
	switch {
	case err == nil:
		matched := false
		for _, hash := range inv.TokenHashes {
			if cryptox.VerifyInviteToken(token, hash) {
				matched = true
				break
			}
		}
		if !matched {
			log.Warn("invitation redemption with non-matching token",
				slog.String("email", email),
			)
			return domain.User{}, ErrInvalidOrExpiredToken
		}
		return s.redeemOrgInvitation(ctx, inv, password, name, username)

	case errors.Is(err, store.ErrNotFound):
		return s.redeemAdminInvitation(ctx, token, email, password, name, username)

	default:
		log.Error("failed to look up invitation", slog.Any("error", err))
		return domain.User{}, err
	}
}

// redeemOrgInvitation registers the account, activates membership in every
// granted organization, folds the surviving grants into a role set, and
// consumes the record, all in one transaction. A missing or broken
// organization never blocks the others; its grant is simply skipped.
func (s *OrgInviteService) redeemOrgInvitation(
	ctx context.Context,
	inv domain.Invitation,
	password, name, username string,
) (domain.User, error) {
	log := slogx.FromContext(ctx)

	var user domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = s.registerUser(ctx, tx, inv.Email, password, name, username)
		if err != nil {
			return err
		}

		roles := []string{domain.RoleUser}
		now := time.Now()

		activate := func(list, role string, orgIDs []string) {
			for _, orgID := range orgIDs {
				err := tx.Organizations().ActivateMember(ctx, orgID, list, inv.Email, user.ID, now)
				if err != nil {
					log.Warn("skipping organization during redemption",
						slog.String("organization_id", orgID),
						slog.String("list", list),
						slog.Any("error", err),
					)
					continue
				}
				roles = domain.WithRole(roles, role)
			}
		}
		activate(domain.ListAdministrators, domain.RoleOrgAdmin, inv.OrgIDsWithRole(domain.GrantOrgAdmin))
		activate(domain.ListTrainers, domain.RoleTrainer, inv.OrgIDsWithRole(domain.GrantOrgTrainer))

		if inv.SuperAdmin {
			roles = domain.WithRole(roles, domain.RoleAdmin)
		}

		if err := tx.Users().UpdateRoles(ctx, user.ID, roles); err != nil {
			return err
		}
		user.Roles = roles

		return tx.Invitations().Delete(ctx, inv.ID)
	})
	if err != nil {
		if !errors.Is(err, ErrUserAlreadyExists) {
			log.Error("failed to redeem invitation",
				slog.String("invitation_id", inv.ID),
				slog.Any("error", err),
			)
		}
		return domain.User{}, err
	}

	log.Info("invitation redeemed",
		slog.String("user_id", user.ID),
		slog.String("email", inv.Email),
		slog.Any("roles", user.Roles),
	)
	return user, nil
}

// redeemAdminInvitation is the fallback for the shared accept endpoint: a
// pending single-role admin invitation.
func (s *OrgInviteService) redeemAdminInvitation(
	ctx context.Context,
	token, email, password, name, username string,
) (domain.User, error) {
	log := slogx.FromContext(ctx)

	adminInv, err := s.Store.AdminInvitations().GetPendingByEmail(ctx, email, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidOrExpiredToken
		}
		log.Error("failed to look up admin invitation", slog.Any("error", err))
		return domain.User{}, err
	}
	if !cryptox.VerifyInviteToken(token, adminInv.TokenHash) {
		log.Warn("admin invitation redemption with non-matching token",
			slog.String("email", email),
		)
		return domain.User{}, ErrInvalidOrExpiredToken
	}

	var user domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = s.registerUser(ctx, tx, email, password, name, username)
		if err != nil {
			return err
		}

		roles := []string{domain.RoleUser, domain.RoleAdmin}
		if err := tx.Users().UpdateRoles(ctx, user.ID, roles); err != nil {
			return err
		}
		user.Roles = roles

		return tx.AdminInvitations().DeleteByEmail(ctx, email)
	})
	if err != nil {
		if !errors.Is(err, ErrUserAlreadyExists) {
			log.Error("failed to redeem admin invitation", slog.Any("error", err))
		}
		return domain.User{}, err
	}

	log.Info("admin invitation redeemed",
		slog.String("user_id", user.ID),
		slog.String("email", email),
	)
	return user, nil
}

// registerUser creates the account behind a redemption on the caller's
// transaction. Redeemed accounts are email-verified; the invitation mail
// proved ownership.
func (s *OrgInviteService) registerUser(ctx context.Context, st store.Store, email, password, name, username string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	user := domain.User{
		ID:            idx.New().String(),
		Email:         email,
		Username:      username,
		Name:          name,
		PasswordHash:  hash,
		Roles:         []string{domain.RoleUser},
		EmailVerified: true,
	}
	if err := st.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserAlreadyExists
		}
		log.Error("failed to create user", slog.Any("error", err))
		return domain.User{}, err
	}
	return user, nil
}

// RemoveAdministrator removes an administrator from an organization, or
// revokes the pending grant when the invitation was never redeemed.
func (s *OrgInviteService) RemoveAdministrator(ctx context.Context, orgID, email string) error {
	return s.removeMember(ctx, orgID, domain.ListAdministrators, email)
}

// RemoveTrainer removes a trainer from an organization, or revokes the
// pending grant when the invitation was never redeemed.
func (s *OrgInviteService) RemoveTrainer(ctx context.Context, orgID, email string) error {
	return s.removeMember(ctx, orgID, domain.ListTrainers, email)
}

func (s *OrgInviteService) removeMember(ctx context.Context, orgID, list, email string) error {
	log := slogx.FromContext(ctx)
	role, grant, _ := listRole(list)

	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	m, err := s.Store.Organizations().GetMember(ctx, orgID, list, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMemberNotFound
		}
		return err
	}

	if m.Status == domain.MemberActive {
		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Organizations().RemoveMember(ctx, orgID, list, email); err != nil {
				return err
			}
			// Role survives only while the user is still on the same list in
			// some other organization.
			remaining, err := tx.Organizations().OrgIDsWithActiveMember(ctx, list, m.UserID)
			if err != nil {
				return err
			}
			if len(remaining) > 0 {
				return nil
			}
			user, err := tx.Users().GetUserByID(ctx, m.UserID)
			if err != nil {
				return err
			}
			return tx.Users().UpdateRoles(ctx, user.ID, domain.WithoutRole(user.Roles, role))
		})
		if err != nil {
			log.Error("failed to remove member", slog.Any("error", err))
			return err
		}
		log.Info("member removed",
			slog.String("organization_id", orgID),
			slog.String("list", list),
			slog.String("email", email),
		)
		return nil
	}

	// Invited entry: strip just this organization's grant from the pending
	// record. The record goes away entirely once nothing is left on it.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Organizations().RemoveMember(ctx, orgID, list, email); err != nil {
			return err
		}
		inv, err := tx.Invitations().GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Invitations().RemoveOrgGrant(ctx, inv.ID, orgID, grant); err != nil &&
			!errors.Is(err, store.ErrNotFound) {
			return err
		}

		inv, err = tx.Invitations().GetByEmail(ctx, email)
		if err == nil && inv.Empty() {
			return tx.Invitations().Delete(ctx, inv.ID)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to revoke pending grant", slog.Any("error", err))
		return err
	}

	log.Info("pending grant revoked",
		slog.String("organization_id", orgID),
		slog.String("list", list),
		slog.String("email", email),
	)
	return nil
}
