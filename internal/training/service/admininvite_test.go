package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/store"
	"github.com/stretchr/testify/require"
)

func TestProcessInvite(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	mailer := newRecordMailer()
	svc := &AdminInviteService{Store: st, Mailer: mailer}

	t.Run("creates a pending invitation and mails the token", func(t *testing.T) {
		inv, err := svc.ProcessInvite(ctx, "Alice@Example.com")
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", inv.Email)
		require.NotEmpty(t, mailer.adminTokens["alice@example.com"])

		pending, err := svc.FindPendingByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, inv.ID, pending.ID)
	})

	t.Run("rejects a second invitation while one is pending", func(t *testing.T) {
		_, err := svc.ProcessInvite(ctx, "alice@example.com")
		require.ErrorIs(t, err, ErrInvitationPending)
	})

	t.Run("rejects malformed addresses", func(t *testing.T) {
		_, err := svc.ProcessInvite(ctx, "not-an-email")
		require.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("rejects emails with existing accounts", func(t *testing.T) {
		createTestUser(t, st, "bob@example.com")
		_, err := svc.ProcessInvite(ctx, "bob@example.com")
		require.ErrorIs(t, err, ErrUserAlreadyExists)
	})
}

func TestProcessInviteWithPendingOrgGrants(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	mailer := newRecordMailer()
	orgSvc := &OrgInviteService{Store: st, Mailer: mailer}
	svc := &AdminInviteService{Store: st, Mailer: mailer}

	org := createTestOrg(t, st, "Acme Training")
	require.NoError(t, orgSvc.ProcessAdministrators(ctx, org.ID, []string{"joint@example.com"}))

	t.Run("appends the admin grant to the existing record", func(t *testing.T) {
		_, err := svc.ProcessInvite(ctx, "joint@example.com")
		require.NoError(t, err)

		inv, err := st.Invitations().GetByEmail(ctx, "joint@example.com")
		require.NoError(t, err)
		require.True(t, inv.SuperAdmin)
		require.Len(t, inv.TokenHashes, 2)
		require.Equal(t, []string{org.ID}, inv.OrgIDsWithRole(domain.GrantOrgAdmin))

		// The pending grant is reported off the record, not a standalone row.
		pending, err := svc.FindPendingByEmail(ctx, "joint@example.com")
		require.NoError(t, err)
		require.Equal(t, inv.ID, pending.ID)
	})

	t.Run("a second admin invite on the record is rejected", func(t *testing.T) {
		_, err := svc.ProcessInvite(ctx, "joint@example.com")
		require.ErrorIs(t, err, ErrInvitationPending)
	})
}

func TestGrantAdminAccess(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &AdminInviteService{Store: st, Mailer: newRecordMailer()}

	t.Run("promotes an existing user", func(t *testing.T) {
		user := createTestUser(t, st, "promote@example.com")

		invited, err := svc.GrantAdminAccess(ctx, "promote@example.com")
		require.NoError(t, err)
		require.False(t, invited)

		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, got.HasRole(domain.RoleAdmin))
	})

	t.Run("rejects users who already hold admin", func(t *testing.T) {
		_, err := svc.GrantAdminAccess(ctx, "promote@example.com")
		require.ErrorIs(t, err, ErrAlreadyAdmin)
	})

	t.Run("never promotes a trainee account", func(t *testing.T) {
		user := createTestUser(t, st, "trainee@example.com", domain.RoleTrainee)

		_, err := svc.GrantAdminAccess(ctx, "trainee@example.com")
		require.ErrorIs(t, err, ErrRoleConflict)

		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, []string{domain.RoleTrainee}, got.Roles)
	})

	t.Run("falls back to an invitation when no account exists", func(t *testing.T) {
		invited, err := svc.GrantAdminAccess(ctx, "nobody@example.com")
		require.NoError(t, err)
		require.True(t, invited)

		_, err = svc.FindPendingByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
	})
}

func TestRevokeAdminAccess(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &AdminInviteService{Store: st, Mailer: newRecordMailer()}

	t.Run("strips the role from an existing admin", func(t *testing.T) {
		user := createTestUser(t, st, "admin@example.com", domain.RoleUser, domain.RoleAdmin)

		require.NoError(t, svc.RevokeAdminAccess(ctx, "admin@example.com"))

		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, got.HasRole(domain.RoleAdmin))
		require.True(t, got.HasRole(domain.RoleUser))
	})

	t.Run("withdraws a pending invitation", func(t *testing.T) {
		_, err := svc.ProcessInvite(ctx, "pending@example.com")
		require.NoError(t, err)

		require.NoError(t, svc.RevokeAdminAccess(ctx, "pending@example.com"))

		_, err = svc.FindPendingByEmail(ctx, "pending@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("clears only the admin flag on a multi-role record", func(t *testing.T) {
		orgSvc := &OrgInviteService{Store: st, Mailer: newRecordMailer()}
		org := createTestOrg(t, st, "Flag Org")
		require.NoError(t, orgSvc.ProcessAdministrators(ctx, org.ID, []string{"both@example.com"}))
		_, err := svc.ProcessInvite(ctx, "both@example.com")
		require.NoError(t, err)

		require.NoError(t, svc.RevokeAdminAccess(ctx, "both@example.com"))

		inv, err := st.Invitations().GetByEmail(ctx, "both@example.com")
		require.NoError(t, err)
		require.False(t, inv.SuperAdmin)
		require.Equal(t, []string{org.ID}, inv.OrgIDsWithRole(domain.GrantOrgAdmin))
	})

	t.Run("deletes the record once no org grants remain", func(t *testing.T) {
		orgSvc := &OrgInviteService{Store: st, Mailer: newRecordMailer()}
		org := createTestOrg(t, st, "Solo Org")
		require.NoError(t, orgSvc.ProcessAdministrators(ctx, org.ID, []string{"solo@example.com"}))
		_, err := svc.ProcessInvite(ctx, "solo@example.com")
		require.NoError(t, err)

		// Stripping the org grant leaves an admin-only record behind.
		require.NoError(t, orgSvc.RemoveAdministrator(ctx, org.ID, "solo@example.com"))
		inv, err := st.Invitations().GetByEmail(ctx, "solo@example.com")
		require.NoError(t, err)
		require.True(t, inv.SuperAdmin)
		require.Empty(t, inv.Grants)

		require.NoError(t, svc.RevokeAdminAccess(ctx, "solo@example.com"))
		_, err = st.Invitations().GetByEmail(ctx, "solo@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("fails when neither user nor invitation exists", func(t *testing.T) {
		err := svc.RevokeAdminAccess(ctx, "ghost@example.com")
		require.ErrorIs(t, err, ErrAdminNotFound)
	})

	t.Run("fails on a user without the admin role", func(t *testing.T) {
		createTestUser(t, st, "plain@example.com")
		err := svc.RevokeAdminAccess(ctx, "plain@example.com")
		require.ErrorIs(t, err, ErrAdminNotFound)
	})
}
