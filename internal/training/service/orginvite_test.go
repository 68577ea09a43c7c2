package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/store"
	"github.com/stretchr/testify/require"
)

func TestProcessAdministrators(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	mailer := newRecordMailer()
	svc := &OrgInviteService{Store: st, Mailer: mailer}

	org := createTestOrg(t, st, "Acme Training")

	t.Run("existing users activate immediately without a token", func(t *testing.T) {
		user := createTestUser(t, st, "existing@example.com")

		require.NoError(t, svc.ProcessAdministrators(ctx, org.ID, []string{"Existing@Example.com"}))

		m, err := st.Organizations().GetMember(ctx, org.ID, domain.ListAdministrators, "existing@example.com")
		require.NoError(t, err)
		require.Equal(t, domain.MemberActive, m.Status)
		require.Equal(t, user.ID, m.UserID)
		require.Empty(t, m.InvitationToken)

		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, got.HasRole(domain.RoleOrgAdmin))
		require.Contains(t, mailer.granted, "existing@example.com")

		// No pending invitation record is created on the direct path.
		_, err = st.Invitations().GetByEmail(ctx, "existing@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown emails get an invited entry and a token", func(t *testing.T) {
		require.NoError(t, svc.ProcessAdministrators(ctx, org.ID, []string{"new@example.com"}))

		m, err := st.Organizations().GetMember(ctx, org.ID, domain.ListAdministrators, "new@example.com")
		require.NoError(t, err)
		require.Equal(t, domain.MemberInvited, m.Status)
		require.NotEmpty(t, m.InvitationToken)
		require.NotNil(t, m.InvitationExpires)
		require.Len(t, mailer.orgTokens["new@example.com"], 1)

		inv, err := st.Invitations().GetByEmail(ctx, "new@example.com")
		require.NoError(t, err)
		require.Equal(t, []string{org.ID}, inv.OrgIDsWithRole(domain.GrantOrgAdmin))
		require.Len(t, inv.TokenHashes, 1)
	})

	t.Run("duplicate batch entries are processed once", func(t *testing.T) {
		require.NoError(t, svc.ProcessTrainers(ctx, org.ID, []string{
			"Dup@Example.com", "dup@example.com",
		}))
		require.Len(t, mailer.orgTokens["dup@example.com"], 1)
	})

	t.Run("an email already on the list is a conflict", func(t *testing.T) {
		err := svc.ProcessAdministrators(ctx, org.ID, []string{"new@example.com"})
		require.ErrorIs(t, err, ErrMemberExists)
	})

	t.Run("unknown organization fails", func(t *testing.T) {
		err := svc.ProcessAdministrators(ctx, "nope", []string{"x@example.com"})
		require.ErrorIs(t, err, ErrOrganizationNotFound)
	})
}

func TestAcceptInvitation(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects tokens matching no stored hash", func(t *testing.T) {
		st := newTestStore(t)
		svc := &OrgInviteService{Store: st, Mailer: newRecordMailer()}
		org := createTestOrg(t, st, "Acme")
		require.NoError(t, svc.ProcessAdministrators(ctx, org.ID, []string{"invitee@example.com"}))

		_, err := svc.AcceptInvitation(ctx,
			"0000000000000000000000000000000000000000000000000000000000000000",
			"invitee@example.com", "pass123456", "pass123456", "Invitee", "")
		require.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	})

	t.Run("any grant event's token redeems the whole record", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newRecordMailer()
		svc := &OrgInviteService{Store: st, Mailer: mailer}
		orgA := createTestOrg(t, st, "Org A")
		orgB := createTestOrg(t, st, "Org B")

		// Two grant events, two tokens on the one record.
		require.NoError(t, svc.ProcessAdministrators(ctx, orgA.ID, []string{"multi@example.com"}))
		require.NoError(t, svc.ProcessTrainers(ctx, orgB.ID, []string{"multi@example.com"}))
		tokens := mailer.orgTokens["multi@example.com"]
		require.Len(t, tokens, 2)

		// Redeem with the FIRST token; the later grant comes along too.
		user, err := svc.AcceptInvitation(ctx,
			tokens[0], "multi@example.com", "pass123456", "pass123456", "Multi", "")
		require.NoError(t, err)
		require.True(t, user.HasRole(domain.RoleOrgAdmin))
		require.True(t, user.HasRole(domain.RoleTrainer))
		require.True(t, user.EmailVerified)

		mA, err := st.Organizations().GetMember(ctx, orgA.ID, domain.ListAdministrators, "multi@example.com")
		require.NoError(t, err)
		require.Equal(t, domain.MemberActive, mA.Status)
		mB, err := st.Organizations().GetMember(ctx, orgB.ID, domain.ListTrainers, "multi@example.com")
		require.NoError(t, err)
		require.Equal(t, domain.MemberActive, mB.Status)

		// The record is consumed whole.
		_, err = st.Invitations().GetByEmail(ctx, "multi@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("a broken organization is skipped, the rest still grant", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newRecordMailer()
		svc := &OrgInviteService{Store: st, Mailer: mailer}
		orgA := createTestOrg(t, st, "Gone Org")
		orgB := createTestOrg(t, st, "Live Org")

		require.NoError(t, svc.ProcessAdministrators(ctx, orgA.ID, []string{"partial@example.com"}))
		require.NoError(t, svc.ProcessAdministrators(ctx, orgB.ID, []string{"partial@example.com"}))

		// Org A's member entry disappears before redemption.
		require.NoError(t, st.Organizations().RemoveMember(ctx, orgA.ID, domain.ListAdministrators, "partial@example.com"))

		token := mailer.orgTokens["partial@example.com"][1]
		user, err := svc.AcceptInvitation(ctx,
			token, "partial@example.com", "pass123456", "pass123456", "Partial", "")
		require.NoError(t, err)
		require.True(t, user.HasRole(domain.RoleOrgAdmin))

		mB, err := st.Organizations().GetMember(ctx, orgB.ID, domain.ListAdministrators, "partial@example.com")
		require.NoError(t, err)
		require.Equal(t, domain.MemberActive, mB.Status)
	})

	t.Run("an admin grant on the record confers the admin role too", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newRecordMailer()
		adminSvc := &AdminInviteService{Store: st, Mailer: mailer}
		svc := &OrgInviteService{Store: st, Mailer: mailer}
		org := createTestOrg(t, st, "Acme")

		// Org grant first, then the admin invitation lands on the same record.
		require.NoError(t, svc.ProcessAdministrators(ctx, org.ID, []string{"top@example.com"}))
		_, err := adminSvc.ProcessInvite(ctx, "top@example.com")
		require.NoError(t, err)
		token := mailer.adminTokens["top@example.com"]

		user, err := svc.AcceptInvitation(ctx,
			token, "top@example.com", "pass123456", "pass123456", "Top", "")
		require.NoError(t, err)
		require.True(t, user.HasRole(domain.RoleAdmin))
		require.True(t, user.HasRole(domain.RoleOrgAdmin))

		m, err := st.Organizations().GetMember(ctx, org.ID, domain.ListAdministrators, "top@example.com")
		require.NoError(t, err)
		require.Equal(t, domain.MemberActive, m.Status)

		_, err = st.Invitations().GetByEmail(ctx, "top@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("an earlier admin invitation folds into a new record", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newRecordMailer()
		adminSvc := &AdminInviteService{Store: st, Mailer: mailer}
		svc := &OrgInviteService{Store: st, Mailer: mailer}
		org := createTestOrg(t, st, "Acme")

		// Admin invitation first, org grant second.
		_, err := adminSvc.ProcessInvite(ctx, "first@example.com")
		require.NoError(t, err)
		require.NoError(t, svc.ProcessAdministrators(ctx, org.ID, []string{"first@example.com"}))

		inv, err := st.Invitations().GetByEmail(ctx, "first@example.com")
		require.NoError(t, err)
		require.True(t, inv.SuperAdmin)
		require.Len(t, inv.TokenHashes, 2)
		_, err = st.AdminInvitations().GetPendingByEmail(ctx, "first@example.com", time.Now())
		require.ErrorIs(t, err, store.ErrNotFound)

		// The originally mailed admin token still redeems everything.
		user, err := svc.AcceptInvitation(ctx,
			mailer.adminTokens["first@example.com"], "first@example.com",
			"pass123456", "pass123456", "First", "")
		require.NoError(t, err)
		require.True(t, user.HasRole(domain.RoleAdmin))
		require.True(t, user.HasRole(domain.RoleOrgAdmin))
	})

	t.Run("falls back to a pending admin invitation", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newRecordMailer()
		adminSvc := &AdminInviteService{Store: st, Mailer: mailer}
		svc := &OrgInviteService{Store: st, Mailer: mailer}

		_, err := adminSvc.ProcessInvite(ctx, "root@example.com")
		require.NoError(t, err)
		token := mailer.adminTokens["root@example.com"]

		user, err := svc.AcceptInvitation(ctx,
			token, "root@example.com", "pass123456", "pass123456", "Root", "")
		require.NoError(t, err)
		require.True(t, user.HasRole(domain.RoleAdmin))

		_, err = adminSvc.FindPendingByEmail(ctx, "root@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("validates required fields and password confirmation", func(t *testing.T) {
		st := newTestStore(t)
		svc := &OrgInviteService{Store: st, Mailer: newRecordMailer()}

		_, err := svc.AcceptInvitation(ctx, "", "a@b.com", "p", "p", "Name", "")
		require.ErrorIs(t, err, ErrInvalidAcceptRequest)

		_, err = svc.AcceptInvitation(ctx, "tok", "a@b.com", "p1", "p2", "Name", "")
		require.ErrorIs(t, err, ErrPasswordMismatch)
	})
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()

	t.Run("strips the role once no organization remains", func(t *testing.T) {
		st := newTestStore(t)
		svc := &OrgInviteService{Store: st, Mailer: newRecordMailer()}
		orgA := createTestOrg(t, st, "Org A")
		orgB := createTestOrg(t, st, "Org B")
		user := createTestUser(t, st, "spread@example.com")

		require.NoError(t, svc.ProcessAdministrators(ctx, orgA.ID, []string{"spread@example.com"}))
		require.NoError(t, svc.ProcessAdministrators(ctx, orgB.ID, []string{"spread@example.com"}))

		// Removing from one org keeps the role; they still administer B.
		require.NoError(t, svc.RemoveAdministrator(ctx, orgA.ID, "spread@example.com"))
		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, got.HasRole(domain.RoleOrgAdmin))

		require.NoError(t, svc.RemoveAdministrator(ctx, orgB.ID, "spread@example.com"))
		got, err = st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, got.HasRole(domain.RoleOrgAdmin))
	})

	t.Run("revokes only this organization's pending grant", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newRecordMailer()
		svc := &OrgInviteService{Store: st, Mailer: mailer}
		orgA := createTestOrg(t, st, "Org A")
		orgB := createTestOrg(t, st, "Org B")

		require.NoError(t, svc.ProcessAdministrators(ctx, orgA.ID, []string{"pend@example.com"}))
		require.NoError(t, svc.ProcessAdministrators(ctx, orgB.ID, []string{"pend@example.com"}))

		require.NoError(t, svc.RemoveAdministrator(ctx, orgA.ID, "pend@example.com"))

		inv, err := st.Invitations().GetByEmail(ctx, "pend@example.com")
		require.NoError(t, err)
		require.Equal(t, []string{orgB.ID}, inv.OrgIDsWithRole(domain.GrantOrgAdmin))

		// Revoking the last grant deletes the record entirely.
		require.NoError(t, svc.RemoveAdministrator(ctx, orgB.ID, "pend@example.com"))
		_, err = st.Invitations().GetByEmail(ctx, "pend@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("fails when no member or invitation exists", func(t *testing.T) {
		st := newTestStore(t)
		svc := &OrgInviteService{Store: st, Mailer: newRecordMailer()}
		org := createTestOrg(t, st, "Org")

		err := svc.RemoveTrainer(ctx, org.ID, "ghost@example.com")
		require.ErrorIs(t, err, ErrMemberNotFound)
	})
}
