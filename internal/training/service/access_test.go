package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/store"
	"github.com/aussiebroadwan/traintab/pkg/idx"
	"github.com/stretchr/testify/require"
)

func seedTraining(t *testing.T, st store.Store, orgID string, start, end time.Time, trainers []string, trainees []domain.Trainee) domain.Training {
	t.Helper()

	tr := domain.Training{
		ID:             idx.New().String(),
		OrganizationID: orgID,
		Name:           "Session",
		Timezone:       "UTC",
		StartDateTime:  start,
		EndDateTime:    end,
		Trainers:       trainers,
		Trainees:       trainees,
	}
	require.NoError(t, st.Trainings().Create(context.Background(), tr))
	return tr
}

func TestCheckTrainingAccess(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("admins bypass without any training", func(t *testing.T) {
		st := newTestStore(t)
		svc := &AccessService{Store: st}

		admin := domain.User{ID: "a", Roles: []string{domain.RoleAdmin}}
		require.NoError(t, svc.CheckTrainingAccess(ctx, admin, now))

		orgAdmin := domain.User{ID: "o", Roles: []string{domain.RoleOrgAdmin}}
		require.NoError(t, svc.CheckTrainingAccess(ctx, orgAdmin, now))
	})

	t.Run("trainer needs an ongoing training listing them", func(t *testing.T) {
		st := newTestStore(t)
		svc := &AccessService{Store: st}
		org := createTestOrg(t, st, "Org")
		trainer := createTestUser(t, st, "trainer@example.com", domain.RoleTrainer)

		err := svc.CheckTrainingAccess(ctx, trainer, now)
		require.ErrorIs(t, err, ErrNoOngoingTraining)

		seedTraining(t, st, org.ID, now.Add(-time.Hour), now.Add(time.Hour),
			[]string{trainer.ID}, nil)
		require.NoError(t, svc.CheckTrainingAccess(ctx, trainer, now))
	})

	t.Run("a past training grants nothing", func(t *testing.T) {
		st := newTestStore(t)
		svc := &AccessService{Store: st}
		org := createTestOrg(t, st, "Org")
		trainer := createTestUser(t, st, "late@example.com", domain.RoleTrainer)

		seedTraining(t, st, org.ID, now.Add(-3*time.Hour), now.Add(-2*time.Hour),
			[]string{trainer.ID}, nil)
		err := svc.CheckTrainingAccess(ctx, trainer, now)
		require.ErrorIs(t, err, ErrNoOngoingTraining)
	})

	t.Run("trainee match records first login idempotently", func(t *testing.T) {
		st := newTestStore(t)
		svc := &AccessService{Store: st}
		org := createTestOrg(t, st, "Org")
		trainee := createTestUser(t, st, "trainee-x@trainees.test", domain.RoleTrainee)

		tr := seedTraining(t, st, org.ID, now.Add(-time.Hour), now.Add(time.Hour), nil,
			[]domain.Trainee{{Username: "Trainee-X@Trainees.Test", Password: "pw"}})

		require.NoError(t, svc.CheckTrainingAccess(ctx, trainee, now))
		got, err := st.Trainings().GetByID(ctx, tr.ID)
		require.NoError(t, err)
		require.True(t, got.Trainees[0].HasLoggedIn)

		// A second check passes and the flag stays set.
		require.NoError(t, svc.CheckTrainingAccess(ctx, trainee, now))
		got, err = st.Trainings().GetByID(ctx, tr.ID)
		require.NoError(t, err)
		require.True(t, got.Trainees[0].HasLoggedIn)
	})

	t.Run("plain users are rejected", func(t *testing.T) {
		st := newTestStore(t)
		svc := &AccessService{Store: st}

		user := domain.User{ID: "u", Roles: []string{domain.RoleUser}}
		err := svc.CheckTrainingAccess(ctx, user, now)
		require.ErrorIs(t, err, ErrNoOngoingTraining)
	})
}

func TestCheckOrgAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("admin bypasses the gate", func(t *testing.T) {
		st := newTestStore(t)
		svc := &AccessService{Store: st}

		admin := domain.User{ID: "a", Roles: []string{domain.RoleAdmin}}
		require.NoError(t, svc.CheckOrgAccess(ctx, admin, ""))
	})

	t.Run("missing organization id is a validation failure", func(t *testing.T) {
		st := newTestStore(t)
		svc := &AccessService{Store: st}

		user := domain.User{ID: "u", Roles: []string{domain.RoleOrgAdmin}}
		err := svc.CheckOrgAccess(ctx, user, "")
		require.ErrorIs(t, err, ErrMissingOrganizationID)
	})

	t.Run("unknown organization is not found", func(t *testing.T) {
		st := newTestStore(t)
		svc := &AccessService{Store: st}

		user := domain.User{ID: "u", Roles: []string{domain.RoleOrgAdmin}}
		err := svc.CheckOrgAccess(ctx, user, "nope")
		require.ErrorIs(t, err, ErrOrganizationNotFound)
	})

	t.Run("only active administrators of the org pass", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newRecordMailer()
		invites := &OrgInviteService{Store: st, Mailer: mailer}
		svc := &AccessService{Store: st}
		org := createTestOrg(t, st, "Org")

		active := createTestUser(t, st, "active@example.com")
		require.NoError(t, invites.ProcessAdministrators(ctx, org.ID, []string{"active@example.com"}))
		activeUser, err := st.Users().GetUserByID(ctx, active.ID)
		require.NoError(t, err)
		require.NoError(t, svc.CheckOrgAccess(ctx, activeUser, org.ID))

		// An invited-but-unredeemed administrator of the org does not pass.
		require.NoError(t, invites.ProcessAdministrators(ctx, org.ID, []string{"invited@example.com"}))
		outsider := domain.User{ID: "x", Email: "invited@example.com", Roles: []string{domain.RoleOrgAdmin}}
		err = svc.CheckOrgAccess(ctx, outsider, org.ID)
		require.ErrorIs(t, err, ErrAccessDenied)
	})
}
