package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/store"
	"github.com/stretchr/testify/require"
)

func newTrainingService(t *testing.T) (*TrainingService, store.Store, domain.TrainingOrganization) {
	t.Helper()

	st := newTestStore(t)
	svc := &TrainingService{
		Store:       st,
		Provisioner: &StoreProvisioner{MailDomain: "trainees.test"},
	}
	org := createTestOrg(t, st, "Acme Training")
	return svc, st, org
}

func baseInput(start, end time.Time) TrainingInput {
	return TrainingInput{
		Name:          "Forklift Safety",
		Timezone:      "Australia/Sydney",
		StartDateTime: start,
		EndDateTime:   end,
	}
}

func TestCreateTraining(t *testing.T) {
	ctx := context.Background()
	svc, st, org := newTrainingService(t)
	start := time.Now().Add(24 * time.Hour)
	end := start.Add(8 * time.Hour)

	t.Run("generates one account per participant", func(t *testing.T) {
		in := baseInput(start, end)
		in.ParticipantCount = 3

		tr, err := svc.CreateTraining(ctx, org.ID, in)
		require.NoError(t, err)
		require.Len(t, tr.Trainees, 3)

		for _, trainee := range tr.Trainees {
			require.NotEmpty(t, trainee.Password)
			require.False(t, trainee.HasLoggedIn)

			user, err := st.Users().GetUserByEmail(ctx, trainee.Username)
			require.NoError(t, err)
			require.True(t, user.HasRole(domain.RoleTrainee))
			require.NotNil(t, user.ExpiresAt)
		}
	})

	t.Run("keeps explicit trainees ahead of generated ones", func(t *testing.T) {
		in := baseInput(start, end)
		in.Trainees = []domain.Trainee{{Username: "manual@trainees.test", Password: "pw"}}
		in.ParticipantCount = 2

		tr, err := svc.CreateTraining(ctx, org.ID, in)
		require.NoError(t, err)
		require.Len(t, tr.Trainees, 3)
		require.Equal(t, "manual@trainees.test", tr.Trainees[0].Username)
	})

	t.Run("rejects unknown organizations", func(t *testing.T) {
		_, err := svc.CreateTraining(ctx, "nope", baseInput(start, end))
		require.ErrorIs(t, err, ErrOrganizationNotFound)
	})

	t.Run("rejects inverted windows", func(t *testing.T) {
		_, err := svc.CreateTraining(ctx, org.ID, baseInput(end, start))
		require.ErrorIs(t, err, ErrInvalidTraining)
	})
}

func TestCreateTrainingRollsBackOnRosterConflict(t *testing.T) {
	ctx := context.Background()
	svc, st, org := newTrainingService(t)
	start := time.Now().Add(24 * time.Hour)

	in := baseInput(start, start.Add(8*time.Hour))
	in.ParticipantCount = 2
	in.Trainees = []domain.Trainee{
		{Username: "dup@trainees.test", Password: "pw1"},
		{Username: "DUP@trainees.test", Password: "pw2"},
	}

	_, err := svc.CreateTraining(ctx, org.ID, in)
	require.ErrorIs(t, err, ErrDuplicateTrainee)

	// Nothing from the failed create survives: no training row and no
	// generated accounts.
	trainings, err := svc.ListByOrganization(ctx, org.ID)
	require.NoError(t, err)
	require.Empty(t, trainings)

	accounts, err := st.Users().ListByRole(ctx, domain.RoleTrainee)
	require.NoError(t, err)
	require.Empty(t, accounts)
}

func TestCapacityReconciliation(t *testing.T) {
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)
	end := start.Add(8 * time.Hour)

	create := func(t *testing.T, svc *TrainingService, orgID string, count int) domain.Training {
		in := baseInput(start, end)
		in.ParticipantCount = count
		tr, err := svc.CreateTraining(ctx, orgID, in)
		require.NoError(t, err)
		return tr
	}

	t.Run("shrinking keeps the head and deletes the trimmed accounts", func(t *testing.T) {
		svc, st, org := newTrainingService(t)
		tr := create(t, svc, org.ID, 3)
		first := tr.Trainees[0].Username
		trimmed := []string{tr.Trainees[1].Username, tr.Trainees[2].Username}

		in := baseInput(start, end)
		in.ParticipantCount = 1
		updated, err := svc.UpdateTraining(ctx, tr.ID, in)
		require.NoError(t, err)
		require.Len(t, updated.Trainees, 1)
		require.Equal(t, first, updated.Trainees[0].Username)

		for _, username := range trimmed {
			_, err := st.Users().GetUserByEmail(ctx, username)
			require.ErrorIs(t, err, store.ErrNotFound)
		}
		_, err = st.Users().GetUserByEmail(ctx, first)
		require.NoError(t, err)
	})

	t.Run("growing appends without touching existing trainees", func(t *testing.T) {
		svc, _, org := newTrainingService(t)
		tr := create(t, svc, org.ID, 3)
		existing := []string{
			tr.Trainees[0].Username, tr.Trainees[1].Username, tr.Trainees[2].Username,
		}

		in := baseInput(start, end)
		in.ParticipantCount = 5
		updated, err := svc.UpdateTraining(ctx, tr.ID, in)
		require.NoError(t, err)
		require.Len(t, updated.Trainees, 5)
		for i, username := range existing {
			require.Equal(t, username, updated.Trainees[i].Username)
		}
	})

	t.Run("zero explicitly empties the roster", func(t *testing.T) {
		svc, st, org := newTrainingService(t)
		tr := create(t, svc, org.ID, 2)
		usernames := []string{tr.Trainees[0].Username, tr.Trainees[1].Username}

		in := baseInput(start, end)
		in.ParticipantCount = 0
		updated, err := svc.UpdateTraining(ctx, tr.ID, in)
		require.NoError(t, err)
		require.Empty(t, updated.Trainees)

		for _, username := range usernames {
			_, err := st.Users().GetUserByEmail(ctx, username)
			require.ErrorIs(t, err, store.ErrNotFound)
		}
	})

	t.Run("equal count leaves the roster untouched", func(t *testing.T) {
		svc, _, org := newTrainingService(t)
		tr := create(t, svc, org.ID, 2)
		usernames := []string{tr.Trainees[0].Username, tr.Trainees[1].Username}

		in := baseInput(start, end)
		in.ParticipantCount = 2
		updated, err := svc.UpdateTraining(ctx, tr.ID, in)
		require.NoError(t, err)
		require.Len(t, updated.Trainees, 2)
		require.Equal(t, usernames[0], updated.Trainees[0].Username)
		require.Equal(t, usernames[1], updated.Trainees[1].Username)
	})
}

func TestDeleteTraining(t *testing.T) {
	ctx := context.Background()
	svc, st, org := newTrainingService(t)
	start := time.Now().Add(24 * time.Hour)

	in := baseInput(start, start.Add(8*time.Hour))
	in.ParticipantCount = 2
	tr, err := svc.CreateTraining(ctx, org.ID, in)
	require.NoError(t, err)
	usernames := []string{tr.Trainees[0].Username, tr.Trainees[1].Username}

	require.NoError(t, svc.DeleteTraining(ctx, tr.ID))

	_, err = svc.GetTraining(ctx, tr.ID)
	require.ErrorIs(t, err, ErrTrainingNotFound)
	for _, username := range usernames {
		_, err := st.Users().GetUserByEmail(ctx, username)
		require.ErrorIs(t, err, store.ErrNotFound)
	}
}

func TestTraineeRoster(t *testing.T) {
	ctx := context.Background()
	svc, _, org := newTrainingService(t)
	start := time.Now().Add(24 * time.Hour)

	tr, err := svc.CreateTraining(ctx, org.ID, baseInput(start, start.Add(8*time.Hour)))
	require.NoError(t, err)

	t.Run("duplicate usernames are rejected case-insensitively", func(t *testing.T) {
		require.NoError(t, svc.AddTrainee(ctx, tr.ID, domain.Trainee{
			Username: "casey@trainees.test", Password: "pw1",
		}))
		err := svc.AddTrainee(ctx, tr.ID, domain.Trainee{
			Username: "Casey@Trainees.Test", Password: "pw2",
		})
		require.ErrorIs(t, err, ErrDuplicateTrainee)
	})

	t.Run("login flag flips by case-insensitive username", func(t *testing.T) {
		require.NoError(t, svc.SetTraineeLoginStatus(ctx, tr.ID, "CASEY@trainees.test", true))

		got, err := svc.GetTraining(ctx, tr.ID)
		require.NoError(t, err)
		require.True(t, got.Trainees[0].HasLoggedIn)
	})

	t.Run("removing an absent trainee fails", func(t *testing.T) {
		err := svc.RemoveTrainee(ctx, tr.ID, "ghost@trainees.test")
		require.ErrorIs(t, err, ErrTraineeNotFound)
	})

	t.Run("removal deletes the roster entry", func(t *testing.T) {
		require.NoError(t, svc.RemoveTrainee(ctx, tr.ID, "casey@trainees.test"))

		got, err := svc.GetTraining(ctx, tr.ID)
		require.NoError(t, err)
		require.Empty(t, got.Trainees)
	})
}

func TestGetOngoingTrainings(t *testing.T) {
	ctx := context.Background()
	svc, _, org := newTrainingService(t)
	now := time.Now()

	mk := func(name string, start, end time.Time) {
		in := baseInput(start, end)
		in.Name = name
		_, err := svc.CreateTraining(ctx, org.ID, in)
		require.NoError(t, err)
	}
	mk("past", now.Add(-48*time.Hour), now.Add(-40*time.Hour))
	mk("ongoing", now.Add(-1*time.Hour), now.Add(1*time.Hour))
	mk("upcoming", now.Add(24*time.Hour), now.Add(32*time.Hour))

	ongoing, err := svc.GetOngoingTrainings(ctx, now)
	require.NoError(t, err)
	require.Len(t, ongoing, 1)
	require.Equal(t, "ongoing", ongoing[0].Name)
}
