package sqlite

import (
	"context"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/store"
)

type trainingsRepo struct {
	db dbtx
}

func (r *trainingsRepo) Create(ctx context.Context, t domain.Training) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO trainings
			(id, organization_id, name, description, location, timezone,
			 start_at, end_at, participant_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.OrganizationID,
		t.Name,
		t.Description,
		t.Location,
		t.Timezone,
		t.StartDateTime.UTC(),
		t.EndDateTime.UTC(),
		t.ParticipantCount,
	); err != nil {
		return mapConflict(err)
	}

	for _, userID := range t.Trainers {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO training_trainers (training_id, user_id) VALUES (?, ?)`,
			t.ID, userID,
		); err != nil {
			return mapConflict(err)
		}
	}

	for i, trainee := range t.Trainees {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO trainees (training_id, position, username, password, has_logged_in)
			VALUES (?, ?, ?, ?, ?)`,
			t.ID, i, trainee.Username, trainee.Password, trainee.HasLoggedIn,
		); err != nil {
			return mapConflict(err)
		}
	}

	return nil
}

func (r *trainingsRepo) GetByID(ctx context.Context, id string) (domain.Training, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, organization_id, name, description, location, timezone,
		       start_at, end_at, participant_count, created_at, updated_at
		FROM trainings WHERE id = ?`, id)

	var t domain.Training
	err := row.Scan(
		&t.ID,
		&t.OrganizationID,
		&t.Name,
		&t.Description,
		&t.Location,
		&t.Timezone,
		&t.StartDateTime,
		&t.EndDateTime,
		&t.ParticipantCount,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return domain.Training{}, mapNotFound(err)
	}

	if err := r.loadRosters(ctx, &t); err != nil {
		return domain.Training{}, err
	}
	return t, nil
}

func (r *trainingsRepo) ListByOrganization(ctx context.Context, orgID string) ([]domain.Training, error) {
	return r.list(ctx, `
		SELECT id, organization_id, name, description, location, timezone,
		       start_at, end_at, participant_count, created_at, updated_at
		FROM trainings WHERE organization_id = ? ORDER BY start_at`, orgID)
}

func (r *trainingsRepo) ListAll(ctx context.Context) ([]domain.Training, error) {
	return r.list(ctx, `
		SELECT id, organization_id, name, description, location, timezone,
		       start_at, end_at, participant_count, created_at, updated_at
		FROM trainings ORDER BY start_at`)
}

func (r *trainingsRepo) list(ctx context.Context, query string, args ...any) ([]domain.Training, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trainings []domain.Training
	for rows.Next() {
		var t domain.Training
		if err := rows.Scan(
			&t.ID,
			&t.OrganizationID,
			&t.Name,
			&t.Description,
			&t.Location,
			&t.Timezone,
			&t.StartDateTime,
			&t.EndDateTime,
			&t.ParticipantCount,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		trainings = append(trainings, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range trainings {
		if err := r.loadRosters(ctx, &trainings[i]); err != nil {
			return nil, err
		}
	}
	return trainings, nil
}

func (r *trainingsRepo) loadRosters(ctx context.Context, t *domain.Training) error {
	trainers, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM training_trainers WHERE training_id = ? ORDER BY user_id`, t.ID)
	if err != nil {
		return err
	}
	defer trainers.Close()
	t.Trainers = nil
	for trainers.Next() {
		var id string
		if err := trainers.Scan(&id); err != nil {
			return err
		}
		t.Trainers = append(t.Trainers, id)
	}
	if err := trainers.Err(); err != nil {
		return err
	}

	trainees, err := r.db.QueryContext(ctx, `
		SELECT username, password, has_logged_in
		FROM trainees WHERE training_id = ? ORDER BY position`, t.ID)
	if err != nil {
		return err
	}
	defer trainees.Close()
	t.Trainees = nil
	for trainees.Next() {
		var tr domain.Trainee
		if err := trainees.Scan(&tr.Username, &tr.Password, &tr.HasLoggedIn); err != nil {
			return err
		}
		t.Trainees = append(t.Trainees, tr)
	}
	return trainees.Err()
}

func (r *trainingsRepo) Update(ctx context.Context, t domain.Training) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE trainings
		SET name = ?, description = ?, location = ?, timezone = ?,
		    start_at = ?, end_at = ?, participant_count = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		t.Name,
		t.Description,
		t.Location,
		t.Timezone,
		t.StartDateTime.UTC(),
		t.EndDateTime.UTC(),
		t.ParticipantCount,
		t.ID,
	)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	// Trainer roster is small; replace wholesale.
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM training_trainers WHERE training_id = ?`, t.ID); err != nil {
		return err
	}
	for _, userID := range t.Trainers {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO training_trainers (training_id, user_id) VALUES (?, ?)`,
			t.ID, userID,
		); err != nil {
			return mapConflict(err)
		}
	}

	return nil
}

func (r *trainingsRepo) Delete(ctx context.Context, id string) error {
	// Roster rows cascade.
	res, err := r.db.ExecContext(ctx, `DELETE FROM trainings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *trainingsRepo) AppendTrainees(ctx context.Context, trainingID string, ts []domain.Trainee) error {
	for _, trainee := range ts {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO trainees (training_id, position, username, password, has_logged_in)
			SELECT ?, COALESCE(MAX(position), -1) + 1, ?, ?, ?
			FROM trainees WHERE training_id = ?`,
			trainingID, trainee.Username, trainee.Password, trainee.HasLoggedIn, trainingID,
		); err != nil {
			return mapConflict(err)
		}
	}
	return nil
}

func (r *trainingsRepo) TruncateTrainees(ctx context.Context, trainingID string, keep int) error {
	// Positions can have gaps after single removals, so keep the first n by
	// order rather than by raw position value.
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM trainees
		WHERE training_id = ? AND position NOT IN (
			SELECT position FROM trainees
			WHERE training_id = ? ORDER BY position LIMIT ?
		)`,
		trainingID, trainingID, keep)
	return err
}

func (r *trainingsRepo) AddTrainee(ctx context.Context, trainingID string, t domain.Trainee) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trainees (training_id, position, username, password, has_logged_in)
		SELECT ?, COALESCE(MAX(position), -1) + 1, ?, ?, ?
		FROM trainees WHERE training_id = ?`,
		trainingID, t.Username, t.Password, t.HasLoggedIn, trainingID)
	return mapConflict(err)
}

func (r *trainingsRepo) RemoveTrainee(ctx context.Context, trainingID, username string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM trainees WHERE training_id = ? AND username = ?`,
		trainingID, username)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *trainingsRepo) SetTraineeLoggedIn(ctx context.Context, trainingID, username string, loggedIn bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE trainees SET has_logged_in = ?
		WHERE training_id = ? AND username = ?`,
		loggedIn, trainingID, username)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *trainingsRepo) MarkTraineeLoggedIn(ctx context.Context, trainingID, username string) error {
	// Skips rows already marked; repeated checks re-run cheaply while the
	// observable outcome stays idempotent.
	_, err := r.db.ExecContext(ctx, `
		UPDATE trainees SET has_logged_in = 1
		WHERE training_id = ? AND username = ? AND has_logged_in = 0`,
		trainingID, username)
	return err
}

var _ store.Trainings = (*trainingsRepo)(nil)
