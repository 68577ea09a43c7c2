package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/store"
	"github.com/aussiebroadwan/traintab/pkg/idx"
	"github.com/aussiebroadwan/traintab/pkg/slogx"
)

var (
	ErrInvalidTraining  = errors.New("invalid training request")
	ErrTrainingNotFound = errors.New("training not found")
	ErrDuplicateTrainee = errors.New("a trainee with this username already exists")
	ErrTraineeNotFound  = errors.New("trainee not found")
)

// TrainingInput carries the caller-supplied fields for create and update.
type TrainingInput struct {
	Name             string
	Description      string
	Location         string
	Timezone         string
	StartDateTime    time.Time
	EndDateTime      time.Time
	ParticipantCount int
	Trainers         []string
	Trainees         []domain.Trainee
}

func (in TrainingInput) validate() error {
	if in.Name == "" || in.Timezone == "" {
		return ErrInvalidTraining
	}
	if in.StartDateTime.IsZero() || in.EndDateTime.IsZero() || in.EndDateTime.Before(in.StartDateTime) {
		return ErrInvalidTraining
	}
	if in.ParticipantCount < 0 {
		return ErrInvalidTraining
	}
	return nil
}

// TrainingService manages training sessions and their trainee rosters,
// including the generated accounts that back each roster entry.
type TrainingService struct {
	Store       store.Store
	Provisioner Provisioner
}

// CreateTraining creates a training. Explicit trainees are kept as given;
// when ParticipantCount is positive, that many accounts are generated and
// appended after them.
func (s *TrainingService) CreateTraining(ctx context.Context, orgID string, in TrainingInput) (domain.Training, error) {
	log := slogx.FromContext(ctx)

	if err := in.validate(); err != nil {
		return domain.Training{}, err
	}
	if _, err := s.Store.Organizations().GetByID(ctx, orgID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Training{}, ErrOrganizationNotFound
		}
		return domain.Training{}, err
	}

	// The generated accounts and the training row land together or not at
	// all; a roster conflict must not leak provisioned logins.
	t := domain.Training{
		ID:               idx.New().String(),
		OrganizationID:   orgID,
		Name:             in.Name,
		Description:      in.Description,
		Location:         in.Location,
		Timezone:         in.Timezone,
		StartDateTime:    in.StartDateTime,
		EndDateTime:      in.EndDateTime,
		ParticipantCount: in.ParticipantCount,
		Trainers:         in.Trainers,
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		trainees := append([]domain.Trainee(nil), in.Trainees...)
		if in.ParticipantCount > 0 {
			creds, err := s.Provisioner.CreateTraineeAccounts(ctx, tx, in.ParticipantCount, in.EndDateTime)
			if err != nil {
				log.Error("failed to provision trainee accounts", slog.Any("error", err))
				return err
			}
			for _, c := range creds {
				trainees = append(trainees, domain.Trainee{Username: c.Email, Password: c.Password})
			}
		}
		t.Trainees = trainees
		return tx.Trainings().Create(ctx, t)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Training{}, ErrDuplicateTrainee
		}
		log.Error("failed to create training", slog.Any("error", err))
		return domain.Training{}, err
	}

	log.Info("training created",
		slog.String("training_id", t.ID),
		slog.String("organization_id", orgID),
		slog.Int("trainees", len(t.Trainees)),
	)
	return s.GetTraining(ctx, t.ID)
}

// GetTraining returns one training with its rosters.
func (s *TrainingService) GetTraining(ctx context.Context, id string) (domain.Training, error) {
	t, err := s.Store.Trainings().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Training{}, ErrTrainingNotFound
		}
		return domain.Training{}, err
	}
	return t, nil
}

// ListByOrganization returns an organization's trainings.
func (s *TrainingService) ListByOrganization(ctx context.Context, orgID string) ([]domain.Training, error) {
	return s.Store.Trainings().ListByOrganization(ctx, orgID)
}

// GetOngoingTrainings returns every training whose derived status is
// in_progress at now. Status is never stored, so this loads all trainings
// and filters; fine at the scale this runs at.
func (s *TrainingService) GetOngoingTrainings(ctx context.Context, now time.Time) ([]domain.Training, error) {
	all, err := s.Store.Trainings().ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var ongoing []domain.Training
	for _, t := range all {
		if t.Status(now) == domain.StatusInProgress {
			ongoing = append(ongoing, t)
		}
	}
	return ongoing, nil
}

// UpdateTraining updates the training's fields and reconciles the trainee
// roster against the new participant count: extra capacity appends freshly
// generated accounts, reduced capacity removes trainees from the end of the
// roster and deletes their backing accounts. Order is preserved throughout.
func (s *TrainingService) UpdateTraining(ctx context.Context, id string, in TrainingInput) (domain.Training, error) {
	log := slogx.FromContext(ctx)

	if err := in.validate(); err != nil {
		return domain.Training{}, err
	}
	current, err := s.GetTraining(ctx, id)
	if err != nil {
		return domain.Training{}, err
	}

	current.Name = in.Name
	current.Description = in.Description
	current.Location = in.Location
	current.Timezone = in.Timezone
	current.StartDateTime = in.StartDateTime
	current.EndDateTime = in.EndDateTime
	current.ParticipantCount = in.ParticipantCount
	current.Trainers = in.Trainers
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Trainings().Update(ctx, current); err != nil {
			log.Error("failed to update training", slog.Any("error", err))
			return err
		}
		return s.reconcileCapacity(ctx, tx, current, in.ParticipantCount)
	})
	if err != nil {
		return domain.Training{}, err
	}
	return s.GetTraining(ctx, id)
}

// reconcileCapacity grows or shrinks the trainee roster to newCount entries.
// It runs inside the caller's transaction.
func (s *TrainingService) reconcileCapacity(ctx context.Context, st store.Store, t domain.Training, newCount int) error {
	log := slogx.FromContext(ctx)
	current := len(t.Trainees)

	switch {
	case newCount > current:
		creds, err := s.Provisioner.CreateTraineeAccounts(ctx, st, newCount-current, t.EndDateTime)
		if err != nil {
			log.Error("failed to provision additional trainees", slog.Any("error", err))
			return err
		}
		added := make([]domain.Trainee, 0, len(creds))
		for _, c := range creds {
			added = append(added, domain.Trainee{Username: c.Email, Password: c.Password})
		}
		if err := st.Trainings().AppendTrainees(ctx, t.ID, added); err != nil {
			log.Error("failed to append trainees", slog.Any("error", err))
			return err
		}
		log.Info("trainee roster grown",
			slog.String("training_id", t.ID),
			slog.Int("added", len(added)),
		)

	case newCount < current:
		// The trailing trainees go. Their backing accounts are deleted first
		// so a truncation never leaves orphaned logins behind.
		for _, trimmed := range t.Trainees[newCount:] {
			if err := s.Provisioner.DeleteTraineeAccount(ctx, st, trimmed.Username); err != nil {
				log.Error("failed to delete trainee account",
					slog.String("username", trimmed.Username),
					slog.Any("error", err),
				)
				return err
			}
		}
		if err := st.Trainings().TruncateTrainees(ctx, t.ID, newCount); err != nil {
			log.Error("failed to truncate trainee roster", slog.Any("error", err))
			return err
		}
		log.Info("trainee roster shrunk",
			slog.String("training_id", t.ID),
			slog.Int("removed", current-newCount),
		)
	}
	return nil
}

// DeleteTraining deletes a training together with every trainee's backing
// account. The whole removal commits as one transaction.
func (s *TrainingService) DeleteTraining(ctx context.Context, id string) error {
	log := slogx.FromContext(ctx)

	t, err := s.GetTraining(ctx, id)
	if err != nil {
		return err
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, trainee := range t.Trainees {
			if err := s.Provisioner.DeleteTraineeAccount(ctx, tx, trainee.Username); err != nil {
				log.Error("failed to delete trainee account",
					slog.String("training_id", id),
					slog.String("username", trainee.Username),
					slog.Any("error", err),
				)
				return err
			}
		}
		return tx.Trainings().Delete(ctx, id)
	})
	if err != nil {
		log.Error("failed to delete training", slog.Any("error", err))
		return err
	}

	log.Info("training deleted", slog.String("training_id", id))
	return nil
}

// AddTrainee appends one explicit trainee to the roster. Username matching
// is case-insensitive.
func (s *TrainingService) AddTrainee(ctx context.Context, trainingID string, trainee domain.Trainee) error {
	log := slogx.FromContext(ctx)

	if trainee.Username == "" || trainee.Password == "" {
		return ErrInvalidTraining
	}
	if _, err := s.GetTraining(ctx, trainingID); err != nil {
		return err
	}
	if err := s.Store.Trainings().AddTrainee(ctx, trainingID, trainee); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrDuplicateTrainee
		}
		log.Error("failed to add trainee", slog.Any("error", err))
		return err
	}

	log.Info("trainee added",
		slog.String("training_id", trainingID),
		slog.String("username", trainee.Username),
	)
	return nil
}

// RemoveTrainee removes one trainee by case-insensitive username and deletes
// the backing account.
func (s *TrainingService) RemoveTrainee(ctx context.Context, trainingID, username string) error {
	log := slogx.FromContext(ctx)

	username = strings.TrimSpace(username)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Trainings().RemoveTrainee(ctx, trainingID, username); err != nil {
			return err
		}
		return s.Provisioner.DeleteTraineeAccount(ctx, tx, username)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTraineeNotFound
		}
		log.Error("failed to remove trainee", slog.Any("error", err))
		return err
	}

	log.Info("trainee removed",
		slog.String("training_id", trainingID),
		slog.String("username", username),
	)
	return nil
}

// SetTraineeLoginStatus flips one trainee's login flag by case-insensitive
// username.
func (s *TrainingService) SetTraineeLoginStatus(ctx context.Context, trainingID, username string, loggedIn bool) error {
	if err := s.Store.Trainings().SetTraineeLoggedIn(ctx, trainingID, strings.TrimSpace(username), loggedIn); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTraineeNotFound
		}
		return err
	}
	return nil
}
