package domain

import "time"

// Derived training statuses. Status is a projection of the clock against the
// training window; it is never persisted.
const (
	StatusUpcoming   = "upcoming"
	StatusInProgress = "in_progress"
	StatusPast       = "past"
)

type Training struct {
	ID               string
	OrganizationID   string
	Name             string
	Description      string
	Location         string
	Timezone         string
	StartDateTime    time.Time
	EndDateTime      time.Time
	ParticipantCount int
	Trainers         []string // user ids
	Trainees         []Trainee
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Trainee is a generated, ephemeral training credential. The password is
// plaintext by design: the account exists only for the duration of the
// training and is handed out on paper.
type Trainee struct {
	Username    string // the generated account's email
	Password    string
	HasLoggedIn bool
}

// TrainingStatus derives the temporal status of a training window at now.
// Pure function; callers supply the clock so boundaries are testable.
func TrainingStatus(now, start, end time.Time) string {
	switch {
	case now.Before(start):
		return StatusUpcoming
	case now.After(end):
		return StatusPast
	default:
		return StatusInProgress
	}
}

// Status derives the training's status at now.
func (t Training) Status(now time.Time) string {
	return TrainingStatus(now, t.StartDateTime, t.EndDateTime)
}

// HasTrainer reports whether the user id is one of the training's trainers.
func (t Training) HasTrainer(userID string) bool {
	for _, id := range t.Trainers {
		if id == userID {
			return true
		}
	}
	return false
}
