package domain

import "time"

// Member lists within an organization.
const (
	ListAdministrators = "administrators"
	ListTrainers       = "trainers"
)

// Member statuses.
const (
	MemberInvited = "invited"
	MemberActive  = "active"
)

// TrainingOrganization groups administrators, trainers and trainings.
type TrainingOrganization struct {
	ID             string
	Name           string
	Administrators []Member
	Trainers       []Member
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Member records one person's administrator or trainer relationship to one
// organization. Exactly one entry exists per email per list per organization.
// Active entries carry a user id and no token fields; invited entries carry
// a token hash and expiry instead.
type Member struct {
	Email             string
	UserID            string // set once active
	Status            string // MemberInvited or MemberActive
	InvitedAt         *time.Time
	ActivatedAt       *time.Time
	InvitationToken   string // bcrypt hash, invited entries only
	InvitationExpires *time.Time
}
