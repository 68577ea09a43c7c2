package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable, and to stop callers from accidentally nesting
// transactions.
type Store interface {
	Users() Users
	AdminInvitations() AdminInvitations
	Invitations() Invitations
	Organizations() Organizations
	Trainings() Trainings

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction. If fn returns an
	// error the transaction is rolled back, otherwise it is committed. This
	// is the recommended way to handle multi-step writes.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up a user by case-normalized email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateRoles replaces the user's role set and bumps updated_at.
	UpdateRoles(ctx context.Context, userID string, roles []string) error

	// ListByRole returns all users carrying the given role.
	ListByRole(ctx context.Context, role string) ([]domain.User, error)

	// DeleteUser removes the user row only. Callers are responsible for
	// removing dependent records first (see UserService's deletion cascade).
	DeleteUser(ctx context.Context, userID string) error

	// DeleteExpired removes generated accounts whose expires_at has passed
	// and reports how many were deleted. Housekeeping only.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type AdminInvitations interface {
	// Create writes a new admin invitation (token_hash is bcrypt of the
	// opaque token).
	Create(ctx context.Context, inv domain.AdminInvitation) error

	// GetPendingByEmail returns the single unaccepted, unexpired invitation
	// for the email, if any.
	GetPendingByEmail(ctx context.Context, email string, now time.Time) (domain.AdminInvitation, error)

	// DeleteByEmail consumes the invitation on acceptance or revocation.
	DeleteByEmail(ctx context.Context, email string) error

	// DeleteExpired is housekeeping.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Invitations interface {
	// GetByEmail returns the accumulated multi-role invitation for an email,
	// including all grants and token hashes.
	GetByEmail(ctx context.Context, email string) (domain.Invitation, error)

	// Create inserts a fresh record with its initial grants and token hash.
	Create(ctx context.Context, inv domain.Invitation) error

	// AddOrgGrant appends an org-scoped grant and its token hash to an
	// existing record.
	AddOrgGrant(ctx context.Context, invitationID, orgID, role, tokenHash string) error

	// SetSuperAdmin flags the record as granting system admin and appends
	// the grant event's token hash.
	SetSuperAdmin(ctx context.Context, invitationID, tokenHash string) error

	// ClearSuperAdmin withdraws the system-admin grant. Returns ErrNotFound
	// when the record does not carry it.
	ClearSuperAdmin(ctx context.Context, invitationID string) error

	// RemoveOrgGrant strips a single organization's grant from the record
	// (partial revocation). Returns ErrNotFound when no such grant exists.
	RemoveOrgGrant(ctx context.Context, invitationID, orgID, role string) error

	// Delete removes the whole record with its grants and hashes.
	Delete(ctx context.Context, invitationID string) error
}

type Organizations interface {
	// Create inserts an organization.
	Create(ctx context.Context, org domain.TrainingOrganization) error

	// GetByID returns the organization with both member lists populated.
	GetByID(ctx context.Context, id string) (domain.TrainingOrganization, error)

	// List returns all organizations, newest first, members populated.
	List(ctx context.Context) ([]domain.TrainingOrganization, error)

	// AddMember inserts one member entry into the named list. The unique
	// (org, email, list) index makes duplicate grants fail atomically with
	// ErrAlreadyExists.
	AddMember(ctx context.Context, orgID, list string, m domain.Member) error

	// GetMember returns one member entry. ErrNotFound when absent.
	GetMember(ctx context.Context, orgID, list, email string) (domain.Member, error)

	// ActivateMember transitions an invited entry to active in one
	// conditional update, setting the user id and clearing token fields.
	// ErrNotFound when no invited entry matches.
	ActivateMember(ctx context.Context, orgID, list, email, userID string, at time.Time) error

	// RemoveMember deletes one member entry. ErrNotFound when absent.
	RemoveMember(ctx context.Context, orgID, list, email string) error

	// OrgIDsWithActiveMember returns the ids of organizations where the
	// user appears active in the named list. Used to recompute whether a
	// role survives a membership removal.
	OrgIDsWithActiveMember(ctx context.Context, list, userID string) ([]string, error)
}

type Trainings interface {
	// Create inserts the training with its trainer and trainee rosters.
	Create(ctx context.Context, t domain.Training) error

	// GetByID returns the training with rosters populated, trainees in
	// position order.
	GetByID(ctx context.Context, id string) (domain.Training, error)

	// ListByOrganization returns an organization's trainings.
	ListByOrganization(ctx context.Context, orgID string) ([]domain.Training, error)

	// ListAll returns every training. The ongoing-training queries load all
	// rows and filter on derived status; acceptable at expected scale.
	ListAll(ctx context.Context) ([]domain.Training, error)

	// Update replaces the training's core fields, participant count and
	// trainer roster. The trainee roster is managed positionally via
	// AppendTrainees / TruncateTrainees.
	Update(ctx context.Context, t domain.Training) error

	// Delete removes the training and its rosters.
	Delete(ctx context.Context, id string) error

	// AppendTrainees adds trainees after the current highest position,
	// preserving roster order.
	AppendTrainees(ctx context.Context, trainingID string, ts []domain.Trainee) error

	// TruncateTrainees keeps the first keep trainees (by position) and
	// removes the rest.
	TruncateTrainees(ctx context.Context, trainingID string, keep int) error

	// AddTrainee inserts one trainee at the end of the roster. Username
	// matching is case-insensitive; duplicates fail with ErrAlreadyExists.
	AddTrainee(ctx context.Context, trainingID string, t domain.Trainee) error

	// RemoveTrainee deletes one trainee by case-insensitive username.
	RemoveTrainee(ctx context.Context, trainingID, username string) error

	// SetTraineeLoggedIn flips one trainee's login flag. ErrNotFound when
	// no trainee matches.
	SetTraineeLoggedIn(ctx context.Context, trainingID, username string, loggedIn bool) error

	// MarkTraineeLoggedIn records a first login during the access check.
	// Rows already marked are skipped, so repeated checks stay cheap while
	// the outcome remains idempotent.
	MarkTraineeLoggedIn(ctx context.Context, trainingID, username string) error
}
