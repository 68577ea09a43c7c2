package domain

import "time"

// InvitationTTL is how long any invitation token stays redeemable.
const InvitationTTL = 7 * 24 * time.Hour

// AdminInvitation is a single-role invitation to become a system admin.
// At most one pending (unaccepted, unexpired) invitation exists per email.
type AdminInvitation struct {
	ID         string
	Email      string
	TokenHash  string // bcrypt of the opaque invite token
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	CreatedAt  time.Time
}

// Pending reports whether the invitation is still redeemable at now.
func (i AdminInvitation) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && i.ExpiresAt.After(now)
}

// Grant roles recorded on a multi-role invitation.
const (
	GrantOrgAdmin   = "orgAdmin"
	GrantOrgTrainer = "orgTrainer"
)

// InvitationGrant is one org-scoped role-assignment event on an Invitation.
type InvitationGrant struct {
	OrganizationID string
	Role           string // GrantOrgAdmin or GrantOrgTrainer
	CreatedAt      time.Time
}

// Invitation accumulates role grants for one email across organizations.
// Every grant event appends a fresh token hash; a presented token redeems
// the whole record if it matches any stored hash. The record exists only
// while at least one grant is pending and is deleted whole on acceptance.
type Invitation struct {
	ID          string
	Email       string // globally unique
	SuperAdmin  bool
	Grants      []InvitationGrant
	TokenHashes []string // ordered, one per grant event
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrgIDsWithRole returns the organization ids holding the given grant role.
func (i Invitation) OrgIDsWithRole(role string) []string {
	var out []string
	for _, g := range i.Grants {
		if g.Role == role {
			out = append(out, g.OrganizationID)
		}
	}
	return out
}

// Empty reports whether the record carries no grant at all, in which case it
// must not exist.
func (i Invitation) Empty() bool {
	return !i.SuperAdmin && len(i.Grants) == 0
}
