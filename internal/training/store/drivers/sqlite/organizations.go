package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
)

type organizationsRepo struct {
	db dbtx
}

func (r *organizationsRepo) Create(ctx context.Context, org domain.TrainingOrganization) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO training_organizations (id, name) VALUES (?, ?)`,
		org.ID, org.Name)
	return mapConflict(err)
}

func (r *organizationsRepo) GetByID(ctx context.Context, id string) (domain.TrainingOrganization, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM training_organizations WHERE id = ?`, id)

	var org domain.TrainingOrganization
	if err := row.Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return domain.TrainingOrganization{}, mapNotFound(err)
	}

	if err := r.loadMembers(ctx, &org); err != nil {
		return domain.TrainingOrganization{}, err
	}
	return org, nil
}

func (r *organizationsRepo) List(ctx context.Context) ([]domain.TrainingOrganization, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM training_organizations ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []domain.TrainingOrganization
	for rows.Next() {
		var org domain.TrainingOrganization
		if err := rows.Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orgs {
		if err := r.loadMembers(ctx, &orgs[i]); err != nil {
			return nil, err
		}
	}
	return orgs, nil
}

func (r *organizationsRepo) loadMembers(ctx context.Context, org *domain.TrainingOrganization) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT list, email, user_id, status, invited_at, activated_at,
		       invitation_token, invitation_expires
		FROM organization_members
		WHERE organization_id = ?
		ORDER BY list, email`, org.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	org.Administrators = nil
	org.Trainers = nil
	for rows.Next() {
		var (
			list      string
			m         domain.Member
			userID    sql.NullString
			invited   sql.NullTime
			activated sql.NullTime
			token     sql.NullString
			expires   sql.NullTime
		)
		if err := rows.Scan(&list, &m.Email, &userID, &m.Status, &invited, &activated, &token, &expires); err != nil {
			return err
		}
		m.UserID = mapNullString(userID)
		m.InvitedAt = mapNullTimePtr(invited)
		m.ActivatedAt = mapNullTimePtr(activated)
		m.InvitationToken = mapNullString(token)
		m.InvitationExpires = mapNullTimePtr(expires)

		if list == domain.ListAdministrators {
			org.Administrators = append(org.Administrators, m)
		} else {
			org.Trainers = append(org.Trainers, m)
		}
	}
	return rows.Err()
}

func (r *organizationsRepo) AddMember(ctx context.Context, orgID, list string, m domain.Member) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organization_members
			(organization_id, list, email, user_id, status, invited_at,
			 activated_at, invitation_token, invitation_expires)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		orgID,
		list,
		m.Email,
		mapStringNull(m.UserID),
		m.Status,
		mapOptionalTime(m.InvitedAt),
		mapOptionalTime(m.ActivatedAt),
		mapStringNull(m.InvitationToken),
		mapOptionalTime(m.InvitationExpires),
	)
	return mapConflict(err)
}

func (r *organizationsRepo) GetMember(ctx context.Context, orgID, list, email string) (domain.Member, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT email, user_id, status, invited_at, activated_at,
		       invitation_token, invitation_expires
		FROM organization_members
		WHERE organization_id = ? AND list = ? AND email = ?`,
		orgID, list, email)

	var (
		m         domain.Member
		userID    sql.NullString
		invited   sql.NullTime
		activated sql.NullTime
		token     sql.NullString
		expires   sql.NullTime
	)
	if err := row.Scan(&m.Email, &userID, &m.Status, &invited, &activated, &token, &expires); err != nil {
		return domain.Member{}, mapNotFound(err)
	}
	m.UserID = mapNullString(userID)
	m.InvitedAt = mapNullTimePtr(invited)
	m.ActivatedAt = mapNullTimePtr(activated)
	m.InvitationToken = mapNullString(token)
	m.InvitationExpires = mapNullTimePtr(expires)
	return m, nil
}

func (r *organizationsRepo) ActivateMember(
	ctx context.Context,
	orgID, list, email, userID string,
	at time.Time,
) error {
	// Conditional update: only an invited entry transitions, and token
	// fields are cleared in the same statement.
	res, err := r.db.ExecContext(ctx, `
		UPDATE organization_members
		SET status = ?, user_id = ?, activated_at = ?,
		    invitation_token = NULL, invitation_expires = NULL
		WHERE organization_id = ? AND list = ? AND email = ? AND status = ?`,
		domain.MemberActive, userID, at.UTC(),
		orgID, list, email, domain.MemberInvited)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *organizationsRepo) RemoveMember(ctx context.Context, orgID, list, email string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM organization_members
		WHERE organization_id = ? AND list = ? AND email = ?`,
		orgID, list, email)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *organizationsRepo) OrgIDsWithActiveMember(ctx context.Context, list, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT organization_id FROM organization_members
		WHERE user_id = ? AND list = ? AND status = ?`,
		userID, list, domain.MemberActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
