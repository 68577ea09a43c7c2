package sqlite

import (
	"context"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
)

type invitationsRepo struct {
	db dbtx
}

func (r *invitationsRepo) GetByEmail(ctx context.Context, email string) (domain.Invitation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, super_admin, created_at, updated_at
		FROM invitations WHERE email = ?`, email)

	var inv domain.Invitation
	if err := row.Scan(&inv.ID, &inv.Email, &inv.SuperAdmin, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}

	hashes, err := r.db.QueryContext(ctx, `
		SELECT token_hash FROM invitation_token_hashes
		WHERE invitation_id = ? ORDER BY position`, inv.ID)
	if err != nil {
		return domain.Invitation{}, err
	}
	defer hashes.Close()
	for hashes.Next() {
		var h string
		if err := hashes.Scan(&h); err != nil {
			return domain.Invitation{}, err
		}
		inv.TokenHashes = append(inv.TokenHashes, h)
	}
	if err := hashes.Err(); err != nil {
		return domain.Invitation{}, err
	}

	grants, err := r.db.QueryContext(ctx, `
		SELECT organization_id, role, created_at FROM invitation_grants
		WHERE invitation_id = ? ORDER BY created_at, organization_id`, inv.ID)
	if err != nil {
		return domain.Invitation{}, err
	}
	defer grants.Close()
	for grants.Next() {
		var g domain.InvitationGrant
		if err := grants.Scan(&g.OrganizationID, &g.Role, &g.CreatedAt); err != nil {
			return domain.Invitation{}, err
		}
		inv.Grants = append(inv.Grants, g)
	}
	return inv, grants.Err()
}

func (r *invitationsRepo) Create(ctx context.Context, inv domain.Invitation) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO invitations (id, email, super_admin) VALUES (?, ?, ?)`,
		inv.ID, inv.Email, inv.SuperAdmin,
	); err != nil {
		return mapConflict(err)
	}

	for i, hash := range inv.TokenHashes {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO invitation_token_hashes (invitation_id, position, token_hash)
			VALUES (?, ?, ?)`,
			inv.ID, i, hash,
		); err != nil {
			return err
		}
	}

	for _, g := range inv.Grants {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO invitation_grants (invitation_id, organization_id, role)
			VALUES (?, ?, ?)`,
			inv.ID, g.OrganizationID, g.Role,
		); err != nil {
			return mapConflict(err)
		}
	}

	return nil
}

func (r *invitationsRepo) AddOrgGrant(ctx context.Context, invitationID, orgID, role, tokenHash string) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO invitation_grants (invitation_id, organization_id, role)
		VALUES (?, ?, ?)`,
		invitationID, orgID, role,
	); err != nil {
		return mapConflict(err)
	}
	return r.appendTokenHash(ctx, invitationID, tokenHash)
}

func (r *invitationsRepo) SetSuperAdmin(ctx context.Context, invitationID, tokenHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations SET super_admin = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, invitationID)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return r.appendTokenHash(ctx, invitationID, tokenHash)
}

func (r *invitationsRepo) ClearSuperAdmin(ctx context.Context, invitationID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations SET super_admin = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND super_admin = 1`, invitationID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// appendTokenHash adds a grant event's hash after the record's current
// highest position, keeping hashes in issue order.
func (r *invitationsRepo) appendTokenHash(ctx context.Context, invitationID, tokenHash string) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO invitation_token_hashes (invitation_id, position, token_hash)
		SELECT ?, COALESCE(MAX(position), -1) + 1, ?
		FROM invitation_token_hashes WHERE invitation_id = ?`,
		invitationID, tokenHash, invitationID,
	); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE invitations SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, invitationID)
	return err
}

func (r *invitationsRepo) RemoveOrgGrant(ctx context.Context, invitationID, orgID, role string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM invitation_grants
		WHERE invitation_id = ? AND organization_id = ? AND role = ?`,
		invitationID, orgID, role)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *invitationsRepo) Delete(ctx context.Context, invitationID string) error {
	// Child rows cascade.
	res, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, invitationID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
