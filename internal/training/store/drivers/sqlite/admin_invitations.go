package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
)

type adminInvitationsRepo struct {
	db dbtx
}

func (r *adminInvitationsRepo) Create(ctx context.Context, inv domain.AdminInvitation) error {
	// Clear any stale (expired, unaccepted) row first so the partial unique
	// index only ever blocks a genuinely pending invitation.
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM admin_invitations
		WHERE email = ? AND accepted_at IS NULL AND expires_at <= CURRENT_TIMESTAMP`,
		inv.Email,
	); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_invitations (id, email, token_hash, expires_at)
		VALUES (?, ?, ?, ?)`,
		inv.ID, inv.Email, inv.TokenHash, inv.ExpiresAt.UTC(),
	)
	return mapConflict(err)
}

func (r *adminInvitationsRepo) GetPendingByEmail(
	ctx context.Context,
	email string,
	now time.Time,
) (domain.AdminInvitation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, token_hash, expires_at, accepted_at, created_at
		FROM admin_invitations
		WHERE email = ? AND accepted_at IS NULL AND expires_at > ?`,
		email, now.UTC(),
	)

	var (
		inv        domain.AdminInvitation
		acceptedAt sql.NullTime
	)
	err := row.Scan(&inv.ID, &inv.Email, &inv.TokenHash, &inv.ExpiresAt, &acceptedAt, &inv.CreatedAt)
	if err != nil {
		return domain.AdminInvitation{}, mapNotFound(err)
	}
	inv.AcceptedAt = mapNullTimePtr(acceptedAt)
	return inv, nil
}

func (r *adminInvitationsRepo) DeleteByEmail(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM admin_invitations WHERE email = ?`, email)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *adminInvitationsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM admin_invitations
		WHERE accepted_at IS NULL AND expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
