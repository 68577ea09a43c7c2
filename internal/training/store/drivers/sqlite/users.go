package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, username, name, password_hash, roles, email_verified, expires_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u         domain.User
		roles     string
		expiresAt sql.NullTime
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.Name,
		&u.PasswordHash,
		&roles,
		&u.EmailVerified,
		&expiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.Roles = splitRoles(roles)
	u.ExpiresAt = mapNullTimePtr(expiresAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, name, password_hash, roles, email_verified, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Email,
		u.Username,
		u.Name,
		u.PasswordHash,
		joinRoles(u.Roles),
		u.EmailVerified,
		mapOptionalTime(u.ExpiresAt),
	)
	return mapConflict(err)
}

func (r *usersRepo) UpdateRoles(ctx context.Context, userID string, roles []string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET roles = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		joinRoles(roles), userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *usersRepo) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	// roles is a space-delimited set; pad both sides so LIKE matches whole
	// tokens only.
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE ' ' || roles || ' ' LIKE '% ' || ? || ' %'
		ORDER BY created_at DESC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *usersRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE expires_at IS NOT NULL AND expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
