package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/store"
	"github.com/aussiebroadwan/traintab/pkg/cryptox"
	"github.com/aussiebroadwan/traintab/pkg/idx"
	"github.com/aussiebroadwan/traintab/pkg/slogx"
)

// Credential is one generated trainee login, returned with its plaintext
// password so it can be handed to the trainer. The plaintext lives on the
// trainee roster only; the backing user account stores the argon2 hash.
type Credential struct {
	Email    string
	Password string
}

// Provisioner creates and deletes the generated user accounts that back
// trainee roster entries. Account writes go through the store the caller
// passes in, so roster changes and their backing accounts share one
// transaction.
type Provisioner interface {
	// CreateTraineeAccounts mints n accounts that expire at expiresAt.
	CreateTraineeAccounts(ctx context.Context, st store.Store, n int, expiresAt time.Time) ([]Credential, error)

	// DeleteTraineeAccount removes the backing account for a roster entry.
	// Missing accounts are not an error; the roster entry is what matters.
	DeleteTraineeAccount(ctx context.Context, st store.Store, username string) error
}

// StoreProvisioner is the default Provisioner, creating trainee accounts as
// ordinary user rows with the TRAINEE role and an expiry for the
// housekeeping sweep.
type StoreProvisioner struct {
	// MailDomain forms the generated account emails (trainee-<id>@<domain>).
	MailDomain string
}

func (p *StoreProvisioner) CreateTraineeAccounts(ctx context.Context, st store.Store, n int, expiresAt time.Time) ([]Credential, error) {
	log := slogx.FromContext(ctx)

	creds := make([]Credential, 0, n)
	for i := 0; i < n; i++ {
		password, err := cryptox.GeneratePassword()
		if err != nil {
			return nil, err
		}
		hash, err := cryptox.HashPassword(password)
		if err != nil {
			return nil, err
		}

		id := idx.New().String()
		email := fmt.Sprintf("trainee-%s@%s", strings.ToLower(id), p.MailDomain)
		expiry := expiresAt

		user := domain.User{
			ID:            id,
			Email:         email,
			Username:      email,
			Name:          "Trainee",
			PasswordHash:  hash,
			Roles:         []string{domain.RoleTrainee},
			EmailVerified: true,
			ExpiresAt:     &expiry,
		}
		if err := st.Users().CreateUser(ctx, user); err != nil {
			log.Error("failed to create trainee account",
				slog.String("email", email),
				slog.Any("error", err),
			)
			return nil, err
		}

		creds = append(creds, Credential{Email: email, Password: password})
	}

	log.Debug("trainee accounts provisioned",
		slog.Int("count", len(creds)),
		slog.Time("expires_at", expiresAt),
	)
	return creds, nil
}

func (p *StoreProvisioner) DeleteTraineeAccount(ctx context.Context, st store.Store, username string) error {
	user, err := st.Users().GetUserByEmail(ctx, strings.ToLower(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return st.Users().DeleteUser(ctx, user.ID)
}

var _ Provisioner = (*StoreProvisioner)(nil)
