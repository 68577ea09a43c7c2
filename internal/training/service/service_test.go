package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/store"
	"github.com/aussiebroadwan/traintab/internal/training/store/drivers/sqlite"
	"github.com/aussiebroadwan/traintab/pkg/cryptox"
	"github.com/aussiebroadwan/traintab/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "traintab-service-test-pepper")
	cryptox.SetPepperPath(pepperPath)
	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

// recordMailer captures outgoing mail so tests can redeem the tokens that
// would otherwise only exist in a mailbox.
type recordMailer struct {
	adminTokens map[string]string // email -> token
	orgTokens   map[string][]string
	granted     []string
}

func newRecordMailer() *recordMailer {
	return &recordMailer{
		adminTokens: make(map[string]string),
		orgTokens:   make(map[string][]string),
	}
}

func (m *recordMailer) SendAdminInvitation(_ context.Context, email, token string) error {
	m.adminTokens[email] = token
	return nil
}

func (m *recordMailer) SendOrgInvitation(_ context.Context, email, _, _, token string) error {
	m.orgTokens[email] = append(m.orgTokens[email], token)
	return nil
}

func (m *recordMailer) SendRoleGranted(_ context.Context, email, _, _ string) error {
	m.granted = append(m.granted, email)
	return nil
}

func createTestUser(t *testing.T, st store.Store, email string, roles ...string) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword("correct horse battery")
	require.NoError(t, err)

	if len(roles) == 0 {
		roles = []string{domain.RoleUser}
	}
	user := domain.User{
		ID:            idx.New().String(),
		Email:         email,
		Username:      email,
		Name:          "Test User",
		PasswordHash:  hash,
		Roles:         roles,
		EmailVerified: true,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))
	return user
}

func createTestOrg(t *testing.T, st store.Store, name string) domain.TrainingOrganization {
	t.Helper()

	org := domain.TrainingOrganization{ID: idx.New().String(), Name: name}
	require.NoError(t, st.Organizations().Create(context.Background(), org))
	return org
}

func testLogger() *slog.Logger {
	return slog.Default()
}
