package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crumbhouse/bakery-backend/internal/users"
	pkgAuth "github.com/crumbhouse/bakery-backend/pkg/auth"
	"github.com/crumbhouse/bakery-backend/pkg/config"
	"github.com/crumbhouse/bakery-backend/pkg/db/dbtest"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
	pkgerrors "github.com/crumbhouse/bakery-backend/pkg/errors"
	"github.com/crumbhouse/bakery-backend/pkg/security"
)

var (
	testJWT = config.JWTConfig{Secret: "secret", Issuer: "bakery", ExpirationMinutes: 30}
	testNow = time.Now().UTC().Truncate(time.Second)
)

func newTestService(t *testing.T, passwordCfg config.PasswordConfig) (Service, *users.Repository) {
	t.Helper()
	repo := users.NewRepository(dbtest.Open(t))
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		JWTConfig:      testJWT,
		PasswordConfig: passwordCfg,
		Now:            func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return svc, repo
}

func fastArgon() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

func TestRegisterIssuesCustomerToken(t *testing.T) {
	svc, _ := newTestService(t, fastArgon())

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Meera",
		Email:    "  Meera@Example.com ",
		Password: "croissant42",
	})
	require.NoError(t, err)
	assert.Equal(t, "meera@example.com", resp.User.Email)
	assert.Equal(t, enums.UserRoleCustomer, resp.User.Role)
	assert.Equal(t, testNow.Add(30*time.Minute), resp.ExpiresAt)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, enums.UserRoleCustomer, claims.Role)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t, fastArgon())
	req := RegisterRequest{Name: "A", Email: "a@example.com", Password: "password1"}

	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newTestService(t, fastArgon())
	_, err := svc.Register(context.Background(), RegisterRequest{Name: "A", Email: "a@example.com", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRegisterAdminSetsRole(t *testing.T) {
	svc, _ := newTestService(t, fastArgon())
	user, err := svc.RegisterAdmin(context.Background(), RegisterRequest{Name: "Ops", Email: "ops@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, user.Role)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t, fastArgon())
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Name: "B", Email: "b@example.com", Password: "sourdough"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, LoginRequest{Email: "B@example.com", Password: "sourdough"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	require.NotNil(t, resp.User.LastLoginAt)

	for _, bad := range []LoginRequest{
		{Email: "b@example.com", Password: "wrong-pass"},
		{Email: "nobody@example.com", Password: "sourdough"},
		{Email: " ", Password: "sourdough"},
	} {
		_, err := svc.Login(ctx, bad)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
	}
}

func TestLoginRehashesWeakHashes(t *testing.T) {
	svc, repo := newTestService(t, fastArgon())
	ctx := context.Background()

	weak, err := security.HashPassword("baguette1", config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1})
	require.NoError(t, err)
	user, err := repo.Create(ctx, users.CreateUserDTO{Email: "c@example.com", PasswordHash: weak, Name: "C"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "c@example.com", Password: "baguette1"})
	require.NoError(t, err)

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, weak, reloaded.PasswordHash)
	assert.False(t, security.NeedsRehash(reloaded.PasswordHash, fastArgon()))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{JWTConfig: testJWT})
	require.Error(t, err)
	_, err = NewService(ServiceParams{UserRepo: users.NewRepository(nil)})
	require.Error(t, err)
}
