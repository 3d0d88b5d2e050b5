package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larder/larder/internal/auth"
	"github.com/larder/larder/internal/metrics"
	"github.com/larder/larder/internal/model"
	"github.com/larder/larder/internal/testutil/memstore"
)

const strongPassword = "Sup3r$ecret"

var cheapParams = auth.PasswordParams{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 16}

type accountFixture struct {
	svc     *AccountService
	store   *memstore.Store
	cache   *memstore.Cache
	issuer  *auth.TokenIssuer
	metrics *metrics.InMemoryRecorder
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	store := memstore.New()
	sessions := memstore.NewCache()
	issuer := auth.NewTokenIssuer("test-secret-0123456789abcdef", time.Hour)
	recorder := metrics.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewAccountService(store, issuer, sessions, recorder, logger)
	svc.hash = func(p string) (string, error) {
		return auth.HashPasswordWithParams(p, cheapParams)
	}

	return &accountFixture{svc: svc, store: store, cache: sessions, issuer: issuer, metrics: recorder}
}

func TestAccountServiceRegister(t *testing.T) {
	f := newAccountFixture(t)

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Username: " chef ",
		Email:    "chef@example.com",
		Password: strongPassword,
	})
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "chef", user.Username)
	assert.NotEqual(t, strongPassword, user.PasswordHash)

	ok, err := auth.VerifyPassword(strongPassword, user.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, uint64(1), f.metrics.Snapshot().UsersRegistered)
}

func TestAccountServiceRegisterChecks(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Username: "taken", Email: "taken@example.com", Password: strongPassword})
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{"missing_all", RegisterInput{}, ErrMissingUsername},
		{"missing_email", RegisterInput{Username: "a"}, ErrMissingEmail},
		{"missing_password", RegisterInput{Username: "a", Email: "a@example.com"}, ErrMissingPassword},
		{
			"username_before_weak_password",
			RegisterInput{Username: "taken", Email: "new@example.com", Password: "weak"},
			ErrUsernameExists,
		},
		{
			"email_taken",
			RegisterInput{Username: "fresh", Email: "taken@example.com", Password: "weak"},
			ErrEmailExists,
		},
		{
			"weak_password",
			RegisterInput{Username: "fresh", Email: "fresh@example.com", Password: "password"},
			ErrWeakPassword,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, test.input)
			require.ErrorIs(t, err, test.wantErr)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestAccountServiceLogin(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	registered, err := f.svc.Register(ctx, RegisterInput{Username: "chef", Email: "chef@example.com", Password: strongPassword})
	require.NoError(t, err)

	result, err := f.svc.Login(ctx, "chef@example.com", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, result.User.ID)
	require.NotNil(t, result.Token)

	ac, err := f.issuer.Verify(result.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, ac.UserID)
	assert.Equal(t, result.Token.ID, ac.TokenID)
}

func TestAccountServiceLoginFailures(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Username: "chef", Email: "chef@example.com", Password: strongPassword})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "", strongPassword)
	require.ErrorIs(t, err, ErrMissingCredentials)

	_, err = f.svc.Login(ctx, "chef@example.com", "")
	require.ErrorIs(t, err, ErrMissingCredentials)

	_, err = f.svc.Login(ctx, "chef@example.com", "Wr0ng!pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody@example.com", strongPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, uint64(2), f.metrics.Snapshot().LoginsFailed)
}

func TestAccountServiceLogout(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	ac := &model.AuthContext{UserID: 1, TokenID: "01HZZZTESTTOKEN", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, f.svc.Logout(ctx, ac))

	revoked, err := f.cache.IsTokenRevoked(ctx, ac.TokenID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAccountServiceLogoutStoreDown(t *testing.T) {
	f := newAccountFixture(t)
	f.cache.Err = errors.New("redis down")

	err := f.svc.Logout(context.Background(), &model.AuthContext{TokenID: "x"})
	require.Error(t, err)
}

func TestAccountServiceProfile(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, RegisterInput{Username: "chef", Email: "chef@example.com", Password: strongPassword})
	require.NoError(t, err)

	got, err := f.svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "chef", got.Username)

	_, err = f.svc.Profile(ctx, 999)
	require.ErrorIs(t, err, ErrUserNotFound)
}
