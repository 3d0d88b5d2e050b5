package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/larder/larder/internal/auth"
	"github.com/larder/larder/internal/metrics"
	"github.com/larder/larder/internal/model"
	"github.com/larder/larder/internal/repository"
)

// UserStore is the persistence the account service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID int64) (*auth.IssuedToken, error)
}

// TokenRevoker denylists access tokens on logout.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// AccountService handles registration, login and logout.
type AccountService struct {
	users   UserStore
	tokens  TokenIssuer
	revoker TokenRevoker
	hash    func(string) (string, error)
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(users UserStore, tokens TokenIssuer, revoker TokenRevoker, recorder metrics.Recorder, logger *slog.Logger) *AccountService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		users:   users,
		tokens:  tokens,
		revoker: revoker,
		hash:    auth.HashPassword,
		metrics: recorder,
		logger:  logger,
	}
}

// RegisterInput defines input for registration.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates an account. Checks run in order: missing username, email,
// password, then username taken, email taken, then password strength.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	switch {
	case username == "":
		return nil, ErrMissingUsername
	case email == "":
		return nil, ErrMissingEmail
	case in.Password == "":
		return nil, ErrMissingPassword
	}

	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameExists
	}

	taken, err = s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailExists
	}

	if !auth.IsStrongPassword(in.Password) {
		return nil, ErrWeakPassword
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameExists
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailExists
		}
		return nil, err
	}

	s.metrics.IncUserRegistered()
	s.logger.Info("user_registered", "user_id", user.ID)

	return user, nil
}

// LoginResult is a successful login.
type LoginResult struct {
	User  *model.User
	Token *auth.IssuedToken
}

// Login verifies credentials and issues an access token.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.BurnPasswordCheck(password)
			s.metrics.IncLoginFailed()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash unreadable", "user_id", user.ID, "error", err)
	}
	if !ok {
		s.metrics.IncLoginFailed()
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user_logged_in", "user_id", user.ID)
	return &LoginResult{User: user, Token: token}, nil
}

// Logout revokes the token the caller authenticated with.
func (s *AccountService) Logout(ctx context.Context, ac *model.AuthContext) error {
	if err := s.revoker.RevokeToken(ctx, ac.TokenID, ac.ExpiresAt); err != nil {
		return err
	}
	s.logger.Info("user_logged_out", "user_id", ac.UserID)
	return nil
}

// Profile returns the authenticated user.
func (s *AccountService) Profile(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
