package service

import (
	"context"
	"errors"
	"fmt"

	"clinic_backend/internal/model"
	"clinic_backend/internal/repository"
	"clinic_backend/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthService provides authentication related services
type AuthService interface {
	Login(ctx context.Context, username, password string) (*model.Account, string, error)
	Logout(ctx context.Context, identity model.Identity) error
	ResetPassword(ctx context.Context, username string) error
	CreateAdmin(ctx context.Context, username, password string) (*model.Account, error)
}

type authService struct {
	accounts        repository.AccountRepository
	jwtUtil         *utils.JWTUtil
	defaultPassword string
	logger          *zap.Logger
}

// NewAuthService creates a new AuthService. defaultPassword is the temporary
// password given to reset and auto-provisioned accounts.
func NewAuthService(accounts repository.AccountRepository, jwtUtil *utils.JWTUtil, defaultPassword string, logger *zap.Logger) AuthService {
	return &authService{
		accounts:        accounts,
		jwtUtil:         jwtUtil,
		defaultPassword: defaultPassword,
		logger:          logger,
	}
}

// Login authenticates an account and returns a signed session token.
func (s *authService) Login(ctx context.Context, username, password string) (*model.Account, string, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, "", fmt.Errorf("error finding account by username: %w", err)
	}
	if account == nil {
		// Burn a comparison so unknown usernames cost about as much as wrong passwords.
		utils.CheckPasswordHash(password, dummyHash)
		return nil, "", ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(password, account.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwtUtil.GenerateToken(account.ID, account.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return account, token, nil
}

// Logout only acknowledges the request. Tokens are stateless and stay valid
// until they expire; the client is responsible for discarding them. identity
// is the zero value when the caller sent no usable token.
func (s *authService) Logout(ctx context.Context, identity model.Identity) error {
	if identity.AccountID != uuid.Nil {
		s.logger.Debug("logout acknowledged", zap.String("account_id", identity.AccountID.String()))
	}
	return nil
}

// ResetPassword sets the account's password back to the default temporary one.
func (s *authService) ResetPassword(ctx context.Context, username string) error {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("error finding account by username: %w", err)
	}
	if account == nil {
		return ErrNotFound
	}

	hash, err := utils.HashPassword(s.defaultPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.logger.Info("password reset", zap.String("username", username))
	return nil
}

// CreateAdmin creates an admin account. Admin accounts never carry a profile.
func (s *authService) CreateAdmin(ctx context.Context, username, password string) (*model.Account, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{
		Username:     username,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create admin account: %w", err)
	}

	s.logger.Info("admin account created", zap.String("username", username))
	return account, nil
}

// dummyHash is compared against on unknown usernames.
var dummyHash, _ = utils.HashPassword("no-such-account")
