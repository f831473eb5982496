package service

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/librisventures/authorhash/internal/auth"
	"github.com/librisventures/authorhash/internal/config"
	"github.com/librisventures/authorhash/internal/database"
	"github.com/librisventures/authorhash/internal/database/models"
)

// UserService handles operator accounts for the admin surface
type UserService struct {
	db  *database.Database
	cfg *config.Config
}

// NewUserService creates a new user service
func NewUserService(db *database.Database, cfg *config.Config) *UserService {
	return &UserService{
		db:  db,
		cfg: cfg,
	}
}

// IsSetupComplete checks whether an operator account exists yet
func (s *UserService) IsSetupComplete() (bool, error) {
	return s.db.IsSetupComplete()
}

// SetupRequest represents initial setup request
type SetupRequest struct {
	Username string
	Password string
}

// SetupResponse contains setup response data
type SetupResponse struct {
	User  *models.User
	Token string
}

// PerformInitialSetup creates the first operator account and logs it in
func (s *UserService) PerformInitialSetup(req *SetupRequest) (*SetupResponse, error) {
	isComplete, err := s.db.IsSetupComplete()
	if err != nil {
		return nil, fmt.Errorf("failed to check setup status: %w", err)
	}
	if isComplete {
		return nil, fmt.Errorf("setup already complete")
	}

	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return nil, fmt.Errorf("weak password: %w", err)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		Role:         "admin",
		CreatedAt:    time.Now(),
	}

	if err := s.db.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := auth.GenerateToken(
		user.ID,
		user.Username,
		user.Role,
		s.cfg.JWT.Secret,
		s.cfg.JWT.Issuer,
		s.cfg.JWT.Expiration,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &SetupResponse{
		User:  user,
		Token: token,
	}, nil
}

// AuthenticateUser authenticates an operator and returns a JWT token
func (s *UserService) AuthenticateUser(username, password string) (string, error) {
	user, err := s.db.GetUserByUsername(username)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("invalid credentials")
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token, err := auth.GenerateToken(
		user.ID,
		user.Username,
		user.Role,
		s.cfg.JWT.Secret,
		s.cfg.JWT.Issuer,
		s.cfg.JWT.Expiration,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return token, nil
}
