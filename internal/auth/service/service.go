package service

import (
	"context"
	"time"

	"crm_backend/internal/auth/password"
	"crm_backend/internal/auth/repository"
	"crm_backend/platform/apperr"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const accessTokenType = "access"

// Roles a user account can carry. New registrations get RoleAdmin: every
// registered account owns its own board and contact book.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleAgent   = "agent"
)

type Service struct {
	repo repository.AuthRepository
	cfg  config.AuthServiceConfig
	log  *logger.Logger
}

func New(repo repository.AuthRepository, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log}
}

// Profile is the authenticated user's own account view.
type Profile struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Role      string
	CreatedAt time.Time
}

func (s *Service) Register(ctx context.Context, email, plainPassword, name string) (Profile, string, error) {
	const op = "auth.service.Register"

	hash, err := password.Hash(plainPassword)
	if err != nil {
		return Profile{}, "", apperr.Wrap(apperr.KindInternal, "hash password", err).WithOp(op)
	}

	user, err := s.repo.CreateUser(ctx, email, hash, name, RoleAdmin)
	if err != nil {
		return Profile{}, "", err
	}

	s.log.AuthEvent("register", user.Email, true, "")

	token, err := s.signAccessToken(user)
	if err != nil {
		return Profile{}, "", err
	}
	return profileOf(user), token, nil
}

func (s *Service) Login(ctx context.Context, email, plainPassword string) (Profile, string, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		// Same response for unknown email and bad password.
		s.log.AuthEvent("login", email, false, "unknown email")
		return Profile{}, "", apperr.Unauthorized("invalid credentials")
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("login", email, false, "bad password")
		return Profile{}, "", apperr.Unauthorized("invalid credentials")
	}

	if !user.IsActive {
		s.log.AuthEvent("login", email, false, "account disabled")
		return Profile{}, "", apperr.Forbidden("account disabled")
	}

	s.log.AuthEvent("login", email, true, "")

	token, err := s.signAccessToken(user)
	if err != nil {
		return Profile{}, "", err
	}
	return profileOf(user), token, nil
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return profileOf(user), nil
}

// SeedAdmin provisions the bootstrap admin account at startup when
// credentials are configured. A no-op when the account already exists.
func (s *Service) SeedAdmin(ctx context.Context, cfg config.SeedConfig) error {
	email := cfg.GetAdminEmail()
	if email == "" || cfg.GetAdminPassword() == "" {
		return nil
	}

	hash, err := password.Hash(cfg.GetAdminPassword())
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "hash seed password", err).WithOp("auth.service.SeedAdmin")
	}
	return s.repo.EnsureAdmin(ctx, email, hash, "Administrator")
}

func (s *Service) signAccessToken(user repository.User) (string, error) {
	const op = "auth.service.signAccessToken"

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"type": accessTokenType,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "sign token", err).WithOp(op)
	}
	return signed, nil
}

func profileOf(user repository.User) Profile {
	return Profile{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
