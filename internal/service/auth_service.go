package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/authenticity-service/internal/auth"
	"github.com/spec-kit/authenticity-service/internal/config"
	"github.com/spec-kit/authenticity-service/internal/domain"
	"github.com/spec-kit/authenticity-service/internal/repository"
)

// AuthService coordinates admin login for the issuance and reporting surface.
type AuthService struct {
	admins     repository.AdminRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
	seedEmail  string
	seedPass   string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, admins repository.AdminRepository, logger *zap.Logger) *AuthService {
	return &AuthService{
		admins:     admins,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
		seedEmail:  cfg.Auth.SeedAdminEmail,
		seedPass:   cfg.Auth.SeedAdminPassword,
	}
}

// TokenManager exposes the JWT manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// SeedAdmin creates the initial operator account when the table is empty and
// seed credentials are configured.
func (s *AuthService) SeedAdmin(ctx context.Context) error {
	if s.seedEmail == "" || s.seedPass == "" {
		return nil
	}
	count, err := s.admins.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := auth.HashPassword(s.seedPass, s.bcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.AdminUser{
		Name:         "admin",
		Email:        s.seedEmail,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("seeded admin account", zap.String("email", admin.Email))
	return nil
}

// Login authenticates an operator and returns a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.AdminUser, string, time.Time, error) {
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, errors.New("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if !admin.Active {
		return nil, "", time.Time{}, errors.New("account inactive")
	}
	if err := auth.ComparePassword(admin.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errors.New("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(admin.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return admin, token, exp, nil
}

// ChangePassword updates the caller's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, adminID, current, next string) error {
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(admin.PasswordHash, current); err != nil {
		return errors.New("invalid credentials")
	}
	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return err
	}
	admin.PasswordHash = hash
	return s.admins.Update(ctx, admin)
}
