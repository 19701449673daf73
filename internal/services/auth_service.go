package services

import (
	"context"
	"errors"

	"github.com/nightcrane/lotterybot/internal/config"
	"github.com/nightcrane/lotterybot/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when the admin password does not match
var ErrInvalidCredentials = errors.New("invalid credentials")

// Compile-time check to ensure AuthServiceImpl implements AuthService
var _ AuthService = (*AuthServiceImpl)(nil)

// AuthServiceImpl issues JWTs for the admin API. There is a single operator
// account configured by password hash; no user store is involved.
type AuthServiceImpl struct {
	cfg *config.Config
}

// NewAuthService creates a new AuthServiceImpl
func NewAuthService(cfg *config.Config) *AuthServiceImpl {
	return &AuthServiceImpl{cfg: cfg}
}

// Login checks the admin password and returns a signed token
func (s *AuthServiceImpl) Login(ctx context.Context, password string) (string, error) {
	if s.cfg.Admin.PasswordHash == "" {
		return "", errors.New("admin API login is not configured")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.Admin.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return utils.GenerateJWT("admin", "admin", s.cfg)
}
