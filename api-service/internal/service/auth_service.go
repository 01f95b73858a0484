package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"game-library-server/shared/models"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService issues admin session tokens.
type AuthService interface {
	// Login verifies the admin credentials and returns a signed session
	// token with its expiry.
	// Returns models.ErrInvalidCredentials on any mismatch.
	Login(ctx context.Context, email, password string) (string, time.Time, error)
}

type authService struct {
	email        string
	passwordHash []byte
	secret       string
	ttl          time.Duration
	logger       *zap.Logger
}

// Compile-time check
var _ AuthService = (*authService)(nil)

// NewAuthService creates an AuthService for the single configured admin.
// The plaintext password is hashed once here and discarded.
func NewAuthService(email, password, secret string, ttl time.Duration, logger *zap.Logger) (AuthService, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	return &authService{
		email:        email,
		passwordHash: hash,
		secret:       secret,
		ttl:          ttl,
		logger:       logger.Named("AuthService"),
	}, nil
}

func (s *authService) Login(_ context.Context, email, password string) (string, time.Time, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1
	passwordOK := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil
	if !emailOK || !passwordOK {
		s.logger.Warn("Failed admin login attempt", zap.String("email", email))
		return "", time.Time{}, models.ErrInvalidCredentials
	}

	claims := models.NewAdminClaims(s.email, s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}
