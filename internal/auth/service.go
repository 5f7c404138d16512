package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/suryanarayanrenjith/stock-portfolio/internal/config"
	"github.com/suryanarayanrenjith/stock-portfolio/internal/models"
)

// Service implements signup, login and session management.
type Service struct {
	db       *gorm.DB
	sessions SessionStore
	logger   *zap.Logger
	secret   []byte
	ttl      time.Duration
}

// NewService creates an auth service.
func NewService(db *gorm.DB, sessions SessionStore, logger *zap.Logger, cfg *config.Auth) *Service {
	return &Service{
		db:       db,
		sessions: sessions,
		logger:   logger,
		secret:   []byte(cfg.JWTSecret),
		ttl:      time.Duration(cfg.SessionTTLHours) * time.Hour,
	}
}

// Signup creates a new user with a bcrypt-hashed password. The username/email
// pre-check is only a fast path; the unique indexes on users are
// authoritative, so a concurrent duplicate that slips past the pre-check is
// still reported as ErrDuplicateIdentity at commit time.
func (s *Service) Signup(ctx context.Context, username, email, password, passwordConfirmation string) error {
	if password != passwordConfirmation {
		return ErrPasswordMismatch
	}

	var existing models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", username, email).
		First(&existing).Error
	if err == nil {
		return ErrDuplicateIdentity
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", zap.String("username", username))
	return nil
}

// Login verifies the credentials and establishes a session. The returned
// token is a signed JWT that is also registered in the session store so that
// Logout can revoke it.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(s.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.sessions.Put(ctx, token, user.ID, s.ttl); err != nil {
		return "", nil, err
	}

	s.logger.Info("user logged in", zap.Uint("user_id", user.ID))
	return token, &user, nil
}

// Logout revokes the session unconditionally. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a token to the user it was issued for. The token
// must carry a valid signature and expiry and still be present in the
// session store (i.e. not logged out).
func (s *Service) Authenticate(ctx context.Context, tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrUnauthenticated
	}
	id, ok := claims["user_id"].(float64)
	if !ok {
		return 0, ErrUnauthenticated
	}

	userID, err := s.sessions.Get(ctx, tokenString)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return 0, ErrUnauthenticated
		}
		return 0, err
	}
	if userID != uint(id) {
		return 0, ErrUnauthenticated
	}
	return userID, nil
}
