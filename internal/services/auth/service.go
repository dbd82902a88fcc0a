package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
	"restaurant-system/internal/repository"
)

// Claims are the JWT claims issued at login
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller of a request
type Principal struct {
	UserID string
	Role   models.Role
}

var errInvalidCredentials = fmt.Errorf("%w: invalid username or password", models.ErrUnauthorized)

type Service struct {
	users   repository.UserRepository
	waiters repository.WaiterRepository
	secret  []byte
	ttl     time.Duration
	logger  *logger.Logger
	now     func() time.Time
}

func NewService(users repository.UserRepository, waiters repository.WaiterRepository, secret string, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		users:   users,
		waiters: waiters,
		secret:  []byte(secret),
		ttl:     ttl,
		logger:  log,
		now:     time.Now,
	}
}

// Login checks admin accounts first, then waiters
func (s *Service) Login(ctx context.Context, req *models.LoginRequest, requestID string) (*models.LoginResponse, error) {
	subject, role, hash, err := s.lookup(ctx, req.UserName)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("login_failed", "Unknown user", requestID, map[string]interface{}{
				"user_name": req.UserName,
			})
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := CheckPassword(hash, req.Password); err != nil {
		s.logger.Warn("login_failed", "Wrong password", requestID, map[string]interface{}{
			"user_name": req.UserName,
		})
		return nil, errInvalidCredentials
	}

	token, expiresAt, err := s.IssueToken(subject, role)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login_succeeded", "User logged in", requestID, map[string]interface{}{
		"user_id": subject,
		"role":    role,
	})

	return &models.LoginResponse{
		Token:     token,
		Role:      role,
		UserID:    subject,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) lookup(ctx context.Context, userName string) (string, models.Role, string, error) {
	user, err := s.users.FindByUserName(ctx, userName)
	if err == nil {
		return user.ID, user.Role, user.PasswordHash, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return "", "", "", fmt.Errorf("find user: %w", err)
	}

	waiter, err := s.waiters.FindByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", "", "", err
		}
		return "", "", "", fmt.Errorf("find waiter: %w", err)
	}
	return waiter.ID, models.RoleWaiter, waiter.PasswordHash, nil
}

// IssueToken signs an HS256 token for the subject
func (s *Service) IssueToken(subject string, role models.Role) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken validates the signature and expiry of a token
func (s *Service) ParseToken(token string) (*Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if claims.Subject == "" || (claims.Role != models.RoleAdmin && claims.Role != models.RoleWaiter) {
		return nil, fmt.Errorf("%w: malformed token claims", models.ErrUnauthorized)
	}
	return &Principal{UserID: claims.Subject, Role: claims.Role}, nil
}

// HashPassword returns the bcrypt hash stored for a password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
