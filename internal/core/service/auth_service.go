package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartrent/rental-api/internal/api/metrics"
	"github.com/smartrent/rental-api/internal/core/domain"
	"github.com/smartrent/rental-api/internal/core/ports"
)

// TokenTTL is the fixed validity of every issued token.
const TokenTTL = 7 * 24 * time.Hour

// dummyHash is compared against when the email is unknown so that both login
// failure paths spend the same bcrypt work.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return h
})

// AuthService implements signup and login.
type AuthService struct {
	repo      ports.UserRepository
	jwtSecret string
	logger    zerolog.Logger
	now       func() time.Time
}

func NewAuthService(repo ports.UserRepository, jwtSecret string, logger zerolog.Logger) *AuthService {
	return &AuthService{repo: repo, jwtSecret: jwtSecret, logger: logger, now: time.Now}
}

func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	user, err := normalizeSignup(in, s.now().UTC())
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("signup", "failure").Inc()
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, user.Email); err == nil {
		metrics.AuthAttemptsTotal.WithLabelValues("signup", "failure").Inc()
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("signup", "failure").Inc()
		return nil, err
	}

	token, err := s.generateToken(created)
	if err != nil {
		return nil, err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("signup", "success").Inc()
	s.logger.Info().Str("user_id", created.ID).Str("role", created.Role).Msg("user signed up")

	return &ports.AuthResult{Token: token, User: created}, nil
}

// Login returns domain.ErrInvalidCredentials for every credential failure so
// callers cannot tell an unknown email from a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return &ports.AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(TokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

// normalizeSignup validates a signup request and returns the record to
// persist, with the password already hashed.
func normalizeSignup(in ports.SignupInput, now time.Time) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.Password == "" {
		return nil, domain.NewValidationError("name, email and password are required")
	}

	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.ValidRole(role) {
		return nil, domain.NewValidationError("role must be user or landlord")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, domain.NewValidationError("password must not exceed 72 bytes")
		}
		return nil, err
	}

	return &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Documents:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
