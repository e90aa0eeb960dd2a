package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/shouryamanekar/product-management-backend/internal/core/auth"
	"github.com/shouryamanekar/product-management-backend/internal/core/domain"
	"github.com/shouryamanekar/product-management-backend/internal/core/ports"
	"github.com/shouryamanekar/product-management-backend/internal/pkg/metrics"
	"github.com/shouryamanekar/product-management-backend/internal/pkg/validation"
)

var registerRules = []validation.Rule{
	{Field: "Name", Tag: "required", Err: domain.ErrFieldsRequired},
	{Field: "Email", Tag: "required", Err: domain.ErrFieldsRequired},
	{Field: "Password", Tag: "required", Err: domain.ErrFieldsRequired},
	{Field: "Email", Tag: "email", Err: domain.ErrInvalidEmail},
}

var loginRules = []validation.Rule{
	{Field: "Email", Tag: "required", Err: domain.ErrFieldsRequired},
	{Field: "Password", Tag: "required", Err: domain.ErrFieldsRequired},
}

// AuthService implements registration, login and token verification.
type AuthService struct {
	repo     ports.UserRepository
	tokens   *auth.TokenIssuer
	validate *validation.Validator
	log      zerolog.Logger
	cost     int
}

func NewAuthService(repo ports.UserRepository, tokens *auth.TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		tokens:   tokens,
		validate: validation.New(),
		log:      log,
		cost:     bcrypt.DefaultCost,
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	if err := s.validate.Check(&in, registerRules...); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "invalid").Inc()
		return nil, err
	}

	_, err := s.repo.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		metrics.AuthAttemptsTotal.WithLabelValues("register", "conflict").Inc()
		return nil, domain.ErrUserExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.Internal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, domain.Internal(err)
	}

	now := time.Now().UTC()
	user, err := s.repo.Create(ctx, &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			metrics.AuthAttemptsTotal.WithLabelValues("register", "conflict").Inc()
			return nil, domain.ErrUserExists
		}
		return nil, domain.Internal(err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, domain.Internal(err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return &ports.AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	in.Email = normalizeEmail(in.Email)

	if err := s.validate.Check(&in, loginRules...); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid").Inc()
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.AuthAttemptsTotal.WithLabelValues("login", "rejected").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.Internal(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "rejected").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, domain.Internal(err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return &ports.AuthResult{Token: token, User: user}, nil
}

// VerifyToken is the gate in front of every product operation.
func (s *AuthService) VerifyToken(_ context.Context, token string) (*domain.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrMissingToken
	}
	return s.tokens.Verify(token)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
