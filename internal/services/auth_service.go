package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/auth"
	"github.com/baharkarakas/shop-backend/internal/metrics"
	"github.com/baharkarakas/shop-backend/internal/models"
	repo "github.com/baharkarakas/shop-backend/internal/repository"
)

// AuthResult is what signup and signin hand back to the caller.
type AuthResult struct {
	Token     string            `json:"token"`
	User      models.PublicUser `json:"user"`
	ExpiresAt time.Time         `json:"-"`
}

type AuthService struct {
	users   repo.Users
	tm      *auth.TokenManager
	isAdmin func(email string) bool
	audit   *Auditor
	log     *slog.Logger
	now     func() time.Time
}

func NewAuthService(users repo.Users, tm *auth.TokenManager, isAdmin func(string) bool, audit *Auditor, log *slog.Logger) *AuthService {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &AuthService{users: users, tm: tm, isAdmin: isAdmin, audit: audit, log: log, now: time.Now}
}

func (s *AuthService) Signup(ctx context.Context, in models.SignupInput) (AuthResult, error) {
	if err := in.Validate(); err != nil {
		return AuthResult{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, err
	}
	role := models.RoleUser
	if s.isAdmin(in.Email) {
		role = models.RoleAdmin
	}
	u, err := s.users.CreateWithBasket(ctx, models.NewUser(in, hash, role, s.now()))
	if err != nil {
		if !errors.Is(err, apperr.ErrConflict) {
			s.log.Error("signup failed", "err", err)
		}
		return AuthResult{}, fmt.Errorf("signup: %w", err)
	}
	metrics.SignupsTotal.Inc()
	s.log.Info("user signed up", "user_id", u.ID, "role", u.Role)
	s.audit.Record("user", u.ID, "signup", u.ID, map[string]any{"role": string(u.Role)})
	return s.issue(u)
}

// Signin reports the same error for an unknown email and a wrong password.
func (s *AuthService) Signin(ctx context.Context, email, password string) (AuthResult, error) {
	if email == "" || password == "" {
		return AuthResult{}, apperr.Invalid("Email and password required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return AuthResult{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("signin: %w", err)
	}
	ok, err := auth.VerifyPassword(password, u.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, apperr.ErrInvalidCredentials
	}
	return s.issue(u)
}

// Me resolves the token subject to its public view.
func (s *AuthService) Me(ctx context.Context, claims *auth.Claims) (models.PublicUser, error) {
	if claims == nil {
		return models.PublicUser{}, apperr.ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return models.PublicUser{}, fmt.Errorf("me: %w", err)
	}
	return u.Public(), nil
}

func (s *AuthService) issue(u models.User) (AuthResult, error) {
	tok, exp, err := s.tm.Issue(u)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: tok, User: u.Public(), ExpiresAt: exp}, nil
}
