// Package service implements the application's use cases on top of the
// store and the catalog client.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/auth"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/id"
	"github.com/shelfmark/shelfmark-server/internal/mail"
	"github.com/shelfmark/shelfmark-server/internal/store"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

// AuthService handles accounts: registration, login, profile and the
// password reset flow.
type AuthService struct {
	store         *store.Store
	tokens        *auth.TokenService
	validator     *validation.Validator
	mailer        mail.Mailer
	logger        *slog.Logger
	resetTokenTTL time.Duration
	frontendURL   string
}

// NewAuthService creates the auth service.
func NewAuthService(
	s *store.Store,
	tokens *auth.TokenService,
	validator *validation.Validator,
	mailer mail.Mailer,
	logger *slog.Logger,
	resetTokenTTL time.Duration,
	frontendURL string,
) *AuthService {
	return &AuthService{
		store:         s,
		tokens:        tokens,
		validator:     validator,
		mailer:        mailer,
		logger:        logger,
		resetTokenTTL: resetTokenTTL,
		frontendURL:   frontendURL,
	}
}

// RegisterRequest contains new account data.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

// LoginRequest identifies a user by email or username.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// AuthResponse carries a fresh access token and the account it belongs to.
type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates a new account and logs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        domain.NormalizeEmail(req.Email),
		PasswordHash: passwordHash,
		Preferences:  domain.DefaultPreferences(),
		LastLoginAt:  time.Now(),
	}
	user.ID = userID
	user.InitTimestamps()

	// The store's unique indexes arbitrate concurrent registrations.
	if err := s.store.Users.Create(ctx, userID, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("email or username already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", userID, "username", user.Username)

	return s.authResponse(user)
}

// Login authenticates by email or username.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.findByIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.InvalidCredentials("invalid credentials")
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, domainerrors.InvalidCredentials("invalid credentials")
	}

	user.LastLoginAt = time.Now()
	user.Touch()
	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)

	return s.authResponse(user)
}

// Me returns the account for an authenticated user id.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdatePreferences replaces the user's display preferences.
func (s *AuthService) UpdatePreferences(ctx context.Context, userID string, prefs domain.Preferences) (*domain.User, error) {
	if !prefs.FontSize.Valid() {
		return nil, domainerrors.Validationf("invalid font size %q", prefs.FontSize)
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Preferences = prefs
	user.Touch()
	if err := s.store.Users.Update(ctx, userID, user); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return user, nil
}

// UpdateProfileRequest is a partial profile change.
type UpdateProfileRequest struct {
	Username       *string  `json:"username,omitempty" validate:"omitempty,min=3,max=30"`
	Email          *string  `json:"email,omitempty" validate:"omitempty,email"`
	FavoriteGenres []string `json:"favorite_genres,omitempty"`
}

// UpdateProfile applies a partial profile change.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		user.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		user.Email = domain.NormalizeEmail(*req.Email)
	}
	if req.FavoriteGenres != nil {
		user.FavoriteGenres = normalizeGenres(req.FavoriteGenres)
	}

	user.Touch()
	if err := s.store.Users.Update(ctx, userID, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("email or username already in use")
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// ForgotPassword starts the reset flow. The response carries no signal
// about whether the address exists; an unknown address is a silent no-op.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.Users.GetByIndex(ctx, "email", domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("look up user: %w", err)
	}

	raw, hash := auth.GenerateResetToken()
	expiry := time.Now().Add(s.resetTokenTTL)
	user.ResetTokenHash = hash
	user.ResetTokenExpiresAt = &expiry
	user.Touch()

	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetURL := s.frontendURL + "/reset-password?token=" + url.QueryEscape(raw)
	if err := s.mailer.SendPasswordReset(user.Email, resetURL); err != nil {
		// The token is stored; delivery failure shouldn't leak account
		// existence to the caller either.
		s.logger.Error("send password reset email", "user_id", user.ID, "error", err)
	}
	return nil
}

// ResetPasswordRequest completes the reset flow.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

// ResetPassword validates a reset token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	user, err := s.store.Users.GetByIndex(ctx, "resettoken", auth.HashResetToken(req.Token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.Unauthorized("invalid or expired reset token")
		}
		return fmt.Errorf("look up reset token: %w", err)
	}

	if !user.HasActiveResetToken(time.Now()) {
		return domainerrors.TokenExpired("reset token has expired")
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = passwordHash
	user.ClearResetToken()
	user.Touch()

	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info("password reset completed", "user_id", user.ID)
	return nil
}

// findByIdentifier resolves a login identifier as email first, then username.
func (s *AuthService) findByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return s.store.Users.GetByIndex(ctx, "email", domain.NormalizeEmail(identifier))
	}
	return s.store.Users.GetByIndex(ctx, "username", strings.ToLower(identifier))
}

func (s *AuthService) authResponse(user *domain.User) (*AuthResponse, error) {
	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResponse{User: user, Token: token}, nil
}

// normalizeGenres lowercases and dedupes a genre list, preserving order.
func normalizeGenres(genres []string) []string {
	seen := make(map[string]bool, len(genres))
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out
}
