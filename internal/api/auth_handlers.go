package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "register",
		Method:      http.MethodPost,
		Path:        "/api/auth/register",
		Summary:     "Register new account",
		Description: "Creates an account and returns an access token",
		Tags:        []string{"Authentication"},
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/auth/login",
		Summary:     "Log in",
		Description: "Authenticates by email or username and returns an access token",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/auth/me",
		Summary:     "Current account",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMe)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePreferences",
		Method:      http.MethodPut,
		Path:        "/api/auth/preferences",
		Summary:     "Update display preferences",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdatePreferences)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProfile",
		Method:      http.MethodPut,
		Path:        "/api/auth/profile",
		Summary:     "Update profile",
		Description: "Partial update of username, email and favorite genres",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "forgotPassword",
		Method:      http.MethodPost,
		Path:        "/api/auth/forgot-password",
		Summary:     "Request a password reset",
		Description: "Sends a reset link when the email is known. Always returns success.",
		Tags:        []string{"Authentication"},
	}, s.handleForgotPassword)

	huma.Register(s.api, huma.Operation{
		OperationID: "resetPassword",
		Method:      http.MethodPost,
		Path:        "/api/auth/reset-password",
		Summary:     "Reset password",
		Description: "Sets a new password using a reset token from email",
		Tags:        []string{"Authentication"},
	}, s.handleResetPassword)
}

// === DTOs ===

// UserResponse is the public view of an account.
type UserResponse struct {
	ID             string             `json:"id" doc:"User ID"`
	Username       string             `json:"username"`
	Email          string             `json:"email"`
	FavoriteGenres []string           `json:"favorite_genres"`
	Preferences    domain.Preferences `json:"preferences"`
	CreatedAt      time.Time          `json:"created_at"`
	LastLoginAt    time.Time          `json:"last_login_at,omitzero"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FavoriteGenres: u.FavoriteGenres,
		Preferences:    u.Preferences,
		CreatedAt:      u.CreatedAt,
		LastLoginAt:    u.LastLoginAt,
	}
}

// AuthData carries a token and the account it belongs to.
type AuthData struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token" doc:"PASETO access token"`
}

// AuthOutput wraps an auth response for Huma.
type AuthOutput struct {
	Body struct {
		Success bool     `json:"success"`
		Data    AuthData `json:"data"`
	}
}

// UserOutput wraps a single-account response for Huma.
type UserOutput struct {
	Body struct {
		Success bool         `json:"success"`
		Data    UserResponse `json:"data"`
	}
}

// MessageOutput wraps a plain confirmation message.
type MessageOutput struct {
	Body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
}

// RegisterInput wraps the registration request for Huma.
type RegisterInput struct {
	Body service.RegisterRequest
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body service.LoginRequest
}

// PreferencesInput wraps a display preferences update for Huma. Every
// field is optional; omitted booleans fall back to false and an omitted
// font size falls back to medium.
type PreferencesInput struct {
	Body struct {
		DarkMode      bool            `json:"dark_mode,omitempty"`
		FontSize      domain.FontSize `json:"font_size,omitempty"`
		ReducedMotion bool            `json:"reduced_motion,omitempty"`
		HighContrast  bool            `json:"high_contrast,omitempty"`
	}
}

// ProfileInput wraps a partial profile update for Huma.
type ProfileInput struct {
	Body service.UpdateProfileRequest
}

// ForgotPasswordInput wraps a reset request for Huma.
type ForgotPasswordInput struct {
	Body struct {
		Email string `json:"email"`
	}
}

// ResetPasswordInput wraps a reset completion for Huma.
type ResetPasswordInput struct {
	Body service.ResetPasswordRequest
}

// === Handlers ===

func authOutput(resp *service.AuthResponse) *AuthOutput {
	out := &AuthOutput{}
	out.Body.Success = true
	out.Body.Data = AuthData{User: toUserResponse(resp.User), Token: resp.Token}
	return out
}

func userOutput(u *domain.User) *UserOutput {
	out := &UserOutput{}
	out.Body.Success = true
	out.Body.Data = toUserResponse(u)
	return out
}

func messageOutput(msg string) *MessageOutput {
	out := &MessageOutput{}
	out.Body.Success = true
	out.Body.Message = msg
	return out
}

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Register(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return authOutput(resp), nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Login(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return authOutput(resp), nil
}

func (s *Server) handleMe(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userOutput(user), nil
}

func (s *Server) handleUpdatePreferences(ctx context.Context, input *PreferencesInput) (*UserOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	prefs := domain.Preferences{
		DarkMode:      input.Body.DarkMode,
		FontSize:      input.Body.FontSize,
		ReducedMotion: input.Body.ReducedMotion,
		HighContrast:  input.Body.HighContrast,
	}
	if prefs.FontSize == "" {
		prefs.FontSize = domain.FontSizeMedium
	}

	user, err := s.services.Auth.UpdatePreferences(ctx, userID, prefs)
	if err != nil {
		return nil, err
	}
	return userOutput(user), nil
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *ProfileInput) (*UserOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.UpdateProfile(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return userOutput(user), nil
}

func (s *Server) handleForgotPassword(ctx context.Context, input *ForgotPasswordInput) (*MessageOutput, error) {
	if err := s.services.Auth.ForgotPassword(ctx, input.Body.Email); err != nil {
		return nil, err
	}
	return messageOutput("if that email is registered, a reset link has been sent"), nil
}

func (s *Server) handleResetPassword(ctx context.Context, input *ResetPasswordInput) (*MessageOutput, error) {
	if err := s.services.Auth.ResetPassword(ctx, input.Body); err != nil {
		return nil, err
	}
	return messageOutput("password has been reset"), nil
}
