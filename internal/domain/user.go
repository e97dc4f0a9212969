package domain

import (
	"strings"
	"time"
)

// FontSize is a display preference for the reading client.
type FontSize string

const (
	FontSizeSmall  FontSize = "small"
	FontSizeMedium FontSize = "medium"
	FontSizeLarge  FontSize = "large"
)

// Valid reports whether the font size is one of the supported values.
func (f FontSize) Valid() bool {
	switch f {
	case FontSizeSmall, FontSizeMedium, FontSizeLarge:
		return true
	}
	return false
}

// Preferences holds per-user display settings. The server only stores
// them; rendering is entirely client-side.
type Preferences struct {
	DarkMode      bool     `json:"dark_mode"`
	FontSize      FontSize `json:"font_size"`
	ReducedMotion bool     `json:"reduced_motion"`
	HighContrast  bool     `json:"high_contrast"`
}

// DefaultPreferences returns the display settings for new accounts.
func DefaultPreferences() Preferences {
	return Preferences{FontSize: FontSizeMedium}
}

// User represents an authenticated account.
type User struct {
	Syncable
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	PasswordHash   string      `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	FavoriteGenres []string    `json:"favorite_genres"`
	Preferences    Preferences `json:"preferences"`

	// Password reset state. Only the hash of the emailed token is kept.
	ResetTokenHash      string     `json:"reset_token_hash,omitempty"`
	ResetTokenExpiresAt *time.Time `json:"reset_token_expires_at,omitempty"`

	LastLoginAt time.Time `json:"last_login_at"`
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasActiveResetToken reports whether a password reset is pending and unexpired.
func (u *User) HasActiveResetToken(now time.Time) bool {
	return u.ResetTokenHash != "" && u.ResetTokenExpiresAt != nil && now.Before(*u.ResetTokenExpiresAt)
}

// ClearResetToken removes any pending password reset state.
func (u *User) ClearResetToken() {
	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = nil
}
