package auth

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames: it must start
// with a letter, followed by letters, digits, underscores, or hyphens,
// 3-256 characters in total.
var usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{2,255}$`)

// Password length bounds.
const (
	minPasswordLength = 10
	maxPasswordLength = 256
)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// IsValidPassword checks if a password meets length requirements.
func IsValidPassword(password string) bool {
	return len(password) >= minPasswordLength && len(password) <= maxPasswordLength
}

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialised
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the authenticated principal extracted from a decoded
// access token. It is derived from a stored user at issuance time and
// never persisted independently.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrSigningFailed      = errors.New("token signing failed")
)
