package model

import (
	"errors"
	"strings"
	"time"
)

// User is an account. IDs are UUID strings for locally registered users
// and the Firebase UID when identities come from Firebase Auth.
type User struct {
	ID             string     `db:"id" json:"user_id"`
	Username       string     `db:"username" json:"username"`
	Email          *string    `db:"email" json:"email,omitempty"`
	PasswordHashed string     `db:"password_hashed" json:"-"`
	DisplayName    *string    `db:"display_name" json:"display_name"`
	AvatarURL      *string    `db:"avatar_url" json:"avatar_url"`
	AvatarKey      *string    `db:"avatar_key" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	LastLoginAt    *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// Profile is the public part of a user that gets copied into comments.
type Profile struct {
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// Profile returns the user's public profile. The display name falls back to
// the username, then to AnonymousUsername.
func (u *User) Profile() Profile {
	name := ""
	if u.DisplayName != nil {
		name = strings.TrimSpace(*u.DisplayName)
	}
	if name == "" {
		name = strings.TrimSpace(u.Username)
	}
	if name == "" {
		name = AnonymousUsername
	}
	return Profile{DisplayName: name, AvatarURL: u.AvatarURL}
}

// RegisterRequest represents the data needed to register a new user
type RegisterRequest struct {
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"-"`
	AvatarKey   *string `json:"-"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateProfileRequest carries optional profile changes; nil fields are left as-is.
type UpdateProfileRequest struct {
	DisplayName *string
	AvatarURL   *string
	AvatarKey   *string
}

// Password constraints
const (
	MinPasswordLength = 6
)

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameExists is returned when attempting to create a user with a taken username
	ErrUsernameExists = errors.New("username already exists")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPasswordTooShort is returned when a password is under MinPasswordLength
	ErrPasswordTooShort = errors.New("password too short")

	// ErrUsernameRequired is returned when registering with a blank username
	ErrUsernameRequired = errors.New("username is required")
)
