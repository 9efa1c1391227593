package model

import (
	"time"
)

// DeviceToken is an FCM registration token for one of a user's devices.
// New-comment pushes go to every token a user has registered.
type DeviceToken struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	Token     string    `db:"token" json:"-"`     // FCM token, hidden from JSON
	Platform  string    `db:"platform" json:"platform"` // "ios", "android"
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterTokenRequest is the body of POST /me/devices and DELETE /me/devices.
type RegisterTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"` // "ios" or "android"
}

// Platform constants
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// IsValidPlatform reports whether platform is one of the supported device platforms.
func IsValidPlatform(platform string) bool {
	return platform == PlatformIOS || platform == PlatformAndroid
}
