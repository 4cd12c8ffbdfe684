package auth

import "github.com/contentforge/contentforge-backend/internal/users"

// LoginRequest carries the credentials posted to /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the signup payload. The signup IP is taken from the
// connection, never from the body.
type RegisterRequest struct {
	Name              string `json:"name" validate:"required"`
	Email             string `json:"email" validate:"required,email"`
	Password          string `json:"password" validate:"required,min=8"`
	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
}

// TokenPair is an access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse is returned from login and register.
type LoginResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}

// RefreshRequest rotates a session. The expired access token identifies the
// session being rotated.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}
