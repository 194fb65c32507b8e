package auth

import "errors"

// Sentinel errors for the auth service; the transport layer maps them to
// user-visible rejection reasons and status codes.
var (
	ErrEmailTaken          = errors.New("a user with this email already exists")
	ErrUserNotFound        = errors.New("no user found")
	ErrUserInactive        = errors.New("user is inactive")
	ErrWrongPassword       = errors.New("the password is incorrect")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrSessionNotFound     = errors.New("session not found or already revoked")
)
