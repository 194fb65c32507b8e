package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TypeManual tags sessions created by an interactive login.
const TypeManual = "manual"

// Session binds one authenticated device/agent to a user. AccessDigest may be
// replaced in place on refresh; RefreshDigest is immutable for the session's
// lifetime. Revoked only ever goes false -> true.
type Session struct {
	ID               string
	UserID           string
	AccessDigest     string
	RefreshDigest    string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	UserAgent        string
	IP               string
	Revoked          bool
	Type             string
	CreatedAt        time.Time
}

// NewSession builds a validated session from an issuance result. UserAgent
// and IP are optional.
func NewSession(userID, accessDigest, refreshDigest string, accessExp, refreshExp time.Time, userAgent, ip string) (*Session, error) {
	switch {
	case userID == "":
		return nil, errors.New("session: user id is required")
	case accessDigest == "":
		return nil, errors.New("session: access token digest is required")
	case refreshDigest == "":
		return nil, errors.New("session: refresh token digest is required")
	case accessExp.IsZero() || refreshExp.IsZero():
		return nil, errors.New("session: token expiries are required")
	}
	return &Session{
		ID:               uuid.New().String(),
		UserID:           userID,
		AccessDigest:     accessDigest,
		RefreshDigest:    refreshDigest,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		UserAgent:        userAgent,
		IP:               ip,
		Revoked:          false,
		Type:             TypeManual,
		CreatedAt:        time.Now().UTC(),
	}, nil
}
