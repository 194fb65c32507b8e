package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Default role for newly registered users.
const RoleUser = "user"

// Fingerprint range: a 6-digit numeric identity tag, unique per user.
const (
	fingerprintMin = 100000
	fingerprintMax = 999999
)

// User is the core identity record. PasswordDigest is the bcrypt digest; the
// plaintext password never reaches this struct.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordDigest string
	Role           string
	Avatar         string
	Fingerprint    int
	Active         bool
	CreatedAt      time.Time
}

// ValidationError reports a missing required registration field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("the %q field is required", e.Field)
}

// ValidateRegistration checks the raw registration inputs before hashing and
// persisting. Returns a ValidationError for the first empty required field.
func ValidateRegistration(name, email, password string) error {
	if name == "" {
		return &ValidationError{Field: "name"}
	}
	if email == "" {
		return &ValidationError{Field: "email"}
	}
	if password == "" {
		return &ValidationError{Field: "password"}
	}
	return nil
}

// NewUser builds an active user record with generated defaults: id,
// fingerprint, role, and creation time. passwordDigest must already be
// hashed.
func NewUser(name, email, passwordDigest string) (*User, error) {
	fp, err := randomFingerprint()
	if err != nil {
		return nil, err
	}
	return &User{
		ID:             uuid.New().String(),
		Name:           name,
		Email:          email,
		PasswordDigest: passwordDigest,
		Role:           RoleUser,
		Fingerprint:    fp,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Activate marks the user active, re-enabling session lookups.
func (u *User) Activate() { u.Active = true }

// Deactivate marks the user inactive. Every session lookup excludes inactive
// users, so existing sessions stop resolving without explicit revocation.
func (u *User) Deactivate() { u.Active = false }

// Profile is the public projection of a user returned by the
// current-identity query and by digest-based session resolution.
type Profile struct {
	ID          string
	Name        string
	Email       string
	Role        string
	Fingerprint int
	Avatar      string
	Active      bool
	CreatedAt   time.Time
}

func randomFingerprint() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(fingerprintMax-fingerprintMin+1))
	if err != nil {
		return 0, err
	}
	return fingerprintMin + int(n.Int64()), nil
}
