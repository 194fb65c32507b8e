package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kind tags embedded in the signed payload.
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// ExpiryGrace is the window before cryptographic expiry during which a token
// is already treated as expired, so the refresh path has a safety margin and
// a token cannot expire mid-request.
const ExpiryGrace = 60 * time.Second

const tokenRandomBytes = 32

var (
	// ErrSigningKeyMissing is returned by NewTokenService when the signing
	// key is absent. Not recoverable; startup must abort.
	ErrSigningKeyMissing = errors.New("security: signing key is not configured")
	// ErrDigestSaltMissing is returned by NewTokenService when the digest
	// salt is absent. Not recoverable; startup must abort.
	ErrDigestSaltMissing = errors.New("security: token digest salt is not configured")
)

// TokenClaims is the payload inside each signed envelope. The random Access
// or Refresh value (one per kind) is what gets digested and persisted; the
// signature on the envelope stays verifiable offline while the digest is what
// revocation checks run against.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID  string `json:"uuid"`
	Access  string `json:"access_token,omitempty"`
	Refresh string `json:"refresh_token,omitempty"`
	Kind    string `json:"type"`
}

// RandomValue returns the embedded random value for the claim's kind.
func (c *TokenClaims) RandomValue() string {
	if c.Kind == TokenKindRefresh {
		return c.Refresh
	}
	return c.Access
}

// TokenPair is the result of one issuance: both signed envelopes, their
// expiries, and the digests destined for the session row. Consumed once by
// the login flow and discarded.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	AccessDigest     string
	RefreshDigest    string
}

// AccessTokenResult is the narrower output of a refresh-only renewal.
type AccessTokenResult struct {
	AccessToken     string
	AccessDigest    string
	AccessExpiresAt time.Time
}

// TokenService mints and verifies HS256 token pairs and computes the
// storage-safe digests of their embedded random values.
type TokenService struct {
	signingKey []byte
	salt       []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService returns a TokenService signing with key and digesting with
// salt. Fails fast on a missing key or salt; those are deployment mistakes
// that must never surface per-request.
func NewTokenService(signingKey, salt string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if signingKey == "" {
		return nil, ErrSigningKeyMissing
	}
	if salt == "" {
		return nil, ErrDigestSaltMissing
	}
	return &TokenService{
		signingKey: []byte(signingKey),
		salt:       []byte(salt),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// GenerateTokenPair draws two independent high-entropy random values and
// wraps each in a signed envelope carrying the user id, the kind tag, and an
// absolute expiry. The returned digests are what the session row persists.
func (s *TokenService) GenerateTokenPair(userID string) (*TokenPair, error) {
	accessRandom, err := randomHex(tokenRandomBytes)
	if err != nil {
		return nil, err
	}
	refreshRandom, err := randomHex(tokenRandomBytes)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	accessExp := now.Add(s.accessTTL)
	refreshExp := now.Add(s.refreshTTL)

	accessJWT, err := s.sign(TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(accessExp)},
		UserID:           userID,
		Access:           accessRandom,
		Kind:             TokenKindAccess,
	})
	if err != nil {
		return nil, err
	}
	refreshJWT, err := s.sign(TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(refreshExp)},
		UserID:           userID,
		Refresh:          refreshRandom,
		Kind:             TokenKindRefresh,
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessJWT,
		RefreshToken:     refreshJWT,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		AccessDigest:     s.HashToken(accessRandom),
		RefreshDigest:    s.HashToken(refreshRandom),
	}, nil
}

func (s *TokenService) sign(claims TokenClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// DecodeToken verifies the signature and returns the claims, or (nil, false)
// on any signature or format failure. With verifyExpiry false an expired
// envelope still decodes; callers use that only to read claims before
// deciding how to react to expiry, never to authorize access.
func (s *TokenService) DecodeToken(token string, verifyExpiry bool) (*TokenClaims, bool) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if !verifyExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil || parsed == nil {
		return nil, false
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok {
		return nil, false
	}
	return claims, true
}

// IsTokenValid reports whether the payload's expiry is more than ExpiryGrace
// in the future. A payload without an expiry is never valid.
func (s *TokenService) IsTokenValid(claims *TokenClaims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}
	return time.Now().UTC().Before(claims.ExpiresAt.Time.Add(-ExpiryGrace))
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
