package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/YuriFontella/strawberry-auth/internal/security"
	userdomain "github.com/YuriFontella/strawberry-auth/internal/user/domain"
)

// State is the per-request authentication state the gate lands in.
type State int

const (
	// StateNoToken: no access-token artifact was presented.
	StateNoToken State = iota
	// StateInvalid: the access token failed decode, carried the wrong kind,
	// or the refresh attempt failed.
	StateInvalid
	// StateValidAccess: the access token is inside its validity window.
	StateValidAccess
	// StateExpiredAccessNoRefresh: the access token is expired and no
	// refresh token was presented.
	StateExpiredAccessNoRefresh
	// StateExpiredAccessRefreshed: the access token was expired and a new
	// one was minted from the refresh token.
	StateExpiredAccessRefreshed
)

// Result is the tagged outcome of one gate pass. Identity is non-nil exactly
// when the request is authenticated. When the gate refreshed the access
// token, NewAccessToken carries the replacement artifact the transport must
// hand to the client. ClearCookies instructs the transport to drop both
// credential artifacts.
type Result struct {
	State              State
	Identity           *userdomain.Profile
	NewAccessToken     string
	NewAccessExpiresAt time.Time
	ClearCookies       bool
	Reason             string
}

// Authenticated reports whether the gate resolved an identity.
func (r Result) Authenticated() bool { return r.Identity != nil }

// AccessRefresher renews an access token from a refresh token.
type AccessRefresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (*security.AccessTokenResult, error)
}

// Gate is the per-request authentication state machine: it validates the
// access token, transparently refreshes it on expiry, and resolves the
// authenticated identity through the session store.
type Gate struct {
	tokens    *security.TokenService
	sessions  SessionRepo
	refresher AccessRefresher
	log       *zap.Logger
}

// NewGate returns a Gate over the given token service, session store, and
// refresher.
func NewGate(tokens *security.TokenService, sessions SessionRepo, refresher AccessRefresher, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{tokens: tokens, sessions: sessions, refresher: refresher, log: log}
}

func denied(state State, reason string, clearCookies bool) Result {
	return Result{State: state, Reason: reason, ClearCookies: clearCookies}
}

// Authenticate runs the state machine for one request. It never returns an
// error: every failure, expected or not, collapses into a denial with a
// human-readable reason, and storage failures never escape as crashes.
func (g *Gate) Authenticate(ctx context.Context, accessToken, refreshToken string) Result {
	if accessToken == "" {
		return denied(StateNoToken, "authentication cookie missing or invalid", false)
	}

	claims, ok := g.tokens.DecodeToken(accessToken, false)
	if !ok || claims.Kind != security.TokenKindAccess {
		return denied(StateInvalid, "invalid token", false)
	}

	state := StateValidAccess
	var newAccess string
	var newAccessExp time.Time

	if !g.tokens.IsTokenValid(claims) {
		if refreshToken == "" {
			return denied(StateExpiredAccessNoRefresh, "access token expired and no refresh token provided", true)
		}
		renewed, err := g.refresher.RefreshAccessToken(ctx, refreshToken)
		if err != nil {
			g.log.Debug("token refresh rejected", zap.Error(err))
			return denied(StateInvalid, "failed to refresh token", true)
		}
		state = StateExpiredAccessRefreshed
		newAccess = renewed.AccessToken
		newAccessExp = renewed.AccessExpiresAt

		// Re-decode the replacement token so the session lookup below uses
		// the digest the refresh just persisted.
		claims, ok = g.tokens.DecodeToken(renewed.AccessToken, true)
		if !ok {
			return denied(StateInvalid, "failed to decode new access token", false)
		}
	}

	if claims.UserID == "" || claims.RandomValue() == "" {
		return denied(StateInvalid, "invalid token payload", false)
	}
	digest := g.tokens.HashToken(claims.RandomValue())

	profile, err := g.sessions.FindActiveByAccessDigest(ctx, claims.UserID, digest)
	if err != nil {
		g.log.Error("session lookup failed", zap.Error(err))
		return denied(StateInvalid, "authentication error", false)
	}
	if profile == nil {
		return denied(StateInvalid, "user not found or session invalid", false)
	}

	return Result{
		State:              state,
		Identity:           profile,
		NewAccessToken:     newAccess,
		NewAccessExpiresAt: newAccessExp,
	}
}
