package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/YuriFontella/strawberry-auth/internal/security"
	sessiondomain "github.com/YuriFontella/strawberry-auth/internal/session/domain"
	sessionrepo "github.com/YuriFontella/strawberry-auth/internal/session/repository"
	userdomain "github.com/YuriFontella/strawberry-auth/internal/user/domain"
	userrepo "github.com/YuriFontella/strawberry-auth/internal/user/repository"
)

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	Create(ctx context.Context, u *userdomain.User) error
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// SessionRepo is the minimal session repository needed by the auth service
// and the gate.
type SessionRepo interface {
	ReplaceActive(ctx context.Context, s *sessiondomain.Session) error
	FindActiveByAccessDigest(ctx context.Context, userID, accessDigest string) (*userdomain.Profile, error)
	RevokeByRefreshDigest(ctx context.Context, refreshDigest string) (int64, error)
	RevokeByUserAndRefreshDigest(ctx context.Context, userID, refreshDigest string) (int64, error)
	UpdateAccessToken(ctx context.Context, userID, refreshDigest, newAccessDigest string, newExpiry time.Time) (int64, error)
}

// EventRecorder records best-effort auth events. Implementations must never
// fail the calling operation.
type EventRecorder interface {
	Record(ctx context.Context, userID, action, ip, userAgent, metadata string)
}

// Service implements registration, login, refresh-driven access renewal, and
// logout over the user and session stores.
type Service struct {
	users    UserRepo
	sessions SessionRepo
	hasher   *security.Hasher
	tokens   *security.TokenService
	events   EventRecorder
	log      *zap.Logger
}

// NewService returns a Service with the given dependencies. events may be
// nil when auditing is disabled.
func NewService(users UserRepo, sessions SessionRepo, hasher *security.Hasher, tokens *security.TokenService, events EventRecorder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		events:   events,
		log:      log,
	}
}

// Register validates the inputs, hashes the password, and creates the user.
// Returns a ValidationError for a missing field and ErrEmailTaken for a
// duplicate email.
func (s *Service) Register(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)

	if err := userdomain.ValidateRegistration(name, email, password); err != nil {
		return err
	}
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	u, err := userdomain.NewUser(name, email, digest)
	if err != nil {
		return err
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			return ErrEmailTaken
		}
		return err
	}
	s.record(ctx, u.ID, "register", "", "", "")
	return nil
}

// Login authenticates by email and password, revokes every prior active
// session for the user, and persists a new session for the freshly minted
// token pair. Each login supersedes the sessions before it; sessions created
// elsewhere survive only until the next login.
func (s *Service) Login(ctx context.Context, email, password, userAgent, ip string) (*security.TokenPair, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		s.record(ctx, "", "login_failure", ip, userAgent, "unknown email")
		return nil, ErrUserNotFound
	}
	if !u.Active {
		s.record(ctx, u.ID, "login_failure", ip, userAgent, "inactive user")
		return nil, ErrUserInactive
	}
	if !s.hasher.Verify(password, u.PasswordDigest) {
		s.record(ctx, u.ID, "login_failure", ip, userAgent, "wrong password")
		return nil, ErrWrongPassword
	}

	pair, err := s.tokens.GenerateTokenPair(u.ID)
	if err != nil {
		return nil, err
	}
	sess, err := sessiondomain.NewSession(
		u.ID, pair.AccessDigest, pair.RefreshDigest,
		pair.AccessExpiresAt, pair.RefreshExpiresAt,
		userAgent, ip,
	)
	if err != nil {
		return nil, err
	}
	// Revoke-prior plus insert happens atomically: a failed login leaves
	// the user's existing sessions untouched.
	if err := s.sessions.ReplaceActive(ctx, sess); err != nil {
		return nil, err
	}
	s.record(ctx, u.ID, "login", ip, userAgent, "")
	return pair, nil
}

// RefreshAccessToken renews only the access token of the session bound to
// the refresh token. The refresh envelope is decoded ignoring expiry so the
// claims can be inspected; an expired refresh token revokes its own session
// as a replay defense. On success the session's access digest and expiry are
// overwritten in place and its refresh digest is left untouched.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*security.AccessTokenResult, error) {
	claims, ok := s.tokens.DecodeToken(refreshToken, false)
	if !ok || claims.Kind != security.TokenKindRefresh {
		return nil, ErrInvalidRefreshToken
	}
	if claims.UserID == "" || claims.RandomValue() == "" {
		return nil, ErrInvalidRefreshToken
	}
	refreshDigest := s.tokens.HashToken(claims.RandomValue())

	if !s.tokens.IsTokenValid(claims) {
		if _, err := s.sessions.RevokeByUserAndRefreshDigest(ctx, claims.UserID, refreshDigest); err != nil {
			s.log.Warn("revoke on expired refresh failed", zap.Error(err))
		}
		return nil, ErrInvalidRefreshToken
	}

	pair, err := s.tokens.GenerateTokenPair(claims.UserID)
	if err != nil {
		return nil, err
	}
	n, err := s.sessions.UpdateAccessToken(ctx, claims.UserID, refreshDigest, pair.AccessDigest, pair.AccessExpiresAt)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Stale, revoked, or lost a concurrent refresh.
		return nil, ErrSessionNotFound
	}
	s.record(ctx, claims.UserID, "refresh", "", "", "")
	return &security.AccessTokenResult{
		AccessToken:     pair.AccessToken,
		AccessDigest:    pair.AccessDigest,
		AccessExpiresAt: pair.AccessExpiresAt,
	}, nil
}

// Logout revokes the session bound to the refresh token. Idempotent: an
// unknown, malformed, or already-revoked token reports false without error,
// and the caller clears the credential artifacts regardless.
func (s *Service) Logout(ctx context.Context, refreshToken string) bool {
	claims, ok := s.tokens.DecodeToken(refreshToken, false)
	if !ok || claims.RandomValue() == "" {
		return false
	}
	digest := s.tokens.HashToken(claims.RandomValue())
	n, err := s.sessions.RevokeByRefreshDigest(ctx, digest)
	if err != nil {
		s.log.Warn("logout revoke failed", zap.Error(err))
		return false
	}
	if n > 0 {
		s.record(ctx, claims.UserID, "logout", "", "", "")
	}
	return n > 0
}

// Deactivate marks the account inactive. Session lookups exclude inactive
// users, so every existing session stops resolving immediately without
// explicit revocation; reactivating the account restores them.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	if err := s.users.SetActive(ctx, userID, false); err != nil {
		return err
	}
	s.record(ctx, userID, "deactivate", "", "", "")
	return nil
}

func (s *Service) record(ctx context.Context, userID, action, ip, userAgent, metadata string) {
	if s.events == nil {
		return
	}
	s.events.Record(ctx, userID, action, ip, userAgent, metadata)
}

var _ SessionRepo = (*sessionrepo.PostgresRepository)(nil)
var _ UserRepo = (*userrepo.PostgresRepository)(nil)
