package repository

import (
	"context"
	"errors"
	"time"

	"github.com/YuriFontella/strawberry-auth/internal/session/domain"
	userdomain "github.com/YuriFontella/strawberry-auth/internal/user/domain"
)

// ErrDigestConflict is returned when an inserted session carries an access or
// refresh digest that already exists. With 32 bytes of entropy per token this
// is effectively unreachable, but the unique constraints are a hard
// invariant, not a probabilistic hope.
var ErrDigestConflict = errors.New("session token digest already exists")

// Repository defines persistence for sessions. The single-active-session
// policy (revoke prior sessions and insert the new one in one transaction)
// and the refresh-race rule (conditional update on the exact prior digest)
// live in these operations.
type Repository interface {
	ReplaceActive(ctx context.Context, s *domain.Session) error
	FindActiveByAccessDigest(ctx context.Context, userID, accessDigest string) (*userdomain.Profile, error)
	RevokeByRefreshDigest(ctx context.Context, refreshDigest string) (int64, error)
	RevokeByUserAndRefreshDigest(ctx context.Context, userID, refreshDigest string) (int64, error)
	UpdateAccessToken(ctx context.Context, userID, refreshDigest, newAccessDigest string, newExpiry time.Time) (int64, error)
}
