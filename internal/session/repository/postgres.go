package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/YuriFontella/strawberry-auth/internal/session/domain"
	userdomain "github.com/YuriFontella/strawberry-auth/internal/user/domain"
)

// DB is the subset of pgxpool.Pool the repository uses. pgxmock satisfies it
// in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements Repository backed by the sessions table.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository returns a session repository using db for
// persistence.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ReplaceActive revokes every non-revoked session for the new session's user
// and inserts the new one, in a single transaction: each login supersedes the
// sessions before it, and a failed insert rolls the revoke back so prior
// sessions stay untouched. The unique constraints on the access and refresh
// digests are the concurrency backstop; a violation maps to
// ErrDigestConflict.
func (r *PostgresRepository) ReplaceActive(ctx context.Context, s *domain.Session) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE sessions SET revoked = TRUE WHERE user_uuid = $1 AND revoked = FALSE
		`, s.UserID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO sessions (uuid, user_uuid, access_token, refresh_token,
				access_token_expires_at, refresh_token_expires_at,
				user_agent, ip, revoked, type, date)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11)
		`,
			s.ID, s.UserID, s.AccessDigest, s.RefreshDigest,
			s.AccessExpiresAt, s.RefreshExpiresAt,
			s.UserAgent, s.IP, s.Revoked, s.Type, s.CreatedAt,
		)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDigestConflict
		}
		return err
	}
	return nil
}

// FindActiveByAccessDigest resolves the owning user of a non-revoked session
// matching the access digest. Inactive users are filtered out by the join, so
// deactivation invalidates their sessions without explicit revocation.
// Returns nil when no row matches; errors only on database failures.
func (r *PostgresRepository) FindActiveByAccessDigest(ctx context.Context, userID, accessDigest string) (*userdomain.Profile, error) {
	row := r.db.QueryRow(ctx, `
		SELECT u.uuid, u.name, u.email, u.role, u.fingerprint, COALESCE(u.avatar, ''), u.status, u.date
		FROM users u
		JOIN sessions s ON s.user_uuid = u.uuid
		WHERE u.uuid = $1
		  AND s.access_token = $2
		  AND s.revoked = FALSE
		  AND u.status = TRUE
	`, userID, accessDigest)

	var p userdomain.Profile
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.Fingerprint, &p.Avatar, &p.Active, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RevokeByRefreshDigest marks every session carrying the refresh digest as
// revoked and returns the affected count. Zero rows is a no-op, not an error.
func (r *PostgresRepository) RevokeByRefreshDigest(ctx context.Context, refreshDigest string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions SET revoked = TRUE WHERE refresh_token = $1
	`, refreshDigest)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RevokeByUserAndRefreshDigest revokes the session owned by userID matching
// the refresh digest. Used by the replay defense when an expired refresh
// token is presented.
func (r *PostgresRepository) RevokeByUserAndRefreshDigest(ctx context.Context, userID, refreshDigest string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions SET revoked = TRUE WHERE user_uuid = $1 AND refresh_token = $2
	`, userID, refreshDigest)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpdateAccessToken overwrites the access digest and expiry of the session
// matching the exact refresh digest, leaving the refresh digest untouched.
// The revoked = FALSE condition makes concurrent refreshes safe: at most one
// update applies and the loser observes zero affected rows.
func (r *PostgresRepository) UpdateAccessToken(ctx context.Context, userID, refreshDigest, newAccessDigest string, newExpiry time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET access_token = $3, access_token_expires_at = $4
		WHERE user_uuid = $1 AND refresh_token = $2 AND revoked = FALSE
	`, userID, refreshDigest, newAccessDigest, newExpiry)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
