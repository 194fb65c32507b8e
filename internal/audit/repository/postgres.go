package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/YuriFontella/strawberry-auth/internal/audit/domain"
)

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PostgresRepository struct {
	db DB
}

// NewPostgresRepository returns an audit event repository backed by db.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists one audit event. The event must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Event) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO auth_audit_log (uuid, user_uuid, action, ip, user_agent, metadata, date)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.Action, e.IP, e.UserAgent, e.Metadata, e.CreatedAt,
	)
	return err
}

// ListByUser returns the user's audit events newest first, paginated by
// limit and offset.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT uuid, COALESCE(user_uuid, ''), action, ip, user_agent, metadata, date
		FROM auth_audit_log
		WHERE user_uuid = $1
		ORDER BY date DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.IP, &e.UserAgent, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
