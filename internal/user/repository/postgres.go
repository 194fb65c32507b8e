package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/YuriFontella/strawberry-auth/internal/user/domain"
)

// DB is the subset of pgxpool.Pool the repository uses. pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements Repository backed by the users table.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository returns a user repository using db for persistence.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the user row. Unique violations on email and fingerprint
// are mapped to ErrDuplicateEmail and ErrDuplicateFingerprint.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (uuid, name, email, password, role, avatar, fingerprint, status, date)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
	`,
		u.ID, u.Name, u.Email, u.PasswordDigest, u.Role, u.Avatar, u.Fingerprint, u.Active, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			switch pgErr.ConstraintName {
			case "uq_users_fingerprint":
				return ErrDuplicateFingerprint
			default:
				return ErrDuplicateEmail
			}
		}
		return err
	}
	return nil
}

// GetByEmail returns the user with the given email regardless of status, or
// nil if not found. Errors only on database failures.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT uuid, name, email, password, role, COALESCE(avatar, ''), fingerprint, status, date
		FROM users
		WHERE email = $1
	`, email)

	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordDigest, &u.Role, &u.Avatar, &u.Fingerprint, &u.Active, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetActive toggles the user's status flag.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET status = $2 WHERE uuid = $1`, id, active)
	return err
}
