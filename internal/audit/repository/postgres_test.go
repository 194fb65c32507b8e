package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuriFontella/strawberry-auth/internal/audit/domain"
)

func TestPostgresRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	e := &domain.Event{
		ID:        uuid.New().String(),
		UserID:    "user-1",
		Action:    domain.ActionLogin,
		IP:        "203.0.113.7",
		UserAgent: "agent",
		CreatedAt: time.Now().UTC(),
	}
	mock.ExpectExec(`INSERT INTO auth_audit_log`).
		WithArgs(e.ID, e.UserID, e.Action, e.IP, e.UserAgent, e.Metadata, e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPostgresRepository(mock)
	require.NoError(t, repo.Create(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"uuid", "user_uuid", "action", "ip", "user_agent", "metadata", "date"}).
		AddRow("e2", "user-1", domain.ActionRefresh, "", "", "", now).
		AddRow("e1", "user-1", domain.ActionLogin, "203.0.113.7", "agent", "", now.Add(-time.Minute))

	mock.ExpectQuery(`SELECT .+ FROM auth_audit_log`).
		WithArgs("user-1", int32(50), int32(0)).
		WillReturnRows(rows)

	repo := NewPostgresRepository(mock)
	events, err := repo.ListByUser(context.Background(), "user-1", 50, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.ActionRefresh, events[0].Action)
	assert.Equal(t, domain.ActionLogin, events[1].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}
