package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consolerent-backend/internal/domain"
)

func TestSoftLockRepository_Acquire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	lock := &domain.SoftLock{UserID: "a", ResourceID: "r1", ExpiresAt: now.Add(30 * time.Minute), CreatedAt: now}

	t.Run("Success", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM resources WHERE id = \\$1 FOR UPDATE").
			WithArgs("r1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1"))
		mock.ExpectQuery("SELECT user_id FROM soft_locks WHERE resource_id = \\$1 AND user_id <> \\$2").
			WithArgs("r1", "a", now).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
		mock.ExpectExec("INSERT INTO soft_locks (.+) ON CONFLICT \\(user_id\\) DO UPDATE").
			WithArgs("a", "r1", lock.ExpiresAt, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, store.SoftLockRepository.Acquire(ctx, lock, now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("HeldByOther", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM resources").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1"))
		mock.ExpectQuery("SELECT user_id FROM soft_locks").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("b"))
		mock.ExpectRollback()

		assert.ErrorIs(t, store.SoftLockRepository.Acquire(ctx, lock, now), domain.ErrResourceHeld)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSoftLockRepository_DeleteExpired(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM soft_locks WHERE expires_at < \\$1").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.SoftLockRepository.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSoftLockRepository_GetByUser_NotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery("FROM soft_locks WHERE user_id = \\$1").
		WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "resource_id", "expires_at", "created_at"}))

	_, err := store.SoftLockRepository.GetByUser(context.Background(), "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
