package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/airconnect-api/internal/models"
)

func newNotificationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestNotificationRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	notification := &models.Notification{
		RecipientID: "student-1",
		SenderID:    "advisor-1",
		Type:        models.NotificationAdvisorAction,
		Title:       "Application Rejected",
	}
	require.NoError(t, repo.Create(context.Background(), notification))
	require.NotEmpty(t, notification.ID)
	require.False(t, notification.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListUnreadOnly(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	rows := sqlmock.NewRows([]string{"id", "recipient_id", "sender_id", "type", "title", "message", "related_id", "read", "created_at"}).
		AddRow("n-1", "student-1", "advisor-1", "ADVISOR_ACTION", "Application Forwarded", "", "app-1", false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE recipient_id = $1 AND NOT read ORDER BY created_at DESC")).
		WithArgs("student-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT read")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	notifications, total, err := repo.ListForRecipient(context.Background(), "student-1", true, 1, 20)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkReadGuardsRecipient(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2")).
		WithArgs("n-1", "student-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), "n-1", "student-2")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkAllRead(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND NOT read")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.MarkAllRead(context.Background(), "student-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
