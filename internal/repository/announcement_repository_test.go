package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/airconnect-api/internal/dto"
	"github.com/noah-isme/airconnect-api/internal/models"
	"github.com/noah-isme/airconnect-api/internal/query"
)

func newAnnouncementRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAnnouncementRepositoryListJoinsAuthor(t *testing.T) {
	db, mock, cleanup := newAnnouncementRepoMock(t)
	defer cleanup()

	repo := NewAnnouncementRepository(db)
	rows := sqlmock.NewRows([]string{
		"id", "description", "section", "batch_id", "batch_name", "created_by", "created_by_name",
		"author_role", "restrict_to_teacher_batches", "media", "likes", "dislikes", "created_at",
	}).AddRow("ann-1", "Midterm moved", "all", nil, "", "teacher-1", "Karim Osman",
		"TEACHER", false, "{}", 3, 1, time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("JOIN users u ON u.id = a.created_by")).
		WithArgs("all").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("all").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	scope := query.Eq("a.section", "all")
	items, total, err := repo.List(context.Background(), scope, dto.AnnouncementFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, total)
	require.Equal(t, models.RoleTeacher, items[0].CreatedByRole)
	require.Equal(t, 3, items[0].Likes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryReactToggleRemoves(t *testing.T) {
	db, mock, cleanup := newAnnouncementRepoMock(t)
	defer cleanup()

	repo := NewAnnouncementRepository(db)
	mock.ExpectBegin()
	// Reacting with the kind already present deletes it and stops there.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM announcement_reactions")).
		WithArgs("ann-1", "student-1", models.ReactionLike).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.React(context.Background(), "ann-1", "student-1", models.ReactionLike))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryReactDisplacesOpposite(t *testing.T) {
	db, mock, cleanup := newAnnouncementRepoMock(t)
	defer cleanup()

	repo := NewAnnouncementRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM announcement_reactions")).
		WithArgs("ann-1", "student-1", models.ReactionDislike).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (announcement_id, user_id) DO UPDATE SET kind = EXCLUDED.kind")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.React(context.Background(), "ann-1", "student-1", models.ReactionDislike))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryCreateAndUpdate(t *testing.T) {
	db, mock, cleanup := newAnnouncementRepoMock(t)
	defer cleanup()

	repo := NewAnnouncementRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO announcements")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	announcement := &models.Announcement{
		Description:   "Midterm moved",
		Section:       "all",
		CreatedBy:     "teacher-1",
		CreatedByRole: models.RoleTeacher,
	}
	require.NoError(t, repo.Create(context.Background(), announcement))
	require.NotEmpty(t, announcement.ID)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE announcements SET description = $1 WHERE id = $2")).
		WithArgs("Midterm moved to Friday", announcement.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateDescription(context.Background(), announcement.ID, "Midterm moved to Friday"))
	require.NoError(t, mock.ExpectationsWereMet())
}
