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

func newApplicationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func applicationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "subject", "body", "student_id", "advisor_id", "coordinator_id", "status",
		"advisor_comments", "coordinator_comments", "advisor_action_at", "coordinator_action_at",
		"hidden_from_student", "hidden_from_advisor", "hidden_from_coordinator", "media", "created_at", "updated_at",
	})
}

func TestApplicationRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO applications")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	application := &models.Application{
		Subject:   "Semester leave",
		Body:      "body",
		StudentID: "student-1",
		AdvisorID: "advisor-1",
		Status:    models.ApplicationPending,
	}
	require.NoError(t, repo.Create(context.Background(), application))
	require.NotEmpty(t, application.ID)
	require.False(t, application.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryListForStudentExcludesHidden(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND NOT hidden_from_student")).
		WithArgs("student-1").
		WillReturnRows(applicationRows().
			AddRow("app-1", "Semester leave", "body", "student-1", "advisor-1", "coord-1", "Pending",
				"", "", nil, nil, false, false, false, "{}", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM applications WHERE student_id = $1 AND NOT hidden_from_student")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	applications, total, err := repo.ListForStudent(context.Background(), "student-1", 1, 20)
	require.NoError(t, err)
	require.Len(t, applications, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryListForCoordinatorSkipsPending(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status <> $1 AND NOT hidden_from_coordinator")).
		WithArgs(models.ApplicationPending).
		WillReturnRows(applicationRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(models.ApplicationPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.ListForCoordinator(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Equal(t, 0, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryRecordAdvisorActionTargetsFields(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET status = $1, advisor_comments = $2, advisor_action_at = $3, updated_at = $3")).
		WithArgs(models.ApplicationForwarded, "ok to proceed", at, "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecordAdvisorAction(context.Background(), "app-1", models.ApplicationForwarded, "ok to proceed", at)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCoordinatorActionClaimsRow(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET status = $1, coordinator_id = $2, coordinator_comments = $3")).
		WithArgs(models.ApplicationApproved, "coord-2", "", at, "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecordCoordinatorAction(context.Background(), "app-1", "coord-2", models.ApplicationApproved, "", at)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryStudentEditResubmission(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("media = media || $3")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyStudentEdit(context.Background(), StudentEditParams{
		ID:             "app-1",
		Subject:        "Semester leave",
		Body:           "new body",
		AppendMedia:    []string{"/media/form.pdf"},
		ResetToPending: true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositorySetHiddenPerActor(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET hidden_from_advisor = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetHidden(context.Background(), "app-1", models.RoleTeacher))
	require.Error(t, repo.SetHidden(context.Background(), "app-1", models.RoleStudentAffairs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCommentsRoundTrip(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO application_comments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	comment := &models.ApplicationComment{
		ApplicationID: "app-1",
		AuthorID:      "advisor-1",
		AuthorRole:    models.RoleTeacher,
		Text:          "please follow up",
	}
	require.NoError(t, repo.AddComment(context.Background(), comment))
	require.NotEmpty(t, comment.ID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM application_comments WHERE application_id = $1 ORDER BY created_at ASC")).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "application_id", "author_id", "author_role", "text", "created_at"}).
			AddRow(comment.ID, "app-1", "advisor-1", "TEACHER", "please follow up", time.Now()))

	comments, err := repo.ListComments(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, models.RoleTeacher, comments[0].AuthorRole)
	require.NoError(t, mock.ExpectationsWereMet())
}
