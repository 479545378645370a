package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/airconnect-api/internal/models"
)

// ApplicationRepository persists student applications. Every mutation is a
// targeted field update; the row is never rewritten wholesale, so concurrent
// actors cannot silently undo each other's fields.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs an ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `id, subject, body, student_id, advisor_id, coordinator_id, status,
advisor_comments, coordinator_comments, advisor_action_at, coordinator_action_at,
hidden_from_student, hidden_from_advisor, hidden_from_coordinator, media, created_at, updated_at`

// Create inserts a new application.
func (r *ApplicationRepository) Create(ctx context.Context, application *models.Application) error {
	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if application.CreatedAt.IsZero() {
		application.CreatedAt = now
	}
	application.UpdatedAt = now
	const q = `INSERT INTO applications (id, subject, body, student_id, advisor_id, coordinator_id, status,
advisor_comments, coordinator_comments, hidden_from_student, hidden_from_advisor, hidden_from_coordinator,
media, created_at, updated_at)
VALUES (:id, :subject, :body, :student_id, :advisor_id, :coordinator_id, :status,
:advisor_comments, :coordinator_comments, :hidden_from_student, :hidden_from_advisor, :hidden_from_coordinator,
:media, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, q, application); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// GetByID returns an application by identifier.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	var application models.Application
	query := fmt.Sprintf("SELECT %s FROM applications WHERE id = $1", applicationColumns)
	if err := r.db.GetContext(ctx, &application, query, id); err != nil {
		return nil, err
	}
	return &application, nil
}

// ListForStudent returns the student's applications, hidden ones excluded.
func (r *ApplicationRepository) ListForStudent(ctx context.Context, studentID string, page, size int) ([]models.Application, int, error) {
	where := "student_id = $1 AND NOT hidden_from_student"
	return r.list(ctx, where, []interface{}{studentID}, page, size)
}

// ListForAdvisor returns applications routed to the advisor.
func (r *ApplicationRepository) ListForAdvisor(ctx context.Context, advisorID string, page, size int) ([]models.Application, int, error) {
	where := "advisor_id = $1 AND NOT hidden_from_advisor"
	return r.list(ctx, where, []interface{}{advisorID}, page, size)
}

// ListForCoordinator returns every application that has left the advisor
// stage. Coordinator review is pooled: routing is by role, not assignment.
func (r *ApplicationRepository) ListForCoordinator(ctx context.Context, page, size int) ([]models.Application, int, error) {
	where := "status <> $1 AND NOT hidden_from_coordinator"
	return r.list(ctx, where, []interface{}{models.ApplicationPending}, page, size)
}

// ListAll returns every application for the oversight export.
func (r *ApplicationRepository) ListAll(ctx context.Context) ([]models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications ORDER BY created_at DESC", applicationColumns)
	var applications []models.Application
	if err := r.db.SelectContext(ctx, &applications, query); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return applications, nil
}

func (r *ApplicationRepository) list(ctx context.Context, where string, args []interface{}, page, size int) ([]models.Application, int, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM applications WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		applicationColumns, where, size, offset)
	var applications []models.Application
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM applications WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return applications, total, nil
}

// RecordAdvisorAction stamps the advisor's decision.
func (r *ApplicationRepository) RecordAdvisorAction(ctx context.Context, id string, status models.ApplicationStatus, comments string, at time.Time) error {
	const q = `UPDATE applications SET status = $1, advisor_comments = $2, advisor_action_at = $3, updated_at = $3
WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, q, status, comments, at.UTC(), id); err != nil {
		return fmt.Errorf("record advisor action: %w", err)
	}
	return nil
}

// RecordCoordinatorAction stamps the coordinator's decision and reassigns
// the application to the acting coordinator.
func (r *ApplicationRepository) RecordCoordinatorAction(ctx context.Context, id, coordinatorID string, status models.ApplicationStatus, comments string, at time.Time) error {
	const q = `UPDATE applications SET status = $1, coordinator_id = $2, coordinator_comments = $3,
coordinator_action_at = $4, updated_at = $4
WHERE id = $5`
	if _, err := r.db.ExecContext(ctx, q, status, coordinatorID, comments, at.UTC(), id); err != nil {
		return fmt.Errorf("record coordinator action: %w", err)
	}
	return nil
}

// StudentEditParams carries the resubmission changes.
type StudentEditParams struct {
	ID             string
	Subject        string
	Body           string
	AppendMedia    []string
	ResetToPending bool
}

// ApplyStudentEdit updates the editable fields. New media appends to the
// existing array; a resubmission resets the status and clears the advisor's
// change request in the same statement.
func (r *ApplicationRepository) ApplyStudentEdit(ctx context.Context, params StudentEditParams) error {
	now := time.Now().UTC()
	if params.ResetToPending {
		const q = `UPDATE applications SET subject = $1, body = $2, media = media || $3,
status = $4, advisor_comments = '', updated_at = $5
WHERE id = $6`
		if _, err := r.db.ExecContext(ctx, q, params.Subject, params.Body,
			pq.Array(params.AppendMedia), models.ApplicationPending, now, params.ID); err != nil {
			return fmt.Errorf("apply student edit: %w", err)
		}
		return nil
	}
	const q = `UPDATE applications SET subject = $1, body = $2, media = media || $3, updated_at = $4
WHERE id = $5`
	if _, err := r.db.ExecContext(ctx, q, params.Subject, params.Body,
		pq.Array(params.AppendMedia), now, params.ID); err != nil {
		return fmt.Errorf("apply student edit: %w", err)
	}
	return nil
}

// SetHidden flips one actor's soft-delete flag. The underlying row survives
// and other actors' views are untouched.
func (r *ApplicationRepository) SetHidden(ctx context.Context, id string, actor models.UserRole) error {
	var column string
	switch actor {
	case models.RoleStudent:
		column = "hidden_from_student"
	case models.RoleTeacher:
		column = "hidden_from_advisor"
	case models.RoleCoordinator:
		column = "hidden_from_coordinator"
	default:
		return fmt.Errorf("no hidden flag for role %s", actor)
	}
	query := fmt.Sprintf("UPDATE applications SET %s = TRUE, updated_at = $1 WHERE id = $2", column)
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("hide application: %w", err)
	}
	return nil
}

// AddComment appends a role-tagged comment.
func (r *ApplicationRepository) AddComment(ctx context.Context, comment *models.ApplicationComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO application_comments (id, application_id, author_id, author_role, text, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, q,
		comment.ID, comment.ApplicationID, comment.AuthorID, comment.AuthorRole, comment.Text, comment.CreatedAt); err != nil {
		return fmt.Errorf("create application comment: %w", err)
	}
	return nil
}

// ListComments returns the application's thread, oldest first.
func (r *ApplicationRepository) ListComments(ctx context.Context, applicationID string) ([]models.ApplicationComment, error) {
	const q = `SELECT id, application_id, author_id, author_role, text, created_at
FROM application_comments WHERE application_id = $1 ORDER BY created_at ASC`
	var comments []models.ApplicationComment
	if err := r.db.SelectContext(ctx, &comments, q, applicationID); err != nil {
		return nil, fmt.Errorf("list application comments: %w", err)
	}
	return comments, nil
}
