package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/airconnect-api/internal/models"
)

// JobRepository persists posted job vacancies.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository constructs a JobRepository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a job posting.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO jobs (id, title, company, description, link, posted_by, media, created_at)
VALUES (:id, :title, :company, :description, :link, :posted_by, :media, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, q, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// GetByID returns a job posting by identifier.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	const q = `SELECT id, title, company, description, link, posted_by, media, created_at
FROM jobs WHERE id = $1`
	if err := r.db.GetContext(ctx, &job, q, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns job postings newest first.
func (r *JobRepository) List(ctx context.Context, page, size int) ([]models.Job, int, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, title, company, description, link, posted_by, media, created_at
FROM jobs ORDER BY created_at DESC LIMIT %d OFFSET %d`, size, offset)
	var jobPostings []models.Job
	if err := r.db.SelectContext(ctx, &jobPostings, query); err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM jobs"); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}
	return jobPostings, total, nil
}

// Delete removes a job posting.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("job %s not found", id)
	}
	return nil
}
