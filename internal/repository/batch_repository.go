package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/airconnect-api/internal/models"
)

// BatchRepository reads cohort membership. Batches are mutated by the
// batch-management flows outside this service; every lookup here is a
// point-in-time snapshot.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs a BatchRepository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

const batchColumns = "id, name, advisor_id, coordinator_id, created_at"

// FindByID returns a batch by identifier.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	var batch models.Batch
	query := fmt.Sprintf("SELECT %s FROM batches WHERE id = $1", batchColumns)
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindBatchOfStudent returns the batch the student belongs to, or nil when
// the student is unassigned.
func (r *BatchRepository) FindBatchOfStudent(ctx context.Context, studentID string) (*models.Batch, error) {
	var batch models.Batch
	query := `SELECT b.id, b.name, b.advisor_id, b.coordinator_id, b.created_at FROM batches b
JOIN batch_students bs ON bs.batch_id = b.id
WHERE bs.student_id = $1`
	if err := r.db.GetContext(ctx, &batch, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find batch of student: %w", err)
	}
	return &batch, nil
}

// FindBatchNamesTaughtBy returns the names of every batch the teacher
// teaches, including ones they advise.
func (r *BatchRepository) FindBatchNamesTaughtBy(ctx context.Context, teacherID string) ([]string, error) {
	var names []string
	query := `SELECT DISTINCT b.name FROM batches b
LEFT JOIN batch_teachers bt ON bt.batch_id = b.id
WHERE bt.teacher_id = $1 OR b.advisor_id = $1`
	if err := r.db.SelectContext(ctx, &names, query, teacherID); err != nil {
		return nil, fmt.Errorf("find batches taught by teacher: %w", err)
	}
	return names, nil
}

// ListStudentIDs returns the student members of the batch.
func (r *BatchRepository) ListStudentIDs(ctx context.Context, batchID string) ([]string, error) {
	var ids []string
	query := "SELECT student_id FROM batch_students WHERE batch_id = $1"
	if err := r.db.SelectContext(ctx, &ids, query, batchID); err != nil {
		return nil, fmt.Errorf("list batch students: %w", err)
	}
	return ids, nil
}

// ListTeacherIDs returns the teaching staff of the batch, advisor included.
func (r *BatchRepository) ListTeacherIDs(ctx context.Context, batchID string) ([]string, error) {
	var ids []string
	query := `SELECT bt.teacher_id FROM batch_teachers bt WHERE bt.batch_id = $1
UNION
SELECT b.advisor_id FROM batches b WHERE b.id = $1 AND b.advisor_id <> ''`
	if err := r.db.SelectContext(ctx, &ids, query, batchID); err != nil {
		return nil, fmt.Errorf("list batch teachers: %w", err)
	}
	return ids, nil
}
