package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/airconnect-api/internal/models"
)

// UserRepository provides read-only directory access to campus accounts.
// Account lifecycle is managed by the enrolment system, not this service.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, email, password_hash, full_name, role, section, created_at"

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail returns a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := fmt.Sprintf("SELECT %s FROM users WHERE LOWER(email) = LOWER($1)", userColumns)
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListIDsByRole returns the ids of every user holding the role.
func (r *UserRepository) ListIDsByRole(ctx context.Context, role models.UserRole) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, "SELECT id FROM users WHERE role = $1", role); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return ids, nil
}

// ListStudentIDs returns every student id.
func (r *UserRepository) ListStudentIDs(ctx context.Context) ([]string, error) {
	return r.ListIDsByRole(ctx, models.RoleStudent)
}

// ListStudentIDsBySection returns student ids scoped to one section.
func (r *UserRepository) ListStudentIDsBySection(ctx context.Context, section string) ([]string, error) {
	var ids []string
	query := "SELECT id FROM users WHERE role = $1 AND LOWER(section) = LOWER($2)"
	if err := r.db.SelectContext(ctx, &ids, query, models.RoleStudent, section); err != nil {
		return nil, fmt.Errorf("list students by section: %w", err)
	}
	return ids, nil
}
