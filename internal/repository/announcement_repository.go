package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/airconnect-api/internal/dto"
	"github.com/noah-isme/airconnect-api/internal/models"
	"github.com/noah-isme/airconnect-api/internal/query"
)

// AnnouncementRepository provides persistence for announcements, reactions
// and comments.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// List executes a visibility predicate against the announcement set and
// returns one page plus the total match count. The author role in each item
// comes from the joined user row, not the column stamped at write time.
func (r *AnnouncementRepository) List(ctx context.Context, scope query.Node, filter dto.AnnouncementFilter) ([]dto.AnnouncementItem, int, error) {
	if filter.Search != "" {
		scope = query.And(scope, query.Match("a.description", filter.Search))
	}
	whereClause, args := query.ToSQL(scope, 1)

	base := `FROM announcements a JOIN users u ON u.id = a.created_by`

	order := "ASC"
	if filter.Sort == "" || strings.EqualFold(filter.Sort, "latest") {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.Limit
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	listQuery := fmt.Sprintf(`SELECT a.id, a.description, a.section, a.batch_id, a.batch_name,
a.created_by, u.full_name AS created_by_name, u.role AS author_role,
a.restrict_to_teacher_batches, a.media,
(SELECT COUNT(*) FROM announcement_reactions lr WHERE lr.announcement_id = a.id AND lr.kind = 'LIKE') AS likes,
(SELECT COUNT(*) FROM announcement_reactions dr WHERE dr.announcement_id = a.id AND dr.kind = 'DISLIKE') AS dislikes,
a.created_at
%s WHERE %s
ORDER BY a.created_at %s
LIMIT %d OFFSET %d`, base, whereClause, order, size, offset)

	var items []dto.AnnouncementItem
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}
	return items, total, nil
}

// GetByID returns an announcement by identifier.
func (r *AnnouncementRepository) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	const q = `SELECT id, description, section, batch_id, batch_name, created_by, created_by_role,
restrict_to_teacher_batches, media, 0 AS likes, 0 AS dislikes, created_at
FROM announcements WHERE id = $1`
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, q, id); err != nil {
		return nil, err
	}
	return &announcement, nil
}

// Create inserts a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO announcements (id, description, section, batch_id, batch_name, created_by,
created_by_role, restrict_to_teacher_batches, media, created_at)
VALUES (:id, :description, :section, :batch_id, :batch_name, :created_by,
:created_by_role, :restrict_to_teacher_batches, :media, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, q, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// UpdateDescription modifies the post body. Other fields are immutable after
// creation.
func (r *AnnouncementRepository) UpdateDescription(ctx context.Context, id, description string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE announcements SET description = $1 WHERE id = $2", description, id); err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return nil
}

// Delete removes an announcement; reactions and comments cascade.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM announcements WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}

// React toggles the user's reaction as one atomic unit: reacting with the
// kind already present removes it, any other state converges on exactly that
// kind, displacing the complementary one.
func (r *AnnouncementRepository) React(ctx context.Context, announcementID, userID string, kind models.ReactionKind) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		"DELETE FROM announcement_reactions WHERE announcement_id = $1 AND user_id = $2 AND kind = $3",
		announcementID, userID, kind)
	if err != nil {
		return fmt.Errorf("toggle reaction: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		_, err = tx.ExecContext(ctx, `INSERT INTO announcement_reactions (announcement_id, user_id, kind, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (announcement_id, user_id) DO UPDATE SET kind = EXCLUDED.kind, created_at = EXCLUDED.created_at`,
			announcementID, userID, kind, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("set reaction: %w", err)
		}
	}
	return tx.Commit()
}

// Reaction returns the user's current reaction, if any.
func (r *AnnouncementRepository) Reaction(ctx context.Context, announcementID, userID string) (models.ReactionKind, error) {
	var kind models.ReactionKind
	err := r.db.GetContext(ctx, &kind,
		"SELECT kind FROM announcement_reactions WHERE announcement_id = $1 AND user_id = $2",
		announcementID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("get reaction: %w", err)
	}
	return kind, nil
}

// AddComment appends a comment to an announcement.
func (r *AnnouncementRepository) AddComment(ctx context.Context, comment *models.AnnouncementComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO announcement_comments (id, announcement_id, author_id, text, created_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, q,
		comment.ID, comment.AnnouncementID, comment.AuthorID, comment.Text, comment.CreatedAt); err != nil {
		return fmt.Errorf("create announcement comment: %w", err)
	}
	return nil
}

// ListComments returns one page of comments, newest first, plus the total.
func (r *AnnouncementRepository) ListComments(ctx context.Context, announcementID string, page, size int) ([]models.AnnouncementComment, int, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	const q = `SELECT c.id, c.announcement_id, c.author_id, u.full_name AS author_name, c.text, c.created_at
FROM announcement_comments c JOIN users u ON u.id = c.author_id
WHERE c.announcement_id = $1
ORDER BY c.created_at DESC
LIMIT $2 OFFSET $3`
	var comments []models.AnnouncementComment
	if err := r.db.SelectContext(ctx, &comments, q, announcementID, size, offset); err != nil {
		return nil, 0, fmt.Errorf("list announcement comments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM announcement_comments WHERE announcement_id = $1", announcementID); err != nil {
		return nil, 0, fmt.Errorf("count announcement comments: %w", err)
	}
	return comments, total, nil
}
