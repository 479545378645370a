package dto

import (
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/airconnect-api/internal/models"
)

// CreateAnnouncementRequest is the multipart/JSON payload for posting an
// announcement. BatchID and RestrictToTeacherBatches are mutually relevant:
// a teacher posting without a batch may still limit visibility to the
// batches they teach.
type CreateAnnouncementRequest struct {
	Description              string `json:"description" form:"description" validate:"required"`
	Section                  string `json:"section" form:"section"`
	BatchID                  string `json:"batch_id" form:"batch_id"`
	RestrictToTeacherBatches bool   `json:"restrict_to_teacher_batches" form:"restrict_to_teacher_batches"`
}

// UpdateAnnouncementRequest modifies the description of an existing post.
type UpdateAnnouncementRequest struct {
	Description string `json:"description" validate:"required"`
}

// AnnouncementFilter carries the listing query parameters.
type AnnouncementFilter struct {
	Batch   string
	Section string
	Role    string
	Search  string
	Sort    string
	Page    int
	Limit   int
}

// AnnouncementItem is one listing entry. CreatedByRole is recomputed from the
// joined author row at read time, independent of the value stored at write
// time.
type AnnouncementItem struct {
	ID                       string          `db:"id" json:"id"`
	Description              string          `db:"description" json:"description"`
	Section                  string          `db:"section" json:"section"`
	BatchID                  *string         `db:"batch_id" json:"batch_id,omitempty"`
	BatchName                string          `db:"batch_name" json:"batch_name,omitempty"`
	CreatedBy                string          `db:"created_by" json:"created_by"`
	CreatedByName            string          `db:"created_by_name" json:"created_by_name"`
	CreatedByRole            models.UserRole `db:"author_role" json:"created_by_role"`
	RestrictToTeacherBatches bool            `db:"restrict_to_teacher_batches" json:"restrict_to_teacher_batches"`
	Media                    pq.StringArray  `db:"media" json:"media"`
	Likes                    int             `db:"likes" json:"likes"`
	Dislikes                 int             `db:"dislikes" json:"dislikes"`
	CreatedAt                time.Time       `db:"created_at" json:"created_at"`
}

// CommentRequest posts a comment.
type CommentRequest struct {
	Text string `json:"text" validate:"required"`
}
