package models

import (
	"time"

	"github.com/lib/pq"
)

// SectionAll is the sentinel section name marking an announcement visible
// across sections.
const SectionAll = "all"

// Announcement is a campus-wide or batch-scoped post. BatchName is
// denormalised from the referenced batch at creation; CreatedByRole is
// denormalised from the author but recomputed from the joined author row at
// read time for display.
type Announcement struct {
	ID                       string         `db:"id" json:"id"`
	Description              string         `db:"description" json:"description"`
	Section                  string         `db:"section" json:"section"`
	BatchID                  *string        `db:"batch_id" json:"batch_id,omitempty"`
	BatchName                string         `db:"batch_name" json:"batch_name,omitempty"`
	CreatedBy                string         `db:"created_by" json:"created_by"`
	CreatedByRole            UserRole       `db:"created_by_role" json:"created_by_role"`
	RestrictToTeacherBatches bool           `db:"restrict_to_teacher_batches" json:"restrict_to_teacher_batches"`
	Media                    pq.StringArray `db:"media" json:"media"`
	Likes                    int            `db:"likes" json:"likes"`
	Dislikes                 int            `db:"dislikes" json:"dislikes"`
	CreatedAt                time.Time      `db:"created_at" json:"created_at"`
}

// ReactionKind distinguishes the two mutually exclusive reaction sets.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "LIKE"
	ReactionDislike ReactionKind = "DISLIKE"
)

// Opposite returns the complementary reaction kind.
func (k ReactionKind) Opposite() ReactionKind {
	if k == ReactionLike {
		return ReactionDislike
	}
	return ReactionLike
}

// AnnouncementComment is a flat comment attached to an announcement.
type AnnouncementComment struct {
	ID             string    `db:"id" json:"id"`
	AnnouncementID string    `db:"announcement_id" json:"announcement_id"`
	AuthorID       string    `db:"author_id" json:"author_id"`
	AuthorName     string    `db:"author_name" json:"author_name"`
	Text           string    `db:"text" json:"text"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
