package models

import (
	"time"

	"github.com/lib/pq"
)

// Job is a posted vacancy. Kept thin; it exists mainly so the posting flow
// can fan out notifications to students.
type Job struct {
	ID          string         `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Company     string         `db:"company" json:"company"`
	Description string         `db:"description" json:"description"`
	Link        string         `db:"link" json:"link"`
	PostedBy    string         `db:"posted_by" json:"posted_by"`
	Media       pq.StringArray `db:"media" json:"media"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
