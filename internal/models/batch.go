package models

import "time"

// Batch is a cohort of students with a set of teachers, one advisor and one
// coordinator. Membership is managed outside this service; readers must treat
// lookups as point-in-time snapshots.
type Batch struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	AdvisorID     string    `db:"advisor_id" json:"advisor_id"`
	CoordinatorID string    `db:"coordinator_id" json:"coordinator_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// BatchSnapshot carries the batch row plus the membership a request needs,
// resolved once at the start of the request.
type BatchSnapshot struct {
	Batch
	StudentIDs []string `json:"student_ids"`
	TeacherIDs []string `json:"teacher_ids"`
}
