package models

import (
	"time"

	"github.com/lib/pq"
)

// ApplicationStatus values are stored verbatim; the wire strings below are
// load-bearing for clients and must not be renamed.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "Pending"
	ApplicationForwarded ApplicationStatus = "Forward to Coordinator"
	ApplicationApproved  ApplicationStatus = "Approved by Coordinator"
	ApplicationRejected  ApplicationStatus = "Rejected"
)

// CanonicalAdvisorStatus maps the shorthand an advisor client may send onto
// the stored status. Anything other than the transit shorthand is stored
// verbatim, which covers Rejected and the reopen-to-Pending path.
func CanonicalAdvisorStatus(raw string) ApplicationStatus {
	if raw == "Transit" {
		return ApplicationForwarded
	}
	return ApplicationStatus(raw)
}

// CanonicalCoordinatorStatus maps the shorthand a coordinator client may send
// onto the stored status.
func CanonicalCoordinatorStatus(raw string) ApplicationStatus {
	if raw == "Forwarded" {
		return ApplicationApproved
	}
	return ApplicationStatus(raw)
}

// Application is one student request routed to the advisor and coordinator of
// the student's batch. Advisor is fixed for the lifetime of the application;
// coordinator is overwritten by whichever coordinator acts on it.
type Application struct {
	ID                    string            `db:"id" json:"id"`
	Subject               string            `db:"subject" json:"subject"`
	Body                  string            `db:"body" json:"body"`
	StudentID             string            `db:"student_id" json:"student_id"`
	AdvisorID             string            `db:"advisor_id" json:"advisor_id"`
	CoordinatorID         string            `db:"coordinator_id" json:"coordinator_id"`
	Status                ApplicationStatus `db:"status" json:"application_status"`
	AdvisorComments       string            `db:"advisor_comments" json:"advisor_comments"`
	CoordinatorComments   string            `db:"coordinator_comments" json:"coordinator_comments"`
	AdvisorActionAt       *time.Time        `db:"advisor_action_at" json:"advisor_action_at,omitempty"`
	CoordinatorActionAt   *time.Time        `db:"coordinator_action_at" json:"coordinator_action_at,omitempty"`
	HiddenFromStudent     bool              `db:"hidden_from_student" json:"hidden_from_student"`
	HiddenFromAdvisor     bool              `db:"hidden_from_advisor" json:"hidden_from_advisor"`
	HiddenFromCoordinator bool              `db:"hidden_from_coordinator" json:"hidden_from_coordinator"`
	Media                 pq.StringArray    `db:"media" json:"media"`
	CreatedAt             time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time         `db:"updated_at" json:"updated_at"`
}

// ActorRole resolves which of the three stored actor references matches the
// given user id. Identity comparison, not role claims, decides the tag.
func (a *Application) ActorRole(userID string) (UserRole, bool) {
	switch userID {
	case a.StudentID:
		return RoleStudent, true
	case a.AdvisorID:
		return RoleTeacher, true
	case a.CoordinatorID:
		return RoleCoordinator, true
	}
	return "", false
}

// EditableByStudent reports whether the owning student may still modify the
// application: either it has not been acted on, or the advisor sent it back
// with comments.
func (a *Application) EditableByStudent() bool {
	return a.Status == ApplicationPending || a.AdvisorComments != ""
}

// ApplicationComment is a threaded comment tagged with the author's role at
// write time.
type ApplicationComment struct {
	ID            string    `db:"id" json:"id"`
	ApplicationID string    `db:"application_id" json:"application_id"`
	AuthorID      string    `db:"author_id" json:"author_id"`
	AuthorRole    UserRole  `db:"author_role" json:"author_role"`
	Text          string    `db:"text" json:"text"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
