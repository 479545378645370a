package visibility

import (
	"strings"
	"time"

	"github.com/noah-isme/airconnect-api/internal/models"
	"github.com/noah-isme/airconnect-api/internal/query"
)

// Announcement table columns the builder predicates over.
const (
	colCreatedBy     = "a.created_by"
	colCreatedByRole = "a.created_by_role"
	colSection       = "a.section"
	colBatchID       = "a.batch_id"
	colBatchName     = "a.batch_name"
	colRestrict      = "a.restrict_to_teacher_batches"
	colCreatedAt     = "a.created_at"
)

// Viewer carries the identity attributes and directory snapshot the builder
// partitions on. The directory fields are resolved once per request; the
// builder itself performs no lookups.
type Viewer struct {
	ID        string
	Role      models.UserRole
	Section   string
	CreatedAt time.Time

	// Student attributes: the batch the viewer belongs to and the teachers
	// of that batch.
	BatchID         string
	BatchName       string
	BatchTeacherIDs []string

	// Teacher attribute: names of the batches the viewer teaches.
	TaughtBatchNames []string
}

// Params are the caller-supplied listing filters. RoleAuthorIDs is the
// resolved roster for the Role filter; empty plus a non-"all" Role still
// constrains the author set (to nobody).
type Params struct {
	Batch         string
	Section       string
	Role          string
	RoleAuthorIDs []string
}

// Build produces the predicate selecting exactly the announcements the viewer
// is authorised to see. Entitlement misses (wrong batch, wrong section) force
// a provably-empty predicate rather than an error; post-filters are skipped
// once the tree is forced empty.
func Build(viewer Viewer, params Params) query.Node {
	node, batchApplied := roleScope(viewer, params)
	if query.IsEmpty(node) {
		return node
	}

	// Announcements that predate the viewer's registration are invisible.
	node = query.And(node, query.Gte(colCreatedAt, viewer.CreatedAt))

	if params.Section != "" && params.Section != models.SectionAll {
		node = applySection(node, viewer, params.Section)
		if query.IsEmpty(node) {
			return node
		}
	}

	if params.Role != "" && !strings.EqualFold(params.Role, models.SectionAll) {
		node = query.And(node, query.In(colCreatedBy, params.RoleAuthorIDs))
		if query.IsEmpty(node) {
			return node
		}
	}

	if params.Batch != "" && !batchApplied {
		node = query.And(node, query.EqFold(colBatchName, params.Batch))
	}

	return node
}

// roleScope returns the role partition plus whether a batch condition was
// already decided by the role logic (suppressing the flat fallback).
func roleScope(viewer Viewer, params Params) (query.Node, bool) {
	switch viewer.Role {
	case models.RoleCoordinator:
		// Coordinators see only what they personally authored. Asymmetric
		// with the other roles and intentional.
		return query.Eq(colCreatedBy, viewer.ID), false

	case models.RoleStudentAffairs:
		return query.And(
			query.Eq(colCreatedByRole, models.RoleCoordinator),
			query.Eq(colSection, models.SectionAll),
		), false

	case models.RoleTeacher:
		return teacherScope(viewer, params), params.Batch != ""

	case models.RoleStudent:
		return studentScope(viewer, params), params.Batch != ""
	}

	return query.Empty(), false
}

func teacherScope(viewer Viewer, params Params) query.Node {
	if params.Batch != "" {
		matched := matchTaught(viewer.TaughtBatchNames, params.Batch)
		if matched == "" {
			return query.Empty()
		}
		// Narrowed to the batch partition: both others' and own posts.
		return query.EqFold(colBatchName, matched)
	}

	return query.Or(
		query.And(
			query.Eq(colCreatedByRole, models.RoleCoordinator),
			query.Eq(colSection, models.SectionAll),
			query.Ne(colCreatedBy, viewer.ID),
		),
		query.And(
			query.In(colBatchName, viewer.TaughtBatchNames),
			query.Ne(colCreatedBy, viewer.ID),
		),
		query.Eq(colCreatedBy, viewer.ID),
	)
}

func studentScope(viewer Viewer, params Params) query.Node {
	if params.Batch != "" {
		if viewer.BatchName == "" || !strings.EqualFold(params.Batch, viewer.BatchName) {
			return query.Empty()
		}
		return query.EqFold(colBatchName, viewer.BatchName)
	}

	branches := []query.Node{
		query.And(
			query.Eq(colCreatedByRole, models.RoleCoordinator),
			query.Eq(colSection, models.SectionAll),
		),
		sectionBranch(viewer),
	}
	if viewer.BatchName != "" {
		branches = append(branches, query.EqFold(colBatchName, viewer.BatchName))
	}
	return query.Or(branches...)
}

// sectionBranch admits section-wide posts without a batch association. A post
// flagged restrict_to_teacher_batches stays visible only when its author
// teaches the student's batch.
func sectionBranch(viewer Viewer) query.Node {
	return query.And(
		query.Eq(colSection, viewer.Section),
		query.IsNull(colBatchID),
		query.Or(
			query.Eq(colRestrict, false),
			query.In(colCreatedBy, viewer.BatchTeacherIDs),
		),
	)
}

func applySection(node query.Node, viewer Viewer, section string) query.Node {
	if viewer.Role == models.RoleStudent {
		if !strings.EqualFold(section, viewer.Section) {
			return query.Empty()
		}
		return query.And(node, query.Eq(colSection, viewer.Section))
	}
	// Conjunction distributes over every branch of a union scope.
	return query.And(node, query.Eq(colSection, section))
}

func matchTaught(taught []string, batch string) string {
	for _, name := range taught {
		if strings.EqualFold(name, batch) {
			return name
		}
	}
	return ""
}
