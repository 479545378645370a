package models

import "time"

// UserRole enumerates the campus roles.
type UserRole string

const (
	RoleStudent        UserRole = "STUDENT"
	RoleTeacher        UserRole = "TEACHER"
	RoleCoordinator    UserRole = "COORDINATOR"
	RoleStudentAffairs UserRole = "STUDENT_AFFAIRS"
)

// ParseRole maps loosely-formatted role input (query params, claims) onto a
// known UserRole. Returns false for anything unrecognised.
func ParseRole(raw string) (UserRole, bool) {
	switch normaliseRole(raw) {
	case RoleStudent:
		return RoleStudent, true
	case RoleTeacher:
		return RoleTeacher, true
	case RoleCoordinator:
		return RoleCoordinator, true
	case RoleStudentAffairs:
		return RoleStudentAffairs, true
	}
	return "", false
}

func normaliseRole(raw string) UserRole {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		case c == '-' || c == ' ':
			c = '_'
		}
		out = append(out, c)
	}
	return UserRole(out)
}

// User represents a registered campus account. CreatedAt gates which
// announcements the user may see.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         UserRole  `db:"role" json:"role"`
	Section      string    `db:"section" json:"section"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Pagination describes paged listing metadata.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
