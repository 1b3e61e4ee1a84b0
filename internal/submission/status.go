package submission

import (
	"strings"
	"time"
)

// Status is the persisted lifecycle status of a submission record.
type Status string

const (
	// StatusDraft marks a submission that was created but never handed in.
	StatusDraft Status = "draft"
	// StatusSubmitted marks a submission waiting for an instructor.
	StatusSubmitted Status = "submitted"
	// StatusGraded marks a submission that carries a score and feedback.
	StatusGraded Status = "graded"
)

// ParseStatus normalises a raw status value.
func ParseStatus(raw string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	return status, status.Valid()
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusGraded:
		return true
	default:
		return false
	}
}

// CanAdvance reports whether a persisted record may move from s to next.
// Records only move forward; a graded record may be graded again.
func (s Status) CanAdvance(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusDraft || next == StatusSubmitted
	case StatusSubmitted:
		return next == StatusSubmitted || next == StatusGraded
	case StatusGraded:
		return next == StatusGraded
	default:
		return false
	}
}

// Role identifies who is driving a transition.
type Role string

const (
	RoleStudent Role = "student"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"
)

// ParseRole normalises a raw role claim. Unknown values map to an empty role.
func ParseRole(raw string) Role {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleStudent, RoleTrainer, RoleAdmin:
		return role
	case "instructor", "teacher":
		return RoleTrainer
	default:
		return ""
	}
}

// IsInstructor reports whether the role may grade submissions.
func (r Role) IsInstructor() bool {
	return r == RoleTrainer || r == RoleAdmin
}

// IsOverdue reports whether the deadline has passed at the reference time.
func IsOverdue(due, now time.Time) bool {
	return now.After(due)
}
