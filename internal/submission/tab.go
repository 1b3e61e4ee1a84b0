package submission

import "strings"

// Tab groups assignments by where a student stands on them.
type Tab string

const (
	TabAll       Tab = "all"
	TabPending   Tab = "pending"
	TabSubmitted Tab = "submitted"
	TabGraded    Tab = "graded"
	TabOverdue   Tab = "overdue"
)

// ParseTab normalises a raw tab name; an empty value selects TabAll.
func ParseTab(raw string) (Tab, bool) {
	tab := Tab(strings.ToLower(strings.TrimSpace(raw)))
	switch tab {
	case "":
		return TabAll, true
	case TabAll, TabPending, TabSubmitted, TabGraded, TabOverdue:
		return tab, true
	default:
		return TabAll, false
	}
}

// TabFor places an assignment in a tab from the student's own submission.
// exists is false when the student never started one. Drafts count as
// pending until the deadline passes.
func TabFor(status Status, exists, overdue bool) Tab {
	if exists {
		switch status {
		case StatusGraded:
			return TabGraded
		case StatusSubmitted:
			return TabSubmitted
		}
	}
	if overdue {
		return TabOverdue
	}
	return TabPending
}

// Includes reports whether an assignment in tab other is listed under t.
func (t Tab) Includes(other Tab) bool {
	return t == TabAll || t == other
}
