// Package browse filters, searches and sorts list pages that were already
// fetched, and groups assignments into status tabs.
package browse

import (
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/gema-classroom/internal/submission"
	"github.com/noah-isme/gema-classroom/pkg/lmsclient"
)

// Filter returns the items keep accepts, in order.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Search keeps items where any field contains query, ignoring case. A blank
// query keeps everything.
func Search[T any](items []T, query string, fields ...func(T) string) []T {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return append([]T(nil), items...)
	}
	return Filter(items, func(item T) bool {
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field(item)), needle) {
				return true
			}
		}
		return false
	})
}

// SortBy returns a stably sorted copy of items.
func SortBy[T any](items []T, less func(a, b T) bool) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// AssignmentRow pairs an assignment with the viewer's own submission.
type AssignmentRow struct {
	Assignment lmsclient.Assignment
	Submission *lmsclient.Submission
	Tab        submission.Tab
	Overdue    bool
}

// Rows places each assignment in a tab. mine maps assignment id to the
// student's submission; missing entries mean nothing was started.
func Rows(assignments []lmsclient.Assignment, mine map[uint]lmsclient.Submission, now time.Time) []AssignmentRow {
	rows := make([]AssignmentRow, 0, len(assignments))
	for _, assignment := range assignments {
		row := AssignmentRow{
			Assignment: assignment,
			Overdue:    submission.IsOverdue(assignment.DueDate, now),
		}

		own, exists := mine[assignment.ID]
		status := submission.Status("")
		if exists {
			copied := own
			row.Submission = &copied
			status = submission.Status(own.Status)
		}
		row.Tab = submission.TabFor(status, exists, row.Overdue)
		rows = append(rows, row)
	}
	return rows
}

// ByTab keeps the rows listed under tab.
func ByTab(rows []AssignmentRow, tab submission.Tab) []AssignmentRow {
	return Filter(rows, func(row AssignmentRow) bool { return tab.Includes(row.Tab) })
}

// CountTabs counts rows per tab, including the all tab.
func CountTabs(rows []AssignmentRow) map[submission.Tab]int {
	counts := map[submission.Tab]int{
		submission.TabAll:       len(rows),
		submission.TabPending:   0,
		submission.TabSubmitted: 0,
		submission.TabGraded:    0,
		submission.TabOverdue:   0,
	}
	for _, row := range rows {
		counts[row.Tab]++
	}
	return counts
}

// ByDueDate orders assignments by deadline, earliest first.
func ByDueDate(a, b lmsclient.Assignment) bool {
	return a.DueDate.Before(b.DueDate)
}

// SubmissionStatus returns a predicate matching submissions in status. An
// empty status matches everything.
func SubmissionStatus(status string) func(lmsclient.Submission) bool {
	status = strings.ToLower(strings.TrimSpace(status))
	return func(s lmsclient.Submission) bool {
		return status == "" || s.Status == status
	}
}

// StudentName is a search field for submissions with an embedded student.
func StudentName(s lmsclient.Submission) string {
	if s.Student == nil {
		return ""
	}
	return s.Student.Name + " " + s.Student.Email
}
