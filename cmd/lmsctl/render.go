package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/noah-isme/gema-classroom/internal/submission"
	"github.com/noah-isme/gema-classroom/pkg/lmsclient"
)

const dateLayout = "2006-01-02 15:04"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
)

func renderTable(out io.Writer, title string, headers []string, rows [][]string) {
	fmt.Fprintln(out, titleStyle.Render(title))
	if len(rows) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("  nothing to show"))
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(out, t.Render())
}

func renderPagination(out io.Writer, p lmsclient.Pagination) {
	if p.TotalPages == 0 {
		return
	}
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("page %d of %d, %d total", p.Page, p.TotalPages, p.TotalItems)))
}

func renderSubmission(out io.Writer, assignment lmsclient.Assignment, s lmsclient.Submission) {
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Submission %d for %q", s.ID, assignment.Title)))

	lines := []string{
		fmt.Sprintf("status:   %s (version %d)", s.Status, s.Version),
	}
	if s.SubmittedAt != nil {
		lines = append(lines, "submitted: "+s.SubmittedAt.Local().Format(dateLayout))
	}
	if text := strings.TrimSpace(s.Content.Text); text != "" {
		lines = append(lines, "text:     "+truncate(text, 60))
	}
	for _, link := range s.Content.Links {
		lines = append(lines, "link:     "+linkLabel(link))
	}
	for _, file := range s.Content.Files {
		lines = append(lines, fmt.Sprintf("file:     %s (%s)", file.Name, submission.FormatFileSize(file.Size)))
	}
	if s.Grade != nil {
		lines = append(lines, fmt.Sprintf("grade:    %s (%s)",
			submission.FormatScore(s.Grade.Score, assignment.Points),
			submission.FormatPercentage(s.Grade.Score, assignment.Points)))
		if s.Grade.Feedback != "" {
			lines = append(lines, "feedback: "+truncate(s.Grade.Feedback, 60))
		}
	}
	fmt.Fprintln(out, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderRejections(out io.Writer, rejections []submission.Rejection) {
	for _, rejection := range rejections {
		fmt.Fprintln(out, warnStyle.Render("skipped "+rejection.Name+": "+rejection.Err.Error()))
	}
}

func linkLabel(link lmsclient.Link) string {
	if link.Title == "" {
		return link.URL
	}
	return link.Title + " <" + link.URL + ">"
}

func truncate(value string, limit int) string {
	runes := []rune(strings.ReplaceAll(value, "\n", " "))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
