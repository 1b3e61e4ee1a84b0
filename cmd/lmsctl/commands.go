package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-classroom/internal/browse"
	"github.com/noah-isme/gema-classroom/internal/config"
	"github.com/noah-isme/gema-classroom/internal/submission"
	"github.com/noah-isme/gema-classroom/internal/workflow"
	"github.com/noah-isme/gema-classroom/pkg/lmsclient"
)

var errHelp = errors.New("help provided")

const submissionLookupLimit = 4

type commandLine struct {
	client *lmsclient.Client
	cfg    config.ClientConfig
	logger zerolog.Logger
	out    io.Writer
	now    func() time.Time
	lists  *listCache
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  assignments [-tab TAB] [-search TEXT] [-status STATUS] [-page N] - list assignments")
	fmt.Fprintln(cli.out, "  dashboard [-tab TAB]                                       - show your progress")
	fmt.Fprintln(cli.out, "  submit -assignment ID [-text TEXT] [-link TITLE=URL] [-file PATH] - submit or resubmit work")
	fmt.Fprintln(cli.out, "  grade -submission ID [-score N] [-feedback TEXT] [-suggest] - grade a submission")
	fmt.Fprintln(cli.out, "  submissions -assignment ID [-status STATUS] [-search TEXT] - list submissions for an assignment")
	fmt.Fprintln(cli.out, "  resources [-q TEXT] [-category ID] [-type TYPE]             - browse learning resources")
	fmt.Fprintln(cli.out, "  sessions [-cohort ID]                                       - list upcoming sessions")
	fmt.Fprintln(cli.out, "  whoami                                                      - show the identity in LMS_API_TOKEN")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "assignments":
		fs := cli.newFlagSet("assignments")
		tab := fs.String("tab", "all", "pending, submitted, graded, overdue or all")
		search := fs.String("search", "", "Filter by title.")
		status := fs.String("status", "", "Assignment status filter.")
		page := fs.Int("page", 1, "Page number.")
		if err := cli.parse(fs, args[2:]); err != nil {
			return err
		}
		return cli.assignments(ctx, *tab, *search, *status, *page)
	case "dashboard":
		fs := cli.newFlagSet("dashboard")
		tab := fs.String("tab", "", "Limit to one tab.")
		if err := cli.parse(fs, args[2:]); err != nil {
			return err
		}
		return cli.dashboard(ctx, *tab)
	case "submit":
		fs := cli.newFlagSet("submit")
		assignmentID := fs.Uint("assignment", 0, "Assignment id.")
		text := fs.String("text", "", "Submission text.")
		var links, files stringList
		fs.Var(&links, "link", "Link as TITLE=URL or URL. Repeatable; replaces saved links.")
		fs.Var(&files, "file", "Path of a file to attach. Repeatable.")
		if err := cli.parse(fs, args[2:]); err != nil {
			return err
		}
		if *assignmentID == 0 {
			fs.Usage()
			return errHelp
		}
		return cli.submit(ctx, *assignmentID, *text, links, files)
	case "grade":
		fs := cli.newFlagSet("grade")
		submissionID := fs.Uint("submission", 0, "Submission id.")
		score := fs.Float64("score", -1, "Score between 0 and the assignment points.")
		feedback := fs.String("feedback", "", "Feedback for the student.")
		suggest := fs.Bool("suggest", false, "Start from a drafted score and feedback.")
		if err := cli.parse(fs, args[2:]); err != nil {
			return err
		}
		if *submissionID == 0 {
			fs.Usage()
			return errHelp
		}
		return cli.grade(ctx, *submissionID, *score, *feedback, *suggest)
	case "submissions":
		fs := cli.newFlagSet("submissions")
		assignmentID := fs.Uint("assignment", 0, "Assignment id.")
		status := fs.String("status", "", "draft, submitted or graded")
		search := fs.String("search", "", "Filter by student name or email.")
		if err := cli.parse(fs, args[2:]); err != nil {
			return err
		}
		if *assignmentID == 0 {
			fs.Usage()
			return errHelp
		}
		return cli.submissions(ctx, *assignmentID, *status, *search)
	case "resources":
		fs := cli.newFlagSet("resources")
		query := fs.String("q", "", "Full text search.")
		category := fs.Uint("category", 0, "Category id.")
		kind := fs.String("type", "", "Resource type.")
		if err := cli.parse(fs, args[2:]); err != nil {
			return err
		}
		return cli.resources(ctx, *query, *category, *kind)
	case "sessions":
		fs := cli.newFlagSet("sessions")
		cohort := fs.Uint("cohort", 0, "Cohort id.")
		if err := cli.parse(fs, args[2:]); err != nil {
			return err
		}
		return cli.sessions(ctx, *cohort)
	case "whoami":
		return cli.whoami()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) assignments(ctx context.Context, rawTab, search, status string, page int) error {
	tab, ok := submission.ParseTab(rawTab)
	if !ok {
		return fmt.Errorf("unknown tab %q", rawTab)
	}
	who, err := identityFromToken(cli.cfg.Token)
	if err != nil {
		return err
	}

	loaded, err := cli.cache().assignments.Load(ctx, assignmentsKey{role: who.Role, status: status, page: page})
	if err != nil {
		return err
	}
	result := loaded.result
	items := browse.Search(result.Items, search, func(a lmsclient.Assignment) string { return a.Title })
	items = browse.SortBy(items, browse.ByDueDate)

	if who.Role.IsInstructor() {
		rows := make([][]string, 0, len(items))
		for _, a := range items {
			rows = append(rows, []string{
				strconv.FormatUint(uint64(a.ID), 10),
				a.Title,
				a.DueDate.Local().Format(dateLayout),
				strconv.FormatFloat(a.Points, 'f', -1, 64),
				a.Status,
			})
		}
		renderTable(cli.out, "Assignments", []string{"ID", "Title", "Due", "Points", "Status"}, rows)
		renderPagination(cli.out, result.Pagination)
		return nil
	}

	all := browse.Rows(items, loaded.mine, cli.now())
	counts := browse.CountTabs(all)

	rows := [][]string{}
	for _, row := range browse.ByTab(all, tab) {
		state := "not started"
		if row.Submission != nil {
			state = row.Submission.Status
			if row.Submission.Grade != nil {
				state += " " + submission.FormatScore(row.Submission.Grade.Score, row.Assignment.Points)
			}
		}
		due := row.Assignment.DueDate.Local().Format(dateLayout)
		if row.Overdue {
			due = warnStyle.Render(due)
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(row.Assignment.ID), 10),
			row.Assignment.Title,
			due,
			string(row.Tab),
			state,
		})
	}
	title := fmt.Sprintf("Assignments (%s) pending %d, submitted %d, graded %d, overdue %d",
		tab, counts[submission.TabPending], counts[submission.TabSubmitted],
		counts[submission.TabGraded], counts[submission.TabOverdue])
	renderTable(cli.out, title, []string{"ID", "Title", "Due", "Tab", "Submission"}, rows)
	renderPagination(cli.out, result.Pagination)
	return nil
}

// mySubmissions looks up the caller's submission for every assignment on the
// page. Assignments without one are left out of the map.
func (cli *commandLine) mySubmissions(ctx context.Context, assignments []lmsclient.Assignment) (map[uint]lmsclient.Submission, error) {
	var (
		mu   sync.Mutex
		mine = make(map[uint]lmsclient.Submission, len(assignments))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(submissionLookupLimit)
	for _, a := range assignments {
		assignmentID := a.ID
		g.Go(func() error {
			own, err := cli.client.GetMySubmission(gctx, assignmentID)
			if errors.Is(err, lmsclient.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("assignment %d: %w", assignmentID, err)
			}
			mu.Lock()
			mine[assignmentID] = own
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mine, nil
}

func (cli *commandLine) dashboard(ctx context.Context, tab string) error {
	dash, err := cli.client.GetDashboard(ctx, tab)
	if err != nil {
		return err
	}

	s := dash.Summary
	fmt.Fprintln(cli.out, titleStyle.Render("Progress"))
	fmt.Fprintf(cli.out, "total %d, pending %d, submitted %d, graded %d, overdue %d\n",
		s.TotalAssignments, s.Pending, s.Submitted, s.Graded, s.Overdue)
	fmt.Fprintf(cli.out, "completion %.0f%%, average grade %.1f\n", s.CompletionRate, s.AverageGrade)

	rows := make([][]string, 0, len(dash.Assignments))
	for _, a := range dash.Assignments {
		grade := "-"
		if a.Score != nil {
			grade = submission.FormatScore(*a.Score, a.Points)
			if a.Percentage != "" {
				grade += " (" + a.Percentage + ")"
			}
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(a.AssignmentID), 10),
			a.Title,
			a.DueDate.Local().Format(dateLayout),
			a.Tab,
			grade,
		})
	}
	renderTable(cli.out, "Assignments", []string{"ID", "Title", "Due", "Tab", "Grade"}, rows)
	return nil
}

func (cli *commandLine) newWorkflow(role submission.Role) *workflow.Workflow {
	return workflow.New(cli.client, workflow.Config{
		Role:        role,
		MaxFileSize: cli.cfg.MaxFileSize,
		Logger:      cli.logger,
		Now:         cli.now,
	})
}

func (cli *commandLine) submit(ctx context.Context, assignmentID uint, text string, links, paths []string) error {
	who, err := identityFromToken(cli.cfg.Token)
	if err != nil {
		return err
	}

	assignment, err := cli.client.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	var existing *lmsclient.Submission
	own, err := cli.client.GetMySubmission(ctx, assignmentID)
	switch {
	case err == nil:
		existing = &own
	case !errors.Is(err, lmsclient.ErrNotFound):
		return err
	}

	wf := cli.newWorkflow(who.Role)
	wf.Load(assignment, existing)
	switch wf.State() {
	case submission.StateLocked:
		return fmt.Errorf("assignment %d: %w", assignmentID, submission.ErrLocked)
	case submission.StateGraded:
		return fmt.Errorf("assignment %d is already graded", assignmentID)
	case submission.StateSubmitted:
		if err := wf.BeginEdit(); err != nil {
			return err
		}
	}

	if text != "" {
		if err := wf.SetText(text); err != nil {
			return err
		}
	}
	if len(links) > 0 {
		// Links given on the command line replace the ones a resubmit starts from.
		for i := len(wf.Form().Links) - 1; i >= 0; i-- {
			if err := wf.RemoveLink(i); err != nil {
				return err
			}
		}
	}
	for _, raw := range links {
		title, target := parseLink(raw)
		if err := wf.AddLink(title, target); err != nil {
			return err
		}
	}
	if len(paths) > 0 {
		files := make([]workflow.LocalFile, 0, len(paths))
		for _, path := range paths {
			file, err := workflow.FileFromPath(path)
			if err != nil {
				return err
			}
			files = append(files, file)
		}
		rejections, err := wf.SelectFiles(files...)
		if err != nil {
			return err
		}
		renderRejections(cli.out, rejections)
	}

	if err := wf.Submit(ctx); err != nil {
		var partial *workflow.PartialSubmitError
		if errors.As(err, &partial) {
			fmt.Fprintln(cli.out, warnStyle.Render(fmt.Sprintf(
				"draft %d was saved but not submitted; run submit again to retry", partial.SubmissionID)))
		}
		return err
	}

	cli.cache().afterWrite()
	fmt.Fprintln(cli.out, okStyle.Render("submitted"))
	renderSubmission(cli.out, assignment, *wf.Submission())
	return nil
}

func (cli *commandLine) grade(ctx context.Context, submissionID uint, score float64, feedback string, suggest bool) error {
	who, err := identityFromToken(cli.cfg.Token)
	if err != nil {
		return err
	}
	if !who.Role.IsInstructor() {
		return submission.ErrNotInstructor
	}

	current, err := cli.client.GetSubmission(ctx, submissionID)
	if err != nil {
		return err
	}
	assignment, err := cli.client.GetAssignment(ctx, current.AssignmentID)
	if err != nil {
		return err
	}

	if suggest {
		draft, err := cli.client.DraftFeedback(ctx, submissionID)
		if err != nil {
			return err
		}
		if feedback == "" {
			feedback = draft.Feedback
		}
		if score < 0 && draft.SuggestedScore != nil {
			score = *draft.SuggestedScore
		}
	}
	if score < 0 {
		return errors.New("a score is required")
	}

	wf := cli.newWorkflow(who.Role)
	wf.Load(assignment, &current)
	if wf.State() == submission.StateGraded {
		if err := wf.BeginGradeEdit(); err != nil {
			return err
		}
	}
	if err := wf.SetGrade(score, feedback); err != nil {
		return err
	}
	if err := wf.SaveGrade(ctx); err != nil {
		return err
	}
	cli.cache().afterWrite()

	fmt.Fprintln(cli.out, okStyle.Render(fmt.Sprintf("graded %s (%s)",
		submission.FormatScore(score, assignment.Points),
		submission.FormatPercentage(score, assignment.Points))))
	renderSubmission(cli.out, assignment, *wf.Submission())
	return nil
}

func (cli *commandLine) submissions(ctx context.Context, assignmentID uint, status, search string) error {
	who, err := identityFromToken(cli.cfg.Token)
	if err != nil {
		return err
	}
	loaded, err := cli.cache().submissions.Load(ctx, submissionsKey{role: who.Role, assignmentID: assignmentID})
	if err != nil {
		return err
	}
	assignment := loaded.assignment

	items := browse.Filter(loaded.items, browse.SubmissionStatus(status))
	items = browse.Search(items, search, browse.StudentName)
	items = browse.SortBy(items, func(a, b lmsclient.Submission) bool {
		return browse.StudentName(a) < browse.StudentName(b)
	})

	rows := make([][]string, 0, len(items))
	for _, s := range items {
		student := strconv.FormatUint(uint64(s.StudentID), 10)
		if s.Student != nil {
			student = s.Student.Name
		}
		submitted := "-"
		if s.SubmittedAt != nil {
			submitted = s.SubmittedAt.Local().Format(dateLayout)
		}
		grade := "-"
		if s.Grade != nil {
			grade = submission.FormatScore(s.Grade.Score, assignment.Points)
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(s.ID), 10),
			student,
			s.Status,
			submitted,
			grade,
		})
	}
	renderTable(cli.out, "Submissions for "+assignment.Title,
		[]string{"ID", "Student", "Status", "Submitted", "Grade"}, rows)
	return nil
}

func (cli *commandLine) resources(ctx context.Context, query string, categoryID uint, kind string) error {
	who, err := identityFromToken(cli.cfg.Token)
	if err != nil {
		return err
	}
	page, err := cli.cache().resources.Load(ctx, newResourcesKey(who.Role, query, categoryID, kind))
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(page.Items))
	for _, r := range page.Items {
		category := "-"
		if r.Category != nil {
			category = r.Category.Name
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.Title,
			r.Type,
			category,
			r.URL,
		})
	}
	renderTable(cli.out, "Resources", []string{"ID", "Title", "Type", "Category", "URL"}, rows)
	renderPagination(cli.out, page.Pagination)
	return nil
}

func (cli *commandLine) sessions(ctx context.Context, cohortID uint) error {
	page, err := cli.client.ListSessions(ctx, lmsclient.SessionListOptions{
		CohortID: cohortID,
		From:     cli.now(),
	})
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(page.Items))
	for _, s := range page.Items {
		where := s.Location
		if s.MeetingURL != "" {
			where = s.MeetingURL
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(s.ID), 10),
			s.Title,
			s.StartsAt.Local().Format(dateLayout),
			s.EndsAt.Sub(s.StartsAt).String(),
			where,
		})
	}
	renderTable(cli.out, "Sessions", []string{"ID", "Title", "Starts", "Length", "Where"}, rows)
	renderPagination(cli.out, page.Pagination)
	return nil
}

func (cli *commandLine) whoami() error {
	who, err := identityFromToken(cli.cfg.Token)
	if err != nil {
		return err
	}
	role := string(who.Role)
	if role == "" {
		role = "unknown"
	}
	fmt.Fprintf(cli.out, "user %d (%s) at %s\n", who.UserID, role, cli.cfg.BaseURL)
	return nil
}

// parseLink splits TITLE=URL. A bare URL has no title.
func parseLink(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	title, target, found := strings.Cut(raw, "=")
	if !found || strings.Contains(title, "://") {
		return "", raw
	}
	return strings.TrimSpace(title), strings.TrimSpace(target)
}

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}
