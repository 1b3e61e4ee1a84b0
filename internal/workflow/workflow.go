// Package workflow drives one person's work on one assignment: drafting,
// submitting, editing a submission and grading it.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-classroom/internal/submission"
	"github.com/noah-isme/gema-classroom/pkg/lmsclient"
)

// ErrPartialSubmit indicates the draft was created but could not be marked
// submitted. Use errors.As with *PartialSubmitError to read the draft id.
var ErrPartialSubmit = errors.New("draft saved but submit failed")

// PartialSubmitError carries the id of the draft left behind.
type PartialSubmitError struct {
	SubmissionID uint
	Err          error
}

func (e *PartialSubmitError) Error() string {
	return fmt.Sprintf("submission %d: %v: %v", e.SubmissionID, ErrPartialSubmit, e.Err)
}

func (e *PartialSubmitError) Unwrap() []error { return []error{ErrPartialSubmit, e.Err} }

// API is the subset of the REST client the workflow calls.
type API interface {
	UploadFile(ctx context.Context, name string, reader io.Reader) (lmsclient.UploadedFile, error)
	CreateSubmission(ctx context.Context, assignmentID uint, content lmsclient.Content) (lmsclient.Submission, error)
	SubmitSubmission(ctx context.Context, id uint) (lmsclient.Submission, error)
	UpdateSubmission(ctx context.Context, id uint, content lmsclient.Content, version uint) (lmsclient.Submission, error)
	GradeSubmission(ctx context.Context, id uint, grade lmsclient.GradeInput) (lmsclient.Submission, error)
}

// LocalFile is a file selected for upload but not yet sent.
type LocalFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FileFromPath describes a file on disk.
func FileFromPath(path string) (LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return LocalFile{}, err
	}
	if info.IsDir() {
		return LocalFile{}, fmt.Errorf("%s is a directory", path)
	}
	return LocalFile{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// Form is the local, unsaved state of the submission editor.
type Form struct {
	Text  string
	Links []lmsclient.Link
	Files []LocalFile
}

// GradeForm is the local state of the grading editor.
type GradeForm struct {
	Score    float64
	Feedback string
}

// Config configures a Workflow.
type Config struct {
	Role        submission.Role
	MaxFileSize int64
	Logger      zerolog.Logger
	Now         func() time.Time
}

// Workflow is a single state container for one assignment. It is not safe for
// concurrent use.
type Workflow struct {
	api    API
	role   submission.Role
	rules  submission.FileRules
	logger zerolog.Logger
	now    func() time.Time

	assignment lmsclient.Assignment
	persisted  *lmsclient.Submission
	state      submission.State
	form       Form
	grade      GradeForm
}

// New constructs an empty workflow; call Load before any other action.
func New(api API, cfg Config) *Workflow {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Workflow{
		api:    api,
		role:   cfg.Role,
		rules:  submission.FileRules{MaxSize: cfg.MaxFileSize},
		logger: cfg.Logger.With().Str("component", "workflow").Logger(),
		now:    now,
	}
}

// Load resets the workflow to the assignment and the existing submission, if any.
func (w *Workflow) Load(assignment lmsclient.Assignment, existing *lmsclient.Submission) {
	w.assignment = assignment
	w.rules.AllowedTypes = assignment.AllowedFileTypes
	w.persisted = nil
	if existing != nil {
		copied := *existing
		w.persisted = &copied
	}

	status := submission.Status("")
	if w.persisted != nil {
		status = submission.Status(w.persisted.Status)
	}
	w.state = submission.Initial(status, w.persisted != nil, w.overdue())
	w.resetForms()

	w.logger.Debug().
		Uint("assignment_id", assignment.ID).
		Str("state", w.state.String()).
		Msg("workflow loaded")
}

// State returns the current workflow state.
func (w *Workflow) State() submission.State { return w.state }

// Submission returns the last persisted submission, or nil.
func (w *Workflow) Submission() *lmsclient.Submission { return w.persisted }

// Form returns a copy of the editor state.
func (w *Workflow) Form() Form {
	return Form{
		Text:  w.form.Text,
		Links: append([]lmsclient.Link(nil), w.form.Links...),
		Files: append([]LocalFile(nil), w.form.Files...),
	}
}

// Grade returns the grading editor state.
func (w *Workflow) Grade() GradeForm { return w.grade }

// Overdue reports whether the assignment deadline has passed.
func (w *Workflow) Overdue() bool { return w.overdue() }

// SetText replaces the submission text.
func (w *Workflow) SetText(text string) error {
	if err := w.input("set_text"); err != nil {
		return err
	}
	w.form.Text = text
	return nil
}

// AddLink appends a link.
func (w *Workflow) AddLink(title, url string) error {
	if err := w.input("add_link"); err != nil {
		return err
	}
	w.form.Links = append(w.form.Links, lmsclient.Link{Title: title, URL: url})
	return nil
}

// RemoveLink drops the link at index.
func (w *Workflow) RemoveLink(index int) error {
	if err := w.input("remove_link"); err != nil {
		return err
	}
	if index < 0 || index >= len(w.form.Links) {
		return fmt.Errorf("link %d out of range", index)
	}
	w.form.Links = append(w.form.Links[:index], w.form.Links[index+1:]...)
	return nil
}

// SelectFiles adds files to the pending uploads. Files that break the size
// limit or the assignment's allowed types are left out and reported; the
// rest are kept.
func (w *Workflow) SelectFiles(files ...LocalFile) ([]submission.Rejection, error) {
	if err := w.input("select_files"); err != nil {
		return nil, err
	}
	accepted, rejected := submission.FilterFiles(files, func(f LocalFile) (string, int64) {
		return f.Name, f.Size
	}, w.rules)
	w.form.Files = append(w.form.Files, accepted...)

	for _, rejection := range rejected {
		w.logger.Info().Str("file", rejection.Name).Err(rejection.Err).Msg("file rejected")
	}
	return rejected, nil
}

// BeginEdit opens a submitted, ungraded submission for editing.
func (w *Workflow) BeginEdit() error {
	if err := w.apply("begin_edit", submission.EventBeginEdit, w.guards(false)); err != nil {
		return err
	}
	w.resetForms()
	return nil
}

// Cancel drops local edits and returns to the last persisted state.
func (w *Workflow) Cancel() error {
	if err := w.apply("cancel", submission.EventCancel, w.guards(false)); err != nil {
		return err
	}
	w.resetForms()
	return nil
}

// Submit sends the form. A draft is uploaded, created and marked submitted;
// an edit of a submitted submission is saved as an update.
func (w *Workflow) Submit(ctx context.Context) error {
	if w.state == submission.StateEditingSubmitted {
		return w.resubmit(ctx)
	}
	return w.submitDraft(ctx)
}

func (w *Workflow) submitDraft(ctx context.Context) error {
	next, err := submission.Transition(w.state, submission.EventSubmit, w.guards(true))
	if err != nil {
		return err
	}

	uploaded, err := w.uploadAll(ctx)
	if err != nil {
		return err
	}

	content := w.content()
	if w.persisted != nil {
		content.Files = append(append([]lmsclient.File(nil), w.persisted.Content.Files...), uploaded...)
	} else {
		content.Files = uploaded
	}

	var draft lmsclient.Submission
	if w.persisted != nil {
		// A draft left by an earlier partial submit is reused.
		draft, err = w.api.UpdateSubmission(ctx, w.persisted.ID, content, w.persisted.Version)
	} else {
		draft, err = w.api.CreateSubmission(ctx, w.assignment.ID, content)
	}
	if err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	w.persisted = &draft
	w.form.Files = nil

	submitted, err := w.api.SubmitSubmission(ctx, draft.ID)
	if err != nil {
		w.logger.Warn().Err(err).Uint("submission_id", draft.ID).Msg("draft saved but not submitted")
		return &PartialSubmitError{SubmissionID: draft.ID, Err: err}
	}

	w.commit("submit", next, &submitted)
	return nil
}

func (w *Workflow) resubmit(ctx context.Context) error {
	next, err := submission.Transition(w.state, submission.EventResubmit, w.guards(true))
	if err != nil {
		return err
	}

	uploaded, err := w.uploadAll(ctx)
	if err != nil {
		return err
	}

	content := w.content()
	content.Files = append(append([]lmsclient.File(nil), w.persisted.Content.Files...), uploaded...)

	updated, err := w.api.UpdateSubmission(ctx, w.persisted.ID, content, w.persisted.Version)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}

	w.commit("resubmit", next, &updated)
	return nil
}

// BeginGradeEdit opens an existing grade for editing.
func (w *Workflow) BeginGradeEdit() error {
	if err := w.apply("begin_grade_edit", submission.EventBeginGradeEdit, w.guards(false)); err != nil {
		return err
	}
	w.resetForms()
	return nil
}

// SetGrade fills the grading editor. It is accepted while a submission waits
// for a grade or while a grade is being edited.
func (w *Workflow) SetGrade(score float64, feedback string) error {
	if !w.role.IsInstructor() {
		return submission.ErrNotInstructor
	}
	if w.state != submission.StateSubmitted && w.state != submission.StateEditingGrade {
		return fmt.Errorf("set grade in %s: %w", w.state, submission.ErrInvalidTransition)
	}
	w.grade = GradeForm{Score: score, Feedback: feedback}
	return nil
}

// SaveGrade stores the grading editor. A version conflict is returned as
// lmsclient.ErrConflict.
func (w *Workflow) SaveGrade(ctx context.Context) error {
	event := submission.EventGrade
	action := "grade"
	if w.state == submission.StateEditingGrade {
		event = submission.EventSaveGrade
		action = "save_grade"
	}

	next, err := submission.Transition(w.state, event, w.guards(false))
	if err != nil {
		return err
	}
	if err := submission.ValidateScore(w.grade.Score, w.assignment.Points); err != nil {
		return err
	}

	graded, err := w.api.GradeSubmission(ctx, w.persisted.ID, lmsclient.GradeInput{
		Score:    w.grade.Score,
		Feedback: strings.TrimSpace(w.grade.Feedback),
		Version:  w.persisted.Version,
	})
	if err != nil {
		return fmt.Errorf("failed to save grade: %w", err)
	}

	w.commit(action, next, &graded)
	return nil
}

func (w *Workflow) input(action string) error {
	return w.apply(action, submission.EventInput, w.guards(false))
}

func (w *Workflow) apply(action string, event submission.Event, guards submission.Guards) error {
	next, err := submission.Transition(w.state, event, guards)
	if err != nil {
		return err
	}
	w.transition(action, next)
	return nil
}

func (w *Workflow) commit(action string, next submission.State, persisted *lmsclient.Submission) {
	w.persisted = persisted
	w.transition(action, next)
	w.resetForms()
}

func (w *Workflow) transition(action string, next submission.State) {
	if next == w.state {
		return
	}
	w.logger.Info().
		Uint("assignment_id", w.assignment.ID).
		Str("action", action).
		Str("from", w.state.String()).
		Str("to", next.String()).
		Msg("submission workflow transition")
	w.state = next
}

func (w *Workflow) guards(withContent bool) submission.Guards {
	guards := submission.Guards{Overdue: w.overdue(), Role: w.role}
	if withContent {
		content := toDomain(w.content())
		if len(w.form.Files) > 0 {
			content.Files = append(content.Files, submission.File{Name: w.form.Files[0].Name})
		}
		if w.persisted != nil {
			content.Files = append(content.Files, toDomain(w.persisted.Content).Files...)
		}
		guards.HasContent = submission.HasContent(content)
	}
	return guards
}

func (w *Workflow) overdue() bool {
	if w.assignment.DueDate.IsZero() {
		return false
	}
	return submission.IsOverdue(w.assignment.DueDate, w.now())
}

// content assembles the text and links of the form. Text is trimmed and links
// without a URL are dropped.
func (w *Workflow) content() lmsclient.Content {
	normalized := toDomain(lmsclient.Content{Text: w.form.Text, Links: w.form.Links}).Normalized()
	content := lmsclient.Content{Text: normalized.Text, Links: make([]lmsclient.Link, 0, len(normalized.Links))}
	for _, link := range normalized.Links {
		content.Links = append(content.Links, lmsclient.Link{Title: link.Title, URL: link.URL})
	}
	return content
}

// uploadAll sends every selected file in parallel. Nothing is kept when any
// upload fails.
func (w *Workflow) uploadAll(ctx context.Context) ([]lmsclient.File, error) {
	files := w.form.Files
	uploaded := make([]lmsclient.File, len(files))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, file := range files {
		i, file := i, file
		group.Go(func() error {
			reader, err := file.Open()
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file.Name, err)
			}
			defer reader.Close()

			result, err := w.api.UploadFile(groupCtx, file.Name, reader)
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", file.Name, err)
			}
			uploaded[i] = result.AsFile()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return uploaded, nil
}

// resetForms copies the persisted submission into the editors.
func (w *Workflow) resetForms() {
	w.form = Form{}
	w.grade = GradeForm{}
	if w.persisted == nil {
		return
	}

	cloned := toDomain(w.persisted.Content).Clone()
	w.form.Text = cloned.Text
	for _, link := range cloned.Links {
		w.form.Links = append(w.form.Links, lmsclient.Link{Title: link.Title, URL: link.URL})
	}
	if w.persisted.Grade != nil {
		w.grade = GradeForm{Score: w.persisted.Grade.Score, Feedback: w.persisted.Grade.Feedback}
	}
}

func toDomain(content lmsclient.Content) submission.Content {
	out := submission.Content{Text: content.Text}
	for _, link := range content.Links {
		out.Links = append(out.Links, submission.Link{Title: link.Title, URL: link.URL})
	}
	for _, file := range content.Files {
		out.Files = append(out.Files, submission.File{Name: file.Name, URL: file.URL, Size: file.Size})
	}
	return out
}
