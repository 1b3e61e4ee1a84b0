package lmsclient

import (
	"net/url"
	"strconv"
	"time"
)

// Submission statuses as reported by the API.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusGraded    = "graded"
)

// Link is an external reference attached to a submission.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// File is an uploaded attachment.
type File struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Content is the body of a submission.
type Content struct {
	Text  string `json:"text,omitempty"`
	Links []Link `json:"links"`
	Files []File `json:"files"`
}

// Grade is the instructor's evaluation of a submission.
type Grade struct {
	Score      float64    `json:"score"`
	Feedback   string     `json:"feedback"`
	Percentage *int       `json:"percentage"`
	GradedAt   *time.Time `json:"graded_at"`
	GradedBy   *uint      `json:"graded_by"`
}

// GradeHistoryEntry records an earlier grade.
type GradeHistoryEntry struct {
	Score    float64   `json:"score"`
	Feedback string    `json:"feedback"`
	GradedBy uint      `json:"graded_by"`
	GradedAt time.Time `json:"graded_at"`
}

// Submission is a student's work on one assignment.
type Submission struct {
	ID           uint                `json:"id"`
	AssignmentID uint                `json:"assignment_id"`
	StudentID    uint                `json:"student_id"`
	Status       string              `json:"status"`
	Content      Content             `json:"content"`
	SubmittedAt  *time.Time          `json:"submitted_at"`
	Grade        *Grade              `json:"grade"`
	Version      uint                `json:"version"`
	History      []GradeHistoryEntry `json:"history"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Student      *UserSummary        `json:"student,omitempty"`
}

// GradeInput grades a submission. A zero Version skips the version check.
type GradeInput struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
	Version  uint    `json:"version,omitempty"`
}

// FeedbackDraft is a machine-drafted grading suggestion.
type FeedbackDraft struct {
	SubmissionID   uint     `json:"submission_id"`
	SuggestedScore *float64 `json:"suggested_score"`
	Feedback       string   `json:"feedback"`
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
}

// UploadedFile describes a stored upload.
type UploadedFile struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Checksum string `json:"checksum"`
}

// AsFile converts the upload into a submission attachment.
func (u UploadedFile) AsFile() File {
	return File{Name: u.Name, URL: u.URL, Size: u.Size}
}

// CohortSummary is the short form of a cohort embedded in other resources.
type CohortSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// UserSummary is the short form of a user embedded in other resources.
type UserSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Assignment is a piece of work students submit against.
type Assignment struct {
	ID               uint            `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	DueDate          time.Time       `json:"due_date"`
	Points           float64         `json:"points"`
	AllowedFileTypes []string        `json:"allowed_file_types"`
	Status           string          `json:"status"`
	FileURL          string          `json:"file_url"`
	Cohorts          []CohortSummary `json:"cohorts"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// AssignmentInput creates or updates an assignment. Empty fields are left
// untouched on update.
type AssignmentInput struct {
	Title            string     `json:"title,omitempty"`
	Description      string     `json:"description,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	Points           *float64   `json:"points,omitempty"`
	AllowedFileTypes []string   `json:"allowed_file_types,omitempty"`
	Status           string     `json:"status,omitempty"`
	CohortIDs        []uint     `json:"cohort_ids,omitempty"`
}

// Cohort groups trainers and students.
type Cohort struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	TrainerIDs  []uint     `json:"trainer_ids"`
	StudentIDs  []uint     `json:"student_ids"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CohortInput creates or updates a cohort.
type CohortInput struct {
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	TrainerIDs  []uint     `json:"trainer_ids,omitempty"`
	StudentIDs  []uint     `json:"student_ids,omitempty"`
}

// User is a platform account.
type User struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      string          `json:"role"`
	Status    string          `json:"status"`
	CohortIDs []uint          `json:"cohort_ids"`
	Cohorts   []CohortSummary `json:"cohorts"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// UserInput creates or updates a user.
type UserInput struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Status    string `json:"status,omitempty"`
	CohortIDs []uint `json:"cohort_ids,omitempty"`
}

// Session is a scheduled class meeting.
type Session struct {
	ID          uint      `json:"id"`
	CohortID    uint      `json:"cohort_id"`
	TrainerID   *uint     `json:"trainer_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Location    string    `json:"location"`
	MeetingURL  string    `json:"meeting_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SessionInput creates or updates a session.
type SessionInput struct {
	CohortID    uint       `json:"cohort_id,omitempty"`
	TrainerID   *uint      `json:"trainer_id,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Location    string     `json:"location,omitempty"`
	MeetingURL  string     `json:"meeting_url,omitempty"`
}

// Category groups learning resources.
type Category struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryInput creates or renames a category.
type CategoryInput struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Resource is a learning link or document.
type Resource struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Type        string    `json:"type"`
	CategoryID  *uint     `json:"category_id"`
	Category    *Category `json:"category,omitempty"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ResourceInput creates or updates a resource.
type ResourceInput struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Type        string   `json:"type,omitempty"`
	CategoryID  *uint    `json:"category_id,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Activity is an audit log entry.
type Activity struct {
	ID         uint                   `json:"id"`
	ActorID    uint                   `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Dashboard summarises a student's progress.
type Dashboard struct {
	Summary struct {
		TotalAssignments int     `json:"total_assignments"`
		Pending          int     `json:"pending"`
		Submitted        int     `json:"submitted"`
		Graded           int     `json:"graded"`
		Overdue          int     `json:"overdue"`
		AverageGrade     float64 `json:"average_grade"`
		CompletionRate   float64 `json:"completion_rate"`
	} `json:"summary"`
	Assignments []AssignmentProgress `json:"assignments"`
}

// AssignmentProgress is one row of the student dashboard.
type AssignmentProgress struct {
	AssignmentID uint      `json:"assignment_id"`
	Title        string    `json:"title"`
	DueDate      time.Time `json:"due_date"`
	Points       float64   `json:"points"`
	Tab          string    `json:"tab"`
	Status       string    `json:"status"`
	SubmissionID *uint     `json:"submission_id"`
	Score        *float64  `json:"score"`
	Percentage   string    `json:"percentage"`
	Overdue      bool      `json:"overdue"`
}

// Pagination is the paging metadata of a list response.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}

// ListOptions are the paging and search parameters shared by list endpoints.
type ListOptions struct {
	Page     int
	PageSize int
	Search   string
	Sort     string
}

func (o ListOptions) values() url.Values {
	values := url.Values{}
	if o.Page > 0 {
		values.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(o.PageSize))
	}
	if o.Search != "" {
		values.Set("search", o.Search)
	}
	if o.Sort != "" {
		values.Set("sort", o.Sort)
	}
	return values
}

// AssignmentListOptions filters the assignment list.
type AssignmentListOptions struct {
	ListOptions
	Status   string
	CohortID uint
}

func (o AssignmentListOptions) values() url.Values {
	values := o.ListOptions.values()
	if o.Status != "" {
		values.Set("status", o.Status)
	}
	setUint(values, "cohort_id", o.CohortID)
	return values
}

// SessionListOptions filters the session list. Zero times are ignored.
type SessionListOptions struct {
	ListOptions
	CohortID uint
	From     time.Time
	To       time.Time
}

func (o SessionListOptions) values() url.Values {
	values := o.ListOptions.values()
	setUint(values, "cohort_id", o.CohortID)
	if !o.From.IsZero() {
		values.Set("from", o.From.UTC().Format(time.RFC3339))
	}
	if !o.To.IsZero() {
		values.Set("to", o.To.UTC().Format(time.RFC3339))
	}
	return values
}

// ResourceListOptions filters the resource list.
type ResourceListOptions struct {
	ListOptions
	CategoryID uint
	Type       string
	Tag        string
}

func (o ResourceListOptions) values() url.Values {
	values := o.ListOptions.values()
	setUint(values, "category_id", o.CategoryID)
	if o.Type != "" {
		values.Set("type", o.Type)
	}
	if o.Tag != "" {
		values.Set("tag", o.Tag)
	}
	return values
}

// ActivityListOptions filters the audit log.
type ActivityListOptions struct {
	ListOptions
	ActorID    uint
	Action     string
	EntityType string
}

func (o ActivityListOptions) values() url.Values {
	values := o.ListOptions.values()
	setUint(values, "actor_id", o.ActorID)
	if o.Action != "" {
		values.Set("action", o.Action)
	}
	if o.EntityType != "" {
		values.Set("entity_type", o.EntityType)
	}
	return values
}

func setUint(values url.Values, key string, value uint) {
	if value > 0 {
		values.Set(key, strconv.FormatUint(uint64(value), 10))
	}
}
