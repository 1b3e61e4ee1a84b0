package models

import (
	"time"

	"gorm.io/datatypes"
)

// Assignment status values.
const (
	AssignmentStatusPublished = "published"
	AssignmentStatusDraft     = "draft"
	AssignmentStatusClosed    = "closed"
)

// Assignment represents a piece of coursework published to one or more cohorts.
type Assignment struct {
	ID               uint                        `gorm:"primaryKey" json:"id"`
	Title            string                      `gorm:"size:255;not null" json:"title"`
	Description      string                      `gorm:"type:text" json:"description"`
	DueDate          time.Time                   `gorm:"not null;index" json:"due_date"`
	Points           float64                     `gorm:"not null;default:100" json:"points"`
	AllowedFileTypes datatypes.JSONSlice[string] `gorm:"type:json" json:"allowed_file_types"`
	Status           string                      `gorm:"size:16;not null;default:published;index" json:"status"`
	FileURL          string                      `gorm:"size:512" json:"file_url"`
	CreatedBy        *uint                       `json:"created_by"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
	Cohorts          []Cohort                    `gorm:"many2many:assignment_cohorts;" json:"cohorts"`
	Submissions      []Submission                `json:"-"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDate)
}

// AcceptsSubmissions reports whether students may still hand in work.
func (a Assignment) AcceptsSubmissions() bool {
	return a.Status == "" || a.Status == AssignmentStatusPublished
}
