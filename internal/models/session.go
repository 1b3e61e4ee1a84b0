package models

import "time"

// Session is a scheduled class meeting for a cohort.
type Session struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CohortID    uint      `gorm:"not null;index" json:"cohort_id"`
	TrainerID   *uint     `gorm:"index" json:"trainer_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	StartsAt    time.Time `gorm:"not null;index" json:"starts_at"`
	EndsAt      time.Time `gorm:"not null" json:"ends_at"`
	Location    string    `gorm:"size:255" json:"location"`
	MeetingURL  string    `gorm:"size:512" json:"meeting_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Cohort      Cohort    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"cohort"`
}
