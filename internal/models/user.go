package models

import (
	"time"

	"gorm.io/gorm"
)

// User status values.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User is a student, trainer or administrator.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Email     string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"size:16;not null;index" json:"role"`
	Status    string         `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Cohorts   []Cohort       `gorm:"many2many:cohort_members;" json:"cohorts"`
}
