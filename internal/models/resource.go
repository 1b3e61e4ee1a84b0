package models

import (
	"time"

	"gorm.io/datatypes"
)

// Category groups learning resources.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Slug      string    `gorm:"size:128;not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resource is a link, document or video shared with learners.
type Resource struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	Title       string                      `gorm:"size:255;not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	URL         string                      `gorm:"size:512;not null" json:"url"`
	Type        string                      `gorm:"size:32;not null;default:link;index" json:"type"`
	CategoryID  *uint                       `gorm:"index" json:"category_id"`
	Tags        datatypes.JSONSlice[string] `gorm:"type:json" json:"tags"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
	Category    *Category                   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"category,omitempty"`
}
