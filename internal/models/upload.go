package models

import "time"

// UploadRecord is a stored attachment. Records are deduplicated per user by
// checksum, so one record may back files in several submissions.
type UploadRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       *uint     `gorm:"index:idx_upload_owner_checksum,priority:1" json:"user_id"`
	AssignmentID *uint     `gorm:"index" json:"assignment_id,omitempty"`
	FileName     string    `gorm:"size:255;not null" json:"file_name"`
	URL          string    `gorm:"size:512;not null" json:"url"`
	MimeType     string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes    int64     `gorm:"not null" json:"size_bytes"`
	Checksum     string    `gorm:"size:128;index:idx_upload_owner_checksum,priority:2" json:"checksum"`
	CreatedAt    time.Time `json:"created_at"`
}
