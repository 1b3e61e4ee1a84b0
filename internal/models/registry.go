package models

// All lists every model managed by migrations, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Cohort{},
		&Category{},
		&Assignment{},
		&Submission{},
		&SubmissionGradeHistory{},
		&Session{},
		&Resource{},
		&UploadRecord{},
		&ActivityLog{},
	}
}
