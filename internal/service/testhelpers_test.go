package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, role string) models.User {
	t.Helper()
	user := models.User{
		Name:   name,
		Email:  strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Role:   role,
		Status: models.UserStatusActive,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedAssignment(t *testing.T, db *gorm.DB, title string, due time.Time, cohorts ...models.Cohort) models.Assignment {
	t.Helper()
	assignment := models.Assignment{
		Title:   title,
		DueDate: due,
		Points:  100,
		Status:  models.AssignmentStatusPublished,
		Cohorts: cohorts,
	}
	require.NoError(t, db.Create(&assignment).Error)
	return assignment
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.SubmissionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event dto.SubmissionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

type recordingInvalidator struct {
	mu       sync.Mutex
	students []uint
}

func (r *recordingInvalidator) Invalidate(_ context.Context, studentID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.students = append(r.students, studentID)
}

func ptrFloat(v float64) *float64 {
	return &v
}

func ptrUint(v uint) *uint {
	return &v
}
