package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/repository"
	"github.com/noah-isme/gema-classroom/internal/submission"
)

func TestDraftReaperRemovesOnlyStaleDrafts(t *testing.T) {
	db := setupServiceDB(t)
	student := seedUser(t, db, "Sam Student", "student")
	first := seedAssignment(t, db, "First", time.Now().Add(time.Hour))
	second := seedAssignment(t, db, "Second", time.Now().Add(time.Hour))
	third := seedAssignment(t, db, "Third", time.Now().Add(time.Hour))

	stale := seedSubmission(t, db, first.ID, student.ID, submission.StatusDraft, nil)
	fresh := seedSubmission(t, db, second.ID, student.ID, submission.StatusDraft, nil)
	handedIn := seedSubmission(t, db, third.ID, student.ID, submission.StatusSubmitted, nil)

	old := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, db.Model(&models.Submission{}).Where("id IN ?", []uint{stale.ID, handedIn.ID}).UpdateColumn("updated_at", old).Error)

	events := &recordingPublisher{}
	dashboard := &recordingInvalidator{}
	reaper := NewDraftReaper(repository.NewSubmissionRepository(db), events, dashboard, 7*24*time.Hour, testLogger())

	removed, err := reaper.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, []string{dto.EventSubmissionReaped}, events.Types())
	require.Equal(t, []uint{student.ID}, dashboard.students)

	var remaining []uint
	require.NoError(t, db.Model(&models.Submission{}).Order("id").Pluck("id", &remaining).Error)
	require.Equal(t, []uint{fresh.ID, handedIn.ID}, remaining)

	removed, err = reaper.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestDraftReaperStartValidatesSchedule(t *testing.T) {
	db := setupServiceDB(t)
	repo := repository.NewSubmissionRepository(db)

	disabled := NewDraftReaper(repo, nil, nil, 0, testLogger())
	require.NoError(t, disabled.Start("@every 1h"))
	disabled.Stop()

	reaper := NewDraftReaper(repo, nil, nil, time.Hour, testLogger())
	require.Error(t, reaper.Start("not a schedule"))

	require.NoError(t, reaper.Start("@every 1h"))
	reaper.Stop()
}
