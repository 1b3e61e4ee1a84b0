package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom/internal/repository"
	"github.com/noah-isme/gema-classroom/internal/submission"
	"github.com/noah-isme/gema-classroom/pkg/ai"
)

type drafterStub struct {
	input ai.FeedbackInput
	draft ai.FeedbackDraft
	err   error
}

func (d *drafterStub) DraftFeedback(_ context.Context, input ai.FeedbackInput) (ai.FeedbackDraft, error) {
	d.input = input
	return d.draft, d.err
}

func (d *drafterStub) Provider() string { return "stub" }

func (d *drafterStub) Model() string { return "stub-1" }

func TestFeedbackServiceDraft(t *testing.T) {
	db := setupServiceDB(t)
	student := seedUser(t, db, "Sam Student", "student")
	assignment := seedAssignment(t, db, "Essay", time.Now().Add(time.Hour))
	handedIn := seedSubmission(t, db, assignment.ID, student.ID, submission.StatusSubmitted, nil)

	drafter := &drafterStub{draft: ai.FeedbackDraft{Score: 77, Feedback: "Good <script>x</script>structure"}}
	svc := NewFeedbackService(repository.NewSubmissionRepository(db), drafter, nil, testLogger())
	trainer := ActivityActor{ID: 50, Role: "trainer"}

	draft, err := svc.Draft(context.Background(), handedIn.ID, trainer)
	require.NoError(t, err)
	require.Equal(t, handedIn.ID, draft.SubmissionID)
	require.Equal(t, 77.0, *draft.SuggestedScore)
	require.Equal(t, "Good structure", draft.Feedback)
	require.Equal(t, "stub", draft.Provider)
	require.Equal(t, "stub-1", draft.Model)
	require.Equal(t, "Essay", drafter.input.AssignmentTitle)
	require.Equal(t, 100.0, drafter.input.MaxScore)

	_, err = svc.Draft(context.Background(), handedIn.ID, ActivityActor{ID: student.ID, Role: "student"})
	require.ErrorIs(t, err, ErrGradingForbidden)

	_, err = svc.Draft(context.Background(), 999, trainer)
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	drafter.err = errors.New("upstream down")
	_, err = svc.Draft(context.Background(), handedIn.ID, trainer)
	require.Error(t, err)
}

func TestFeedbackServiceRequiresHandedInWork(t *testing.T) {
	db := setupServiceDB(t)
	student := seedUser(t, db, "Sam Student", "student")
	assignment := seedAssignment(t, db, "Essay", time.Now().Add(time.Hour))
	draft := seedSubmission(t, db, assignment.ID, student.ID, submission.StatusDraft, nil)

	svc := NewFeedbackService(repository.NewSubmissionRepository(db), &drafterStub{}, nil, testLogger())
	_, err := svc.Draft(context.Background(), draft.ID, ActivityActor{ID: 1, Role: "admin"})
	require.ErrorIs(t, err, ErrFeedbackNotReady)

	unconfigured := NewFeedbackService(repository.NewSubmissionRepository(db), nil, nil, testLogger())
	_, err = unconfigured.Draft(context.Background(), draft.ID, ActivityActor{ID: 1, Role: "admin"})
	require.ErrorIs(t, err, ErrFeedbackUnavailable)
}
