package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func TestActivityServiceRecordMasksEmail(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testValidator(), testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    1,
		ActorRole:  "Teacher",
		Action:     "user.updated",
		EntityType: "user",
		EntityID:   ptrUint(5),
		Metadata: map[string]interface{}{
			"email": "student@example.com",
			"field": "status",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "s***t@example.com", entry.Metadata["email"])
	require.Equal(t, "status", entry.Metadata["field"])
	require.Equal(t, uint(1), entry.ActorID)
	require.Equal(t, "trainer", entry.ActorRole)
}

func TestActivityServiceRecordRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testValidator(), testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "submission"})
	require.Error(t, err)
}

func TestActivityServiceList(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testValidator(), testLogger())
	ctx := context.Background()

	for _, action := range []string{"submission.created", "submission.submitted"} {
		_, err := svc.Record(ctx, ActivityEntry{ActorID: 2, ActorRole: "student", Action: action, EntityType: "submission", EntityID: ptrUint(9)})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, dto.ActivityListRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, int64(2), page.Pagination.TotalItems)
}

func TestMaskEmailAddress(t *testing.T) {
	tests := map[string]string{
		"":                   "",
		"Jane.Doe@School.io": "j***e@school.io",
		"ab@x.io":            "a***@x.io",
		"not-an-email":       "***",
	}
	for input, want := range tests {
		require.Equal(t, want, maskEmailAddress(input), input)
	}
}

func TestRecordActivityAddsCorrelationID(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testValidator(), testLogger())
	ctx := middleware.ContextWithCorrelation(context.Background(), "req-7")

	recordActivity(ctx, svc, testLogger(), ActivityActor{ID: 3, Role: "admin"}, "cohort.created", "cohort", 9, nil)

	require.Len(t, repo.entries, 1)
	require.Equal(t, "req-7", repo.entries[0].CorrelationID)
	require.Equal(t, uint(9), *repo.entries[0].EntityID)
}
