package browse

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom/internal/submission"
	"github.com/noah-isme/gema-classroom/pkg/lmsclient"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixtures() []lmsclient.Assignment {
	return []lmsclient.Assignment{
		{ID: 1, Title: "Essay", DueDate: now.Add(48 * time.Hour)},
		{ID: 2, Title: "Lab report", DueDate: now.Add(-time.Hour)},
		{ID: 3, Title: "Reading log", DueDate: now.Add(24 * time.Hour)},
		{ID: 4, Title: "Final project", DueDate: now.Add(-48 * time.Hour)},
		{ID: 5, Title: "Quiz", DueDate: now.Add(2 * time.Hour)},
	}
}

func TestRowsPlaceAssignmentsInTabs(t *testing.T) {
	mine := map[uint]lmsclient.Submission{
		3: {ID: 30, Status: lmsclient.StatusSubmitted},
		4: {ID: 40, Status: lmsclient.StatusGraded},
		5: {ID: 50, Status: lmsclient.StatusDraft},
	}

	rows := Rows(fixtures(), mine, now)
	tabs := map[uint]submission.Tab{}
	for _, row := range rows {
		tabs[row.Assignment.ID] = row.Tab
	}
	require.Equal(t, map[uint]submission.Tab{
		1: submission.TabPending,
		2: submission.TabOverdue,
		3: submission.TabSubmitted,
		4: submission.TabGraded,
		5: submission.TabPending,
	}, tabs)

	counts := CountTabs(rows)
	require.Equal(t, 5, counts[submission.TabAll])
	require.Equal(t, 2, counts[submission.TabPending])
	require.Equal(t, 1, counts[submission.TabOverdue])

	require.Len(t, ByTab(rows, submission.TabAll), 5)
	graded := ByTab(rows, submission.TabGraded)
	require.Len(t, graded, 1)
	require.Equal(t, uint(40), graded[0].Submission.ID)
}

func TestSearchAndSort(t *testing.T) {
	items := fixtures()

	found := Search(items, "  RE", func(a lmsclient.Assignment) string { return a.Title })
	require.Len(t, found, 2)
	require.Equal(t, "Lab report", found[0].Title)
	require.Equal(t, "Reading log", found[1].Title)

	require.Len(t, Search(items, "", func(a lmsclient.Assignment) string { return a.Title }), len(items))

	sorted := SortBy(items, ByDueDate)
	require.Equal(t, uint(4), sorted[0].ID)
	require.Equal(t, uint(1), sorted[len(sorted)-1].ID)
	require.Equal(t, uint(1), items[0].ID)
}

func TestSubmissionFilters(t *testing.T) {
	submissions := []lmsclient.Submission{
		{ID: 1, Status: lmsclient.StatusSubmitted, Student: &lmsclient.UserSummary{Name: "Ana Diaz"}},
		{ID: 2, Status: lmsclient.StatusGraded, Student: &lmsclient.UserSummary{Name: "Ben Ito"}},
		{ID: 3, Status: lmsclient.StatusSubmitted},
	}

	require.Len(t, Filter(submissions, SubmissionStatus("SUBMITTED")), 2)
	require.Len(t, Filter(submissions, SubmissionStatus("")), 3)

	found := Search(submissions, "ito", StudentName)
	require.Len(t, found, 1)
	require.Equal(t, uint(2), found[0].ID)
}

type pageKey struct {
	Role   string
	Status string
	Page   int
}

func TestLoaderFetchesOncePerKey(t *testing.T) {
	var calls atomic.Int32
	loader := NewLoader(func(_ context.Context, key pageKey) ([]int, error) {
		calls.Add(1)
		return []int{key.Page}, nil
	})
	ctx := context.Background()

	first, err := loader.Load(ctx, pageKey{Role: "student", Page: 1})
	require.NoError(t, err)
	require.Equal(t, []int{1}, first)

	_, err = loader.Load(ctx, pageKey{Role: "student", Page: 1})
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())

	_, err = loader.Load(ctx, pageKey{Role: "student", Page: 2})
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())

	loader.Invalidate()
	_, err = loader.Load(ctx, pageKey{Role: "student", Page: 2})
	require.NoError(t, err)
	require.Equal(t, int32(3), calls.Load())
}

func TestLoaderDropsStaleResponses(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	loader := NewLoader(func(_ context.Context, key pageKey) (string, error) {
		if key.Status == "slow" {
			close(started)
			<-release
		}
		return key.Status, nil
	})
	ctx := context.Background()

	type result struct {
		value string
		err   error
	}
	slow := make(chan result, 1)
	go func() {
		value, err := loader.Load(ctx, pageKey{Status: "slow"})
		slow <- result{value, err}
	}()
	<-started

	fast, err := loader.Load(ctx, pageKey{Status: "fast"})
	require.NoError(t, err)
	require.Equal(t, "fast", fast)

	close(release)
	stale := <-slow
	require.True(t, errors.Is(stale.err, ErrStale))
	require.Empty(t, stale.value)

	cached, err := loader.Load(ctx, pageKey{Status: "fast"})
	require.NoError(t, err)
	require.Equal(t, "fast", cached)
}

func TestLoaderKeepsErrors(t *testing.T) {
	boom := errors.New("boom")
	loader := NewLoader(func(context.Context, int) (int, error) { return 0, boom })

	_, err := loader.Load(context.Background(), 1)
	require.ErrorIs(t, err, boom)
}
