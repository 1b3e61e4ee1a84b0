package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/observability"
	"github.com/noah-isme/gema-classroom/internal/repository"
)

// DraftReaper deletes drafts that were created but never handed in, such as
// those left behind when a client failed between creating and submitting.
type DraftReaper struct {
	submissions repository.SubmissionRepository
	events      SubmissionEventPublisher
	dashboard   DashboardInvalidator
	retention   time.Duration
	timeout     time.Duration
	logger      zerolog.Logger
	now         func() time.Time
	cron        *cron.Cron
}

// NewDraftReaper constructs the cleanup job. events and dashboard may be nil.
func NewDraftReaper(submissions repository.SubmissionRepository, events SubmissionEventPublisher, dashboard DashboardInvalidator, retention time.Duration, logger zerolog.Logger) *DraftReaper {
	return &DraftReaper{
		submissions: submissions,
		events:      events,
		dashboard:   dashboard,
		retention:   retention,
		timeout:     4 * time.Minute,
		logger:      logger.With().Str("component", "draft_reaper").Logger(),
		now:         time.Now,
	}
}

// Start schedules the job. An empty schedule or a non-positive retention
// leaves the reaper disabled.
func (r *DraftReaper) Start(schedule string) error {
	if schedule == "" || r.retention <= 0 {
		r.logger.Info().Msg("draft reaper disabled")
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, func() {
		ctx := middleware.ContextWithCorrelation(context.Background(), "draft-reaper-"+uuid.NewString())
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		if _, err := r.Run(ctx); err != nil {
			r.logger.Error().Err(err).Msg("draft cleanup failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule draft reaper: %w", err)
	}

	r.cron = c
	c.Start()
	r.logger.Info().Str("schedule", schedule).Dur("retention", r.retention).Msg("draft reaper started")
	return nil
}

// Stop halts the schedule and waits for a running cleanup to finish.
func (r *DraftReaper) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// Run removes drafts untouched for longer than the retention window and
// returns how many were deleted.
func (r *DraftReaper) Run(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.retention)
	removed, err := r.submissions.DeleteStaleDrafts(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(removed) == 0 {
		return 0, nil
	}

	observability.DraftsReaped().Add(float64(len(removed)))
	for _, draft := range removed {
		if r.events != nil {
			r.events.Publish(ctx, dto.SubmissionEvent{
				Type:         dto.EventSubmissionReaped,
				SubmissionID: draft.ID,
				AssignmentID: draft.AssignmentID,
				StudentID:    draft.StudentID,
				Status:       draft.Status,
				Version:      draft.Version,
				OccurredAt:   r.now().UTC(),
			})
		}
		if r.dashboard != nil {
			r.dashboard.Invalidate(ctx, draft.StudentID)
		}
	}

	r.logger.Info().
		Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
		Int("removed", len(removed)).
		Time("cutoff", cutoff).
		Msg("stale drafts removed")
	return len(removed), nil
}
