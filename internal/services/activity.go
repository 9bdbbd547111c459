package services

import (
	"context"
	"fmt"
	"time"

	"github.com/abrezinsky/gavel/internal/logger"
	"github.com/abrezinsky/gavel/internal/metrics"
	"github.com/abrezinsky/gavel/internal/models"
	"github.com/abrezinsky/gavel/internal/repository"
)

// Activity actions
const (
	ActionSpeakerAdded      = "speaker_added"
	ActionSpeakerRemoved    = "speaker_removed"
	ActionSpeakersReordered = "speakers_reordered"
	ActionTimeYielded       = "time_yielded"
	ActionSpeakingTimeSet   = "speaking_time_set"
	ActionMotionCreated     = "motion_created"
	ActionMotionVoted       = "motion_voted"
	ActionMotionExtended    = "motion_extended"
	ActionMotionAdjourned   = "motion_adjourned"
	ActionMotionEdited      = "motion_edited"
	ActionMotionsReordered  = "motions_reordered"
	ActionRosterImported    = "roster_imported"
)

// ActivityService writes the committee activity log. Failures are logged and
// never surface to the caller.
type ActivityService struct {
	log     logger.Logger
	repo    repository.ActivityRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewActivityService creates a new ActivityService
func NewActivityService(log logger.Logger, repo repository.ActivityRepository, m *metrics.Metrics) *ActivityService {
	return &ActivityService{log: log, repo: repo, metrics: m, now: time.Now}
}

// Record appends an entry for the committee
func (s *ActivityService) Record(ctx context.Context, committeeID int64, action, detail string) {
	s.log.Info("Session activity", "committee_id", committeeID, "action", action, "detail", detail)
	_, err := s.repo.AddActivity(ctx, models.ActivityEntry{
		CommitteeID: committeeID,
		Action:      action,
		Detail:      detail,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		s.log.Warn("Failed to record activity", "committee_id", committeeID, "action", action, "error", err)
		s.metrics.ActivityFailed()
	}
}

// SpeakerAdded records a delegate joining the speakers list
func (s *ActivityService) SpeakerAdded(ctx context.Context, committeeID int64, sp models.Speaker) {
	s.Record(ctx, committeeID, ActionSpeakerAdded, speakerLabel(sp))
}

// SpeakerRemoved records a delegate leaving the floor or the queue
func (s *ActivityService) SpeakerRemoved(ctx context.Context, committeeID int64, sp models.Speaker) {
	s.Record(ctx, committeeID, ActionSpeakerRemoved, speakerLabel(sp))
}

// SpeakersReordered records a manual change of speaking order
func (s *ActivityService) SpeakersReordered(ctx context.Context, committeeID int64) {
	s.Record(ctx, committeeID, ActionSpeakersReordered, "speaking order changed")
}

// TimeYielded records remaining seconds handed from one delegate to another
func (s *ActivityService) TimeYielded(ctx context.Context, committeeID int64, from, to models.Speaker, remaining int) {
	s.Record(ctx, committeeID, ActionTimeYielded,
		fmt.Sprintf("%s yielded %s to %s", speakerLabel(from), FormatSeconds(remaining), speakerLabel(to)))
}

// SpeakingTimeSet records a change of speaking time
func (s *ActivityService) SpeakingTimeSet(ctx context.Context, committeeID int64, seconds int, motion *models.Motion) {
	detail := "default speaking time set to " + FormatSeconds(seconds)
	if motion != nil {
		detail = fmt.Sprintf("speaking time for %s set to %s", motion.Name, FormatSeconds(seconds))
	}
	s.Record(ctx, committeeID, ActionSpeakingTimeSet, detail)
}

// List returns the newest entries first
func (s *ActivityService) List(ctx context.Context, committeeID int64, limit int) ([]models.ActivityEntry, error) {
	return s.repo.ListActivity(ctx, committeeID, limit)
}

// FormatSeconds renders seconds as m:ss, with a leading minus in overtime
func FormatSeconds(seconds int) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%d:%02d", sign, seconds/60, seconds%60)
}

func speakerLabel(sp models.Speaker) string {
	if sp.Name != "" {
		return sp.Name
	}
	return sp.Code
}
