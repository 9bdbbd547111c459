package session

import (
	"math"
	"strings"
	"time"

	"github.com/abrezinsky/gavel/internal/errors"
	"github.com/abrezinsky/gavel/internal/models"
)

// MotionInput is what the motion form submits. Durations arrive split into
// minutes and seconds and are normalized to seconds before any division.
type MotionInput struct {
	CommitteeID      int64             `json:"committee_id"`
	Name             string            `json:"name"`
	Type             models.MotionType `json:"type"`
	ProposingCountry string            `json:"proposing_country"`
	DurationMinutes  int               `json:"duration_minutes"`
	DurationSeconds  int               `json:"duration_seconds"`
	SpeakingMinutes  int               `json:"speaking_minutes"`
	SpeakingSeconds  int               `json:"speaking_seconds"`
}

// ExtensionRequest asks for more time on an in-progress caucus or GSL.
// Passed carries the chair's pass/fail ruling; nil leaves the extension
// Pending so it can go through RecordVote instead.
type ExtensionRequest struct {
	ProposingCountry  string `json:"proposing_country"`
	AdditionalMinutes int    `json:"additional_minutes"`
	AdditionalSeconds int    `json:"additional_seconds"`
	SpeakingMinutes   int    `json:"speaking_minutes"`
	SpeakingSeconds   int    `json:"speaking_seconds"`
	Passed            *bool  `json:"passed,omitempty"`
}

// VoteOutcome describes what a vote did to a motion
type VoteOutcome struct {
	Motion    models.Motion `json:"motion"`
	Passed    bool          `json:"passed"`
	Activates bool          `json:"activates"` // a timed motion took over the timer
	Merges    bool          `json:"merges"`    // an extension should be merged into its parent
}

// Derive returns how many whole speaking slots fit into the duration and
// whether the duration divides evenly
func Derive(durationSeconds, speakingSeconds int) (totalSpeakers int, canDivide bool) {
	if speakingSeconds <= 0 {
		return 0, false
	}
	return durationSeconds / speakingSeconds, durationSeconds%speakingSeconds == 0
}

func minutesOf(seconds int) float64 {
	return float64(seconds) / 60
}

func secondsOf(minutes float64) int {
	return int(math.Round(minutes * 60))
}

// NewMotion validates the form and builds a Pending motion
func NewMotion(in MotionInput, settings models.CommitteeSettings, now time.Time) (models.Motion, error) {
	if !settings.EnableMotions {
		return models.Motion{}, errors.Policy("motions are disabled for this committee")
	}
	proposer := strings.TrimSpace(in.ProposingCountry)
	if proposer == "" {
		return models.Motion{}, errors.Validation("proposing country is required")
	}
	if !in.Type.Valid() {
		return models.Motion{}, errors.Validationf("unknown motion type %q", in.Type)
	}
	if in.Type == models.MotionExtension {
		return models.Motion{}, errors.Validation("extensions must be requested on an in-progress motion")
	}
	if in.DurationMinutes < 0 || in.DurationSeconds < 0 || in.SpeakingMinutes < 0 || in.SpeakingSeconds < 0 {
		return models.Motion{}, errors.Validation("durations cannot be negative")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = string(in.Type)
	}

	m := models.Motion{
		CommitteeID:      in.CommitteeID,
		Name:             name,
		Type:             in.Type,
		ProposingCountry: proposer,
		Status:           models.StatusPending,
		CreatedAt:        now,
	}

	durationSeconds := in.DurationMinutes*60 + in.DurationSeconds
	speakingSeconds := in.SpeakingMinutes*60 + in.SpeakingSeconds

	switch in.Type {
	case models.MotionModeratedCaucus:
		if durationSeconds <= 0 || speakingSeconds <= 0 {
			return models.Motion{}, errors.Validation("moderated caucus needs a duration and a speaking time")
		}
		m.Duration = minutesOf(durationSeconds)
		m.SpeakingTime = speakingSeconds
		m.TotalSpeakers, _ = Derive(durationSeconds, speakingSeconds)
		m.TotalTime = durationSeconds
	case models.MotionUnmoderatedCaucus:
		if durationSeconds <= 0 {
			return models.Motion{}, errors.Validation("unmoderated caucus needs a duration")
		}
		m.Duration = minutesOf(durationSeconds)
		m.TotalTime = durationSeconds
	case models.MotionGSL:
		if speakingSeconds <= 0 {
			return models.Motion{}, errors.Validation("GSL needs a speaking time")
		}
		m.SpeakingTime = speakingSeconds
		m.TotalSpeakers, _ = Derive(durationSeconds, speakingSeconds)
		m.TotalTime = m.TotalSpeakers * speakingSeconds
	}
	return m, nil
}

// RecordVote tallies a vote. A motion passes on a strict majority of for over
// against; abstentions never count.
func RecordVote(m models.Motion, votesFor, votesAgainst, abstentions int) (VoteOutcome, error) {
	if m.Status != models.StatusPending {
		return VoteOutcome{}, errors.Policyf("motion is %s and cannot be voted on", m.Status)
	}
	if votesFor < 0 || votesAgainst < 0 || abstentions < 0 {
		return VoteOutcome{}, errors.Validation("vote counts cannot be negative")
	}

	m.VotesFor = votesFor
	m.VotesAgainst = votesAgainst
	m.Abstentions = abstentions

	passed := votesFor > votesAgainst
	return decide(m, passed), nil
}

func decide(m models.Motion, passed bool) VoteOutcome {
	out := VoteOutcome{Passed: passed}
	switch {
	case !passed:
		m.Status = models.StatusFailed
	case m.Type == models.MotionExtension:
		m.Status = models.StatusPassed
		out.Merges = true
	case m.Type.Timed():
		m.Status = models.StatusInProgress
		out.Activates = true
	default:
		m.Status = models.StatusPassed
	}
	out.Motion = m
	return out
}

// CanExtend reports whether parent accepts an extension
func CanExtend(parent models.Motion) error {
	if parent.Status != models.StatusInProgress {
		return errors.Policyf("only an in-progress motion can be extended (motion is %s)", parent.Status)
	}
	if !parent.Type.Timed() {
		return errors.Policyf("a %s cannot be extended", parent.Type)
	}
	return nil
}

// NewExtension builds an Extension motion for parent. When the request
// carries a ruling the returned outcome already reflects it.
func NewExtension(parent models.Motion, req ExtensionRequest, now time.Time) (VoteOutcome, error) {
	if err := CanExtend(parent); err != nil {
		return VoteOutcome{}, err
	}
	proposer := strings.TrimSpace(req.ProposingCountry)
	if proposer == "" {
		return VoteOutcome{}, errors.Validation("proposing country is required")
	}
	if req.AdditionalMinutes < 0 || req.AdditionalSeconds < 0 || req.SpeakingMinutes < 0 || req.SpeakingSeconds < 0 {
		return VoteOutcome{}, errors.Validation("durations cannot be negative")
	}
	additional := req.AdditionalMinutes*60 + req.AdditionalSeconds
	speaking := req.SpeakingMinutes*60 + req.SpeakingSeconds
	if additional <= 0 {
		return VoteOutcome{}, errors.Validation("an extension needs additional time")
	}

	ext := models.Motion{
		CommitteeID:      parent.CommitteeID,
		Name:             "Extension of " + parent.Name,
		Type:             models.MotionExtension,
		ProposingCountry: proposer,
		Status:           models.StatusPending,
		Duration:         minutesOf(additional),
		SpeakingTime:     speaking,
		TotalTime:        additional,
		CreatedAt:        now,
		Extension:        &models.ExtensionDetails{ParentMotionID: parent.ID, Speakers: []string{}},
	}
	ext.TotalSpeakers, _ = Derive(additional, speaking)

	if req.Passed == nil {
		return VoteOutcome{Motion: ext}, nil
	}
	return decide(ext, *req.Passed), nil
}

// MergeExtension folds a passed extension into its parent: time is added,
// a non-zero speaking time replaces the parent's, and the speaker count is
// derived again from the merged totals.
func MergeExtension(parent, ext models.Motion) (models.Motion, error) {
	if ext.Type != models.MotionExtension || ext.ParentMotionID() != parent.ID {
		return parent, errors.Validation("extension does not belong to this motion")
	}
	if err := CanExtend(parent); err != nil {
		return parent, err
	}
	if parent.Type == models.MotionModeratedCaucus {
		parent.Duration += ext.Duration
	}
	parent.TotalTime += ext.TotalTime
	if ext.SpeakingTime > 0 {
		parent.SpeakingTime = ext.SpeakingTime
	}
	parent.TotalSpeakers = speakerSlots(parent)
	return parent, nil
}

// SetSpeakingTime changes a caucus or GSL speaking time and derives the
// speaker count again
func SetSpeakingTime(m models.Motion, seconds int) (models.Motion, error) {
	if !m.Type.Timed() {
		return m, errors.Policyf("a %s has no speaking time", m.Type)
	}
	if seconds <= 0 {
		return m, errors.Validation("speaking time must be positive")
	}
	m.SpeakingTime = seconds
	m.TotalSpeakers = speakerSlots(m)
	return m, nil
}

// speakerSlots derives from the duration for caucuses and from the total
// time for GSL, which stores no duration
func speakerSlots(m models.Motion) int {
	var n int
	if m.Type == models.MotionModeratedCaucus {
		n, _ = Derive(secondsOf(m.Duration), m.SpeakingTime)
	} else {
		n, _ = Derive(m.TotalTime, m.SpeakingTime)
	}
	return n
}

// Adjourn closes an in-progress caucus or GSL as Passed
func Adjourn(m models.Motion) (models.Motion, error) {
	if !m.Type.Timed() {
		return m, errors.Policyf("a %s cannot be adjourned", m.Type)
	}
	if m.Status != models.StatusInProgress {
		return m, errors.Policyf("motion is %s, not in progress", m.Status)
	}
	m.Status = models.StatusPassed
	return m, nil
}

// Rename changes a motion's display name
func Rename(m models.Motion, name string) (models.Motion, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return m, errors.Validation("motion name is required")
	}
	m.Name = name
	return m, nil
}

// Reorder assigns display order following ids. Every motion must be listed once.
func Reorder(motions []models.Motion, ids []int64) ([]models.Motion, error) {
	if len(ids) != len(motions) {
		return nil, errors.Validationf("expected %d motions in new order, got %d", len(motions), len(ids))
	}
	byID := make(map[int64]models.Motion, len(motions))
	for _, m := range motions {
		byID[m.ID] = m
	}
	out := make([]models.Motion, 0, len(ids))
	for i, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, errors.Validationf("motion %d is missing or listed twice", id)
		}
		delete(byID, id)
		m.DisplayOrder = i
		out = append(out, m)
	}
	return out, nil
}
