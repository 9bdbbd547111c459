package session

import (
	"time"

	"github.com/abrezinsky/gavel/internal/models"
)

// State is everything a committee session needs to render the floor
type State struct {
	CommitteeID         int64 `json:"committee_id"`
	Queue               Queue `json:"queue"`
	Timer               Timer `json:"timer"`
	ActiveMotionID      int64 `json:"active_motion_id"`
	DefaultSpeakingTime int   `json:"default_speaking_time"`
}

// NewState returns an empty floor with the timer loaded to the default
func NewState(committeeID int64, defaultSpeakingTime int) State {
	if defaultSpeakingTime <= 0 {
		defaultSpeakingTime = models.DefaultSpeakingTime
	}
	return State{
		CommitteeID:         committeeID,
		Queue:               Queue{Upcoming: []models.Speaker{}},
		Timer:               NewTimer(defaultSpeakingTime),
		DefaultSpeakingTime: defaultSpeakingTime,
	}
}

// BaseSpeakingTime is the active motion's speaking time when one is active
// and configures a positive value, otherwise the ambient default.
func (s State) BaseSpeakingTime(active *models.Motion) int {
	if active != nil && active.ID == s.ActiveMotionID && active.SpeakingTime > 0 {
		return active.SpeakingTime
	}
	return s.DefaultSpeakingTime
}

// ActivateMotion makes a passed timed motion the active one: the timer is
// loaded with its speaking time and the proposer takes the floor. Whoever
// was speaking goes back to the front of the queue.
func (s State) ActivateMotion(m models.Motion, proposer models.Speaker) State {
	s.ActiveMotionID = m.ID
	speaking := m.SpeakingTime
	if speaking <= 0 {
		speaking = s.DefaultSpeakingTime
	}
	s.Timer = s.Timer.Load(speaking)

	q := s.Queue.clone()
	if idx := q.IndexOf(proposer.Code); idx >= 0 {
		proposer = q.Upcoming[idx]
		q.Upcoming = append(q.Upcoming[:idx], q.Upcoming[idx+1:]...)
	}
	if q.Current != nil {
		if models.SameCode(q.Current.Code, proposer.Code) {
			s.Queue = q
			return s
		}
		q.Upcoming = append([]models.Speaker{queued(*q.Current)}, q.Upcoming...)
	}
	q.Current = seat(proposer)
	s.Queue = q
	return s
}

// RetimeActive reloads the timer when the active motion's speaking time
// changed from previous. An unchanged speaking time leaves the clock alone.
func (s State) RetimeActive(m models.Motion, previous int) State {
	if m.ID != s.ActiveMotionID || m.SpeakingTime <= 0 || m.SpeakingTime == previous {
		return s
	}
	yielded := 0
	if s.Queue.Current != nil {
		yielded = s.Queue.Current.YieldedTime
	}
	s.Timer = s.Timer.Load(m.SpeakingTime + yielded)
	return s
}

// ChangeDefault replaces the ambient speaking time. With no active motion a
// paused, untouched timer is reloaded so the floor picks up the new value.
func (s State) ChangeDefault(seconds int) State {
	if seconds <= 0 || seconds == s.DefaultSpeakingTime {
		return s
	}
	s.DefaultSpeakingTime = seconds
	t := s.Timer
	if s.ActiveMotionID != 0 || t.Running || t.CurrentTime != t.TotalTime {
		return s
	}
	yielded := 0
	if s.Queue.Current != nil {
		yielded = s.Queue.Current.YieldedTime
	}
	s.Timer = t.Load(seconds + yielded)
	return s
}

// ClearActive drops the active motion and reverts the timer to the default
func (s State) ClearActive() State {
	s.ActiveMotionID = 0
	s.Timer = s.Timer.Load(s.DefaultSpeakingTime)
	return s
}

// Snapshot converts the state into its persisted form
func (s State) Snapshot(committeeName string, now time.Time) models.Snapshot {
	snap := models.Snapshot{
		CommitteeName:       committeeName,
		SpeakerQueue:        append([]models.Speaker{}, s.Queue.Upcoming...),
		Timer:               s.Timer.State(),
		ActiveMotionID:      s.ActiveMotionID,
		DefaultSpeakingTime: s.DefaultSpeakingTime,
		SavedAt:             now,
	}
	if s.Queue.Current != nil {
		c := *s.Queue.Current
		snap.CurrentSpeaker = &c
	}
	return snap
}

// StateFromSnapshot restores a session. The timer always comes back paused.
func StateFromSnapshot(committeeID int64, snap models.Snapshot) State {
	st := NewState(committeeID, snap.DefaultSpeakingTime)
	st.ActiveMotionID = snap.ActiveMotionID
	st.Timer = TimerFromState(snap.Timer).Pause()
	if snap.CurrentSpeaker != nil {
		c := *snap.CurrentSpeaker
		st.Queue.Current = &c
	}
	if len(snap.SpeakerQueue) > 0 {
		st.Queue.Upcoming = append([]models.Speaker{}, snap.SpeakerQueue...)
	}
	return st
}
