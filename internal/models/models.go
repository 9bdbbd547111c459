package models

import (
	"strings"
	"time"
)

// Attendance is a delegate's roll-call state
type Attendance string

const (
	AttendancePresent       Attendance = "present"
	AttendancePresentVoting Attendance = "present_voting"
	AttendanceAbsent        Attendance = "absent"
)

// Valid reports whether a is one of the known attendance values
func (a Attendance) Valid() bool {
	switch a {
	case AttendancePresent, AttendancePresentVoting, AttendanceAbsent:
		return true
	}
	return false
}

// Country is a committee roster member as provided by the committee data source
type Country struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Code       string     `json:"code"`
	FlagQuery  string     `json:"flag_query"`
	Attendance Attendance `json:"attendance"`
}

// CommitteeSettings toggles session features for one committee
type CommitteeSettings struct {
	EnableMotions   bool `json:"enable_motions"`
	EnableVoting    bool `json:"enable_voting"`
	ShowTimer       bool `json:"show_timer"`
	ShowSpeakerList bool `json:"show_speaker_list"`
	ShowMotions     bool `json:"show_motions"`
	SpeakingTime    int  `json:"speaking_time"` // seconds
}

// DefaultSpeakingTime is used when a committee does not configure one
const DefaultSpeakingTime = 60

// DefaultSettings returns settings with every feature enabled
func DefaultSettings() CommitteeSettings {
	return CommitteeSettings{
		EnableMotions:   true,
		EnableVoting:    true,
		ShowTimer:       true,
		ShowSpeakerList: true,
		ShowMotions:     true,
		SpeakingTime:    DefaultSpeakingTime,
	}
}

// Committee is a committee and its roster
type Committee struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Countries []Country         `json:"countries"`
	Settings  CommitteeSettings `json:"settings"`
	CreatedAt time.Time         `json:"created_at"`
}

// Speaker is a delegate plus transient queue metadata.
// Code is the durable identity; ID is a render key that may change on every insert.
type Speaker struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	FlagQuery   string     `json:"flag_query"`
	Attendance  Attendance `json:"attendance"`
	YieldedTime int        `json:"yielded_time"` // seconds
}

// SpeakerFromCountry builds a speaker for a roster member
func SpeakerFromCountry(c Country) Speaker {
	return Speaker{
		ID:         c.ID,
		Code:       c.Code,
		Name:       c.Name,
		FlagQuery:  c.FlagQuery,
		Attendance: c.Attendance,
	}
}

// MotionType is the procedural kind of a motion
type MotionType string

const (
	MotionModeratedCaucus   MotionType = "Moderated Caucus"
	MotionUnmoderatedCaucus MotionType = "Unmoderated Caucus"
	MotionGSL               MotionType = "GSL"
	MotionCloseDebate       MotionType = "Close Debate"
	MotionTableDebate       MotionType = "Table Debate"
	MotionIntroduceDraft    MotionType = "Introduce Draft Resolution"
	MotionCustom            MotionType = "Custom"
	MotionExtension         MotionType = "Extension"
)

// Valid reports whether t is a known motion type
func (t MotionType) Valid() bool {
	switch t {
	case MotionModeratedCaucus, MotionUnmoderatedCaucus, MotionGSL, MotionCloseDebate,
		MotionTableDebate, MotionIntroduceDraft, MotionCustom, MotionExtension:
		return true
	}
	return false
}

// Timed reports whether a passed motion of this type takes over the speaker timer
func (t MotionType) Timed() bool {
	return t == MotionModeratedCaucus || t == MotionGSL
}

// MotionStatus is the lifecycle state of a motion
type MotionStatus string

const (
	StatusPending    MotionStatus = "Pending"
	StatusInProgress MotionStatus = "In Progress"
	StatusPassed     MotionStatus = "Passed"
	StatusFailed     MotionStatus = "Failed"
)

// Terminal reports whether no further transition is possible
func (s MotionStatus) Terminal() bool {
	return s == StatusPassed || s == StatusFailed
}

// ExtensionDetails is carried only by Extension motions
type ExtensionDetails struct {
	ParentMotionID      int64    `json:"parent_motion_id"`
	Speakers            []string `json:"speakers"`
	CurrentSpeakerIndex int      `json:"current_speaker_index"`
}

// Motion is a procedural request voted on by the committee
type Motion struct {
	ID               int64             `json:"id"`
	CommitteeID      int64             `json:"committee_id"`
	Name             string            `json:"name"`
	Type             MotionType        `json:"type"`
	ProposingCountry string            `json:"proposing_country"`
	Status           MotionStatus      `json:"status"`
	Duration         float64           `json:"duration"`      // minutes, may be fractional
	SpeakingTime     int               `json:"speaking_time"` // seconds per speaker
	TotalSpeakers    int               `json:"total_speakers"`
	TotalTime        int               `json:"total_time"` // seconds
	VotesFor         int               `json:"votes_for"`
	VotesAgainst     int               `json:"votes_against"`
	Abstentions      int               `json:"abstentions"`
	DisplayOrder     int               `json:"display_order"`
	CreatedAt        time.Time         `json:"created_at"`
	Extension        *ExtensionDetails `json:"extension,omitempty"`
}

// ParentMotionID returns the extended motion's id, or 0 for non-extensions
func (m Motion) ParentMotionID() int64 {
	if m.Extension == nil {
		return 0
	}
	return m.Extension.ParentMotionID
}

// TimerState is the serializable form of the speaker timer
type TimerState struct {
	CurrentTime int  `json:"current_time"`
	TotalTime   int  `json:"total_time"`
	IsRunning   bool `json:"is_running"`
}

// Snapshot is the session cache written after mutations and read back on open
type Snapshot struct {
	ID                  int64      `json:"id"`
	CommitteeName       string     `json:"committee_name"`
	CurrentSpeaker      *Speaker   `json:"current_speaker"`
	SpeakerQueue        []Speaker  `json:"speaker_queue"`
	Timer               TimerState `json:"timer"`
	ActiveMotionID      int64      `json:"active_motion_id"`
	DefaultSpeakingTime int        `json:"default_speaking_time"`
	SavedAt             time.Time  `json:"saved_at"`
}

// ActivityEntry is one line of the committee activity log
type ActivityEntry struct {
	ID          int64     `json:"id"`
	CommitteeID int64     `json:"committee_id"`
	Action      string    `json:"action"`
	Detail      string    `json:"detail"`
	CreatedAt   time.Time `json:"created_at"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type        string      `json:"type"`
	CommitteeID int64       `json:"committee_id,omitempty"`
	Payload     interface{} `json:"payload"`
}

// SameCode reports whether two delegation codes name the same delegation.
// Codes are compared without regard to case.
func SameCode(a, b string) bool {
	return strings.EqualFold(a, b)
}

// CodeKey is the map key under which SameCode codes collide
func CodeKey(code string) string {
	return strings.ToLower(code)
}
