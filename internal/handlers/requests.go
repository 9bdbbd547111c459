package handlers

import (
	"github.com/abrezinsky/gavel/internal/models"
	"github.com/abrezinsky/gavel/internal/session"
)

// CommitteeCreateRequest represents a request to create a committee
type CommitteeCreateRequest struct {
	Name     string                    `json:"name"`
	Settings *models.CommitteeSettings `json:"settings,omitempty"`
}

// MembersRequest replaces a committee roster
type MembersRequest struct {
	Countries []models.Country `json:"countries"`
}

// AttendanceRequest records a roll-call answer
type AttendanceRequest struct {
	Attendance models.Attendance `json:"attendance"`
}

// RosterImportRequest imports a roster from the provider. An empty
// ProviderURL uses the stored one.
type RosterImportRequest struct {
	ProviderURL string `json:"provider_url"`
	Ref         string `json:"ref"`
}

// SpeakerRequest names a delegation by roster code or name
type SpeakerRequest struct {
	Code string `json:"code"`
}

// YieldRequest hands the remaining time to a queued delegation
type YieldRequest struct {
	To string `json:"to"`
}

// SpeakerOrderRequest is the complete new queue order
type SpeakerOrderRequest struct {
	Codes []string `json:"codes"`
}

// DropRequest is a finished drag gesture
type DropRequest struct {
	Payload session.DragPayload `json:"payload"`
	Target  session.DropTarget  `json:"target"`
}

// SetTimeRequest loads a new speaking time
type SetTimeRequest struct {
	Minutes      int  `json:"minutes"`
	Seconds      int  `json:"seconds"`
	UpdateMotion bool `json:"update_motion"`
}

// VoteRequest is a motion tally
type VoteRequest struct {
	VotesFor     int `json:"votes_for"`
	VotesAgainst int `json:"votes_against"`
	Abstentions  int `json:"abstentions"`
}

// MotionEditRequest renames a motion
type MotionEditRequest struct {
	Name string `json:"name"`
}

// MotionOrderRequest is the complete new motion order
type MotionOrderRequest struct {
	IDs []int64 `json:"ids"`
}

// SettingsUpdateRequest represents a request to update settings
type SettingsUpdateRequest struct {
	BaseURL   string `json:"base_url"`
	RosterURL string `json:"roster_url"`
}

// DatabaseResetRequest represents a request to reset database tables
type DatabaseResetRequest struct {
	Tables []string `json:"tables"`
}
