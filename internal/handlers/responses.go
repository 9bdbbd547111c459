package handlers

import "github.com/abrezinsky/gavel/internal/models"

// CommitteeResponse is the response for committee creation
type CommitteeResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MembersResponse is the response for roster operations
type MembersResponse struct {
	Countries  []models.Country `json:"countries"`
	Duplicates int              `json:"duplicates"`
}

// ShareURLResponse is the page participants open to follow a committee
type ShareURLResponse struct {
	URL string `json:"url"`
}

// SettingsResponse is the response for settings
type SettingsResponse struct {
	BaseURL   string `json:"base_url"`
	RosterURL string `json:"roster_url"`
}

// HealthResponse is served at /health
type HealthResponse struct {
	Status string `json:"status"`
}
