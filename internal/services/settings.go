package services

import (
	"context"

	"github.com/abrezinsky/gavel/internal/logger"
	"github.com/abrezinsky/gavel/internal/repository"
)

// Evicter drops cached session controllers so they are rebuilt from storage
type Evicter interface {
	EvictAll()
}

// SettingsService handles server-wide settings and database maintenance
type SettingsService struct {
	log      logger.Logger
	repo     repository.SettingsRepository
	sessions Evicter
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(log logger.Logger, repo repository.SettingsRepository) *SettingsService {
	return &SettingsService{log: log, repo: repo}
}

// SetEvicter sets the session cache that is flushed after a table reset
func (s *SettingsService) SetEvicter(e Evicter) {
	s.sessions = e
}

// GetBaseURL returns the URL participants use to reach this server
func (s *SettingsService) GetBaseURL(ctx context.Context) (string, error) {
	return s.optional(ctx, "base_url")
}

// SetBaseURL saves the public base URL
func (s *SettingsService) SetBaseURL(ctx context.Context, url string) error {
	return s.repo.SetSetting(ctx, "base_url", url)
}

// GetRosterURL returns the roster provider URL
func (s *SettingsService) GetRosterURL(ctx context.Context) (string, error) {
	return s.optional(ctx, "roster_url")
}

// SetRosterURL saves the roster provider URL
func (s *SettingsService) SetRosterURL(ctx context.Context, url string) error {
	return s.repo.SetSetting(ctx, "roster_url", url)
}

// GetSetting retrieves an arbitrary setting
func (s *SettingsService) GetSetting(ctx context.Context, key string) (string, error) {
	return s.repo.GetSetting(ctx, key)
}

// SetSetting saves an arbitrary setting
func (s *SettingsService) SetSetting(ctx context.Context, key, value string) error {
	return s.repo.SetSetting(ctx, key, value)
}

// optional reads a setting that may never have been written
func (s *SettingsService) optional(ctx context.Context, key string) (string, error) {
	value, err := s.repo.GetSetting(ctx, key)
	if err == repository.ErrNotFound {
		return "", nil
	}
	return value, err
}

// AllSettings returns commonly used settings as a map
func (s *SettingsService) AllSettings(ctx context.Context) (map[string]interface{}, error) {
	settings := make(map[string]interface{})

	baseURL, err := s.GetBaseURL(ctx)
	if err != nil {
		return nil, err
	}
	settings["base_url"] = baseURL

	rosterURL, err := s.GetRosterURL(ctx)
	if err != nil {
		return nil, err
	}
	settings["roster_url"] = rosterURL

	return settings, nil
}

// Settings represents server settings for update operations
type Settings struct {
	BaseURL   string
	RosterURL string
}

// UpdateSettings updates multiple settings at once. Empty fields are skipped.
func (s *SettingsService) UpdateSettings(ctx context.Context, settings Settings) error {
	if settings.BaseURL != "" {
		if err := s.SetBaseURL(ctx, settings.BaseURL); err != nil {
			return err
		}
	}
	if settings.RosterURL != "" {
		if err := s.SetRosterURL(ctx, settings.RosterURL); err != nil {
			return err
		}
	}
	return nil
}

// ResetTablesResult contains the result of a database reset
type ResetTablesResult struct {
	Tables  []string `json:"tables"`
	Message string   `json:"message"`
}

// ValidTables defines which tables can be reset
var ValidTables = map[string]bool{
	"activity_log": true, "snapshots": true, "motions": true, "countries": true, "committees": true,
}

// dependents lists what must be cleared before a table, children first
var dependents = map[string][]string{
	"committees": {"activity_log", "snapshots", "motions", "countries"},
	"motions":    {"snapshots"},
}

// ResetTables validates and clears the given tables plus anything that
// references them, then drops every cached session
func (s *SettingsService) ResetTables(ctx context.Context, tables []string) (*ResetTablesResult, error) {
	if len(tables) == 0 {
		return nil, ErrNoTablesSpecified
	}

	for _, table := range tables {
		if !ValidTables[table] {
			return nil, &InvalidTableError{Table: table}
		}
	}

	var tablesToReset []string
	for _, table := range tables {
		for _, dep := range dependents[table] {
			if !containsTable(tablesToReset, dep) {
				tablesToReset = append(tablesToReset, dep)
			}
		}
		if !containsTable(tablesToReset, table) {
			tablesToReset = append(tablesToReset, table)
		}
	}

	for _, table := range tablesToReset {
		if err := s.repo.ClearTable(ctx, table); err != nil {
			return nil, err
		}
	}

	if s.sessions != nil {
		s.sessions.EvictAll()
	}
	s.log.Info("Tables reset", "tables", tablesToReset)

	return &ResetTablesResult{
		Tables:  tablesToReset,
		Message: "Successfully deleted data from tables",
	}, nil
}

func containsTable(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
