package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/gavel/internal/errors"
	"github.com/abrezinsky/gavel/internal/logger"
	"github.com/abrezinsky/gavel/internal/models"
	"github.com/abrezinsky/gavel/internal/repository"
	"github.com/abrezinsky/gavel/pkg/roster"
)

// CommitteeService handles committees, their rosters and roster imports
type CommitteeService struct {
	log      logger.Logger
	repo     repository.CommitteeRepository
	client   roster.Client
	settings SettingsServicer
	activity ActivityServicer
	sessions SessionCache
}

// SessionCache is told when a committee changes under a live session
type SessionCache interface {
	Refresh(ctx context.Context, committeeID int64)
	Evict(committeeID int64)
}

// NewCommitteeService creates a new CommitteeService
func NewCommitteeService(log logger.Logger, repo repository.CommitteeRepository, client roster.Client, settings SettingsServicer, activity ActivityServicer) *CommitteeService {
	return &CommitteeService{
		log:      log,
		repo:     repo,
		client:   client,
		settings: settings,
		activity: activity,
	}
}

// SetSessions sets the live session cache kept in sync with roster changes
func (s *CommitteeService) SetSessions(c SessionCache) {
	s.sessions = c
}

func (s *CommitteeService) refresh(ctx context.Context, id int64) {
	if s.sessions != nil {
		s.sessions.Refresh(ctx, id)
	}
}

// ImportResult summarizes a roster import
type ImportResult struct {
	CommitteeID int64  `json:"committee_id"`
	Name        string `json:"name"`
	Created     bool   `json:"created"`
	Members     int    `json:"members"`
	Duplicates  int    `json:"duplicates"`
}

// CreateCommittee creates an empty committee. Nil settings means defaults.
func (s *CommitteeService) CreateCommittee(ctx context.Context, name string, settings *models.CommitteeSettings) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.Validation("committee name is required")
	}
	cs := models.DefaultSettings()
	if settings != nil {
		cs = *settings
	}
	if err := validateSettings(&cs); err != nil {
		return 0, err
	}

	exists, err := s.repo.CommitteeExists(ctx, name)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, errors.Conflictf("committee %q already exists", name)
	}

	id, err := s.repo.CreateCommittee(ctx, name, cs)
	if err != nil {
		return 0, err
	}
	s.log.Info("Committee created", "id", id, "name", name)
	return id, nil
}

// GetCommittee returns a committee with its deduplicated roster
func (s *CommitteeService) GetCommittee(ctx context.Context, id int64) (*models.Committee, error) {
	c, err := s.repo.GetCommittee(ctx, id)
	if err == repository.ErrNotFound {
		return nil, errors.NotFoundf("committee %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	c.Countries, _ = dedupeMembers(c.Countries)
	return c, nil
}

// ListCommittees returns every committee without rosters
func (s *CommitteeService) ListCommittees(ctx context.Context) ([]models.Committee, error) {
	return s.repo.ListCommittees(ctx)
}

// UpdateSettings replaces a committee's feature toggles
func (s *CommitteeService) UpdateSettings(ctx context.Context, id int64, settings models.CommitteeSettings) error {
	if err := validateSettings(&settings); err != nil {
		return err
	}
	if err := notFound(s.repo.UpdateCommitteeSettings(ctx, id, settings), "committee %d not found", id); err != nil {
		return err
	}
	s.refresh(ctx, id)
	return nil
}

// DeleteCommittee removes a committee and everything attached to it
func (s *CommitteeService) DeleteCommittee(ctx context.Context, id int64) error {
	if err := notFound(s.repo.DeleteCommittee(ctx, id), "committee %d not found", id); err != nil {
		return err
	}
	if s.sessions != nil {
		s.sessions.Evict(id)
	}
	s.log.Info("Committee deleted", "id", id)
	return nil
}

// Members returns the committee roster keyed by code, first occurrence wins
func (s *CommitteeService) Members(ctx context.Context, id int64) ([]models.Country, error) {
	c, err := s.GetCommittee(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Countries, nil
}

// SetMembers replaces the roster. Codes are required; duplicates are dropped.
func (s *CommitteeService) SetMembers(ctx context.Context, id int64, countries []models.Country) (int, error) {
	if _, err := s.GetCommittee(ctx, id); err != nil {
		return 0, err
	}
	for i := range countries {
		countries[i].Code = strings.TrimSpace(countries[i].Code)
		if countries[i].Code == "" {
			return 0, errors.Validationf("member %d has no code", i+1)
		}
		if countries[i].Name == "" {
			countries[i].Name = countries[i].Code
		}
		if countries[i].Attendance == "" {
			countries[i].Attendance = models.AttendancePresent
		}
		if !countries[i].Attendance.Valid() {
			return 0, errors.Validationf("unknown attendance %q for %s", countries[i].Attendance, countries[i].Code)
		}
	}
	members, dropped := dedupeMembers(countries)
	if err := s.repo.ReplaceCountries(ctx, id, members); err != nil {
		return 0, err
	}
	if dropped > 0 {
		s.log.Warn("Dropped duplicate roster entries", "committee_id", id, "duplicates", dropped)
	}
	s.refresh(ctx, id)
	return dropped, nil
}

// SetAttendance records a roll-call answer for one delegation
func (s *CommitteeService) SetAttendance(ctx context.Context, id int64, code string, attendance models.Attendance) error {
	if !attendance.Valid() {
		return errors.Validationf("unknown attendance %q", attendance)
	}
	if err := notFound(s.repo.SetAttendance(ctx, id, code, attendance), "%s is not on the roster", code); err != nil {
		return err
	}
	s.refresh(ctx, id)
	return nil
}

// ImportFromProvider fetches a roster from the provider and stores it under
// the document's name, updating the committee when it already exists
func (s *CommitteeService) ImportFromProvider(ctx context.Context, providerURL, ref string) (*ImportResult, error) {
	if providerURL == "" {
		url, err := s.settings.GetRosterURL(ctx)
		if err != nil {
			return nil, err
		}
		providerURL = url
	}
	if providerURL == "" {
		return nil, ErrRosterNotConfigured
	}
	if strings.TrimSpace(ref) == "" {
		return nil, errors.Validation("committee reference is required")
	}

	s.client.SetBaseURL(providerURL)
	if err := s.settings.SetRosterURL(ctx, providerURL); err != nil {
		return nil, fmt.Errorf("failed to save roster URL: %w", err)
	}

	doc, err := s.client.FetchCommittee(ctx, ref)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "failed to fetch roster")
	}
	s.log.Info("Fetched roster", "ref", ref, "members", len(doc.Countries))
	return s.importDocument(ctx, doc)
}

// ImportYAML stores a roster document uploaded as YAML
func (s *CommitteeService) ImportYAML(ctx context.Context, data []byte) (*ImportResult, error) {
	doc, err := roster.ParseYAML(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrValidation, "invalid roster document")
	}
	return s.importDocument(ctx, doc)
}

func (s *CommitteeService) importDocument(ctx context.Context, doc *roster.Document) (*ImportResult, error) {
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return nil, errors.Validation("roster has no committee name")
	}
	if len(doc.Countries) == 0 {
		return nil, ErrEmptyRoster
	}

	result := &ImportResult{Name: name}
	id, err := s.findByName(ctx, name)
	if err != nil {
		return nil, err
	}

	var settings models.CommitteeSettings
	if id == 0 {
		settings = applyRosterSettings(models.DefaultSettings(), doc.Settings)
		if err := validateSettings(&settings); err != nil {
			return nil, err
		}
		if id, err = s.repo.CreateCommittee(ctx, name, settings); err != nil {
			return nil, err
		}
		result.Created = true
	} else if doc.Settings != nil {
		existing, err := s.repo.GetCommittee(ctx, id)
		if err != nil {
			return nil, err
		}
		settings = applyRosterSettings(existing.Settings, doc.Settings)
		if err := validateSettings(&settings); err != nil {
			return nil, err
		}
		if err := s.repo.UpdateCommitteeSettings(ctx, id, settings); err != nil {
			return nil, err
		}
	}
	result.CommitteeID = id

	countries := make([]models.Country, 0, len(doc.Countries))
	for _, m := range doc.Countries {
		countries = append(countries, models.Country{
			ID:         m.ID.String(),
			Name:       m.Name,
			Code:       m.Code,
			FlagQuery:  m.FlagQuery,
			Attendance: models.Attendance(m.Attendance),
		})
	}
	dropped, err := s.SetMembers(ctx, id, countries)
	if err != nil {
		return nil, err
	}
	result.Members = len(countries) - dropped
	result.Duplicates = dropped

	s.activity.Record(ctx, id, ActionRosterImported, fmt.Sprintf("%d members", result.Members))
	return result, nil
}

func (s *CommitteeService) findByName(ctx context.Context, name string) (int64, error) {
	exists, err := s.repo.CommitteeExists(ctx, name)
	if err != nil || !exists {
		return 0, err
	}
	committees, err := s.repo.ListCommittees(ctx)
	if err != nil {
		return 0, err
	}
	for _, c := range committees {
		if c.Name == name {
			return c.ID, nil
		}
	}
	return 0, nil
}

// SessionURL is the page participants open to follow a committee
func (s *CommitteeService) SessionURL(ctx context.Context, id int64) (string, error) {
	baseURL, err := s.settings.GetBaseURL(ctx)
	if err != nil {
		return "", err
	}
	if baseURL == "" {
		return "", ErrBaseURLNotSet
	}
	return fmt.Sprintf("%s/committees/%d", strings.TrimSuffix(baseURL, "/"), id), nil
}

// GenerateShareQR renders the session URL as a PNG QR code
func (s *CommitteeService) GenerateShareQR(ctx context.Context, id int64) ([]byte, error) {
	if _, err := s.GetCommittee(ctx, id); err != nil {
		return nil, err
	}
	url, err := s.SessionURL(ctx, id)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(url, qrcode.Medium, 256)
}

// dedupeMembers keeps the first member for each code, ignoring case
func dedupeMembers(countries []models.Country) ([]models.Country, int) {
	seen := make(map[string]bool, len(countries))
	out := make([]models.Country, 0, len(countries))
	for _, c := range countries {
		key := models.CodeKey(c.Code)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out, len(countries) - len(out)
}

func applyRosterSettings(cs models.CommitteeSettings, rs *roster.Settings) models.CommitteeSettings {
	if rs == nil {
		return cs
	}
	if rs.EnableMotions != nil {
		cs.EnableMotions = *rs.EnableMotions
	}
	if rs.EnableVoting != nil {
		cs.EnableVoting = *rs.EnableVoting
	}
	if rs.ShowTimer != nil {
		cs.ShowTimer = *rs.ShowTimer
	}
	if rs.ShowSpeakerList != nil {
		cs.ShowSpeakerList = *rs.ShowSpeakerList
	}
	if rs.ShowMotions != nil {
		cs.ShowMotions = *rs.ShowMotions
	}
	if rs.SpeakingTime != nil {
		cs.SpeakingTime = *rs.SpeakingTime
	}
	return cs
}

// validateSettings rejects negative speaking time; zero means the default
func validateSettings(cs *models.CommitteeSettings) error {
	if cs.SpeakingTime < 0 {
		return errors.Validation("speaking time cannot be negative")
	}
	if cs.SpeakingTime == 0 {
		cs.SpeakingTime = models.DefaultSpeakingTime
	}
	return nil
}

func notFound(err error, format string, args ...interface{}) error {
	if err == repository.ErrNotFound {
		return errors.NotFoundf(format, args...)
	}
	return err
}
