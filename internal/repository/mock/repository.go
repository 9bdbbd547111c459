package mock

import (
	"context"

	"github.com/abrezinsky/gavel/internal/models"
	"github.com/abrezinsky/gavel/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.SaveSnapshotError = errors.New("disk full")
//	svc := services.NewSessionService(log, mockRepo, activity)
//	// mutations still succeed; the snapshot failure is only logged
type Repository struct {
	repository.FullRepository

	// ===== Committee Errors =====
	CreateCommitteeError         error
	CommitteeExistsError         error
	GetCommitteeError            error
	ListCommitteesError          error
	UpdateCommitteeSettingsError error
	ReplaceCountriesError        error
	SetAttendanceError           error

	// ===== Motion Errors =====
	CreateMotionError      error
	GetMotionError         error
	ListMotionsError       error
	UpdateMotionError      error
	UpdateMotionOrderError error
	SettleMotionError      error

	// ===== Snapshot Errors =====
	SaveSnapshotError error
	GetSnapshotError  error

	// ===== Activity Errors =====
	AddActivityError  error
	ListActivityError error

	// ===== Settings Errors =====
	GetSettingError error
	SetSettingError error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== Committee Methods =====

func (m *Repository) CreateCommittee(ctx context.Context, name string, settings models.CommitteeSettings) (int64, error) {
	if m.CreateCommitteeError != nil {
		return 0, m.CreateCommitteeError
	}
	return m.FullRepository.CreateCommittee(ctx, name, settings)
}

func (m *Repository) CommitteeExists(ctx context.Context, name string) (bool, error) {
	if m.CommitteeExistsError != nil {
		return false, m.CommitteeExistsError
	}
	return m.FullRepository.CommitteeExists(ctx, name)
}

func (m *Repository) GetCommittee(ctx context.Context, id int64) (*models.Committee, error) {
	if m.GetCommitteeError != nil {
		return nil, m.GetCommitteeError
	}
	return m.FullRepository.GetCommittee(ctx, id)
}

func (m *Repository) ListCommittees(ctx context.Context) ([]models.Committee, error) {
	if m.ListCommitteesError != nil {
		return nil, m.ListCommitteesError
	}
	return m.FullRepository.ListCommittees(ctx)
}

func (m *Repository) UpdateCommitteeSettings(ctx context.Context, id int64, settings models.CommitteeSettings) error {
	if m.UpdateCommitteeSettingsError != nil {
		return m.UpdateCommitteeSettingsError
	}
	return m.FullRepository.UpdateCommitteeSettings(ctx, id, settings)
}

func (m *Repository) ReplaceCountries(ctx context.Context, committeeID int64, countries []models.Country) error {
	if m.ReplaceCountriesError != nil {
		return m.ReplaceCountriesError
	}
	return m.FullRepository.ReplaceCountries(ctx, committeeID, countries)
}

func (m *Repository) SetAttendance(ctx context.Context, committeeID int64, code string, attendance models.Attendance) error {
	if m.SetAttendanceError != nil {
		return m.SetAttendanceError
	}
	return m.FullRepository.SetAttendance(ctx, committeeID, code, attendance)
}

// ===== Motion Methods =====

func (m *Repository) CreateMotion(ctx context.Context, motion models.Motion) (int64, error) {
	if m.CreateMotionError != nil {
		return 0, m.CreateMotionError
	}
	return m.FullRepository.CreateMotion(ctx, motion)
}

func (m *Repository) GetMotion(ctx context.Context, id int64) (*models.Motion, error) {
	if m.GetMotionError != nil {
		return nil, m.GetMotionError
	}
	return m.FullRepository.GetMotion(ctx, id)
}

func (m *Repository) ListMotions(ctx context.Context, committeeID int64) ([]models.Motion, error) {
	if m.ListMotionsError != nil {
		return nil, m.ListMotionsError
	}
	return m.FullRepository.ListMotions(ctx, committeeID)
}

func (m *Repository) UpdateMotion(ctx context.Context, motion models.Motion) error {
	if m.UpdateMotionError != nil {
		return m.UpdateMotionError
	}
	return m.FullRepository.UpdateMotion(ctx, motion)
}

// SettleMotion fails as a whole when any write it would make is set to fail
func (m *Repository) SettleMotion(ctx context.Context, motion models.Motion, related ...models.Motion) (*models.Motion, error) {
	if m.SettleMotionError != nil {
		return nil, m.SettleMotionError
	}
	if motion.ID == 0 && m.CreateMotionError != nil {
		return nil, m.CreateMotionError
	}
	if (motion.ID != 0 || len(related) > 0) && m.UpdateMotionError != nil {
		return nil, m.UpdateMotionError
	}
	return m.FullRepository.SettleMotion(ctx, motion, related...)
}

func (m *Repository) UpdateMotionOrder(ctx context.Context, committeeID int64, ids []int64) error {
	if m.UpdateMotionOrderError != nil {
		return m.UpdateMotionOrderError
	}
	return m.FullRepository.UpdateMotionOrder(ctx, committeeID, ids)
}

// ===== Snapshot Methods =====

func (m *Repository) SaveSnapshot(ctx context.Context, committeeID int64, snap models.Snapshot) error {
	if m.SaveSnapshotError != nil {
		return m.SaveSnapshotError
	}
	return m.FullRepository.SaveSnapshot(ctx, committeeID, snap)
}

func (m *Repository) GetSnapshot(ctx context.Context, committeeID int64) (*models.Snapshot, error) {
	if m.GetSnapshotError != nil {
		return nil, m.GetSnapshotError
	}
	return m.FullRepository.GetSnapshot(ctx, committeeID)
}

// ===== Activity Methods =====

func (m *Repository) AddActivity(ctx context.Context, entry models.ActivityEntry) (int64, error) {
	if m.AddActivityError != nil {
		return 0, m.AddActivityError
	}
	return m.FullRepository.AddActivity(ctx, entry)
}

func (m *Repository) ListActivity(ctx context.Context, committeeID int64, limit int) ([]models.ActivityEntry, error) {
	if m.ListActivityError != nil {
		return nil, m.ListActivityError
	}
	return m.FullRepository.ListActivity(ctx, committeeID, limit)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}
